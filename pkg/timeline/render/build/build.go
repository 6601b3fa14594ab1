// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package build turns a project.RootComponentClass into the render.Node
// tree render.Renderer walks. A root's own left/right pins stand in for a
// synthetic top-level Components node; each of its instances becomes one
// leaf child, resolved to a processor through a classloader.Loader.
//
// Scope cut: this builder only resolves NativeProcessor and
// GatherNativeProcessor leaves. A ComponentProcessor instance (one whose
// class expands into a nested timeline) is rejected with
// ErrCompositeNotSupported — none of this repo's builtin classes
// (mediafile, shape, text) are composites, and wiring a full nested-
// expansion pass (resolving Expansion.Instances/Links back into further
// node lists) is tracked as a follow-up rather than attempted here; see
// DESIGN.md. Likewise, an instance's own interior markers are not fed into
// its stretch.Map as extra breakpoints — only its left/right pins are —
// since MarkerPin carries one anchor value shared with the differential
// solver's global coordinate space, not a separate local-to-the-instance
// one; see DESIGN.md's Open Questions.
package build

import (
	"errors"
	"fmt"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/render"
	"mpdelta/pkg/timeline/stretch"
	ptime "mpdelta/pkg/timeline/time"
)

// ErrCompositeNotSupported is returned when an instance resolves to a
// ComponentProcessor; see the package doc's scope cut.
var ErrCompositeNotSupported = errors.New("build: composite (component) processors are not supported by this builder")

// Build resolves every instance in root through loader and returns the
// synthetic top-level Node render.Renderer can walk. whole is consulted for
// each leaf's NaturalLength — pass the same cache the resulting tree will
// later be rendered with, or procache.WholeCache{} when there is none (that
// zero value has no storage, so a processor calling Get or Put on it panics).
func Build(loader *classloader.Loader, root *project.RootComponentClass, whole procache.WholeCache) (*render.Node, error) {
	children := make([]*render.Node, 0, len(root.Instances()))
	for _, inst := range root.Instances() {
		child, err := buildLeaf(loader, inst, whole)
		if err != nil {
			return nil, fmt.Errorf("build: instance %s: %w", inst.ID(), err)
		}
		children = append(children, child)
	}

	top := project.NewComponentInstance(root.ID(), id.ClassIdentifier{}, root.Left(), root.Right())
	return &render.Node{Instance: top, Children: children}, nil
}

func buildLeaf(loader *classloader.Loader, inst *project.ComponentInstance, whole procache.WholeCache) (*render.Node, error) {
	proc, err := loader.Resolve(inst.Class())
	if err != nil {
		return nil, err
	}

	switch p := proc.(type) {
	case processor.NativeProcessor:
		natural, ok := p.NaturalLength(inst.FixedParams(), whole)
		return &render.Node{Instance: inst, Proc: p, Stretch: buildStretch(inst, natural, ok)}, nil
	case processor.GatherNativeProcessor:
		natural, ok := p.NaturalLength(inst.FixedParams(), whole)
		return &render.Node{Instance: inst, Proc: p, Stretch: buildStretch(inst, natural, ok)}, nil
	default:
		return nil, ErrCompositeNotSupported
	}
}

// buildStretch constructs the single-segment linear map between inst's own
// left and right pins, using natural as the instance's local length when
// the processor has an opinion (ok), or the instance's own global span
// otherwise.
func buildStretch(inst *project.ComponentInstance, natural ptime.MarkerTime, ok bool) *stretch.Map {
	left := inst.Left().CachedTimelineTime()
	right := inst.Right().CachedTimelineTime()

	length := natural.Value()
	if !ok {
		length = right.Value().Sub(left.Value())
	}

	zero, _ := ptime.NewMarkerTime(fraction.Zero)
	rightLocal, lOk := ptime.NewMarkerTime(length)
	if !lOk {
		rightLocal = zero
	}

	return stretch.New(
		stretch.Point{Global: left, Local: zero},
		stretch.Point{Global: right, Local: rightLocal},
		nil,
		rightLocal.Value(),
	)
}
