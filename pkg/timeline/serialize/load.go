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

package serialize

import (
	"fmt"

	"mpdelta/pkg/timeline/differential"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/project"
	ptime "mpdelta/pkg/timeline/time"
)

// Load reconstructs a RootComponentClass from doc inside p, reissuing every
// id through gen. The differential solver is run once at the end so every
// pin's cached TimelineTime reflects the reloaded link graph, mirroring the
// original's "ids and cached times are derived, never persisted" design.
func Load(p *project.Project, gen id.Generator, doc *Document) (*project.RootComponentClass, error) {
	if doc.FormatVersion != FormatVersion {
		return nil, &ErrUnsupportedFormatVersion{Got: doc.FormatVersion}
	}

	length, err := unpackFraction(doc.Length)
	if err != nil {
		return nil, fmt.Errorf("serialize: root length: %w", err)
	}
	root := p.NewRootComponentClass(length)

	instances := make([]*project.ComponentInstance, len(doc.Instances))
	for i, instDoc := range doc.Instances {
		left, err := newPin(gen, instDoc.Left)
		if err != nil {
			return nil, fmt.Errorf("serialize: instance %d left pin: %w", i, err)
		}
		right, err := newPin(gen, instDoc.Right)
		if err != nil {
			return nil, fmt.Errorf("serialize: instance %d right pin: %w", i, err)
		}
		inst := project.NewComponentInstance(gen.Generate(), instDoc.Class.class(), left, right)

		for j, markerDoc := range instDoc.Markers {
			marker, err := newPin(gen, markerDoc)
			if err != nil {
				return nil, fmt.Errorf("serialize: instance %d marker %d: %w", i, j, err)
			}
			inst.InsertMarker(j, marker)
		}

		fixed := make([]parameter.RawValue, len(instDoc.FixedParams))
		for j, v := range instDoc.FixedParams {
			decoded, err := decodeRawValue(v)
			if err != nil {
				return nil, fmt.Errorf("serialize: instance %d fixed param %d: %w", i, j, err)
			}
			fixed[j] = decoded
		}
		inst.SetFixedParams(fixed)

		instances[i] = inst
		root.AddInstance(inst)
	}

	resolvePin := func(ref PinRef) (*project.MarkerPin, error) {
		if ref.Component == nil {
			switch ref.Index.Kind {
			case PinLeft:
				return root.Left(), nil
			case PinRight:
				return root.Right(), nil
			default:
				return nil, fmt.Errorf("serialize: root pin ref has marker index")
			}
		}
		ci := *ref.Component
		if ci < 0 || ci >= len(instances) {
			return nil, fmt.Errorf("serialize: pin ref component %d out of range", ci)
		}
		inst := instances[ci]
		switch ref.Index.Kind {
		case PinLeft:
			return inst.Left(), nil
		case PinRight:
			return inst.Right(), nil
		case PinMarker:
			markers := inst.Markers()
			if ref.Index.Marker < 0 || ref.Index.Marker >= len(markers) {
				return nil, fmt.Errorf("serialize: pin ref marker %d out of range", ref.Index.Marker)
			}
			return markers[ref.Index.Marker], nil
		default:
			return nil, fmt.Errorf("serialize: invalid pin index kind %d", ref.Index.Kind)
		}
	}

	for i, linkDoc := range doc.Links {
		from, err := resolvePin(linkDoc.From)
		if err != nil {
			return nil, fmt.Errorf("serialize: link %d from: %w", i, err)
		}
		to, err := resolvePin(linkDoc.To)
		if err != nil {
			return nil, fmt.Errorf("serialize: link %d to: %w", i, err)
		}
		linkLen, err := unpackFraction(linkDoc.Len)
		if err != nil {
			return nil, fmt.Errorf("serialize: link %d length: %w", i, err)
		}
		root.AddLink(project.NewMarkerLink(gen.Generate(), from, to, linkLen))
	}

	if err := differential.Solve(root.Links(), root.Left(), root.Right()); err != nil {
		root.Dirty = true
	}

	return root, nil
}

func newPin(gen id.Generator, doc MarkerPinDoc) (*project.MarkerPin, error) {
	if !doc.Locked {
		return project.NewMarkerPin(gen.Generate()), nil
	}
	value, err := unpackFraction(doc.Lock)
	if err != nil {
		return nil, err
	}
	lock, ok := ptime.NewMarkerTime(value)
	if !ok {
		return nil, fmt.Errorf("serialize: negative marker lock %s", value)
	}
	return project.NewLockedMarkerPin(gen.Generate(), lock), nil
}
