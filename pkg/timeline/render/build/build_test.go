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

package build

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "mpdelta/components/shape"
	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/editor"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/project"
	ptime "mpdelta/pkg/timeline/time"
)

// shapeInstance builds a shape instance whose pins already carry the cached
// global times the differential solver would normally assign, since
// buildStretch reads CachedTimelineTime directly and a fresh MarkerPin's
// zero-value TimelineTime wraps an invalid (unreduced) Fraction.
func shapeInstance(gen id.Generator, left0, right0 fraction.Fraction) *project.ComponentInstance {
	left := project.NewMarkerPin(gen.Generate())
	left.SetCachedTimelineTime(ptime.NewTimelineTime(left0))
	right := project.NewMarkerPin(gen.Generate())
	right.SetCachedTimelineTime(ptime.NewTimelineTime(right0))
	inst := project.NewComponentInstance(gen.Generate(), id.ClassIdentifier{Namespace: "builtin", Name: "shape"}, left, right)
	inst.SetFixedParams([]parameter.RawValue{
		parameter.StringValue("rect"),
		parameter.IntegerValue(10),
		parameter.IntegerValue(10),
		parameter.IntegerValue(0xffffffff),
	})
	return inst
}

func TestBuildResolvesLeavesAndStretchMaps(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))

	e := editor.New(nil)
	a := shapeInstance(gen, fraction.Zero, fraction.FromInt(10))
	require.NoError(t, e.Edit(nil, root, editor.CmdAddComponentInstance{Instance: a})) //nolint:staticcheck

	node, err := Build(&classloader.Loader{}, root, procache.WholeCache{})
	require.NoError(t, err)
	require.Len(t, node.Children, 1)
	require.Same(t, a, node.Children[0].Instance)
	require.NotNil(t, node.Children[0].Proc)
	require.NotNil(t, node.Children[0].Stretch)
}

func TestBuildRejectsUnknownClass(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))

	left := project.NewMarkerPin(gen.Generate())
	right := project.NewMarkerPin(gen.Generate())
	inst := project.NewComponentInstance(gen.Generate(), id.ClassIdentifier{Namespace: "builtin", Name: "nope"}, left, right)
	root.AddInstance(inst)

	_, err := Build(&classloader.Loader{}, root, procache.WholeCache{})
	require.Error(t, err)
}
