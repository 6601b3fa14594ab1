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

package project

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	ptime "mpdelta/pkg/timeline/time"
)

func TestNewRootComponentClassAnchors(t *testing.T) {
	p := NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.FromInt(10))

	leftLock, ok := root.Left().Locked()
	require.True(t, ok)
	require.Equal(t, fraction.Zero, leftLock.Value())

	rightLock, ok := root.Right().Locked()
	require.True(t, ok)
	require.Equal(t, fraction.FromInt(10), rightLock.Value())

	require.Equal(t, fraction.FromInt(10), root.Right().CachedTimelineTime().Value())
}

func TestAddRemoveInstance(t *testing.T) {
	p := NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.One)
	gen := id.RandGenerator{}

	left := NewMarkerPin(gen.Generate())
	right := NewMarkerPin(gen.Generate())
	inst := NewComponentInstance(gen.Generate(), id.ClassIdentifier{Name: "solid"}, left, right)

	root.AddInstance(inst)
	require.Len(t, root.Instances(), 1)

	got, ok := root.Instance(inst.ID())
	require.True(t, ok)
	require.Equal(t, inst, got)

	_, ok = root.Pin(left.ID())
	require.True(t, ok)

	require.True(t, root.RemoveInstance(inst.ID()))
	require.Empty(t, root.Instances())
	_, ok = root.Pin(left.ID())
	require.False(t, ok)
}

func TestInsertInstanceAtPreservesOrder(t *testing.T) {
	p := NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.One)
	gen := id.RandGenerator{}

	mk := func() *ComponentInstance {
		return NewComponentInstance(gen.Generate(), id.ClassIdentifier{Name: "x"}, NewMarkerPin(gen.Generate()), NewMarkerPin(gen.Generate()))
	}

	a, b, c := mk(), mk(), mk()
	root.AddInstance(a)
	root.AddInstance(b)
	root.InsertInstanceAt(1, c)

	order := root.Instances()
	require.Equal(t, []id.ID{a.ID(), c.ID(), b.ID()}, []id.ID{order[0].ID(), order[1].ID(), order[2].ID()})
}

func TestLinksAddRemove(t *testing.T) {
	p := NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.One)
	gen := id.RandGenerator{}

	link := NewMarkerLink(gen.Generate(), root.Left(), root.Right(), fraction.One)
	root.AddLink(link)
	require.Len(t, root.Links(), 1)
	require.Len(t, root.LinksOn(root.Left()), 1)

	require.True(t, root.RemoveLink(link.ID()))
	require.Empty(t, root.Links())
}

func TestComponentInstanceMarkers(t *testing.T) {
	gen := id.RandGenerator{}
	left := NewMarkerPin(gen.Generate())
	right := NewMarkerPin(gen.Generate())
	inst := NewComponentInstance(gen.Generate(), id.ClassIdentifier{Name: "x"}, left, right)

	m1 := NewMarkerPin(gen.Generate())
	m2 := NewMarkerPin(gen.Generate())
	inst.InsertMarker(0, m2)
	inst.InsertMarker(0, m1)

	require.Equal(t, []*MarkerPin{m1, m2}, inst.Markers())
	require.Equal(t, []*MarkerPin{left, m1, m2, right}, inst.AllPins())

	require.True(t, inst.RemoveMarker(m1.ID()))
	require.Equal(t, []*MarkerPin{m2}, inst.Markers())
}

func TestMarkerPinLockUnlock(t *testing.T) {
	gen := id.RandGenerator{}
	pin := NewMarkerPin(gen.Generate())
	_, locked := pin.Locked()
	require.False(t, locked)

	mt, _ := ptime.NewMarkerTime(fraction.FromInt(3))
	pin.Lock(mt)
	got, locked := pin.Locked()
	require.True(t, locked)
	require.Equal(t, fraction.FromInt(3), got.Value())

	pin.Unlock()
	_, locked = pin.Locked()
	require.False(t, locked)
}
