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

package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/project"
	ptime "mpdelta/pkg/timeline/time"
)

func newTestInstance(gen id.Generator) *project.ComponentInstance {
	left := project.NewMarkerPin(gen.Generate())
	right := project.NewMarkerPin(gen.Generate())
	return project.NewComponentInstance(gen.Generate(), id.ClassIdentifier{Name: "solid"}, left, right)
}

func lockAt(pin *project.MarkerPin, v int32) {
	mt, _ := ptime.NewMarkerTime(fraction.FromInt(v))
	pin.Lock(mt)
	pin.SetCachedTimelineTime(ptime.NewTimelineTime(fraction.FromInt(v)))
}

func TestAddComponentInstanceChainsNaturally(t *testing.T) {
	p := project.NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.FromInt(100))
	gen := id.RandGenerator{}
	e := New(nil)

	a := newTestInstance(gen)
	require.NoError(t, e.Edit(context.Background(), root, CmdAddComponentInstance{Instance: a}))
	require.Equal(t, fraction.FromInt(1), a.Left().CachedTimelineTime().Value())
	require.Equal(t, fraction.FromInt(2), a.Right().CachedTimelineTime().Value())

	b := newTestInstance(gen)
	require.NoError(t, e.Edit(context.Background(), root, CmdAddComponentInstance{Instance: b}))
	require.Equal(t, fraction.FromInt(2), b.Left().CachedTimelineTime().Value())
	require.Equal(t, fraction.FromInt(3), b.Right().CachedTimelineTime().Value())
}

func TestDeleteComponentInstanceRebridgesSurvivors(t *testing.T) {
	p := project.NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.FromInt(100))
	gen := id.RandGenerator{}
	e := New(nil)

	a := newTestInstance(gen)
	require.NoError(t, e.Edit(context.Background(), root, CmdAddComponentInstance{Instance: a}))
	b := newTestInstance(gen)
	require.NoError(t, e.Edit(context.Background(), root, CmdAddComponentInstance{Instance: b}))

	require.NoError(t, e.Edit(context.Background(), root, CmdDeleteComponentInstance{InstanceID: a.ID()}))

	_, ok := root.Instance(a.ID())
	require.False(t, ok)
	require.False(t, root.Dirty)

	require.Equal(t, fraction.FromInt(2), b.Left().CachedTimelineTime().Value())
	require.Equal(t, fraction.FromInt(3), b.Right().CachedTimelineTime().Value())
}

func TestEditMarkerLinkLengthRerunsSolver(t *testing.T) {
	p := project.NewProject(id.RandGenerator{})
	root := p.NewRootComponentClass(fraction.FromInt(100))
	gen := id.RandGenerator{}
	e := New(nil)

	a := newTestInstance(gen)
	require.NoError(t, e.Edit(context.Background(), root, CmdAddComponentInstance{Instance: a}))

	var linkID id.ID
	for _, l := range root.Links() {
		if l.From == root.Left() {
			linkID = l.ID()
		}
	}
	require.NoError(t, e.Edit(context.Background(), root, CmdEditMarkerLinkLength{LinkID: linkID, Length: fraction.FromInt(5)}))
	require.Equal(t, fraction.FromInt(5), a.Left().CachedTimelineTime().Value())
}

func TestMoveMarkerPinInterpolatesUnlinkedFloatingPin(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	lockAt(inst.Left(), 0)
	lockAt(inst.Right(), 10)
	marker := project.NewMarkerPin(gen.Generate())
	inst.InsertMarker(0, marker)

	to := ptime.NewTimelineTime(fraction.FromInt(5))
	require.NoError(t, e.EditInstance(context.Background(), root, inst, CmdMoveMarkerPin{PinID: marker.ID(), To: to}))

	lock, ok := marker.Locked()
	require.True(t, ok)
	require.Equal(t, fraction.FromInt(5), lock.Value())
}

func TestAddMarkerPinInterpolatesBetweenLockedAnchors(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	lockAt(inst.Left(), 0)
	lockAt(inst.Right(), 10)

	at := ptime.NewTimelineTime(fraction.FromInt(4))
	require.NoError(t, e.EditInstance(context.Background(), root, inst, CmdAddMarkerPin{At: at}))

	require.Len(t, inst.Markers(), 1)
	lock, ok := inst.Markers()[0].Locked()
	require.True(t, ok)
	require.Equal(t, fraction.FromInt(4), lock.Value())
}

func TestAddMarkerPinRejectsOutOfRangePosition(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	lockAt(inst.Left(), 0)
	lockAt(inst.Right(), 10)

	at := ptime.NewTimelineTime(fraction.FromInt(20))
	err := e.EditInstance(context.Background(), root, inst, CmdAddMarkerPin{At: at})
	require.ErrorIs(t, err, ErrInvalidMarkerPinAddPosition)
}

func TestDeleteMarkerPinRejectsWhenNoLockedPinsWouldRemain(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	marker := project.NewMarkerPin(gen.Generate())
	lockAt(marker, 5)
	inst.InsertMarker(0, marker)
	// left/right are left floating, so marker is the instance's only locked pin.

	err := e.EditInstance(context.Background(), root, inst, CmdDeleteMarkerPin{PinID: marker.ID()})
	require.ErrorIs(t, err, ErrMarkerPinNotFound)
}

func TestDeleteMarkerPinRemovesMarkerWhenOthersStayLocked(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	lockAt(inst.Left(), 0)
	lockAt(inst.Right(), 10)
	marker := project.NewMarkerPin(gen.Generate())
	lockAt(marker, 5)
	inst.InsertMarker(0, marker)

	require.NoError(t, e.EditInstance(context.Background(), root, inst, CmdDeleteMarkerPin{PinID: marker.ID()}))
	require.Empty(t, inst.Markers())
}

func TestLockMarkerPinSnapshotsInterpolatedValue(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	lockAt(inst.Left(), 0)
	lockAt(inst.Right(), 10)
	marker := project.NewMarkerPin(gen.Generate())
	marker.SetCachedTimelineTime(ptime.NewTimelineTime(fraction.FromInt(3)))
	inst.InsertMarker(0, marker)

	require.NoError(t, e.EditInstance(context.Background(), root, inst, CmdLockMarkerPin{PinID: marker.ID()}))
	lock, ok := marker.Locked()
	require.True(t, ok)
	require.Equal(t, fraction.FromInt(3), lock.Value())
}

func TestUnlockMarkerPinAddsSyntheticLinkWhenNotLiveConnected(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	lockAt(inst.Left(), 0)
	lockAt(inst.Right(), 10)
	marker := project.NewMarkerPin(gen.Generate())
	lockAt(marker, 5)
	inst.InsertMarker(0, marker)

	require.NoError(t, e.EditInstance(context.Background(), root, inst, CmdUnlockMarkerPin{PinID: marker.ID()}))

	_, locked := marker.Locked()
	require.False(t, locked)
	require.Len(t, root.Links(), 1)
}

func TestUpdateFixedParamsRejectsLengthMismatch(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	inst.SetFixedParams([]parameter.RawValue{parameter.RealValue(1)})

	err := e.EditInstance(context.Background(), root, inst, CmdUpdateFixedParams{Params: []parameter.RawValue{parameter.RealValue(2), parameter.RealValue(3)}})
	require.ErrorIs(t, err, ErrParameterTypeMismatch)
}

func TestUpdateFixedParamsReplacesMatchingSlots(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	inst := newTestInstance(gen)
	inst.SetFixedParams([]parameter.RawValue{parameter.RealValue(1)})

	require.NoError(t, e.EditInstance(context.Background(), root, inst, CmdUpdateFixedParams{Params: []parameter.RawValue{parameter.RealValue(9)}}))
	require.Equal(t, parameter.RealValue(9), inst.FixedParams()[0])
}

func TestAddEditEventListenerReceivesNotification(t *testing.T) {
	gen := id.RandGenerator{}
	p := project.NewProject(gen)
	root := p.NewRootComponentClass(fraction.FromInt(100))
	e := New(nil)

	var got *RootComponentEditEvent
	e.AddEditEventListener(fakeListener{onEdit: func(event RootComponentEditEvent) { got = &event }})

	a := newTestInstance(gen)
	require.NoError(t, e.Edit(context.Background(), root, CmdAddComponentInstance{Instance: a}))

	require.NotNil(t, got)
	require.Equal(t, EventAddComponentInstance, got.Kind)
	require.Equal(t, a, got.Instance)
}

type fakeListener struct {
	onEdit func(event RootComponentEditEvent)
}

func (f fakeListener) OnEdit(_ *project.RootComponentClass, event RootComponentEditEvent) {
	if f.onEdit != nil {
		f.onEdit(event)
	}
}

func (fakeListener) OnEditInstance(*project.RootComponentClass, *project.ComponentInstance, InstanceEditEvent) {
}
