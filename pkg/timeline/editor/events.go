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
	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/project"
	ptime "mpdelta/pkg/timeline/time"
)

// RootComponentEditEvent is the tagged union of root-level edit
// notifications, one variant per RootCommand. Kind selects which of the
// typed fields are populated.
type RootComponentEditEvent struct {
	Kind RootEventKind

	Instance *project.ComponentInstance // AddComponentInstance, DeleteComponentInstance, EditComponentLength, InsertComponentInstanceTo
	Link     *project.MarkerLink        // RemoveMarkerLink, EditMarkerLinkLength, ConnectMarkerPins
	Length   fraction.Fraction          // EditMarkerLinkLength, EditComponentLength
}

// RootEventKind discriminates RootComponentEditEvent.
type RootEventKind int

const (
	EventAddComponentInstance RootEventKind = iota
	EventRemoveMarkerLink
	EventEditMarkerLinkLength
	EventDeleteComponentInstance
	EventEditComponentLength
	EventConnectMarkerPins
	EventInsertComponentInstanceTo
)

// InstanceEditEvent is the tagged union of instance-level edit
// notifications, one variant per InstanceCommand.
type InstanceEditEvent struct {
	Kind InstanceEventKind

	FixedParams []parameter.RawValue
	ImageParams *project.ImageRequiredParams
	To          ptime.TimelineTime
	Pin         id.ID
	At          ptime.TimelineTime
}

// InstanceEventKind discriminates InstanceEditEvent.
type InstanceEventKind int

const (
	EventUpdateFixedParams InstanceEventKind = iota
	EventUpdateImageRequiredParams
	EventMoveComponentInstance
	EventMoveMarkerPin
	EventAddMarkerPin
	EventDeleteMarkerPin
	EventLockMarkerPin
	EventUnlockMarkerPin
)

// EditEventListener receives every successful edit against a project, after
// the mutation and its differential-solver re-run have both completed.
type EditEventListener interface {
	OnEdit(root *project.RootComponentClass, event RootComponentEditEvent)
	OnEditInstance(root *project.RootComponentClass, instance *project.ComponentInstance, event InstanceEditEvent)
}
