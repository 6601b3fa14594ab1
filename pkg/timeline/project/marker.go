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
	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/id"
	ptime "mpdelta/pkg/timeline/time"
)

// MarkerPin is a single point on the timeline: an id, a cached absolute
// TimelineTime recomputed by the differential solver, and an optional
// MarkerTime lock. Left/right pins of a root class are always locked;
// interior pins may float.
type MarkerPin struct {
	id         id.ID
	cachedTime ptime.TimelineTime
	locked     *ptime.MarkerTime
}

// NewMarkerPin creates a floating pin with the given id.
func NewMarkerPin(pinID id.ID) *MarkerPin {
	return &MarkerPin{id: pinID}
}

// NewLockedMarkerPin creates a pin locked at the given MarkerTime.
func NewLockedMarkerPin(pinID id.ID, lock ptime.MarkerTime) *MarkerPin {
	l := lock
	return &MarkerPin{id: pinID, locked: &l}
}

// ID returns the pin's identifier.
func (p *MarkerPin) ID() id.ID { return p.id }

// CachedTimelineTime returns the last time the differential solver assigned
// this pin.
func (p *MarkerPin) CachedTimelineTime() ptime.TimelineTime { return p.cachedTime }

// SetCachedTimelineTime is called by the differential solver (C4) to record
// a freshly computed absolute time.
func (p *MarkerPin) SetCachedTimelineTime(t ptime.TimelineTime) { p.cachedTime = t }

// Locked returns the pin's MarkerTime lock and whether it is locked.
func (p *MarkerPin) Locked() (ptime.MarkerTime, bool) {
	if p.locked == nil {
		return ptime.MarkerTime{}, false
	}
	return *p.locked, true
}

// Lock sets the pin's MarkerTime lock.
func (p *MarkerPin) Lock(at ptime.MarkerTime) {
	l := at
	p.locked = &l
}

// Unlock clears the pin's MarkerTime lock, making it floating.
func (p *MarkerPin) Unlock() {
	p.locked = nil
}

// MarkerLink is a directed edge from one pin to another with a signed
// duration: to.time = from.time + len.
type MarkerLink struct {
	id   id.ID
	From *MarkerPin
	To   *MarkerPin
	Len  fraction.Fraction
}

// NewMarkerLink constructs a link. from and to must belong to the same
// RootComponentClass; this is checked by RootComponentClass.AddLink, not
// here, since a bare MarkerLink has no way to know its owning class.
func NewMarkerLink(linkID id.ID, from, to *MarkerPin, length fraction.Fraction) *MarkerLink {
	return &MarkerLink{id: linkID, From: from, To: to, Len: length}
}

// ID returns the link's identifier.
func (l *MarkerLink) ID() id.ID { return l.id }
