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

// Package invalidate tracks, for any rendered value, the set of pin ids
// whose cached time affects it. Computed bottom-up and carried alongside
// every rendered value up to the root, it is folded into cache keys so a
// structural edit only invalidates the cache entries it could actually
// change.
package invalidate

import "mpdelta/pkg/timeline/id"

// Range is a pin-id set.
type Range map[id.ID]struct{}

// New returns an empty Range, optionally seeded with the given pins.
func New(pins ...id.ID) Range {
	r := make(Range, len(pins))
	for _, p := range pins {
		r.Add(p)
	}
	return r
}

// Add inserts pin into the range.
func (r Range) Add(pin id.ID) {
	r[pin] = struct{}{}
}

// Contains reports whether pin is in the range.
func (r Range) Contains(pin id.ID) bool {
	_, ok := r[pin]
	return ok
}

// Union returns a new Range containing every pin from r and all of others.
func (r Range) Union(others ...Range) Range {
	out := make(Range, len(r))
	for p := range r {
		out[p] = struct{}{}
	}
	for _, o := range others {
		for p := range o {
			out[p] = struct{}{}
		}
	}
	return out
}

// Len reports the number of pins in the range.
func (r Range) Len() int { return len(r) }
