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

// Package time defines the two time domains the timeline evaluation core
// works in: TimelineTime, global and signed, and MarkerTime, local to one
// component instance and non-negative. Both wrap pkg/fraction so that every
// timestamp carries exact rational arithmetic instead of floating point.
package time

import "mpdelta/pkg/fraction"

// TimelineTime is an absolute, signed position on the project timeline.
type TimelineTime struct {
	value fraction.Fraction
}

// NewTimelineTime wraps a Fraction as a TimelineTime.
func NewTimelineTime(value fraction.Fraction) TimelineTime {
	return TimelineTime{value: value}
}

// Value returns the underlying Fraction.
func (t TimelineTime) Value() fraction.Fraction {
	return t.value
}

// Add returns t shifted by a signed duration.
func (t TimelineTime) Add(d fraction.Fraction) TimelineTime {
	return TimelineTime{value: t.value.Add(d)}
}

// Sub returns the signed duration from rhs to t (t - rhs).
func (t TimelineTime) Sub(rhs TimelineTime) fraction.Fraction {
	return t.value.Sub(rhs.value)
}

// Cmp orders two TimelineTimes the way fraction.Fraction orders.
func (t TimelineTime) Cmp(rhs TimelineTime) int {
	return t.value.Cmp(rhs.value)
}

// Before reports whether t is strictly less than rhs.
func (t TimelineTime) Before(rhs TimelineTime) bool {
	return t.Cmp(rhs) < 0
}

func (t TimelineTime) String() string {
	return t.value.String()
}

// MarkerTime is a non-negative, component-local position: the lock value a
// MarkerPin carries, and the domain/range of a stretch.Map.
type MarkerTime struct {
	value fraction.Fraction
}

// Zero is MarkerTime 0.
var Zero = MarkerTime{value: fraction.Zero}

// NewMarkerTime validates value >= 0 before wrapping it.
func NewMarkerTime(value fraction.Fraction) (MarkerTime, bool) {
	if value.Signum() < 0 {
		return MarkerTime{}, false
	}
	return MarkerTime{value: value}, true
}

// Value returns the underlying Fraction.
func (m MarkerTime) Value() fraction.Fraction {
	return m.value
}

// Cmp orders two MarkerTimes.
func (m MarkerTime) Cmp(rhs MarkerTime) int {
	return m.value.Cmp(rhs.value)
}

func (m MarkerTime) String() string {
	return m.value.String()
}
