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

// Package stretch builds the piecewise-linear global-to-local time map for
// one component instance from its locked pins, and its symmetric inverse.
package stretch

import (
	"sort"

	"mpdelta/pkg/fraction"
	ptime "mpdelta/pkg/timeline/time"
)

// breakpoint is one (global, local) anchor the map interpolates between.
type breakpoint struct {
	global ptime.TimelineTime
	local  ptime.MarkerTime
}

// Map is a piecewise-linear function from global TimelineTime to local
// MarkerTime, built from an instance's locked pins ordered by TimelineTime.
// Outside the outermost breakpoints it extrapolates at the nearest
// segment's slope, clamped so the result never leaves [0, naturalLength].
type Map struct {
	points        []breakpoint
	naturalLength fraction.Fraction
}

// Point is one locked pin's (global, local) pair, as fed to New.
type Point struct {
	Global ptime.TimelineTime
	Local  ptime.MarkerTime
}

// New builds a Map from left/right anchors and zero or more interior locked
// points, plus the instance's natural length (used to clamp extrapolation).
// Points need not be pre-sorted; New orders them by Global time.
func New(left, right Point, interior []Point, naturalLength fraction.Fraction) *Map {
	points := make([]breakpoint, 0, len(interior)+2)
	points = append(points, breakpoint{left.Global, left.Local})
	for _, p := range interior {
		points = append(points, breakpoint{p.Global, p.Local})
	}
	points = append(points, breakpoint{right.Global, right.Local})

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].global.Before(points[j].global)
	})

	return &Map{points: points, naturalLength: naturalLength}
}

func clampLocal(v, naturalLength fraction.Fraction) fraction.Fraction {
	if v.Signum() < 0 {
		return fraction.Zero
	}
	if v.Cmp(naturalLength) > 0 {
		return naturalLength
	}
	return v
}

// segmentSlope returns (dLocal/dGlobal) as a Fraction for the segment from a
// to b, or false if the segment has zero global width (degenerate, treated
// as flat by the caller).
func segmentSlope(a, b breakpoint) (fraction.Fraction, bool) {
	dGlobal := b.global.Sub(a.global)
	if dGlobal.Signum() == 0 {
		return fraction.Zero, false
	}
	dLocal := b.local.Value().Sub(a.local.Value())
	slope, ok := dLocal.CheckedDiv(dGlobal)
	if !ok {
		return fraction.Zero, false
	}
	return slope, true
}

// At maps a global TimelineTime to a local MarkerTime. k=0 (two points,
// left/right only) and k=1 (three points) fall naturally out of the general
// piecewise walk below; they need no special-cased code path in Go since
// slice indexing over 2 or 3 points already is the general case.
func (m *Map) At(global ptime.TimelineTime) ptime.MarkerTime {
	k := len(m.points) - 1
	if k <= 0 {
		v, _ := ptime.NewMarkerTime(fraction.Zero)
		return v
	}

	switch {
	case !global.Before(m.points[0].global) && global.Cmp(m.points[k].global) <= 0:
		for i := 0; i < k; i++ {
			a, b := m.points[i], m.points[i+1]
			if global.Cmp(a.global) >= 0 && global.Cmp(b.global) <= 0 {
				return interpolate(a, b, global, m.naturalLength)
			}
		}
	case global.Before(m.points[0].global):
		return extrapolate(m.points[0], m.points[1], global, m.naturalLength)
	default:
		return extrapolate(m.points[k-1], m.points[k], global, m.naturalLength)
	}

	v, _ := ptime.NewMarkerTime(fraction.Zero)
	return v
}

func interpolate(a, b breakpoint, global ptime.TimelineTime, naturalLength fraction.Fraction) ptime.MarkerTime {
	slope, ok := segmentSlope(a, b)
	if !ok {
		v, _ := ptime.NewMarkerTime(clampLocal(a.local.Value(), naturalLength))
		return v
	}
	offset := global.Sub(a.global)
	local := a.local.Value().Add(offset.Mul(slope))
	v, _ := ptime.NewMarkerTime(clampLocal(local, naturalLength))
	return v
}

func extrapolate(a, b breakpoint, global ptime.TimelineTime, naturalLength fraction.Fraction) ptime.MarkerTime {
	return interpolate(a, b, global, naturalLength)
}

// Inverse builds the symmetric local-to-global map over the same
// breakpoints. No renderer path calls it: audio rendering and the tree
// builder use the forward Map only.
func (m *Map) Inverse() *InverseMap {
	return &InverseMap{points: m.points, naturalLength: m.naturalLength}
}

// InverseMap maps local MarkerTime back to global TimelineTime.
type InverseMap struct {
	points        []breakpoint
	naturalLength fraction.Fraction
}

// At maps a local MarkerTime to a global TimelineTime.
func (m *InverseMap) At(local ptime.MarkerTime) ptime.TimelineTime {
	k := len(m.points) - 1
	if k <= 0 {
		return ptime.NewTimelineTime(fraction.Zero)
	}

	lv := local.Value()
	switch {
	case lv.Cmp(m.points[0].local.Value()) >= 0 && lv.Cmp(m.points[k].local.Value()) <= 0:
		for i := 0; i < k; i++ {
			a, b := m.points[i], m.points[i+1]
			if lv.Cmp(a.local.Value()) >= 0 && lv.Cmp(b.local.Value()) <= 0 {
				return interpolateInverse(a, b, local)
			}
		}
	case lv.Cmp(m.points[0].local.Value()) < 0:
		return interpolateInverse(m.points[0], m.points[1], local)
	default:
		return interpolateInverse(m.points[k-1], m.points[k], local)
	}

	return ptime.NewTimelineTime(fraction.Zero)
}

func interpolateInverse(a, b breakpoint, local ptime.MarkerTime) ptime.TimelineTime {
	dLocal := b.local.Value().Sub(a.local.Value())
	if dLocal.Signum() == 0 {
		return a.global
	}
	slope, ok := b.global.Sub(a.global).CheckedDiv(dLocal)
	if !ok {
		return a.global
	}
	offset := local.Value().Sub(a.local.Value())
	return a.global.Add(offset.Mul(slope))
}
