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

package stretch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/fraction"
	ptime "mpdelta/pkg/timeline/time"
)

func mt(v int32) ptime.MarkerTime {
	m, _ := ptime.NewMarkerTime(fraction.FromInt(v))
	return m
}

func tt(v int32) ptime.TimelineTime {
	return ptime.NewTimelineTime(fraction.FromInt(v))
}

func TestIdentityMapKZero(t *testing.T) {
	m := New(Point{Global: tt(0), Local: mt(0)}, Point{Global: tt(10), Local: mt(10)}, nil, fraction.FromInt(10))
	require.Equal(t, fraction.FromInt(5), m.At(tt(5)).Value())
}

func TestSingleInteriorPointKOne(t *testing.T) {
	left := Point{Global: tt(0), Local: mt(0)}
	right := Point{Global: tt(10), Local: mt(10)}
	interior := Point{Global: tt(4), Local: mt(2)}
	m := New(left, right, []Point{interior}, fraction.FromInt(10))

	require.Equal(t, fraction.FromInt(2), m.At(tt(4)).Value())
	require.Equal(t, fraction.FromInt(1), m.At(tt(2)).Value())
}

func TestExtrapolationClampsToZero(t *testing.T) {
	left := Point{Global: tt(5), Local: mt(0)}
	right := Point{Global: tt(15), Local: mt(10)}
	m := New(left, right, nil, fraction.FromInt(10))

	require.Equal(t, fraction.Zero, m.At(tt(0)).Value())
}

func TestExtrapolationClampsToNaturalLength(t *testing.T) {
	left := Point{Global: tt(5), Local: mt(0)}
	right := Point{Global: tt(15), Local: mt(10)}
	m := New(left, right, nil, fraction.FromInt(10))

	require.Equal(t, fraction.FromInt(10), m.At(tt(30)).Value())
}

func TestInverseRoundTrip(t *testing.T) {
	left := Point{Global: tt(0), Local: mt(0)}
	right := Point{Global: tt(10), Local: mt(10)}
	interior := Point{Global: tt(4), Local: mt(2)}
	m := New(left, right, []Point{interior}, fraction.FromInt(10))
	inv := m.Inverse()

	local := m.At(tt(4))
	require.Equal(t, fraction.FromInt(4), inv.At(local).Value())
}

func TestUnsortedPointsAreOrdered(t *testing.T) {
	left := Point{Global: tt(0), Local: mt(0)}
	right := Point{Global: tt(10), Local: mt(10)}
	a := Point{Global: tt(7), Local: mt(7)}
	b := Point{Global: tt(3), Local: mt(3)}
	m := New(left, right, []Point{a, b}, fraction.FromInt(10))

	require.Equal(t, fraction.FromInt(5), m.At(tt(5)).Value())
}
