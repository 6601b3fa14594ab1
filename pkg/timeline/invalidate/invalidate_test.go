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

package invalidate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/timeline/id"
)

func TestAddContains(t *testing.T) {
	r := New()
	p := id.RandGenerator{}.Generate()
	require.False(t, r.Contains(p))
	r.Add(p)
	require.True(t, r.Contains(p))
}

func TestUnion(t *testing.T) {
	gen := id.RandGenerator{}
	a, b, c := gen.Generate(), gen.Generate(), gen.Generate()

	r1 := New(a, b)
	r2 := New(b, c)
	u := r1.Union(r2)

	require.Equal(t, 3, u.Len())
	require.True(t, u.Contains(a))
	require.True(t, u.Contains(b))
	require.True(t, u.Contains(c))

	// originals untouched
	require.Equal(t, 2, r1.Len())
}

func TestUnionVariadic(t *testing.T) {
	gen := id.RandGenerator{}
	a, b, c := gen.Generate(), gen.Generate(), gen.Generate()
	u := New(a).Union(New(b), New(c))
	require.Equal(t, 3, u.Len())
}
