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

package pool

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunAllPreservesIndexOrder(t *testing.T) {
	p := New(4)
	tasks := make([]Task[int], 10)
	for i := range tasks {
		i := i
		tasks[i] = func() (int, error) { return i * i, nil }
	}

	results := RunAll(p, tasks)
	require.Len(t, results, 10)
	for i, r := range results {
		require.Equal(t, i, r.Index)
		require.Equal(t, i*i, r.Value)
		require.NoError(t, r.Err)
	}
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	p := New(2)
	var current, max int32
	tasks := make([]Task[struct{}], 8)
	for i := range tasks {
		tasks[i] = func() (struct{}, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&max)
				if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
					break
				}
			}
			atomic.AddInt32(&current, -1)
			return struct{}{}, nil
		}
	}

	RunAll(p, tasks)
	require.LessOrEqual(t, int(atomic.LoadInt32(&max)), 2)
}

func TestRunAllPropagatesErrors(t *testing.T) {
	p := New(4)
	sentinel := errors.New("boom")
	tasks := []Task[int]{
		func() (int, error) { return 1, nil },
		func() (int, error) { return 0, sentinel },
	}
	results := RunAll(p, tasks)
	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, sentinel)
}
