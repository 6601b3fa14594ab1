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

package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"mpdelta/pkg/log"
	"mpdelta/pkg/storage"

	"github.com/shirou/gopsutil/v3/mem"
)

func newTestSystem(disk diskFunc) *System {
	s := New(disk, log.NewMockLogger())
	s.cpu = func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{12.5}, nil
	}
	s.ram = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 34.5}, nil
	}
	return s
}

func TestSystemUpdate(t *testing.T) {
	t.Run("working", func(t *testing.T) {
		s := newTestSystem(func() (storage.DiskUsage, error) {
			return storage.DiskUsage{Percent: 56, Formatted: "1 GB"}, nil
		})

		if err := s.update(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		status := s.Status()
		if status.CPUUsage != 12 {
			t.Errorf("expected cpu usage 12, got %v", status.CPUUsage)
		}
		if status.RAMUsage != 34 {
			t.Errorf("expected ram usage 34, got %v", status.RAMUsage)
		}
		if status.DiskUsage != 56 {
			t.Errorf("expected disk usage 56, got %v", status.DiskUsage)
		}
		if status.DiskUsageFormatted != "1 GB" {
			t.Errorf("expected formatted '1 GB', got %v", status.DiskUsageFormatted)
		}
	})
	t.Run("cpuErr", func(t *testing.T) {
		s := newTestSystem(func() (storage.DiskUsage, error) { return storage.DiskUsage{}, nil })
		s.cpu = func(context.Context, time.Duration, bool) ([]float64, error) {
			return nil, errors.New("mock error")
		}
		if err := s.update(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
	t.Run("ramErr", func(t *testing.T) {
		s := newTestSystem(func() (storage.DiskUsage, error) { return storage.DiskUsage{}, nil })
		s.ram = func() (*mem.VirtualMemoryStat, error) {
			return nil, errors.New("mock error")
		}
		if err := s.update(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
	t.Run("diskErr", func(t *testing.T) {
		s := newTestSystem(func() (storage.DiskUsage, error) {
			return storage.DiskUsage{}, errors.New("mock error")
		})
		if err := s.update(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func TestSystemStatusLoop(t *testing.T) {
	calls := 0
	s := newTestSystem(func() (storage.DiskUsage, error) {
		calls++
		return storage.DiskUsage{Percent: 1, Formatted: "1 B"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	go s.StatusLoop(ctx)

	for i := 0; i < 100 && calls == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if calls == 0 {
		t.Fatal("expected at least one status update")
	}
}

func TestTimeZone(t *testing.T) {
	zone, err := TimeZone()
	if err != nil && !errors.Is(err, ErrNoTimeZone) {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = zone
}
