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

package shape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	ptime "mpdelta/pkg/timeline/time"
)

func TestRegistersWithClassloader(t *testing.T) {
	require.True(t, classloader.Registered(Namespace, Name))
}

func fixedFor(kind Kind, w, h int, color uint32) []parameter.RawValue {
	return []parameter.RawValue{
		parameter.StringValue(kind),
		parameter.IntegerValue(w),
		parameter.IntegerValue(h),
		parameter.IntegerValue(color),
	}
}

func TestProcessProducesRasterShape(t *testing.T) {
	p := &Processor{}
	fixed := fixedFor(KindEllipse, 200, 100, 0xff0000ff)

	out, err := p.Process(context.Background(), processor.NativeInput{Fixed: fixed}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeImage, procache.NewWholeCache(0), procache.NewFramedCache(0))
	require.NoError(t, err)

	img, ok := out.(parameter.ImageHandle)
	require.True(t, ok)
	require.Equal(t, 200, img.Width)
	require.Equal(t, 100, img.Height)

	raster, ok := img.Data.(RasterShape)
	require.True(t, ok)
	require.Equal(t, KindEllipse, raster.Kind)
	require.Equal(t, uint32(0xff0000ff), raster.ColorRGBA)
}

func TestProcessRejectsNonImageRequest(t *testing.T) {
	p := &Processor{}
	fixed := fixedFor(KindRect, 10, 10, 0)

	_, err := p.Process(context.Background(), processor.NativeInput{Fixed: fixed}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeAudio, procache.NewWholeCache(0), procache.NewFramedCache(0))
	require.ErrorIs(t, err, processor.ErrOutputTypeMismatch)
}

func TestUnknownKindFallsBackToRect(t *testing.T) {
	p := &Processor{}
	fixed := fixedFor(Kind("triangle"), 10, 10, 0)

	out, err := p.Process(context.Background(), processor.NativeInput{Fixed: fixed}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeImage, procache.NewWholeCache(0), procache.NewFramedCache(0))
	require.NoError(t, err)
	raster := out.(parameter.ImageHandle).Data.(RasterShape)
	require.Equal(t, KindRect, raster.Kind)
}

func TestWholeAndFramedCacheKeysAgreeAndCompare(t *testing.T) {
	p := &Processor{}
	fixedA := fixedFor(KindRect, 10, 20, 1)
	fixedB := fixedFor(KindRect, 10, 21, 1)

	wholeA, ok := p.WholeComponentCacheKey(fixedA, nil)
	require.True(t, ok)
	framedA, ok := p.FramedCacheKey(processor.NativeInput{Fixed: fixedA}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeImage)
	require.True(t, ok)
	require.True(t, wholeA.Equal(framedA))

	wholeB, ok := p.WholeComponentCacheKey(fixedB, nil)
	require.True(t, ok)
	require.False(t, wholeA.Equal(wholeB))
}

func TestCacheKeyRejectsMalformedFixedParams(t *testing.T) {
	p := &Processor{}
	_, ok := p.WholeComponentCacheKey([]parameter.RawValue{parameter.StringValue("rect")}, nil)
	require.False(t, ok)
}
