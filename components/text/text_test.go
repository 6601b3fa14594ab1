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

package text

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	ptime "mpdelta/pkg/timeline/time"
)

func TestRegistersWithClassloader(t *testing.T) {
	require.True(t, classloader.Registered(Namespace, Name))
}

func fixedFor(content string, size int, color uint32) []parameter.RawValue {
	return []parameter.RawValue{
		parameter.StringValue(content),
		parameter.IntegerValue(size),
		parameter.IntegerValue(color),
	}
}

func TestProcessProducesGlyphs(t *testing.T) {
	p := &Processor{}
	fixed := fixedFor("hello", 32, 0x000000ff)

	out, err := p.Process(context.Background(), processor.NativeInput{Fixed: fixed}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeImage, procache.NewWholeCache(0), procache.NewFramedCache(0))
	require.NoError(t, err)

	img, ok := out.(parameter.ImageHandle)
	require.True(t, ok)
	glyphs, ok := img.Data.(Glyphs)
	require.True(t, ok)
	require.Equal(t, "hello", glyphs.Content)
	require.Equal(t, 32, glyphs.FontSize)
	require.Equal(t, uint32(0x000000ff), glyphs.ColorRGBA)
}

func TestProcessRejectsNonImageRequest(t *testing.T) {
	p := &Processor{}
	fixed := fixedFor("hello", 32, 0)

	_, err := p.Process(context.Background(), processor.NativeInput{Fixed: fixed}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeAudio, procache.NewWholeCache(0), procache.NewFramedCache(0))
	require.ErrorIs(t, err, processor.ErrOutputTypeMismatch)
}

func TestCacheKeysDistinguishContent(t *testing.T) {
	p := &Processor{}
	keyA, ok := p.WholeComponentCacheKey(fixedFor("a", 10, 0), nil)
	require.True(t, ok)
	keyB, ok := p.WholeComponentCacheKey(fixedFor("b", 10, 0), nil)
	require.True(t, ok)
	require.False(t, keyA.Equal(keyB))

	framedA, ok := p.FramedCacheKey(processor.NativeInput{Fixed: fixedFor("a", 10, 0)}, ptime.NewTimelineTime(fraction.Zero), parameter.TypeImage)
	require.True(t, ok)
	require.True(t, keyA.Equal(framedA))
}

func TestCacheKeyRejectsMalformedFixedParams(t *testing.T) {
	p := &Processor{}
	_, ok := p.WholeComponentCacheKey([]parameter.RawValue{parameter.StringValue("x")}, nil)
	require.False(t, ok)
}

func TestNaturalLengthHasNoOpinion(t *testing.T) {
	p := &Processor{}
	_, ok := p.NaturalLength(fixedFor("x", 1, 0), procache.NewWholeCache(0))
	require.False(t, ok)
}
