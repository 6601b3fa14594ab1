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

// Package text is the builtin:text leaf component: a NativeProcessor that
// produces a single line of shaped text as an opaque image payload. Actual
// glyph rasterization is an external collaborator (§1's font-shaping
// exclusion); this package only resolves the fixed parameters into a
// rasterizer-ready description. Registers itself against
// pkg/timeline/classloader from init(), the teacher's addon-registration
// idiom generalized to component classes.
package text

import (
	"context"
	"fmt"

	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	ptime "mpdelta/pkg/timeline/time"
)

const (
	Namespace = "builtin"
	Name      = "text"
)

func init() {
	classloader.Register(Namespace, Name, func(id.ClassIdentifier) (processor.Processor, error) {
		return &Processor{}, nil
	})
}

const (
	idxContent  = 0
	idxFontSize = 1
	idxColor    = 2
)

// Processor renders a Content/FontSize/Color fixed-parameter tuple into a
// single ImageHandle describing the text to shape; no variable parameters,
// no time dependence.
type Processor struct{}

func (*Processor) Kind() processor.Kind { return processor.KindNative }

// FixedParameterTypes describes text's three fixed slots: the string
// content, the font size in points, and an RGBA color packed as a 32-bit
// integer.
func (*Processor) FixedParameterTypes() []parameter.TypeDescriptor {
	return []parameter.TypeDescriptor{
		parameter.StringDescriptor{Default: ""},
		parameter.IntegerRange{Min: 1, Max: 4096, Default: 24},
		parameter.IntegerRange{Min: 0, Max: 0xffffffff, Default: 0xffffffff},
	}
}

// UpdateVariableParameter is a no-op: text has no variable parameter slots.
func (*Processor) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}

// NaturalLength is unbounded: static text fills whatever length its
// enclosing instance gives it.
func (*Processor) NaturalLength([]parameter.RawValue, procache.WholeCache) (ptime.MarkerTime, bool) {
	return ptime.MarkerTime{}, false
}

// SupportsOutputType reports true only for TypeImage.
func (*Processor) SupportsOutputType(fixed []parameter.RawValue, sel parameter.Type, whole procache.WholeCache) bool {
	return sel == parameter.TypeImage
}

// Glyphs is the opaque payload a text ImageHandle.Data carries; the
// caller-side font shaper (out of core scope, §1) turns this into pixels.
type Glyphs struct {
	Content   string
	FontSize  int
	ColorRGBA uint32
}

func textParams(fixed []parameter.RawValue) (Glyphs, error) {
	if len(fixed) <= idxColor {
		return Glyphs{}, fmt.Errorf("text: expected 3 fixed parameters, got %d", len(fixed))
	}
	content, ok := fixed[idxContent].(parameter.StringValue)
	if !ok {
		return Glyphs{}, fmt.Errorf("text: content fixed parameter is not a string")
	}
	size, ok := fixed[idxFontSize].(parameter.IntegerValue)
	if !ok {
		return Glyphs{}, fmt.Errorf("text: font size fixed parameter is not an integer")
	}
	color, ok := fixed[idxColor].(parameter.IntegerValue)
	if !ok {
		return Glyphs{}, fmt.Errorf("text: color fixed parameter is not an integer")
	}
	return Glyphs{Content: string(content), FontSize: int(size), ColorRGBA: uint32(color)}, nil
}

// Process produces one ImageHandle describing the text to shape; the text
// has no time dependence, so every call within its active range returns an
// equivalent result.
func (*Processor) Process(
	ctx context.Context,
	input processor.NativeInput,
	at ptime.TimelineTime,
	request parameter.Type,
	whole procache.WholeCache,
	framed procache.FramedCache,
) (parameter.RawValue, error) {
	if request != parameter.TypeImage {
		return nil, processor.ErrOutputTypeMismatch
	}
	glyphs, err := textParams(input.Fixed)
	if err != nil {
		return nil, err
	}
	return parameter.ImageHandle{Data: glyphs}, nil
}

type textKey struct {
	content   string
	fontSize  int
	colorRGBA uint32
}

func (k textKey) Hash() uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(k.content); i++ {
		h ^= uint64(k.content[i])
		h *= 1099511628211
	}
	return h ^ uint64(k.fontSize) ^ uint64(k.colorRGBA)
}

func (k textKey) Equal(other procache.Key) bool {
	o, ok := other.(textKey)
	return ok && o == k
}

// WholeComponentCacheKey keys on the full fixed-parameter tuple: static
// text's whole-lifetime result depends on nothing else.
func (*Processor) WholeComponentCacheKey(fixed []parameter.RawValue, interprocess []ptime.TimelineTime) (procache.Key, bool) {
	glyphs, err := textParams(fixed)
	if err != nil {
		return nil, false
	}
	return textKey{content: glyphs.Content, fontSize: glyphs.FontSize, colorRGBA: glyphs.ColorRGBA}, true
}

// FramedCacheKey is identical to the whole-component key: static text's
// output never varies by instant.
func (*Processor) FramedCacheKey(input processor.NativeInput, at ptime.TimelineTime, sel parameter.Type) (procache.Key, bool) {
	glyphs, err := textParams(input.Fixed)
	if err != nil {
		return nil, false
	}
	return textKey{content: glyphs.Content, fontSize: glyphs.FontSize, colorRGBA: glyphs.ColorRGBA}, true
}
