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

// Package shape is the builtin:shape leaf component: a NativeProcessor that
// produces a solid rectangle or ellipse of a fixed size and color, time
// invariant across its whole natural length. Registers itself against
// pkg/timeline/classloader from init(), the teacher's addon-registration
// idiom generalized to component classes.
package shape

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
	Name      = "shape"
)

func init() {
	classloader.Register(Namespace, Name, func(id.ClassIdentifier) (processor.Processor, error) {
		return &Processor{}, nil
	})
}

// Kind names the rasterized shape. Unknown fixed-param strings fall back to
// KindRect.
type Kind string

const (
	KindRect    Kind = "rect"
	KindEllipse Kind = "ellipse"
)

const (
	idxKind   = 0
	idxWidth  = 1
	idxHeight = 2
	idxColor  = 3
)

// Processor renders a Kind/Width/Height/Color fixed-parameter tuple into a
// single flat-colored image; no variable parameters, no time dependence.
type Processor struct{}

func (*Processor) Kind() processor.Kind { return processor.KindNative }

// FixedParameterTypes describes the shape's four fixed slots: kind, width,
// height, and an RGBA color packed as a 32-bit integer.
func (*Processor) FixedParameterTypes() []parameter.TypeDescriptor {
	return []parameter.TypeDescriptor{
		parameter.StringDescriptor{Default: string(KindRect)},
		parameter.IntegerRange{Min: 1, Max: 1 << 16, Default: 100},
		parameter.IntegerRange{Min: 1, Max: 1 << 16, Default: 100},
		parameter.IntegerRange{Min: 0, Max: 0xffffffff, Default: 0xffffffff},
	}
}

// UpdateVariableParameter is a no-op: shape has no variable parameter slots.
func (*Processor) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}

// NaturalLength is unbounded: a shape fills whatever length its enclosing
// instance gives it, so it reports "no opinion" rather than a fixed length.
func (*Processor) NaturalLength([]parameter.RawValue, procache.WholeCache) (ptime.MarkerTime, bool) {
	return ptime.MarkerTime{}, false
}

// SupportsOutputType reports true only for TypeImage.
func (*Processor) SupportsOutputType(fixed []parameter.RawValue, sel parameter.Type, whole procache.WholeCache) bool {
	return sel == parameter.TypeImage
}

func rasterParams(fixed []parameter.RawValue) (kind Kind, width, height int, color uint32, err error) {
	if len(fixed) <= idxColor {
		return "", 0, 0, 0, fmt.Errorf("shape: expected 4 fixed parameters, got %d", len(fixed))
	}
	kindStr, ok := fixed[idxKind].(parameter.StringValue)
	if !ok {
		return "", 0, 0, 0, fmt.Errorf("shape: kind fixed parameter is not a string")
	}
	kind = Kind(kindStr)
	if kind != KindRect && kind != KindEllipse {
		kind = KindRect
	}
	w, ok := fixed[idxWidth].(parameter.IntegerValue)
	if !ok {
		return "", 0, 0, 0, fmt.Errorf("shape: width fixed parameter is not an integer")
	}
	h, ok := fixed[idxHeight].(parameter.IntegerValue)
	if !ok {
		return "", 0, 0, 0, fmt.Errorf("shape: height fixed parameter is not an integer")
	}
	c, ok := fixed[idxColor].(parameter.IntegerValue)
	if !ok {
		return "", 0, 0, 0, fmt.Errorf("shape: color fixed parameter is not an integer")
	}
	return kind, int(w), int(h), uint32(c), nil
}

// RasterShape is the opaque payload a shape's ImageHandle.Data carries: the
// caller-side rasterizer (out of core scope, §1) turns this into pixels.
type RasterShape struct {
	Kind          Kind
	Width, Height int
	ColorRGBA     uint32
}

// Process produces one ImageHandle describing the shape to rasterize; the
// shape has no time dependence, so every call within its active range
// returns an equivalent result.
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
	kind, width, height, color, err := rasterParams(input.Fixed)
	if err != nil {
		return nil, err
	}
	return parameter.ImageHandle{
		Width:  width,
		Height: height,
		Data:   RasterShape{Kind: kind, Width: width, Height: height, ColorRGBA: color},
	}, nil
}

type shapeKey struct {
	kind          Kind
	width, height int
	color         uint32
}

func (k shapeKey) Hash() uint64 {
	return uint64(k.width)*31 + uint64(k.height)*7 + uint64(k.color) + hashString(string(k.kind))
}

func (k shapeKey) Equal(other procache.Key) bool {
	o, ok := other.(shapeKey)
	return ok && o == k
}

func hashString(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

// WholeComponentCacheKey keys on the full fixed-parameter tuple: a shape's
// whole-lifetime result depends on nothing else.
func (*Processor) WholeComponentCacheKey(fixed []parameter.RawValue, interprocess []ptime.TimelineTime) (procache.Key, bool) {
	kind, width, height, color, err := rasterParams(fixed)
	if err != nil {
		return nil, false
	}
	return shapeKey{kind: kind, width: width, height: height, color: color}, true
}

// FramedCacheKey is identical to the whole-component key: a shape's output
// never varies by instant.
func (*Processor) FramedCacheKey(input processor.NativeInput, at ptime.TimelineTime, sel parameter.Type) (procache.Key, bool) {
	kind, width, height, color, err := rasterParams(input.Fixed)
	if err != nil {
		return nil, false
	}
	return shapeKey{kind: kind, width: width, height: height, color: color}, true
}
