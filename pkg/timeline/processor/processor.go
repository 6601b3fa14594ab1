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

// Package processor defines the contract every component class implements:
// exactly one of a composite processor that expands into a nested timeline,
// a native processor that produces one frame at a time, or a gather-native
// processor that consumes a temporal window. One Kind() discriminator, one
// interface per payload shape; the renderer type-switches rather than
// walking a class hierarchy.
package processor

import (
	"context"
	"errors"

	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	ptime "mpdelta/pkg/timeline/time"
)

// Kind discriminates the three processor shapes.
type Kind int

const (
	KindComponent Kind = iota
	KindNative
	KindGatherNative
)

func (k Kind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindNative:
		return "native"
	case KindGatherNative:
		return "gather-native"
	default:
		return "unknown"
	}
}

// Processor is the common supertype; every concrete processor reports which
// of the three shapes it is so the renderer can type-switch to the right
// interface.
type Processor interface {
	Kind() Kind
}

// ErrOutputTypeMismatch is returned when a processor's produced value's type
// does not match the caller's requested parameter.Type.
var ErrOutputTypeMismatch = errors.New("processor: output type mismatch")

// Expansion is the nested timeline a ComponentProcessor produces: its own
// instances, the links among their pins, and a default canvas size for any
// image output.
type Expansion struct {
	Instances        []id.ID
	Links            []id.ID
	DefaultImageSize [2]int
}

// ComponentProcessor is a composite: given fixed and variable parameters, it
// produces a nested timeline. Used for user-defined composites, templates
// and procedural composites.
type ComponentProcessor interface {
	Processor
	ProcessComponent(fixed []parameter.RawValue, variable []parameter.VariableParameterValue[any]) (Expansion, error)
}

// NativeInput is the resolved, type-erased variable-parameter input handed
// to a NativeProcessor.Process call: one already-evaluated RawValue per
// declared variable parameter slot, in schema order.
type NativeInput struct {
	Fixed    []parameter.RawValue
	Variable []parameter.RawValue
}

// NativeProcessor is a leaf that produces a single frame (image, audio
// chunk, or other parameter.Type payload) at one instant.
type NativeProcessor interface {
	Processor

	FixedParameterTypes() []parameter.TypeDescriptor
	UpdateVariableParameter(fixed []parameter.RawValue, out *[]parameter.TypeDescriptor)
	NaturalLength(fixed []parameter.RawValue, cache procache.WholeCache) (ptime.MarkerTime, bool)
	SupportsOutputType(fixed []parameter.RawValue, sel parameter.Type, cache procache.WholeCache) bool
	Process(ctx context.Context, input NativeInput, at ptime.TimelineTime, request parameter.Type, whole procache.WholeCache, framed procache.FramedCache) (parameter.RawValue, error)
	WholeComponentCacheKey(fixed []parameter.RawValue, interprocess []ptime.TimelineTime) (procache.Key, bool)
	FramedCacheKey(input NativeInput, at ptime.TimelineTime, sel parameter.Type) (procache.Key, bool)
}

// GatherWindow is the temporal range a GatherNativeProcessor is asked to
// fill: [Begin, End) in global TimelineTime, plus a resolver callback so the
// processor can sample any variable parameter at an arbitrary time within
// (or even outside) the window, rather than receiving pre-sampled values.
type GatherWindow struct {
	Begin, End ptime.TimelineTime
	Resolve    func(slot int, at ptime.TimelineTime) (parameter.RawValue, bool)
}

// GatherNativeProcessor is a leaf that needs a temporal window rather than
// one instant — typically an audio source that consumes a begin/end range
// and emits a buffer spanning it.
type GatherNativeProcessor interface {
	Processor

	FixedParameterTypes() []parameter.TypeDescriptor
	UpdateVariableParameter(fixed []parameter.RawValue, out *[]parameter.TypeDescriptor)
	NaturalLength(fixed []parameter.RawValue, cache procache.WholeCache) (ptime.MarkerTime, bool)
	SupportsOutputType(fixed []parameter.RawValue, sel parameter.Type, cache procache.WholeCache) bool
	Process(ctx context.Context, fixed []parameter.RawValue, window GatherWindow, request parameter.Type, whole procache.WholeCache, framed procache.FramedCache) (parameter.RawValue, error)
	WholeComponentCacheKey(fixed []parameter.RawValue, interprocess []ptime.TimelineTime) (procache.Key, bool)
	FramedCacheKey(window GatherWindow, sel parameter.Type) (procache.Key, bool)
}
