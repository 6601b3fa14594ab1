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

// Package parameter implements the typed parameter model: the closed sum of
// parameter kinds, its type/raw-value/time-varying views, and the
// variable-parameter combination of a manual curve with sub-component
// overrides.
package parameter

import (
	"fmt"
	"math"

	"mpdelta/pkg/timeline/id"
)

// Type is the closed sum of parameter kinds a slot can hold.
type Type int

const (
	TypeNone Type = iota
	TypeImage
	TypeAudio
	TypeBinary
	TypeString
	TypeInteger
	TypeReal
	TypeBoolean
	TypeDictionary
	TypeArray
	TypeComponentClass
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeImage:
		return "Image"
	case TypeAudio:
		return "Audio"
	case TypeBinary:
		return "Binary"
	case TypeString:
		return "String"
	case TypeInteger:
		return "Integer"
	case TypeReal:
		return "Real"
	case TypeBoolean:
		return "Boolean"
	case TypeDictionary:
		return "Dictionary"
	case TypeArray:
		return "Array"
	case TypeComponentClass:
		return "ComponentClass"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// TypeDescriptor is the type view's payload: a per-type schema descriptor.
// Concrete leaves (IntegerRange, RealRange, ...) are implemented by
// consumers; the interface only exists so processor.FixedParameterTypes can
// return a uniform slice.
type TypeDescriptor interface {
	Type() Type
}

// IntegerRange describes the domain of a TypeInteger slot.
type IntegerRange struct {
	Min, Max, Default int64
}

func (IntegerRange) Type() Type { return TypeInteger }

// RealRange describes the domain of a TypeReal slot.
type RealRange struct {
	Min, Max, Default float64
}

func (RealRange) Type() Type { return TypeReal }

// BooleanDescriptor describes a TypeBoolean slot.
type BooleanDescriptor struct {
	Default bool
}

func (BooleanDescriptor) Type() Type { return TypeBoolean }

// StringDescriptor describes a TypeString slot.
type StringDescriptor struct {
	Default string
}

func (StringDescriptor) Type() Type { return TypeString }

// RawValue is the raw-value view's payload: the concrete runtime value the
// engine produces for one output type. Consumers type-switch on it.
type RawValue interface {
	Type() Type
}

// ImageHandle is an opaque handle to a rendered image, produced by an
// external compositor; the core never inspects its contents.
type ImageHandle struct {
	Width, Height int
	Data          any
}

func (ImageHandle) Type() Type { return TypeImage }

// AudioBuffer holds rendered per-channel audio samples.
type AudioBuffer struct {
	SampleRate int
	Channels   [][]float64
}

func (AudioBuffer) Type() Type { return TypeAudio }

// BinaryValue is a TypeBinary raw value.
type BinaryValue []byte

func (BinaryValue) Type() Type { return TypeBinary }

// StringValue is a TypeString raw value.
type StringValue string

func (StringValue) Type() Type { return TypeString }

// IntegerValue is a TypeInteger raw value.
type IntegerValue int64

func (IntegerValue) Type() Type { return TypeInteger }

// RealValue is a TypeReal raw value.
type RealValue float64

func (RealValue) Type() Type { return TypeReal }

// BooleanValue is a TypeBoolean raw value.
type BooleanValue bool

func (BooleanValue) Type() Type { return TypeBoolean }

// DictionaryValue is a TypeDictionary raw value.
type DictionaryValue map[string]RawValue

func (DictionaryValue) Type() Type { return TypeDictionary }

// ArrayValue is a TypeArray raw value.
type ArrayValue []RawValue

func (ArrayValue) Type() Type { return TypeArray }

// ComponentClassValue is a TypeComponentClass raw value: a reference to a
// loadable class, not an instantiation of it.
type ComponentClassValue struct {
	Class id.ClassIdentifier
}

func (ComponentClassValue) Type() Type { return TypeComponentClass }

// Lerp produces a V for p in [0,1] by interpolating between two endpoints
// captured at construction time.
type Lerp[V any] interface {
	Get(p float64) V
}

// Easing maps a normalized position p in [0,1] to another position in
// [0,1], shaping how a Lerp is sampled across a pin-to-pin segment.
type Easing func(p float64) float64

// Named easings, mirroring the original's easing registry.
var (
	Linear = Easing(func(p float64) float64 { return p })

	EaseIn = Easing(func(p float64) float64 { return p * p })

	EaseOut = Easing(func(p float64) float64 { return 1 - (1-p)*(1-p) })

	EaseInOut = Easing(func(p float64) float64 {
		if p < 0.5 {
			return 2 * p * p
		}
		return 1 - 2*(1-p)*(1-p)
	})

	Cubic = Easing(func(p float64) float64 { return p * p * p })
)

// EasingValue pairs an interpolant with the easing curve sampled over it.
type EasingValue[V any] struct {
	Value  Lerp[V]
	Easing Easing
}

// At evaluates the value at normalized position p in [0,1].
func (e *EasingValue[V]) At(p float64) V {
	return e.Value.Get(e.Easing(p))
}

// PinSplitValue is the alternating pin/value sequence P0 v0 P1 v1 ... Pn
// used for every time-varying parameter view: n+1 pins bracket n value
// segments. T is *EasingValue[V] for a non-nullable fixed curve, or a
// pointer that may be nil for the nullable time-varying view (a nil segment
// leaves the value undefined over that span).
type PinSplitValue[T any] struct {
	Pins   []id.ID
	Values []T
}

// NewPinSplitValue validates n>=1 and len(pins)==len(values)+1 before
// constructing. Adjacent-pin distinctness is an invariant enforced by the
// owning instance (project.ComponentInstance), which alone knows the
// instance's pin identities.
func NewPinSplitValue[T any](pins []id.ID, values []T) (PinSplitValue[T], bool) {
	if len(values) < 1 || len(pins) != len(values)+1 {
		return PinSplitValue[T]{}, false
	}
	return PinSplitValue[T]{Pins: pins, Values: values}, true
}

// SegmentIndex returns the index i such that at lies within [pinTimes[i], pinTimes[i+1]),
// and the normalized position of at within that segment, given the pins'
// resolved TimelineTimes in the same order as Pins. An at before the first
// pin clamps to segment 0 at position 0, and one after the last pin to the
// last segment at position 1. Returns ok=false only when fewer than two pin
// times are given.
func SegmentIndex(pinTimes []float64, at float64) (index int, p float64, ok bool) {
	if len(pinTimes) < 2 {
		return 0, 0, false
	}
	for i := 0; i < len(pinTimes)-1; i++ {
		lo, hi := pinTimes[i], pinTimes[i+1]
		if at >= lo && (at < hi || i == len(pinTimes)-2) {
			if hi == lo {
				return i, 0, true
			}
			return i, (at - lo) / (hi - lo), true
		}
	}
	if at < pinTimes[0] {
		return 0, 0, true
	}
	return len(pinTimes) - 2, 1, true
}

// Priority decides whether the manual curve or a sub-component override
// wins when both supply a value at the same time.
type Priority int

const (
	PrioritizeManually Priority = iota
	PrioritizeComponent
)

// VariableParameterValue combines a manual time-varying curve with an
// ordered list of sub-component overrides.
type VariableParameterValue[V any] struct {
	Params     PinSplitValue[*EasingValue[V]]
	Components []id.ID
	Priority   Priority
}

// Opacity is a layer's alpha-compositing factor, held in [0,1].
type Opacity float64

const (
	OpacityTransparent Opacity = 0
	OpacityOpaque      Opacity = 1
)

// SaturatingOpacity clamps value into [0,1]: NaN and non-positive values
// saturate to transparent, values above 1 saturate to opaque.
func SaturatingOpacity(value float64) Opacity {
	switch {
	case math.IsNaN(value) || value <= 0:
		return OpacityTransparent
	case value > 1:
		return OpacityOpaque
	default:
		return Opacity(value)
	}
}

// Value returns the clamped opacity as a plain float64.
func (o Opacity) Value() float64 { return float64(o) }
