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

package render

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/compositor"
	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/combine"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/stretch"
	ptime "mpdelta/pkg/timeline/time"
)

// solidColor is a NativeProcessor that always returns the same real value,
// used to exercise the render pipeline without a real media backend.
type solidColor struct {
	value float64
}

func (solidColor) Kind() processor.Kind { return processor.KindNative }
func (solidColor) FixedParameterTypes() []parameter.TypeDescriptor { return nil }
func (solidColor) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}
func (solidColor) NaturalLength([]parameter.RawValue, procache.WholeCache) (ptime.MarkerTime, bool) {
	return ptime.Zero, false
}
func (solidColor) SupportsOutputType(_ []parameter.RawValue, sel parameter.Type, _ procache.WholeCache) bool {
	return sel == parameter.TypeReal
}
func (s solidColor) Process(_ context.Context, _ processor.NativeInput, _ ptime.TimelineTime, request parameter.Type, _ procache.WholeCache, _ procache.FramedCache) (parameter.RawValue, error) {
	if request != parameter.TypeReal {
		return nil, processor.ErrOutputTypeMismatch
	}
	return parameter.RealValue(s.value), nil
}
func (solidColor) WholeComponentCacheKey([]parameter.RawValue, []ptime.TimelineTime) (procache.Key, bool) {
	return nil, false
}
func (solidColor) FramedCacheKey(processor.NativeInput, ptime.TimelineTime, parameter.Type) (procache.Key, bool) {
	return nil, false
}

// solidImageColor is a NativeProcessor that always returns a TypeImage
// value filled with one flat color, for exercising the image combine path
// without a real media backend.
type solidImageColor struct {
	c color.NRGBA
}

func (solidImageColor) Kind() processor.Kind { return processor.KindNative }
func (solidImageColor) FixedParameterTypes() []parameter.TypeDescriptor { return nil }
func (solidImageColor) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}
func (solidImageColor) NaturalLength([]parameter.RawValue, procache.WholeCache) (ptime.MarkerTime, bool) {
	return ptime.Zero, false
}
func (solidImageColor) SupportsOutputType(_ []parameter.RawValue, sel parameter.Type, _ procache.WholeCache) bool {
	return sel == parameter.TypeImage
}
func (s solidImageColor) Process(_ context.Context, _ processor.NativeInput, _ ptime.TimelineTime, request parameter.Type, _ procache.WholeCache, _ procache.FramedCache) (parameter.RawValue, error) {
	if request != parameter.TypeImage {
		return nil, processor.ErrOutputTypeMismatch
	}
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	draw := image.NewUniform(s.c)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, draw.At(x, y))
		}
	}
	return parameter.ImageHandle{Width: 2, Height: 2, Data: image.Image(img)}, nil
}
func (solidImageColor) WholeComponentCacheKey([]parameter.RawValue, []ptime.TimelineTime) (procache.Key, bool) {
	return nil, false
}
func (solidImageColor) FramedCacheKey(processor.NativeInput, ptime.TimelineTime, parameter.Type) (procache.Key, bool) {
	return nil, false
}

// echoLocalTime is a NativeProcessor that returns the local time it was
// asked to render at, so a wrapping composite's time-stretch can be
// observed directly in the rendered value.
type echoLocalTime struct{}

func (echoLocalTime) Kind() processor.Kind { return processor.KindNative }
func (echoLocalTime) FixedParameterTypes() []parameter.TypeDescriptor { return nil }
func (echoLocalTime) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}
func (echoLocalTime) NaturalLength([]parameter.RawValue, procache.WholeCache) (ptime.MarkerTime, bool) {
	return ptime.Zero, false
}
func (echoLocalTime) SupportsOutputType(_ []parameter.RawValue, sel parameter.Type, _ procache.WholeCache) bool {
	return sel == parameter.TypeReal
}
func (echoLocalTime) Process(_ context.Context, _ processor.NativeInput, local ptime.TimelineTime, request parameter.Type, _ procache.WholeCache, _ procache.FramedCache) (parameter.RawValue, error) {
	if request != parameter.TypeReal {
		return nil, processor.ErrOutputTypeMismatch
	}
	return parameter.RealValue(local.Value().Float64()), nil
}
func (echoLocalTime) WholeComponentCacheKey([]parameter.RawValue, []ptime.TimelineTime) (procache.Key, bool) {
	return nil, false
}
func (echoLocalTime) FramedCacheKey(processor.NativeInput, ptime.TimelineTime, parameter.Type) (procache.Key, bool) {
	return nil, false
}

// constOpacity is a Lerp[float64] that ignores its position and always
// yields the same opacity, for building a constant Opacity curve in tests.
type constOpacity float64

func (c constOpacity) Get(float64) float64 { return float64(c) }

// constantOpacityParams builds an ImageRequiredParams whose Opacity curve is
// pinned to inst's own left/right pins and always evaluates to value.
func constantOpacityParams(inst *project.ComponentInstance, value float64) *project.ImageRequiredParams {
	pins := inst.AllPins()
	left, right := pins[0].ID(), pins[len(pins)-1].ID()
	curve, ok := parameter.NewPinSplitValue(
		[]id.ID{left, right},
		[]*parameter.EasingValue[float64]{{Value: constOpacity(value), Easing: parameter.Linear}},
	)
	if !ok {
		panic("constantOpacityParams: invalid curve")
	}
	return &project.ImageRequiredParams{Opacity: curve}
}

func newTestInstance(gen id.Generator, leftAt, rightAt int32) *project.ComponentInstance {
	left := project.NewMarkerPin(gen.Generate())
	left.SetCachedTimelineTime(ptime.NewTimelineTime(fraction.FromInt(leftAt)))
	right := project.NewMarkerPin(gen.Generate())
	right.SetCachedTimelineTime(ptime.NewTimelineTime(fraction.FromInt(rightAt)))
	return project.NewComponentInstance(gen.Generate(), id.ClassIdentifier{Name: "solid"}, left, right)
}

func newRenderer(root *Node) *Renderer {
	return New(root, procache.NewWholeCache(0), procache.NewFramedCache(0), combine.ImageCombinerBuilder{}, combine.AudioCombinerBuilder{}, nil)
}

func TestRenderNativeInRange(t *testing.T) {
	gen := id.RandGenerator{}
	inst := newTestInstance(gen, 0, 10)
	node := &Node{Instance: inst, Proc: solidColor{value: 42}}
	r := newRenderer(node)

	out, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(5)), parameter.TypeReal, [2]int{})
	require.NoError(t, err)
	require.Equal(t, parameter.RealValue(42), out)
}

func TestRenderOutOfRange(t *testing.T) {
	gen := id.RandGenerator{}
	inst := newTestInstance(gen, 0, 10)
	node := &Node{Instance: inst, Proc: solidColor{value: 42}}
	r := newRenderer(node)

	_, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(20)), parameter.TypeReal, [2]int{})
	require.Error(t, err)
	var outOfRange *ErrRenderTargetTimeOutOfRange
	require.ErrorAs(t, err, &outOfRange)
}

func TestRenderStateCachedAcrossCalls(t *testing.T) {
	gen := id.RandGenerator{}
	inst := newTestInstance(gen, 0, 10)
	node := &Node{Instance: inst, Proc: solidColor{value: 7}}
	r := newRenderer(node)

	_, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(1)), parameter.TypeReal, [2]int{})
	require.NoError(t, err)

	cr := r.rendererFor(node)
	first := cr.cell.Load()
	require.NotNil(t, first)

	_, _, err = r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(2)), parameter.TypeReal, [2]int{})
	require.NoError(t, err)
	require.Same(t, first, cr.cell.Load())
}

func TestComponentLength(t *testing.T) {
	gen := id.RandGenerator{}
	inst := newTestInstance(gen, 0, 10)
	node := &Node{Instance: inst, Proc: solidColor{}}
	r := newRenderer(node)
	require.Equal(t, fraction.FromInt(10), r.ComponentLength().Value())
}

func TestRenderComponentsReducesChildrenScalarReverseOrder(t *testing.T) {
	gen := id.RandGenerator{}
	parent := newTestInstance(gen, 0, 10)
	childA := &Node{Instance: newTestInstance(gen, 0, 10), Proc: solidColor{value: 1}}
	childB := &Node{Instance: newTestInstance(gen, 0, 10), Proc: solidColor{value: 2}}

	node := &Node{Instance: parent, Children: []*Node{childA, childB}}
	r := newRenderer(node)

	out, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(5)), parameter.TypeReal, [2]int{})
	require.NoError(t, err)
	// scalar reduction takes the first non-empty result in reverse order:
	// the last child (childB) shadows the earlier one.
	require.Equal(t, parameter.RealValue(2), out)
}

func TestRenderImageNativeInAndOutOfRange(t *testing.T) {
	gen := id.RandGenerator{}
	inst := newTestInstance(gen, 0, 10)
	red := color.NRGBA{R: 255, A: 255}
	node := &Node{Instance: inst, Proc: solidImageColor{c: red}}
	r := newRenderer(node)

	out, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(5)), parameter.TypeImage, [2]int{2, 2})
	require.NoError(t, err)
	img, ok := out.(parameter.ImageHandle)
	require.True(t, ok)
	data, ok := img.Data.(image.Image)
	require.True(t, ok)
	require.Equal(t, red, color.NRGBAModel.Convert(data.At(0, 0)))

	_, _, err = r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(20)), parameter.TypeImage, [2]int{2, 2})
	require.Error(t, err)
	var outOfRange *ErrRenderTargetTimeOutOfRange
	require.ErrorAs(t, err, &outOfRange)
}

func TestRenderImageCompositeRedOverTransparentIsRed(t *testing.T) {
	gen := id.RandGenerator{}
	parent := newTestInstance(gen, 0, 10)

	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}

	frontInst := newTestInstance(gen, 0, 10)
	front := &Node{Instance: frontInst, Proc: solidImageColor{c: red}}

	backInst := newTestInstance(gen, 0, 10)
	backInst.SetImageRequiredParams(constantOpacityParams(backInst, 0))
	back := &Node{Instance: backInst, Proc: solidImageColor{c: blue}}

	node := &Node{Instance: parent, Children: []*Node{front, back}}
	r := New(node, procache.NewWholeCache(0), procache.NewFramedCache(0),
		combine.ImageCombinerBuilder{Compositor: compositor.Software{}}, combine.AudioCombinerBuilder{}, nil)

	out, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(5)), parameter.TypeImage, [2]int{2, 2})
	require.NoError(t, err)
	img, ok := out.(parameter.ImageHandle)
	require.True(t, ok)
	data, ok := img.Data.(image.Image)
	require.True(t, ok)
	require.Equal(t, red, color.NRGBAModel.Convert(data.At(0, 0)))
}

func TestRenderCompositeWrapsNativeAtDoubleTimeStretch(t *testing.T) {
	gen := id.RandGenerator{}
	parent := newTestInstance(gen, 0, 10)

	childInst := newTestInstance(gen, 0, 10)
	naturalLength, _ := ptime.NewMarkerTime(fraction.FromInt(5))
	stretchMap := stretch.New(
		stretch.Point{Global: ptime.NewTimelineTime(fraction.FromInt(0)), Local: ptime.Zero},
		stretch.Point{Global: ptime.NewTimelineTime(fraction.FromInt(10)), Local: naturalLength},
		nil,
		fraction.FromInt(5),
	)
	child := &Node{Instance: childInst, Proc: echoLocalTime{}, Stretch: stretchMap}

	node := &Node{Instance: parent, Children: []*Node{child}}
	r := newRenderer(node)

	out, _, err := r.Render(context.Background(), ptime.NewTimelineTime(fraction.FromInt(6)), parameter.TypeReal, [2]int{})
	require.NoError(t, err)
	require.InDelta(t, 3, float64(out.(parameter.RealValue)), 0.0001)
}
