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

// Package combine layers rendered component outputs into one image or audio
// buffer. Image layers are composed by an external GPUCompositor
// collaborator (the named contract the GPU pipeline setup exclusion leaves
// outside this module); audio layers are resampled through their own
// time-stretch map and mixed in process.
package combine

import (
	"context"

	"mpdelta/pkg/timeline/combine/resample"
	"mpdelta/pkg/timeline/invalidate"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/stretch"
)

// TransformFixed is an ImageRequiredParams.Transform resolved to concrete
// values at one instant: the same Params/Free tagged union as
// project.Transform, but every curve evaluated down to a plain Vector3 or
// Quaternion.
type TransformFixed struct {
	Kind project.TransformKind

	// Valid when Kind == project.TransformParamsKind.
	Size, Scale, Translate, ScaleCenter, RotateCenter project.Vector3
	Rotate                                            project.Quaternion

	// Valid when Kind == project.TransformFreeKind.
	LT, RT, LB, RB project.Vector3
}

// ImageRequiredParamsFixed is an ImageRequiredParams resolved to concrete
// values at one instant: the variable curves evaluated, ready to hand to a
// compositor.
type ImageRequiredParamsFixed struct {
	Transform          TransformFixed
	BackgroundColor    [4]uint8
	Opacity            float64
	BlendMode          project.BlendMode
	CompositeOperation project.CompositeOperation
}

// ImageCombinerRequest describes the canvas an ImageCombiner rasterizes
// into: its pixel size and, for a nested composite, the parent's transform
// so interior layers compose correctly under it.
type ImageCombinerRequest struct {
	Size           [2]int
	ParentTransform *project.Transform
}

// GPUCompositor is the external collaborator that actually rasterizes
// layered images; this module only sequences layers and hands them off.
type GPUCompositor interface {
	Composite(ctx context.Context, layers []ImageLayer, size [2]int) (parameter.RawValue, error)
}

// ImageLayer is one contributor to a composited image.
type ImageLayer struct {
	Image  parameter.RawValue
	Params ImageRequiredParamsFixed
}

// ImageCombinerBuilder constructs an ImageCombiner per render request.
type ImageCombinerBuilder struct {
	Compositor GPUCompositor
}

// New returns an ImageCombiner for req.
func (b ImageCombinerBuilder) New(req ImageCombinerRequest) *ImageCombiner {
	return &ImageCombiner{compositor: b.Compositor, req: req}
}

// ImageCombiner accumulates layers front-to-back and rasterizes them into
// one image on Collect.
type ImageCombiner struct {
	compositor GPUCompositor
	req        ImageCombinerRequest
	layers     []ImageLayer
}

// AddLayer appends one resolved layer, in front-to-back layer order.
func (c *ImageCombiner) AddLayer(img parameter.RawValue, params ImageRequiredParamsFixed) {
	c.layers = append(c.layers, ImageLayer{Image: img, Params: params})
}

// Collect rasterizes the accumulated layers via the GPU compositor.
func (c *ImageCombiner) Collect(ctx context.Context) (parameter.RawValue, error) {
	return c.compositor.Composite(ctx, c.layers, c.req.Size)
}

// AudioCombinerParam is one audio layer's mix parameters: per-channel gain,
// the layer's own local/global time-stretch map (nil for a layer already in
// the combiner's target time domain), and the layer's invalidation range.
type AudioCombinerParam struct {
	PerChannelGain []float64
	TimeMap        *stretch.Map
	Invalidate     invalidate.Range
}

// AudioCombinerRequest describes the audio window an AudioCombiner mixes
// into: its length in samples at the target sample rate, and an optional
// inverse time-stretch map used when the combiner itself sits inside a
// nested, locally-stretched timeline.
type AudioCombinerRequest struct {
	SampleRate int
	Channels   int
	Length     int
	InverseMap *stretch.InverseMap
}

// AudioCombinerBuilder constructs an AudioCombiner per render request.
type AudioCombinerBuilder struct{}

// New returns an AudioCombiner for req.
func (AudioCombinerBuilder) New(req AudioCombinerRequest) *AudioCombiner {
	return &AudioCombiner{req: req}
}

// AudioCombiner accumulates audio layers and mixes them on Collect.
type AudioCombiner struct {
	req    AudioCombinerRequest
	layers []audioLayer
}

type audioLayer struct {
	buffer parameter.AudioBuffer
	param  AudioCombinerParam
}

// AddLayer appends one audio layer with its mix parameters.
func (c *AudioCombiner) AddLayer(buf parameter.AudioBuffer, param AudioCombinerParam) {
	c.layers = append(c.layers, audioLayer{buffer: buf, param: param})
}

// Collect resamples every layer through its own time-stretch map with
// bandlimited interpolation, applies per-channel gain, and sums the result
// into one buffer of c.req.Length samples at c.req.SampleRate.
//
// For a layer whose local-time span is [l0,l1] and global-time span is
// [g0,g1], the output at global sample index i (time g) is the layer's
// audio at local time TimeMap.At(g), matching the combiner invariant from
// the source spec.
func (c *AudioCombiner) Collect(_ context.Context) (parameter.AudioBuffer, error) {
	out := parameter.AudioBuffer{
		SampleRate: c.req.SampleRate,
		Channels:   make([][]float64, c.req.Channels),
	}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, c.req.Length)
	}

	for _, layer := range c.layers {
		resampled := resample.Stretch(layer.buffer, c.req.SampleRate, c.req.Length, layer.param.TimeMap)
		for ch := 0; ch < c.req.Channels && ch < len(resampled.Channels); ch++ {
			gain := 1.0
			if ch < len(layer.param.PerChannelGain) {
				gain = layer.param.PerChannelGain[ch]
			}
			src := resampled.Channels[ch]
			dst := out.Channels[ch]
			for i := 0; i < len(dst) && i < len(src); i++ {
				dst[i] += src[i] * gain
			}
		}
	}
	return out, nil
}
