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

// Package compositor is a CPU reference implementation of
// combine.GPUCompositor, for running cmd/mpdeltarender without a real GPU
// pipeline. It rasterizes back-to-front with image/draw, applying opacity
// and source-over compositing; it does not evaluate a layer's transform
// curves (translate/scale/rotate) or any blend mode besides Normal — those
// are the GPU pipeline's job, which this package exists to stand in for,
// not to replicate.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"mpdelta/pkg/timeline/combine"
	"mpdelta/pkg/timeline/parameter"
)

// Software is a combine.GPUCompositor backed by image/draw.
type Software struct{}

// Composite takes layers in front-to-back order and draws them back-to-front
// (last layer first, so layers[0] ends on top) onto a size-sized canvas, each
// at its Opacity with source-over alpha blending.
func (Software) Composite(_ context.Context, layers []combine.ImageLayer, size [2]int) (parameter.RawValue, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, size[0], size[1]))

	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		img, ok := layer.Image.(parameter.ImageHandle)
		if !ok {
			return nil, fmt.Errorf("compositor: layer %d is %T, not parameter.ImageHandle", i, layer.Image)
		}
		src, ok := img.Data.(image.Image)
		if !ok {
			return nil, fmt.Errorf("compositor: layer %d's Data is %T, not image.Image", i, img.Data)
		}

		opacity := layer.Params.Opacity
		if opacity <= 0 {
			continue
		}
		if opacity >= 1 {
			draw.Draw(canvas, canvas.Bounds(), src, image.Point{}, draw.Over)
			continue
		}
		mask := image.NewUniform(color.Alpha{A: uint8(opacity * 255)})
		draw.DrawMask(canvas, canvas.Bounds(), src, image.Point{}, mask, image.Point{}, draw.Over)
	}

	return parameter.ImageHandle{Width: size[0], Height: size[1], Data: image.Image(canvas)}, nil
}
