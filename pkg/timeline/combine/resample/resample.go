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

// Package resample provides a windowed-sinc resampler used to play an audio
// layer's local-time samples back at the global sample rate, remapped
// sample-by-sample through the layer's time-stretch map.
package resample

import (
	"math"

	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/stretch"
	ptime "mpdelta/pkg/timeline/time"
)

// windowRadius is the number of samples on either side of the interpolation
// point the windowed-sinc kernel considers; 8 is a common tradeoff between
// stopband attenuation and cost for offline-quality audio mixing.
const windowRadius = 8

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

// blackman is the Blackman window, applied to the sinc kernel to bound its
// sidelobes within the finite radius used here.
func blackman(x, radius float64) float64 {
	n := (x + radius) / (2 * radius)
	return 0.42 - 0.5*math.Cos(2*math.Pi*n) + 0.08*math.Cos(4*math.Pi*n)
}

func sampleAt(channel []float64, pos float64) float64 {
	center := int(math.Floor(pos))
	var sum float64
	for k := center - windowRadius + 1; k <= center+windowRadius; k++ {
		if k < 0 || k >= len(channel) {
			continue
		}
		d := pos - float64(k)
		if math.Abs(d) >= windowRadius {
			continue
		}
		sum += channel[k] * sinc(d) * blackman(d, windowRadius)
	}
	return sum
}

// Stretch resamples buf into outLength samples at outSampleRate, mapping
// each output sample's global time through timeMap (nil means identity: the
// layer's local clock already equals the global one) to find the
// corresponding fractional position in buf, then interpolating with a
// windowed-sinc kernel.
func Stretch(buf parameter.AudioBuffer, outSampleRate, outLength int, timeMap *stretch.Map) parameter.AudioBuffer {
	out := parameter.AudioBuffer{
		SampleRate: outSampleRate,
		Channels:   make([][]float64, len(buf.Channels)),
	}

	for ch, channel := range buf.Channels {
		dst := make([]float64, outLength)
		for i := 0; i < outLength; i++ {
			globalTime := ptime.NewTimelineTime(fraction.FromRatio(int64(i), uint32(outSampleRate)))
			localFraction := globalTime.Value()
			if timeMap != nil {
				localFraction = timeMap.At(globalTime).Value()
			}
			pos := localFraction.Float64() * float64(buf.SampleRate)
			dst[i] = sampleAt(channel, pos)
		}
		out.Channels[ch] = dst
	}
	return out
}
