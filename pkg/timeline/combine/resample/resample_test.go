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

package resample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"mpdelta/pkg/timeline/parameter"
)

func TestStretchIdentitySampleRatePreservesSignal(t *testing.T) {
	channel := make([]float64, 100)
	for i := range channel {
		channel[i] = math.Sin(float64(i) * 0.1)
	}
	buf := parameter.AudioBuffer{SampleRate: 48000, Channels: [][]float64{channel}}

	out := Stretch(buf, 48000, 100, nil)
	require.Len(t, out.Channels, 1)
	require.Len(t, out.Channels[0], 100)

	// windowed-sinc at an exact integer sample position should closely
	// reconstruct the original sample, away from the edges where the
	// kernel is truncated.
	for i := windowRadius + 2; i < 100-windowRadius-2; i++ {
		require.InDelta(t, channel[i], out.Channels[0][i], 1e-6)
	}
}

func TestStretchSilenceStaysZero(t *testing.T) {
	buf := parameter.AudioBuffer{SampleRate: 48000, Channels: [][]float64{make([]float64, 50)}}
	out := Stretch(buf, 48000, 50, nil)
	for _, v := range out.Channels[0] {
		require.Equal(t, 0.0, v)
	}
}

func TestStretchMultiChannel(t *testing.T) {
	buf := parameter.AudioBuffer{SampleRate: 48000, Channels: [][]float64{
		make([]float64, 20),
		make([]float64, 20),
	}}
	out := Stretch(buf, 48000, 20, nil)
	require.Len(t, out.Channels, 2)
}
