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

package ffmpeg

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
)

// Encoder pipes rendered frames and a final mixed-down audio buffer into
// ffmpeg to produce one output file, satisfying cmd/mpdeltarender's
// Encoder contract. Grounded on FFMPEG/Process above: a thin os/exec
// wrapper, generalized from the teacher's HLS-segment-writing process into
// one that feeds ffmpeg an image2pipe PNG stream on stdin plus a
// temporary WAV file for audio, rather than managing a live camera feed.
type Encoder struct {
	ffmpeg *FFMPEG

	requiresImage bool
	requiresAudio bool

	outPath   string
	audioPath string // temp WAV file, written by SetAudio, muxed in on Finish

	stdin io.WriteCloser
	cmd   *exec.Cmd
	errCh chan error
}

// NewEncoder starts ffmpeg in the background, ready to receive frames.
// requiresImage/requiresAudio mirror the render request that produced this
// encoder: a project with no audio-required output never calls SetAudio,
// and PushFrame is never called for an audio-only render.
func NewEncoder(bin, outPath string, size [2]int, frameRate int, requiresImage, requiresAudio bool) (*Encoder, error) {
	e := &Encoder{
		ffmpeg:        New(bin),
		requiresImage: requiresImage,
		requiresAudio: requiresAudio,
		outPath:       outPath,
	}

	if requiresAudio {
		f, err := os.CreateTemp("", "mpdeltarender-audio-*.wav")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg: could not create temp audio file: %w", err)
		}
		e.audioPath = f.Name()
		f.Close()
	}

	args := []string{"-y"}
	if requiresImage {
		args = append(args,
			"-f", "image2pipe",
			"-vcodec", "png",
			"-framerate", fmt.Sprintf("%d", frameRate),
			"-i", "-",
		)
	}
	if requiresAudio {
		args = append(args, "-i", e.audioPath)
	}
	args = append(args, "-pix_fmt", "yuv420p", outPath)

	cmd := e.ffmpeg.command(args...)
	if requiresImage {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("ffmpeg: could not open stdin: %w", err)
		}
		e.stdin = stdin
	}

	e.errCh = make(chan error, 1)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: could not start: %w", err)
	}
	e.cmd = cmd
	go func() { e.errCh <- cmd.Wait() }()

	_ = size // the project's own fixed output size; ffmpeg infers it from the PNG stream
	return e, nil
}

// RequiresImage reports whether this encoder expects PushFrame calls.
func (e *Encoder) RequiresImage() bool { return e.requiresImage }

// RequiresAudio reports whether this encoder expects a SetAudio call.
func (e *Encoder) RequiresAudio() bool { return e.requiresAudio }

// PushFrame encodes one rendered frame as PNG onto ffmpeg's stdin. img.Data
// must hold an image.Image — the concrete pixel format a GPUCompositor
// collaborator produced; this encoder never otherwise inspects it.
func (e *Encoder) PushFrame(data any) error {
	if !e.requiresImage {
		return fmt.Errorf("ffmpeg: encoder does not require image frames")
	}
	img, ok := data.(image.Image)
	if !ok {
		return fmt.Errorf("ffmpeg: frame data is %T, not image.Image", data)
	}
	return png.Encode(e.stdin, img)
}

// SetAudio writes a fully mixed-down audio buffer to the temporary WAV file
// ffmpeg muxes in on Finish. Channels holds one []float64 of samples in
// [-1, 1] per channel, matching parameter.AudioBuffer.
func (e *Encoder) SetAudio(sampleRate int, channels [][]float64) error {
	if !e.requiresAudio {
		return fmt.Errorf("ffmpeg: encoder does not require audio")
	}
	f, err := os.Create(e.audioPath)
	if err != nil {
		return fmt.Errorf("ffmpeg: could not open temp audio file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := writeWAV(w, sampleRate, channels); err != nil {
		return err
	}
	return w.Flush()
}

// Finish closes the input pipe(s) and waits for ffmpeg to exit, or
// cancels the process early if ctx is done first.
func (e *Encoder) Finish(ctx context.Context) error {
	if e.stdin != nil {
		if err := e.stdin.Close(); err != nil {
			return fmt.Errorf("ffmpeg: could not close stdin: %w", err)
		}
	}

	if e.audioPath != "" {
		defer os.Remove(e.audioPath) //nolint:errcheck
	}

	select {
	case err := <-e.errCh:
		// ffmpeg returns 255 on a clean -y overwrite exit in some builds.
		if err != nil && err.Error() == "exit status 255" {
			return nil
		}
		return err
	case <-ctx.Done():
		e.cmd.Process.Kill() //nolint:errcheck
		return ctx.Err()
	}
}

// writeWAV writes a minimal 32-bit float PCM WAV file, interleaving
// channels sample by sample.
func writeWAV(w io.Writer, sampleRate int, channels [][]float64) error {
	numChannels := len(channels)
	if numChannels == 0 {
		return fmt.Errorf("ffmpeg: audio buffer has no channels")
	}
	numFrames := len(channels[0])
	const bitsPerSample = 32
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := numFrames * blockAlign

	header := new(struct {
		ChunkID       [4]byte
		ChunkSize     uint32
		Format        [4]byte
		Subchunk1ID   [4]byte
		Subchunk1Size uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Subchunk2ID   [4]byte
		Subchunk2Size uint32
	})
	header.ChunkID = [4]byte{'R', 'I', 'F', 'F'}
	header.ChunkSize = uint32(36 + dataSize)
	header.Format = [4]byte{'W', 'A', 'V', 'E'}
	header.Subchunk1ID = [4]byte{'f', 'm', 't', ' '}
	header.Subchunk1Size = 16
	header.AudioFormat = 3 // IEEE float
	header.NumChannels = uint16(numChannels)
	header.SampleRate = uint32(sampleRate)
	header.ByteRate = uint32(byteRate)
	header.BlockAlign = uint16(blockAlign)
	header.BitsPerSample = bitsPerSample
	header.Subchunk2ID = [4]byte{'d', 'a', 't', 'a'}
	header.Subchunk2Size = uint32(dataSize)

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("ffmpeg: could not write wav header: %w", err)
	}

	buf := make([]byte, 4)
	for i := 0; i < numFrames; i++ {
		for c := 0; c < numChannels; c++ {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(channels[c][i])))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("ffmpeg: could not write wav data: %w", err)
			}
		}
	}
	return nil
}
