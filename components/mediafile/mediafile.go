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

// Package mediafile provides the two builtin leaf components that serve a
// recorded RTP/SDP dump (demuxed by components/mediafile/stream) to the
// renderer: builtin:mediafile (video, a NativeProcessor) and
// builtin:mediafile-audio (audio, a GatherNativeProcessor). They are
// separate classes, not one dual-kind processor, because
// processor.Processor exposes exactly one Kind per instance — the same
// split the original source models as two provider traits over one decoded
// track. Both register themselves against pkg/timeline/classloader from
// init(), the teacher's addon-registration idiom generalized to component
// classes.
package mediafile

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"mpdelta/components/mediafile/stream"
	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/processor"
	ptime "mpdelta/pkg/timeline/time"
)

const (
	Namespace   = "builtin"
	VideoName   = "mediafile"
	AudioName   = "mediafile-audio"
	idxFilePath = 0
	idxSDPPath  = 1
)

func init() {
	store := newDecodeStore()
	classloader.Register(Namespace, VideoName, func(id.ClassIdentifier) (processor.Processor, error) {
		return &VideoProcessor{store: store}, nil
	})
	classloader.Register(Namespace, AudioName, func(id.ClassIdentifier) (processor.Processor, error) {
		return &AudioProcessor{store: store}, nil
	})
}

// decodedSource holds every frame demuxed from one (file path, sdp path)
// pair, in arrival order. Demuxing the whole file up front trades memory
// for simplicity: both processors share one store keyed by the same path
// pair, so a file is decoded at most once regardless of how many
// video/audio instances reference it.
type decodedSource struct {
	video   []stream.Frame
	audio   []stream.Frame
	audioCh int
	length  float64
}

type sourceKey struct{ path, sdpPath string }

// decodeStore demuxes and caches decodedSources by file path pair, shared
// between a mediafile instance's video and audio processors.
type decodeStore struct {
	mu      sync.Mutex
	sources map[sourceKey]*decodedSource
}

func newDecodeStore() *decodeStore {
	return &decodeStore{sources: map[sourceKey]*decodedSource{}}
}

func (d *decodeStore) get(fixed []parameter.RawValue) (*decodedSource, error) {
	path, sdpPath, ok := filePaths(fixed)
	if !ok {
		return nil, fmt.Errorf("mediafile: missing file path fixed parameters")
	}
	key := sourceKey{path: path, sdpPath: sdpPath}

	d.mu.Lock()
	defer d.mu.Unlock()
	if src, ok := d.sources[key]; ok {
		return src, nil
	}
	src, err := decodeFile(path, sdpPath)
	if err != nil {
		return nil, err
	}
	d.sources[key] = src
	return src, nil
}

func filePaths(fixed []parameter.RawValue) (string, string, bool) {
	if len(fixed) <= idxSDPPath {
		return "", "", false
	}
	path, ok := fixed[idxFilePath].(parameter.StringValue)
	if !ok {
		return "", "", false
	}
	sdpPath, ok := fixed[idxSDPPath].(parameter.StringValue)
	if !ok {
		return "", "", false
	}
	return string(path), string(sdpPath), true
}

func fixedParameterTypes() []parameter.TypeDescriptor {
	return []parameter.TypeDescriptor{
		parameter.StringDescriptor{Default: ""},
		parameter.StringDescriptor{Default: ""},
	}
}

func decodeFile(path, sdpPath string) (*decodedSource, error) {
	sdpBytes, err := os.ReadFile(sdpPath)
	if err != nil {
		return nil, fmt.Errorf("mediafile: read sdp %q: %w", sdpPath, err)
	}
	infos, err := stream.ParseSDP(sdpBytes)
	if err != nil {
		return nil, fmt.Errorf("mediafile: parse sdp %q: %w", sdpPath, err)
	}
	if len(infos) == 0 {
		return nil, stream.ErrNoMediaDescriptions
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mediafile: open %q: %w", path, err)
	}
	defer f.Close()

	// A dump carries one media's worth of RTP packets; which media it is
	// comes from the first (and only) MediaInfo the SDP names.
	info := infos[0]
	src := &decodedSource{}
	dem := stream.NewDemuxer(f, info)
	for {
		frame, err := dem.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("mediafile: demux %q: %w", path, err)
		}
		switch frame.Kind {
		case stream.KindVideo:
			src.video = append(src.video, frame)
		case stream.KindAudio:
			src.audio = append(src.audio, frame)
			src.audioCh = info.Channels
		}
		if frame.PTSSec > src.length {
			src.length = frame.PTSSec
		}
	}
	return src, nil
}

func nearestFrame(frames []stream.Frame, target float64) stream.Frame {
	best := frames[0]
	for _, f := range frames {
		if f.PTSSec > target {
			break
		}
		best = f
	}
	return best
}

func pcm16ToFloat(payload []byte) []float64 {
	n := len(payload) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(payload[i*2:]))
		out[i] = float64(v) / math.MaxInt16
	}
	return out
}

type pathKey struct{ path, sdpPath string }

func (k pathKey) Hash() uint64              { return fnv64(k.path) ^ fnv64(k.sdpPath) }
func (k pathKey) Equal(o procache.Key) bool { v, ok := o.(pathKey); return ok && v == k }

type framedKey struct {
	path, sdpPath, at string
	sel               parameter.Type
}

func (k framedKey) Hash() uint64 {
	return fnv64(k.path) ^ fnv64(k.sdpPath) ^ fnv64(k.at) ^ uint64(k.sel)
}
func (k framedKey) Equal(o procache.Key) bool { v, ok := o.(framedKey); return ok && v == k }

func fnv64(s string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}

// VideoProcessor serves builtin:mediafile's decoded video track as an
// opaque per-instant ImageHandle.
type VideoProcessor struct {
	store *decodeStore
}

func (*VideoProcessor) Kind() processor.Kind { return processor.KindNative }

func (*VideoProcessor) FixedParameterTypes() []parameter.TypeDescriptor { return fixedParameterTypes() }

func (*VideoProcessor) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}

func (p *VideoProcessor) NaturalLength(fixed []parameter.RawValue, whole procache.WholeCache) (ptime.MarkerTime, bool) {
	src, err := p.store.get(fixed)
	if err != nil {
		return ptime.MarkerTime{}, false
	}
	return ptime.NewMarkerTime(fraction.FromFloat64(src.length))
}

func (p *VideoProcessor) SupportsOutputType(fixed []parameter.RawValue, sel parameter.Type, whole procache.WholeCache) bool {
	if sel != parameter.TypeImage {
		return false
	}
	src, err := p.store.get(fixed)
	return err == nil && len(src.video) > 0
}

// Process serves the video frame whose PTS is closest to (and not after)
// at, as an opaque ImageHandle wrapping the frame's raw depacketized
// payload — decoding that payload's codec is out of scope (§1), left to
// whatever consumes the rendered output.
func (p *VideoProcessor) Process(
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
	src, err := p.store.get(input.Fixed)
	if err != nil {
		return nil, err
	}
	if len(src.video) == 0 {
		return nil, fmt.Errorf("mediafile: no video frames decoded")
	}
	target := at.Value().Float64()
	frame := nearestFrame(src.video, target)
	return parameter.ImageHandle{Data: frame.Payload}, nil
}

func (p *VideoProcessor) WholeComponentCacheKey(fixed []parameter.RawValue, interprocess []ptime.TimelineTime) (procache.Key, bool) {
	path, sdpPath, ok := filePaths(fixed)
	if !ok {
		return nil, false
	}
	return pathKey{path: path, sdpPath: sdpPath}, true
}

func (p *VideoProcessor) FramedCacheKey(input processor.NativeInput, at ptime.TimelineTime, sel parameter.Type) (procache.Key, bool) {
	path, sdpPath, ok := filePaths(input.Fixed)
	if !ok {
		return nil, false
	}
	return framedKey{path: path, sdpPath: sdpPath, at: at.Value().String(), sel: sel}, true
}

// AudioProcessor serves builtin:mediafile-audio's decoded audio track as a
// windowed AudioBuffer, the only GatherNativeProcessor leaf in this repo.
type AudioProcessor struct {
	store *decodeStore
}

func (*AudioProcessor) Kind() processor.Kind { return processor.KindGatherNative }

func (*AudioProcessor) FixedParameterTypes() []parameter.TypeDescriptor { return fixedParameterTypes() }

func (*AudioProcessor) UpdateVariableParameter([]parameter.RawValue, *[]parameter.TypeDescriptor) {}

func (p *AudioProcessor) NaturalLength(fixed []parameter.RawValue, whole procache.WholeCache) (ptime.MarkerTime, bool) {
	src, err := p.store.get(fixed)
	if err != nil {
		return ptime.MarkerTime{}, false
	}
	return ptime.NewMarkerTime(fraction.FromFloat64(src.length))
}

func (p *AudioProcessor) SupportsOutputType(fixed []parameter.RawValue, sel parameter.Type, whole procache.WholeCache) bool {
	if sel != parameter.TypeAudio {
		return false
	}
	src, err := p.store.get(fixed)
	return err == nil && len(src.audio) > 0
}

// Process assembles a single AudioBuffer from every audio frame overlapping
// [window.Begin, window.End), decoding each payload's PCM samples as signed
// 16-bit little-endian — the one concrete codec this leaf commits to, since
// PCM is the lowest common denominator a demuxed RTP/SDP dump can carry
// without an external codec dependency.
func (p *AudioProcessor) Process(
	ctx context.Context,
	fixed []parameter.RawValue,
	window processor.GatherWindow,
	request parameter.Type,
	whole procache.WholeCache,
	framed procache.FramedCache,
) (parameter.RawValue, error) {
	if request != parameter.TypeAudio {
		return nil, processor.ErrOutputTypeMismatch
	}
	src, err := p.store.get(fixed)
	if err != nil {
		return nil, err
	}
	if len(src.audio) == 0 {
		return nil, fmt.Errorf("mediafile: no audio frames decoded")
	}

	begin := window.Begin.Value().Float64()
	end := window.End.Value().Float64()

	channels := src.audioCh
	if channels < 1 {
		channels = 1
	}
	buf := parameter.AudioBuffer{SampleRate: 48000, Channels: make([][]float64, channels)}
	for _, frame := range src.audio {
		if frame.PTSSec < begin || frame.PTSSec >= end {
			continue
		}
		for i, s := range pcm16ToFloat(frame.Payload) {
			ch := i % channels
			buf.Channels[ch] = append(buf.Channels[ch], s)
		}
	}
	return buf, nil
}

func (p *AudioProcessor) WholeComponentCacheKey(fixed []parameter.RawValue, interprocess []ptime.TimelineTime) (procache.Key, bool) {
	path, sdpPath, ok := filePaths(fixed)
	if !ok {
		return nil, false
	}
	return pathKey{path: path, sdpPath: sdpPath}, true
}

func (p *AudioProcessor) FramedCacheKey(window processor.GatherWindow, sel parameter.Type) (procache.Key, bool) {
	begin := window.Begin.Value().Float64()
	end := window.End.Value().Float64()
	return framedKey{at: fmt.Sprintf("%f-%f", begin, end), sel: sel}, true
}
