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

// Command mpdeltarender renders one saved project root to a video/audio
// file: load, build.Build the render tree, drive render.Renderer frame by
// frame, and pipe the result through pkg/ffmpeg.Encoder. No HTTP surface;
// a one-shot CLI, the offline counterpart to cmd/mpdeltad's live editor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	_ "mpdelta/components/mediafile"
	_ "mpdelta/components/shape"
	_ "mpdelta/components/text"

	"mpdelta/pkg/compositor"
	"mpdelta/pkg/ffmpeg"
	"mpdelta/pkg/fraction"
	"mpdelta/pkg/timeline/classloader"
	"mpdelta/pkg/timeline/combine"
	"mpdelta/pkg/timeline/id"
	"mpdelta/pkg/timeline/parameter"
	"mpdelta/pkg/timeline/procache"
	"mpdelta/pkg/timeline/project"
	"mpdelta/pkg/timeline/render"
	"mpdelta/pkg/timeline/render/build"
	"mpdelta/pkg/timeline/render/pool"
	"mpdelta/pkg/timeline/serialize"
	ptime "mpdelta/pkg/timeline/time"
)

func main() {
	var (
		storePath = flag.String("store", "./projects.db", "project store path")
		key       = flag.String("project", "", "project key to render")
		out       = flag.String("out", "./out.mp4", "output file path")
		ffmpegBin = flag.String("ffmpeg", "ffmpeg", "ffmpeg binary")
		width     = flag.Int("width", 1920, "output width")
		height    = flag.Int("height", 1080, "output height")
		frameRate = flag.Int("framerate", 30, "output frame rate")
		noImage   = flag.Bool("no-image", false, "skip video frames, audio only")
		noAudio   = flag.Bool("no-audio", false, "skip audio, video only")
	)
	flag.Parse()

	if *key == "" {
		fmt.Fprintln(os.Stderr, "mpdeltarender: -project is required")
		os.Exit(1)
	}

	if err := run(renderConfig{
		storePath: *storePath,
		key:       *key,
		out:       *out,
		ffmpegBin: *ffmpegBin,
		size:      [2]int{*width, *height},
		frameRate: *frameRate,
		withImage: !*noImage,
		withAudio: !*noAudio,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "mpdeltarender:", err)
		os.Exit(1)
	}
}

type renderConfig struct {
	storePath string
	key       string
	out       string
	ffmpegBin string
	size      [2]int
	frameRate int
	withImage bool
	withAudio bool
}

func run(cfg renderConfig) error {
	ctx := context.Background()

	store, err := serialize.OpenStore(cfg.storePath)
	if err != nil {
		return fmt.Errorf("could not open store %s: %w", cfg.storePath, err)
	}
	defer store.Close()

	gen := id.RandGenerator{}
	proj := project.NewProject(gen)
	root, err := store.LoadRoot(cfg.key, proj, gen)
	if err != nil {
		return fmt.Errorf("could not load project %q: %w", cfg.key, err)
	}

	whole := procache.NewWholeCache(256)
	framed := procache.NewFramedCache(256)

	node, err := build.Build(&classloader.Loader{}, root, whole)
	if err != nil {
		return fmt.Errorf("could not build render tree: %w", err)
	}

	images := combine.ImageCombinerBuilder{Compositor: compositor.Software{}}
	audio := combine.AudioCombinerBuilder{}
	workers := pool.New(4)

	renderer := render.New(node, whole, framed, images, audio, workers)

	enc, err := ffmpeg.NewEncoder(cfg.ffmpegBin, cfg.out, cfg.size, cfg.frameRate, cfg.withImage, cfg.withAudio)
	if err != nil {
		return fmt.Errorf("could not start encoder: %w", err)
	}

	if cfg.withImage {
		if err := renderFrames(ctx, renderer, enc, cfg); err != nil {
			return err
		}
	}
	if cfg.withAudio {
		if err := renderAudio(ctx, renderer, enc, cfg); err != nil {
			return err
		}
	}

	return enc.Finish(ctx)
}

// renderFrames walks the component length frame by frame at the configured
// frame rate, pushing each rendered image into enc.
func renderFrames(ctx context.Context, r *render.Renderer, enc *ffmpeg.Encoder, cfg renderConfig) error {
	length := r.ComponentLength().Value()
	total := int(length.Float64() * float64(cfg.frameRate))

	for i := 0; i < total; i++ {
		at := ptime.NewTimelineTime(fraction.FromRatio(int64(i), uint32(cfg.frameRate)))
		val, _, err := r.Render(ctx, at, parameter.TypeImage, cfg.size)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		img, ok := val.(parameter.ImageHandle)
		if !ok {
			return fmt.Errorf("frame %d: unexpected output type %T", i, val)
		}
		if err := enc.PushFrame(img.Data); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// renderAudio renders the whole timeline's audio in one request and hands
// the mixed-down buffer to enc.
func renderAudio(ctx context.Context, r *render.Renderer, enc *ffmpeg.Encoder, cfg renderConfig) error {
	val, _, err := r.Render(ctx, ptime.NewTimelineTime(fraction.Zero), parameter.TypeAudio, [2]int{})
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	buf, ok := val.(parameter.AudioBuffer)
	if !ok {
		return fmt.Errorf("audio: unexpected output type %T", val)
	}
	return enc.SetAudio(buf.SampleRate, buf.Channels)
}
