package processor

import (
	"context"
	"errors"

	"github.com/linuxmatters/hushcut/internal/ffmpeg"
	"github.com/linuxmatters/hushcut/internal/resync"
	"github.com/linuxmatters/hushcut/internal/video"
)

// Source is a forward-only reader of decoded video frames.
type Source interface {
	resync.FrameSource
	Grabs() int
	Close() error
}

// Sink accepts frames for the video-only intermediate.
type Sink interface {
	resync.FrameSink
	Close() error
}

// FrameIO opens the frame reader and writer used to rebuild the video track.
type FrameIO interface {
	OpenSource(ctx context.Context, path string, g resync.Geometry) (Source, error)
	OpenSink(ctx context.Context, path string, frameRate float64, g resync.Geometry, level ffmpeg.Level) (Sink, error)
}

// PipeFrames moves raw frames through ffmpeg pipes.
type PipeFrames struct {
	FFmpeg string
}

func (f *PipeFrames) OpenSource(ctx context.Context, path string, g resync.Geometry) (Source, error) {
	d, err := video.OpenDecoder(ctx, f.FFmpeg, path, g.Width, g.Height)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (f *PipeFrames) OpenSink(ctx context.Context, path string, frameRate float64, g resync.Geometry, level ffmpeg.Level) (Sink, error) {
	e, err := video.OpenEncoder(ctx, f.FFmpeg, path, frameRate, g.Width, g.Height, level)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// assemble writes the frames named by plan from input to out at the plan's
// frame rate. It returns the number of source frames grabbed.
func (p *Processor) assemble(ctx context.Context, input, out string, g resync.Geometry, plan *resync.FramePlan, progress ProgressFunc) (int, error) {
	progress(StageCutting, 0)

	src, err := p.frames.OpenSource(ctx, input, g)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := p.frames.OpenSink(ctx, out, plan.FrameRate, g, p.cfg.Compression)
	if err != nil {
		return 0, err
	}

	err = resync.Replay(plan, src, dst, func(done, total int) {
		progress(StageCutting, float64(done)/float64(total))
	})
	if cerr := dst.Close(); err == nil {
		err = cerr
	} else if cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return src.Grabs(), err
	}

	p.log.WithField("frames", len(plan.Frames)).
		WithField("grabbed", src.Grabs()).
		WithField("skips", plan.Skips).
		Debug("video frames assembled")
	return src.Grabs(), nil
}
