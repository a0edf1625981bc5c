// Package processor removes silent stretches from audio and video files.
package processor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/linuxmatters/hushcut/internal/audio"
	"github.com/linuxmatters/hushcut/internal/config"
	"github.com/linuxmatters/hushcut/internal/ffmpeg"
	"github.com/linuxmatters/hushcut/internal/resync"
	"github.com/linuxmatters/hushcut/internal/silence"
	"github.com/sirupsen/logrus"
)

// Stage identifies a step of the pipeline for progress reporting.
type Stage int

const (
	StageExtracting Stage = iota
	StageAnalysing
	StageCutting
	StageMuxing
)

func (s Stage) String() string {
	switch s {
	case StageExtracting:
		return "Extracting"
	case StageAnalysing:
		return "Analysing"
	case StageCutting:
		return "Cutting"
	case StageMuxing:
		return "Muxing"
	}
	return "Unknown"
}

// ProgressFunc receives the current stage and its completion in [0, 1].
type ProgressFunc func(stage Stage, progress float64)

// Tools is the set of external media operations the pipeline needs.
// *ffmpeg.Transcoder satisfies it.
type Tools interface {
	Extract(ctx context.Context, input, wavOut string) error
	Convert(ctx context.Context, wavIn, output string) error
	Mux(ctx context.Context, videoPath, audioPath, output string, level ffmpeg.Level) error
	Probe(ctx context.Context, path string) (resync.Geometry, error)
}

// Analysis is the outcome of threshold estimation and masking on one track.
type Analysis struct {
	Threshold    float64
	Manual       bool
	Strategy     silence.Strategy
	MinRunLength int
	Runs         []silence.Run
	InputFrames  int
	OutputFrames int
}

// Removed returns the number of sample frames dropped.
func (a *Analysis) Removed() int {
	return a.InputFrames - a.OutputFrames
}

// VideoResult describes the frame selection for a video input.
type VideoResult struct {
	Geometry     resync.Geometry
	FrameRate    float64
	OutputFrames int
	Grabbed      int
	Skips        int
}

// Result summarises one processed file.
type Result struct {
	InputPath  string
	OutputPath string
	Kind       Kind
	SampleRate int
	Channels   int
	BitDepth   int
	Analysis   Analysis
	Video      *VideoResult
	TempFiles  []string
}

// InputDuration is the length of the input audio in seconds.
func (r *Result) InputDuration() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return float64(r.Analysis.InputFrames) / float64(r.SampleRate)
}

// OutputDuration is the length of the retained audio in seconds.
func (r *Result) OutputDuration() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return float64(r.Analysis.OutputFrames) / float64(r.SampleRate)
}

// Processor runs the silence removal pipeline for single files.
type Processor struct {
	cfg    config.Config
	tools  Tools
	frames FrameIO
	log    logrus.FieldLogger
}

// New returns a Processor that uses tools for ffmpeg work and frames for
// raw video decoding and encoding.
func New(cfg config.Config, tools Tools, frames FrameIO, log logrus.FieldLogger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{cfg: cfg, tools: tools, frames: frames, log: log}
}

// NewFFmpeg returns a Processor backed by the ffmpeg and ffprobe binaries.
func NewFFmpeg(cfg config.Config, tc *ffmpeg.Transcoder) *Processor {
	return New(cfg, tc, &PipeFrames{FFmpeg: tc.FFmpeg}, tc.Log)
}

// ProcessFile removes silence from input and writes the result to output.
// Intermediate files are removed after success unless KeepTemp is set; on
// failure they are left in place.
func (p *Processor) ProcessFile(ctx context.Context, input, output string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(Stage, float64) {}
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}

	kind, err := KindOf(input)
	if err != nil {
		return nil, err
	}

	log := p.log.WithFields(logrus.Fields{"input": input, "output": output, "kind": kind})
	log.Debug("processing started")

	result := &Result{InputPath: input, OutputPath: output, Kind: kind}
	if kind == KindVideo {
		err = p.processVideo(ctx, result, progress)
	} else {
		err = p.processAudio(ctx, result, progress)
	}
	if err != nil {
		log.WithError(err).Debug("processing failed")
		return result, err
	}

	if !p.cfg.KeepTemp {
		p.cleanup(result.TempFiles)
		result.TempFiles = nil
	}
	log.WithFields(logrus.Fields{
		"kept":    result.Analysis.OutputFrames,
		"removed": result.Analysis.Removed(),
	}).Debug("processing finished")
	return result, nil
}

// Analyse estimates the threshold for track and builds its silence mask.
func (p *Processor) Analyse(track *audio.Track) (*silence.Mask, Analysis, error) {
	envelope := silence.Envelope(track.Samples, track.Channels)
	threshold, err := silence.Resolve(envelope, p.cfg.Strategy, p.cfg.Threshold)
	if err != nil {
		return nil, Analysis{}, err
	}

	params := p.cfg.MaskParams(track.SampleRate)
	mask, err := silence.BuildMask(envelope, threshold, params)
	if err != nil {
		return nil, Analysis{}, err
	}
	minRun, err := silence.MinRunLength(params.SampleRate, params.WindowFactor)
	if err != nil {
		return nil, Analysis{}, err
	}

	a := Analysis{
		Threshold:    threshold,
		Manual:       p.cfg.Threshold != nil,
		Strategy:     p.cfg.Strategy,
		MinRunLength: minRun,
		Runs:         mask.Runs(),
		InputFrames:  mask.Len(),
		OutputFrames: mask.Kept(),
	}
	p.log.WithFields(logrus.Fields{
		"threshold": threshold,
		"strategy":  a.Strategy,
		"manual":    a.Manual,
		"runs":      len(a.Runs),
	}).Debug("silence mask built")
	return mask, a, nil
}

func (p *Processor) processAudio(ctx context.Context, r *Result, progress ProgressFunc) error {
	temps := tempFilesFor(r.InputPath)

	source := r.InputPath
	if NeedsFFmpeg(r.InputPath) {
		progress(StageExtracting, 0)
		if err := p.tools.Extract(ctx, r.InputPath, temps.Extracted); err != nil {
			return fmt.Errorf("extract audio: %w", err)
		}
		r.TempFiles = append(r.TempFiles, temps.Extracted)
		source = temps.Extracted
		progress(StageExtracting, 1)
	}

	track, err := p.readTrack(r, source, progress)
	if err != nil {
		return err
	}
	mask, analysis, err := p.Analyse(track)
	if err != nil {
		return err
	}
	r.Analysis = analysis
	progress(StageAnalysing, 1)

	progress(StageCutting, 0)
	cut := track.WithSamples(mask.Filter(track.Samples, track.Channels))
	if isWAV(r.OutputPath) {
		if err := audio.WriteWAV(r.OutputPath, cut); err != nil {
			return err
		}
		progress(StageCutting, 1)
		return nil
	}

	if err := audio.WriteWAV(temps.Audio, cut); err != nil {
		return err
	}
	r.TempFiles = append(r.TempFiles, temps.Audio)
	progress(StageCutting, 1)

	progress(StageMuxing, 0)
	if err := p.tools.Convert(ctx, temps.Audio, r.OutputPath); err != nil {
		return fmt.Errorf("convert audio: %w", err)
	}
	progress(StageMuxing, 1)
	return nil
}

func (p *Processor) processVideo(ctx context.Context, r *Result, progress ProgressFunc) error {
	temps := tempFilesFor(r.InputPath)

	progress(StageExtracting, 0)
	if err := p.tools.Extract(ctx, r.InputPath, temps.Extracted); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	r.TempFiles = append(r.TempFiles, temps.Extracted)

	geometry, err := p.tools.Probe(ctx, r.InputPath)
	if err != nil {
		return fmt.Errorf("probe video: %w", err)
	}
	progress(StageExtracting, 1)

	track, err := p.readTrack(r, temps.Extracted, progress)
	if err != nil {
		return err
	}
	mask, analysis, err := p.Analyse(track)
	if err != nil {
		return err
	}
	r.Analysis = analysis

	plan, err := resync.Plan(mask.Retained(), track.SampleRate, geometry)
	if err != nil {
		return err
	}
	progress(StageAnalysing, 1)

	grabbed, err := p.assemble(ctx, r.InputPath, temps.Video, geometry, plan, progress)
	r.TempFiles = append(r.TempFiles, temps.Video)
	if err != nil {
		return err
	}
	r.Video = &VideoResult{
		Geometry:     geometry,
		FrameRate:    plan.FrameRate,
		OutputFrames: len(plan.Frames),
		Grabbed:      grabbed,
		Skips:        plan.Skips,
	}

	cut := track.WithSamples(mask.Filter(track.Samples, track.Channels))
	if err := audio.WriteWAV(temps.Audio, cut); err != nil {
		return err
	}
	r.TempFiles = append(r.TempFiles, temps.Audio)

	progress(StageMuxing, 0)
	if err := p.tools.Mux(ctx, temps.Video, temps.Audio, r.OutputPath, p.cfg.Compression); err != nil {
		return fmt.Errorf("mux: %w", err)
	}
	progress(StageMuxing, 1)
	return nil
}

func (p *Processor) readTrack(r *Result, path string, progress ProgressFunc) (*audio.Track, error) {
	progress(StageAnalysing, 0)
	track, err := audio.ReadWAV(path)
	if err != nil {
		return nil, err
	}
	r.SampleRate = track.SampleRate
	r.Channels = track.Channels
	r.BitDepth = track.BitDepth
	return track, nil
}

// cleanup removes intermediates. A file that cannot be removed is logged
// and otherwise ignored.
func (p *Processor) cleanup(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.log.WithError(err).WithField("path", path).Warn("could not remove temporary file")
		}
	}
}
