// Package resync maps the retained audio timeline back onto the frames of
// the original video so the shortened video stays in step with the
// shortened audio.
//
// The output keeps the source frame rate; shortening comes from emitting
// fewer frames. A single forward-only Cursor walks the source frames, so
// frames that are skipped are grabbed but never decoded.
package resync

import (
	"fmt"
	"math"

	"github.com/linuxmatters/hushcut/internal/failure"
)

// Geometry describes the source video stream. It is read once per file.
type Geometry struct {
	FrameCount      int
	DurationSeconds float64
	Width           int
	Height          int
	FrameRateHint   float64 // container-reported rate, informational only
}

// FrameRate returns FrameCount / DurationSeconds.
func (g Geometry) FrameRate() float64 {
	if g.DurationSeconds <= 0 {
		return 0
	}
	return float64(g.FrameCount) / g.DurationSeconds
}

// Validate rejects geometry that cannot produce a frame rate.
func (g Geometry) Validate() error {
	if g.FrameCount <= 0 {
		return fmt.Errorf("frame count %d: %w", g.FrameCount, failure.ErrInvalidParameter)
	}
	if !(g.DurationSeconds > 0) || math.IsInf(g.DurationSeconds, 0) {
		return fmt.Errorf("duration %v: %w", g.DurationSeconds, failure.ErrInvalidParameter)
	}
	return nil
}

// Cursor is the forward-only position in the source frame stream, paired
// with the audio sample index that position corresponds to.
type Cursor struct {
	frame           int
	lastFrame       int
	samplesPerFrame float64
	skips           int
}

// NewCursor returns a cursor at frame 0 for a stream of frameCount frames.
func NewCursor(samplesPerFrame float64, frameCount int) *Cursor {
	return &Cursor{
		lastFrame:       frameCount - 1,
		samplesPerFrame: samplesPerFrame,
	}
}

// Expected returns the audio sample index aligned with the current frame.
// It is computed from the frame index rather than accumulated, so rounding
// error does not grow with the length of the video.
func (c *Cursor) Expected() float64 {
	return float64(c.frame) * c.samplesPerFrame
}

// Seek advances the cursor until its expected sample reaches target or the
// last frame of the stream, and returns the frame to decode. It never moves
// backwards.
func (c *Cursor) Seek(target int) int {
	for c.Expected() < float64(target) && c.frame < c.lastFrame {
		c.frame++
		c.skips++
	}
	return c.frame
}

// Skips returns how many frames the cursor has advanced over.
func (c *Cursor) Skips() int {
	return c.skips
}

// FramePlan is the ordered list of source frames to emit.
type FramePlan struct {
	Frames          []int   // source frame index for each output frame
	FrameRate       float64 // output rate, equal to the source rate
	SamplesPerFrame float64 // audio samples spanned by one frame
	Skips           int     // cursor advances made while planning
}

// Duration returns the playing time of the planned video in seconds.
func (p *FramePlan) Duration() float64 {
	if p.FrameRate <= 0 {
		return 0
	}
	return float64(len(p.Frames)) / p.FrameRate
}

// Plan selects, for each output frame, the source frame aligned with the
// retained audio sample that output frame starts on.
//
// retained must be ascending. The number of output frames is
// ceil(len(retained) / samplesPerFrame), so the planned video is never
// shorter than the retained audio and never longer by a full frame.
func Plan(retained []int, sampleRate int, g Geometry) (*FramePlan, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate %d: %w", sampleRate, failure.ErrInvalidParameter)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	rate := g.FrameRate()
	spf := float64(sampleRate) / rate
	plan := &FramePlan{FrameRate: rate, SamplesPerFrame: spf}

	n := len(retained)
	if n == 0 {
		return plan, nil
	}

	count := int(math.Ceil(float64(n) / spf))
	plan.Frames = make([]int, count)

	cur := NewCursor(spf, g.FrameCount)
	for i := 0; i < count; i++ {
		idx := int(math.Round(float64(i) * spf))
		if idx > n-1 {
			idx = n - 1
		}
		plan.Frames[i] = cur.Seek(retained[idx])
	}
	plan.Skips = cur.Skips()

	return plan, nil
}
