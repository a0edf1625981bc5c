package silence

import (
	"fmt"

	"github.com/linuxmatters/hushcut/internal/failure"
)

// Default scan parameters. A silent run must last longer than
// sampleRate/DefaultWindowFactor samples to be cut, and DefaultMargin samples
// are kept on each side of every cut.
const (
	DefaultWindowFactor = 80
	DefaultMargin       = 30
)

// MaskParams configures BuildMask.
type MaskParams struct {
	SampleRate   int // Hz
	WindowFactor int // divisor of SampleRate giving the minimum silent run
	Margin       int // samples kept at each edge of a removed run
}

// Run is a removed interval [Start, End) of frame indices.
type Run struct {
	Start int
	End   int
}

// Len returns the number of frames in the run.
func (r Run) Len() int {
	return r.End - r.Start
}

// Mask is the per-frame retain decision. It is built once and not modified afterwards.
type Mask struct {
	keep []bool
	runs []Run
	kept int
}

// MinRunLength returns the shortest gap between loud frames that is treated
// as silence rather than a pause.
func MinRunLength(sampleRate, windowFactor int) (int, error) {
	if sampleRate <= 0 {
		return 0, fmt.Errorf("sample rate %d: %w", sampleRate, failure.ErrInvalidParameter)
	}
	if windowFactor <= 0 {
		return 0, fmt.Errorf("window factor %d: %w", windowFactor, failure.ErrInvalidParameter)
	}
	return sampleRate / windowFactor, nil
}

// BuildMask classifies every frame of envelope against threshold.
//
// Loud frames (envelope >= threshold) are visited in order. When the distance
// from the previous loud frame exceeds the minimum run length, the frames
// between them are dropped except for Margin frames at each edge. The walk
// stops at the last loud frame, so a silent tail is always retained.
func BuildMask(envelope []float64, threshold float64, p MaskParams) (*Mask, error) {
	minRun, err := MinRunLength(p.SampleRate, p.WindowFactor)
	if err != nil {
		return nil, err
	}
	if p.Margin < 0 {
		return nil, fmt.Errorf("margin %d: %w", p.Margin, failure.ErrInvalidParameter)
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	n := len(envelope)
	m := &Mask{keep: make([]bool, n), kept: n}
	for i := range m.keep {
		m.keep[i] = true
	}

	lastLoud := 0
	for ind, v := range envelope {
		if v < threshold {
			continue
		}
		if ind-lastLoud > minRun {
			m.drop(lastLoud+p.Margin, ind-p.Margin)
		}
		lastLoud = ind
	}

	return m, nil
}

// drop clears [start, end) clamped to the mask. Empty or inverted intervals are ignored.
func (m *Mask) drop(start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(m.keep) {
		end = len(m.keep)
	}
	if start >= end {
		return
	}
	for i := start; i < end; i++ {
		m.keep[i] = false
	}
	m.kept -= end - start
	m.runs = append(m.runs, Run{Start: start, End: end})
}

// Len returns the number of frames covered by the mask.
func (m *Mask) Len() int {
	return len(m.keep)
}

// Kept returns the number of retained frames.
func (m *Mask) Kept() int {
	return m.kept
}

// Runs returns the removed intervals in ascending order.
func (m *Mask) Runs() []Run {
	out := make([]Run, len(m.runs))
	copy(out, m.runs)
	return out
}

// Retained returns the ascending indices of retained frames.
func (m *Mask) Retained() []int {
	out := make([]int, 0, m.kept)
	for i, k := range m.keep {
		if k {
			out = append(out, i)
		}
	}
	return out
}

// Filter returns the interleaved samples of the retained frames. Whole frames
// are kept so the channel layout is preserved.
func (m *Mask) Filter(samples []int, channels int) []int {
	if channels < 1 {
		channels = 1
	}
	out := make([]int, 0, m.kept*channels)
	for f, k := range m.keep {
		if !k {
			continue
		}
		base := f * channels
		if base+channels > len(samples) {
			break
		}
		out = append(out, samples[base:base+channels]...)
	}
	return out
}
