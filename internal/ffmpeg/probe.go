package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/linuxmatters/hushcut/internal/mains"
	"github.com/linuxmatters/hushcut/internal/resync"
)

type probeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		Duration      string `json:"duration"`
		RFrameRate    string `json:"r_frame_rate"`
		AvgFrameRate  string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the geometry of the first video stream of path.
func (t *Transcoder) Probe(ctx context.Context, path string) (resync.Geometry, error) {
	cmd := exec.CommandContext(ctx, t.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,nb_frames,nb_read_packets,duration,r_frame_rate,avg_frame_rate:format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return resync.Geometry{}, fmt.Errorf("ffprobe %s: %w: %v", path, failure.ErrStreamUnavailable, err)
	}

	return ParseProbe(out, mains.FrameRate())
}

// ParseProbe builds a Geometry from ffprobe JSON. The frame count comes from
// nb_frames, then the packet count, then duration × rate. fallbackRate is
// used when the container reports no usable rate.
func ParseProbe(data []byte, fallbackRate float64) (resync.Geometry, error) {
	var p probeOutput
	if err := json.Unmarshal(data, &p); err != nil {
		return resync.Geometry{}, fmt.Errorf("parse ffprobe output: %w: %v", failure.ErrStreamUnavailable, err)
	}
	if len(p.Streams) == 0 {
		return resync.Geometry{}, fmt.Errorf("no video stream: %w", failure.ErrStreamUnavailable)
	}
	s := p.Streams[0]

	g := resync.Geometry{Width: s.Width, Height: s.Height}

	g.FrameRateHint = parseRate(s.AvgFrameRate)
	if g.FrameRateHint <= 0 {
		g.FrameRateHint = parseRate(s.RFrameRate)
	}
	if g.FrameRateHint <= 0 {
		g.FrameRateHint = fallbackRate
	}

	g.DurationSeconds = parseFloat(s.Duration)
	if g.DurationSeconds <= 0 {
		g.DurationSeconds = parseFloat(p.Format.Duration)
	}

	g.FrameCount = parseInt(s.NbFrames)
	if g.FrameCount <= 0 {
		g.FrameCount = parseInt(s.NbReadPackets)
	}
	if g.FrameCount <= 0 && g.DurationSeconds > 0 && g.FrameRateHint > 0 {
		g.FrameCount = int(math.Round(g.DurationSeconds * g.FrameRateHint))
	}

	if g.Width <= 0 || g.Height <= 0 {
		return g, fmt.Errorf("video stream has size %dx%d: %w", g.Width, g.Height, failure.ErrStreamUnavailable)
	}
	if err := g.Validate(); err != nil {
		return g, fmt.Errorf("video stream geometry: %w", err)
	}
	return g, nil
}

// parseRate parses "num/den" or a plain decimal. Unknown or zero rates give 0.
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
