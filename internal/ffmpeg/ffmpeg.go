// Package ffmpeg drives the external ffmpeg and ffprobe binaries for audio
// extraction, format conversion, probing and the final mux.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/sirupsen/logrus"
)

// Transcoder runs ffmpeg and ffprobe as child processes. Every invocation
// uses -n so an existing target is never overwritten.
type Transcoder struct {
	FFmpeg  string
	FFprobe string
	Log     logrus.FieldLogger
}

// New returns a Transcoder that finds ffmpeg and ffprobe on PATH.
func New(log logrus.FieldLogger) *Transcoder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Transcoder{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Log: log}
}

// Available checks that both binaries can be found.
func (t *Transcoder) Available() error {
	for _, bin := range []string{t.FFmpeg, t.FFprobe} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, failure.ErrToolFailure)
		}
	}
	return nil
}

// Extract writes the first audio stream of input to wavOut as 16-bit PCM.
func (t *Transcoder) Extract(ctx context.Context, input, wavOut string) error {
	return t.run(ctx, wavOut,
		"-i", input,
		"-vn",
		"-map", "0:a:0",
		"-c:a", "pcm_s16le",
		wavOut,
	)
}

// Convert re-encodes wavIn into output, choosing the codec from output's extension.
func (t *Transcoder) Convert(ctx context.Context, wavIn, output string) error {
	return t.run(ctx, output, "-i", wavIn, output)
}

// Mux combines a video-only and an audio-only file into output.
func (t *Transcoder) Mux(ctx context.Context, video, audio, output string, level Level) error {
	args := []string{"-i", video, "-i", audio, "-map", "0:v:0", "-map", "1:a:0"}
	args = append(args, level.MuxArgs()...)
	args = append(args, "-c:a", "aac", "-shortest", output)

	start := time.Now()
	if err := t.run(ctx, output, args...); err != nil {
		return err
	}
	if level == Heavy {
		t.Log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("compression completed")
	}
	return nil
}

// BaseArgs are prepended to every ffmpeg invocation.
func BaseArgs() []string {
	return []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-n"}
}

func (t *Transcoder) run(ctx context.Context, target string, args ...string) error {
	full := append(BaseArgs(), args...)
	t.Log.WithField("args", strings.Join(full, " ")).Debug("running ffmpeg")

	cmd := exec.CommandContext(ctx, t.FFmpeg, full...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Classify(target, err, string(output))
	}
	return nil
}

// Classify turns a failed ffmpeg run into ErrOutputCollision when target
// exists afterwards and ErrToolFailure otherwise.
func Classify(target string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if _, statErr := os.Stat(target); statErr == nil {
		return fmt.Errorf("a file named %s already exists: %w", target, failure.ErrOutputCollision)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("ffmpeg exited with status %d writing %s: %w: %s",
			exitErr.ExitCode(), target, failure.ErrToolFailure, stderr)
	}
	return fmt.Errorf("ffmpeg writing %s: %w: %v", target, failure.ErrToolFailure, err)
}
