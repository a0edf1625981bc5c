// Package video streams raw frames out of and into ffmpeg child processes.
//
// Frames travel as packed rgb24. The decoder reads frames sequentially into a
// reused buffer, so skipping a frame costs one pipe read and no allocation.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/linuxmatters/hushcut/internal/ffmpeg"
)

// bytesPerPixel for rgb24.
const bytesPerPixel = 3

// FrameSize returns the byte length of one rgb24 frame.
func FrameSize(width, height int) int {
	return width * height * bytesPerPixel
}

// syncBuffer collects a child's stderr. os/exec copies into it from its own
// goroutine, so reads before Wait must hold the lock.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Decoder reads the first video stream of a file frame by frame.
type Decoder struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr syncBuffer
	buf    []byte
	held   bool
	grabs  int
}

// OpenDecoder starts ffmpeg decoding path to rgb24 frames of width×height.
// Every source frame is emitted once, with no rate conversion.
func OpenDecoder(ctx context.Context, bin, path string, width, height int) (*Decoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("open %s: frame size %dx%d: %w", path, width, height, failure.ErrStreamUnavailable)
	}

	args := append(ffmpeg.BaseArgs(),
		"-i", path,
		"-map", "0:v:0",
		"-an",
		"-fps_mode", "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	d := &Decoder{buf: make([]byte, FrameSize(width, height))}
	d.cmd = exec.CommandContext(ctx, bin, args...)
	d.cmd.Stderr = &d.stderr

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, failure.ErrStreamUnavailable, err)
	}
	d.stdout = stdout

	if err := d.cmd.Start(); err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, failure.ErrStreamUnavailable, err)
	}
	return d, nil
}

// Grab advances to the next frame.
func (d *Decoder) Grab() error {
	if _, err := io.ReadFull(d.stdout, d.buf); err != nil {
		d.held = false
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("after %d frames: %w: %s", d.grabs, failure.ErrStreamClosed, d.stderr.String())
		}
		return fmt.Errorf("after %d frames: %w: %v", d.grabs, failure.ErrStreamClosed, err)
	}
	d.held = true
	d.grabs++
	return nil
}

// Decode returns a copy of the frame most recently grabbed.
func (d *Decoder) Decode() ([]byte, error) {
	if !d.held {
		return nil, fmt.Errorf("no frame held: %w", failure.ErrStreamClosed)
	}
	frame := make([]byte, len(d.buf))
	copy(frame, d.buf)
	return frame, nil
}

// Grabs returns the number of frames read so far.
func (d *Decoder) Grabs() int {
	return d.grabs
}

// Close stops ffmpeg. Frames past the last planned one are never read, so
// the process is killed rather than drained.
func (d *Decoder) Close() error {
	if d.cmd.Process == nil {
		return nil
	}
	_ = d.stdout.Close()
	_ = d.cmd.Process.Kill()
	_ = d.cmd.Wait()
	return nil
}

// Encoder writes rgb24 frames into a new video file.
type Encoder struct {
	path   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	size   int
	frames int
	closed bool
}

// OpenEncoder starts ffmpeg writing frames of width×height at frameRate to
// path, using the intermediate codec for level.
func OpenEncoder(ctx context.Context, bin, path string, frameRate float64, width, height int, level ffmpeg.Level) (*Encoder, error) {
	if frameRate <= 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("encoder for %s: rate %v size %dx%d: %w", path, frameRate, width, height, failure.ErrInvalidParameter)
	}

	args := append(ffmpeg.BaseArgs(),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-framerate", strconv.FormatFloat(frameRate, 'f', -1, 64),
		"-i", "pipe:0",
	)
	args = append(args, level.IntermediateArgs()...)
	args = append(args, "-pix_fmt", "yuv420p", path)

	e := &Encoder{path: path, size: FrameSize(width, height)}
	e.cmd = exec.CommandContext(ctx, bin, args...)
	e.cmd.Stderr = &e.stderr

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder for %s: %w", path, err)
	}
	e.stdin = stdin

	if err := e.cmd.Start(); err != nil {
		return nil, ffmpeg.Classify(path, err, "")
	}
	return e, nil
}

// WriteFrame appends one frame.
func (e *Encoder) WriteFrame(frame []byte) error {
	if len(frame) != e.size {
		return fmt.Errorf("frame of %d bytes, want %d: %w", len(frame), e.size, failure.ErrInvalidParameter)
	}
	if _, err := e.stdin.Write(frame); err != nil {
		// ffmpeg has gone away; its exit status says why.
		if closeErr := e.Close(); closeErr != nil {
			return closeErr
		}
		return fmt.Errorf("write frame to %s: %w", e.path, err)
	}
	e.frames++
	return nil
}

// Frames returns the number of frames written.
func (e *Encoder) Frames() int {
	return e.frames
}

// Close flushes the stream and waits for ffmpeg to finish the file.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	_ = e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return ffmpeg.Classify(e.path, err, e.stderr.String())
	}
	return nil
}
