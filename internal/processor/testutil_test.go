package processor

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/linuxmatters/hushcut/internal/audio"
	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/linuxmatters/hushcut/internal/ffmpeg"
	"github.com/linuxmatters/hushcut/internal/resync"
)

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	SampleRate int     // default 8000
	Channels   int     // default 1
	Amplitude  int     // peak of loud samples, default 8000
	Pattern    []Block // loud and silent blocks in order
}

// Block is a stretch of loud or silent samples, measured in frames
type Block struct {
	Frames int
	Silent bool
}

// testSamples builds interleaved samples for opts. Loud frames alternate
// sign at full amplitude so their envelope never dips.
func testSamples(opts TestAudioOptions) *audio.Track {
	if opts.SampleRate == 0 {
		opts.SampleRate = 8000
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}
	if opts.Amplitude == 0 {
		opts.Amplitude = 8000
	}

	var samples []int
	frame := 0
	for _, b := range opts.Pattern {
		for i := 0; i < b.Frames; i++ {
			v := 0
			if !b.Silent {
				v = opts.Amplitude
				if frame%2 == 1 {
					v = -v
				}
			}
			for c := 0; c < opts.Channels; c++ {
				samples = append(samples, v)
			}
			frame++
		}
	}

	return &audio.Track{SampleRate: opts.SampleRate, Channels: opts.Channels, BitDepth: 16, Samples: samples}
}

// generateTestAudio writes a synthetic WAV file named name into a temp dir
// and returns its path.
func generateTestAudio(t *testing.T, name string, opts TestAudioOptions) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := audio.WriteWAV(path, testSamples(opts)); err != nil {
		t.Fatalf("failed to write WAV file: %v", err)
	}
	return path
}

// writeFloatWAV writes a mono 32-bit IEEE float WAV of silence, a format
// ReadWAV refuses and ffmpeg has to transcode.
func writeFloatWAV(t *testing.T, path string, sampleRate, frames int) {
	t.Helper()
	dataSize := uint32(frames * 4)

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, 36+dataSize)
	b.WriteString("WAVEfmt ")
	for _, v := range []any{uint32(16), uint16(3), uint16(1), uint32(sampleRate), uint32(sampleRate * 4), uint16(4), uint16(32)} {
		_ = binary.Write(&b, binary.LittleEndian, v)
	}
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, dataSize)
	b.Write(make([]byte, dataSize))

	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write float WAV: %v", err)
	}
}

// touch creates an empty file, standing in for a video container.
func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
}

// fakeTools replaces ffmpeg. Extract writes track as the extracted audio.
type fakeTools struct {
	track    *audio.Track
	geometry resync.Geometry

	extracted []string
	converted []string
	muxed     []string
	muxLevel  ffmpeg.Level
}

func (f *fakeTools) Extract(_ context.Context, _, wavOut string) error {
	f.extracted = append(f.extracted, wavOut)
	return audio.WriteWAV(wavOut, f.track)
}

func (f *fakeTools) Convert(_ context.Context, wavIn, output string) error {
	f.converted = append(f.converted, wavIn, output)
	return copyFile(wavIn, output)
}

func (f *fakeTools) Mux(_ context.Context, video, audioPath, output string, level ffmpeg.Level) error {
	f.muxed = append(f.muxed, video, audioPath, output)
	f.muxLevel = level
	return copyFile(audioPath, output)
}

func (f *fakeTools) Probe(_ context.Context, _ string) (resync.Geometry, error) {
	return f.geometry, nil
}

func copyFile(from, to string) error {
	if _, err := os.Stat(to); err == nil {
		return failure.ErrOutputCollision
	}
	data, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	return os.WriteFile(to, data, 0o644)
}

// fakeFrames serves numbered one-byte frames and records what is written.
type fakeFrames struct {
	frameCount int
	source     *fakeSource
	written    [][]byte
	rate       float64
}

type fakeSource struct {
	frames int
	pos    int
	grabs  int
}

func (s *fakeSource) Grab() error {
	if s.pos+1 >= s.frames {
		return failure.ErrStreamClosed
	}
	s.pos++
	s.grabs++
	return nil
}

func (s *fakeSource) Decode() ([]byte, error) {
	if s.pos < 0 {
		return nil, failure.ErrStreamClosed
	}
	return []byte{byte(s.pos)}, nil
}

func (s *fakeSource) Grabs() int  { return s.grabs }
func (s *fakeSource) Close() error { return nil }

type fakeSink struct{ f *fakeFrames }

func (s fakeSink) WriteFrame(frame []byte) error {
	s.f.written = append(s.f.written, frame)
	return nil
}

func (s fakeSink) Close() error { return nil }

func (f *fakeFrames) OpenSource(_ context.Context, _ string, _ resync.Geometry) (Source, error) {
	f.source = &fakeSource{frames: f.frameCount, pos: -1}
	return f.source, nil
}

func (f *fakeFrames) OpenSink(_ context.Context, _ string, frameRate float64, _ resync.Geometry, _ ffmpeg.Level) (Sink, error) {
	f.rate = frameRate
	return fakeSink{f: f}, nil
}
