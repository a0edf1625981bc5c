// Package audio reads and writes PCM WAV files using go-audio.
package audio

import (
	"errors"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/hushcut/internal/failure"
)

// pcmFormat is the WAVE_FORMAT_PCM tag.
const pcmFormat = 1

// Track is a fully decoded PCM recording. Samples are interleaved by channel
// and are not modified once read.
type Track struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    []int
}

// Frames returns the number of sample frames (samples per channel).
func (t *Track) Frames() int {
	if t.Channels < 1 {
		return len(t.Samples)
	}
	return len(t.Samples) / t.Channels
}

// Duration returns the playing time in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate <= 0 {
		return 0
	}
	return float64(t.Frames()) / float64(t.SampleRate)
}

// WithSamples returns a track with the same format and the given samples.
func (t *Track) WithSamples(samples []int) *Track {
	return &Track{
		SampleRate: t.SampleRate,
		Channels:   t.Channels,
		BitDepth:   t.BitDepth,
		Samples:    samples,
	}
}

// NonPCM reports whether path is a readable WAV file whose samples are not
// integer PCM, such as IEEE float or WAVE_FORMAT_EXTENSIBLE. Such files
// need transcoding before ReadWAV can decode them.
func NonPCM(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	return dec.IsValidFile() && dec.WavAudioFormat != pcmFormat
}

// ReadWAV decodes an integer PCM WAV file into memory.
func ReadWAV(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, failure.ErrStreamUnavailable, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid WAV file: %w", path, failure.ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("%s uses WAV format tag %d, not integer PCM: %w", path, dec.WavAudioFormat, failure.ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM from %s: %w: %v", path, failure.ErrStreamClosed, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels <= 0 {
		return nil, fmt.Errorf("%s has no usable audio format: %w", path, failure.ErrUnsupportedFormat)
	}

	return &Track{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   int(dec.BitDepth),
		Samples:    buf.Data,
	}, nil
}

// WriteWAV encodes t as a PCM WAV file. It refuses to overwrite an existing file.
func WriteWAV(path string, t *Track) error {
	if t.SampleRate <= 0 || t.Channels <= 0 {
		return fmt.Errorf("write %s: sample rate %d, channels %d: %w", path, t.SampleRate, t.Channels, failure.ErrInvalidParameter)
	}
	bitDepth := t.BitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("write %s: %w", path, failure.ErrOutputCollision)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := wav.NewEncoder(f, t.SampleRate, bitDepth, t.Channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: t.Channels,
			SampleRate:  t.SampleRate,
		},
		Data:           t.Samples,
		SourceBitDepth: bitDepth,
	}

	if err := enc.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finalise %s: %w", path, err)
	}
	return f.Close()
}
