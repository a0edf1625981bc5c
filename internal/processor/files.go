package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/hushcut/internal/audio"
	"github.com/linuxmatters/hushcut/internal/failure"
)

// Kind is the type of asset an input file holds.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

func (k Kind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "audio"
}

var (
	videoExts = map[string]bool{".mp4": true, ".mkv": true}
	audioExts = map[string]bool{".mp3": true, ".wav": true}
)

// outputSuffix is appended to the input name when no output name is given.
const outputSuffix = "_sr"

// KindOf decides how path is processed from its extension.
func KindOf(path string) (Kind, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("the path %s doesn't exist: %w", path, failure.ErrPathNotFound)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("folder analysis of %s: %w", path, failure.ErrNotImplemented)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case videoExts[ext]:
		return KindVideo, nil
	case audioExts[ext]:
		return KindAudio, nil
	}
	return 0, fmt.Errorf("file format %q of %s: %w", ext, path, failure.ErrUnsupportedFormat)
}

// OutputPath returns where the result for input is written. name, when not
// empty, is a bare file name without extension placed next to the input.
// Without a name, audio keeps its extension and video becomes .mp4.
func OutputPath(input, name string, kind Kind) string {
	ext := filepath.Ext(input)
	if name != "" {
		return filepath.Join(filepath.Dir(input), name+ext)
	}
	base := strings.TrimSuffix(input, ext)
	if kind == KindVideo {
		return base + outputSuffix + ".mp4"
	}
	return base + outputSuffix + ext
}

// tempFiles names the intermediates for one input.
type tempFiles struct {
	Extracted string // audio pulled out of the input
	Video     string // selected frames, no audio
	Audio     string // retained samples
}

func tempFilesFor(input string) tempFiles {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	t := tempFiles{
		Extracted: base + ".wav",
		Video:     base + "_temp.mp4",
		Audio:     base + "_temp.wav",
	}
	// A WAV input that needs transcoding must not be extracted over itself.
	if isWAV(input) {
		t.Extracted = base + "_pcm.wav"
	}
	return t
}

// NeedsFFmpeg reports whether processing path calls out to ffmpeg. Only an
// integer PCM WAV is handled entirely in process.
func NeedsFFmpeg(path string) bool {
	return !isWAV(path) || audio.NonPCM(path)
}

func isWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}
