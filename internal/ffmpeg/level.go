package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/linuxmatters/hushcut/internal/failure"
)

// Level selects how hard the final video is compressed.
type Level int

const (
	// Light writes a near-lossless intermediate and copies it into the output.
	Light Level = iota + 1
	// Mid writes an MPEG-4 Part 2 intermediate and copies it into the output.
	Mid
	// Heavy re-encodes the intermediate with libx264 at CRF 20 while muxing.
	Heavy
)

// DefaultLevel is used when no compression level is configured.
const DefaultLevel = Light

var levelNames = map[Level]string{
	Light: "light",
	Mid:   "mid",
	Heavy: "heavy",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid reports whether l is a declared level.
func (l Level) Valid() bool {
	_, ok := levelNames[l]
	return ok
}

// ParseLevel accepts "1".."3" or the level names.
func ParseLevel(s string) (Level, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "1", "light":
		return Light, nil
	case "2", "mid":
		return Mid, nil
	case "3", "heavy":
		return Heavy, nil
	}
	return 0, fmt.Errorf("unknown compression level %q: %w", s, failure.ErrInvalidParameter)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("compression level %d: %w", int(l), failure.ErrInvalidParameter)
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// IntermediateArgs are the codec arguments for the temporary video stream.
func (l Level) IntermediateArgs() []string {
	if l == Mid {
		return []string{"-c:v", "mpeg4", "-q:v", "3"}
	}
	return []string{"-c:v", "libx264", "-preset", "ultrafast", "-crf", "12"}
}

// MuxArgs are the video codec arguments for the final mux.
func (l Level) MuxArgs() []string {
	if l == Heavy {
		return []string{"-c:v", "libx264", "-crf", "20"}
	}
	return []string{"-c:v", "copy"}
}
