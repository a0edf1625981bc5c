// Package failure defines the error conditions a conversion can end in and
// the process exit status each one maps to.
package failure

import "errors"

var (
	// ErrStreamUnavailable means a source stream could not be opened.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrStreamClosed means a source stream ended or broke mid-read.
	ErrStreamClosed = errors.New("stream closed unexpectedly")

	// ErrToolFailure means ffmpeg or ffprobe exited non-zero and left no output behind.
	ErrToolFailure = errors.New("external tool failed")

	// ErrOutputCollision means the tool failed because its target path already exists.
	ErrOutputCollision = errors.New("output path already exists")

	// ErrInvalidParameter covers out-of-domain thresholds, strategies and levels.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidOptionType means a flag value could not be parsed as the expected type.
	ErrInvalidOptionType = errors.New("invalid option type")

	// ErrUnsupportedFormat means the input extension is not a supported audio or video type.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNotImplemented is returned for directory inputs.
	ErrNotImplemented = errors.New("not implemented")

	// ErrPathNotFound means an input path does not exist.
	ErrPathNotFound = errors.New("path does not exist")

	// ErrOutputNotCompatible means --output was combined with several inputs.
	ErrOutputNotCompatible = errors.New("output option requires a single input file")
)

// Exit statuses reported by the hushcut binary.
const (
	ExitOK                  = 0
	ExitInvalidOption       = 2
	ExitOutputNotCompatible = 4
	ExitNotImplemented      = 5
	ExitNotValidFormat      = 6
	ExitPathNotExists       = 7
	ExitInvalidOptionType   = 8
	ExitUnknown             = 100
	ExitOutputCollision     = 101
	ExitStreamClosed        = 102
	ExitGeneric             = 103
)

// ExitCode maps an error returned by the pipeline to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrInvalidParameter):
		return ExitInvalidOption
	case errors.Is(err, ErrOutputNotCompatible):
		return ExitOutputNotCompatible
	case errors.Is(err, ErrNotImplemented):
		return ExitNotImplemented
	case errors.Is(err, ErrUnsupportedFormat):
		return ExitNotValidFormat
	case errors.Is(err, ErrPathNotFound):
		return ExitPathNotExists
	case errors.Is(err, ErrInvalidOptionType):
		return ExitInvalidOptionType
	case errors.Is(err, ErrOutputCollision):
		return ExitOutputCollision
	case errors.Is(err, ErrStreamClosed), errors.Is(err, ErrStreamUnavailable):
		return ExitStreamClosed
	case errors.Is(err, ErrToolFailure):
		return ExitUnknown
	default:
		return ExitGeneric
	}
}
