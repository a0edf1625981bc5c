package silence

import (
	"fmt"
	"math"
	"strings"

	"github.com/linuxmatters/hushcut/internal/failure"
)

// Strategy selects how the silence threshold is derived from the envelope.
type Strategy int

const (
	// Moderate uses the midpoint between the quiet-subset mean and the overall mean.
	Moderate Strategy = iota
	// Sensitive uses twice the mean of the below-average samples.
	Sensitive
	// Weak uses half the overall mean and keeps most borderline sound.
	Weak
	// Strong treats everything below the overall mean as silence.
	Strong
)

// DefaultStrategy is used when neither a strategy nor a manual threshold is given.
const DefaultStrategy = Moderate

var strategyNames = map[Strategy]string{
	Moderate:  "moderate",
	Sensitive: "sensitive",
	Weak:      "weak",
	Strong:    "strong",
}

// String returns the lower-case name accepted by ParseStrategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy converts a strategy name into a Strategy. Matching is case-insensitive.
func ParseStrategy(name string) (Strategy, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == want {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown threshold method %q: %w", name, failure.ErrInvalidParameter)
}

// MarshalText lets Strategy round-trip through YAML and flag values.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("strategy %d: %w", int(s), failure.ErrInvalidParameter)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Estimate derives the silence threshold for envelope using strategy.
// An empty envelope yields 0. When no value lies below the mean (a constant
// envelope) the quiet-subset mean falls back to the overall mean.
func Estimate(envelope []float64, strategy Strategy) (float64, error) {
	if !strategy.Valid() {
		return 0, fmt.Errorf("strategy %d: %w", int(strategy), failure.ErrInvalidParameter)
	}
	if len(envelope) == 0 {
		return 0, nil
	}

	mean := meanOf(envelope)
	quiet := quietMean(envelope, mean)

	switch strategy {
	case Sensitive:
		return 2 * quiet, nil
	case Weak:
		return mean / 2, nil
	case Strong:
		return mean, nil
	default:
		return (quiet + mean) / 2, nil
	}
}

// Resolve returns the manual threshold verbatim when one is given, otherwise
// the estimate for strategy.
func Resolve(envelope []float64, strategy Strategy, manual *float64) (float64, error) {
	if manual != nil {
		if err := ValidateThreshold(*manual); err != nil {
			return 0, err
		}
		return *manual, nil
	}
	return Estimate(envelope, strategy)
}

// ValidateThreshold rejects thresholds outside [0, +Inf).
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("threshold %v must be a finite non-negative number: %w", v, failure.ErrInvalidParameter)
	}
	return nil
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// quietMean is the mean of values strictly below mean, or mean itself when
// that subset is empty.
func quietMean(values []float64, mean float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v < mean {
			sum += v
			n++
		}
	}
	if n == 0 {
		return mean
	}
	return sum / float64(n)
}
