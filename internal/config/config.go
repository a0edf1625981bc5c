// Package config holds the settings that control silence removal.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/linuxmatters/hushcut/internal/failure"
	"github.com/linuxmatters/hushcut/internal/ffmpeg"
	"github.com/linuxmatters/hushcut/internal/silence"
	"gopkg.in/yaml.v3"
)

// Config controls one run over a batch of input files.
type Config struct {
	// WindowFactor divides the sample rate to give the minimum silent run.
	WindowFactor int `yaml:"window_factor"`
	// Margin is the number of samples kept at each edge of a removed run.
	Margin int `yaml:"margin"`
	// Strategy picks the threshold estimator when Threshold is unset.
	Strategy silence.Strategy `yaml:"method"`
	// Threshold, when set, is used verbatim as the silence threshold.
	Threshold *float64 `yaml:"threshold,omitempty"`
	// Compression applies to video outputs only.
	Compression ffmpeg.Level `yaml:"compress"`
	// KeepTemp leaves intermediate files in place after a successful run.
	KeepTemp bool `yaml:"keep_temp"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		WindowFactor: silence.DefaultWindowFactor,
		Margin:       silence.DefaultMargin,
		Strategy:     silence.DefaultStrategy,
		Compression:  ffmpeg.DefaultLevel,
	}
}

// Load reads a YAML config file over the defaults. Keys missing from the
// file keep their default values; unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("config %s: %w", path, failure.ErrPathNotFound)
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(err, failure.ErrInvalidParameter) {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		return cfg, fmt.Errorf("config %s: %v: %w", path, err, failure.ErrInvalidOptionType)
	}

	return cfg, cfg.Validate()
}

// Validate rejects values outside their domain.
func (c Config) Validate() error {
	if c.WindowFactor <= 0 {
		return fmt.Errorf("window factor must be positive, got %d: %w", c.WindowFactor, failure.ErrInvalidParameter)
	}
	if c.Margin < 0 {
		return fmt.Errorf("margin must not be negative, got %d: %w", c.Margin, failure.ErrInvalidParameter)
	}
	if !c.Strategy.Valid() {
		return fmt.Errorf("threshold method %v: %w", c.Strategy, failure.ErrInvalidParameter)
	}
	if c.Threshold != nil {
		if err := silence.ValidateThreshold(*c.Threshold); err != nil {
			return err
		}
	}
	if !c.Compression.Valid() {
		return fmt.Errorf("compression level %v: %w", c.Compression, failure.ErrInvalidParameter)
	}
	return nil
}

// MaskParams returns the scan parameters for a track at sampleRate.
func (c Config) MaskParams(sampleRate int) silence.MaskParams {
	return silence.MaskParams{
		SampleRate:   sampleRate,
		WindowFactor: c.WindowFactor,
		Margin:       c.Margin,
	}
}
