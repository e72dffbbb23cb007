package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/0xlemi/notetracker/internal/pitch"
)

// Load reads the YAML configuration file at path on top of [Default] and
// returns the validated result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Audio
	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.buffer_size %d must be positive", cfg.Audio.BufferSize))
	} else if cfg.Audio.SampleRate > 0 && cfg.Audio.BufferSize > cfg.Audio.SampleRate {
		errs = append(errs, fmt.Errorf("audio.buffer_size %d exceeds the one-second capture buffer (%d)", cfg.Audio.BufferSize, cfg.Audio.SampleRate))
	}
	if cfg.Audio.Channels < 1 {
		errs = append(errs, fmt.Errorf("audio.channels %d must be at least 1", cfg.Audio.Channels))
	}
	if cfg.Audio.Amplification < 0.1 || cfg.Audio.Amplification > 10 {
		errs = append(errs, fmt.Errorf("audio.amplification %.2f is out of range [0.1, 10]", cfg.Audio.Amplification))
	}

	// Detector
	if !cfg.Detector.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("detector.mode %q is invalid; valid values: auto, cooperative, dedicated", cfg.Detector.Mode))
	}
	switch cfg.Detector.Estimator {
	case pitch.KindFFT, pitch.KindYIN:
	default:
		errs = append(errs, fmt.Errorf("detector.estimator %q is invalid; valid values: fft, yin", cfg.Detector.Estimator))
	}
	if cfg.Detector.SilenceThreshold > 0 {
		errs = append(errs, fmt.Errorf("detector.silence_threshold_db %.1f must not be positive", cfg.Detector.SilenceThreshold))
	}
	if cfg.Detector.DwellThreshold <= 0 {
		errs = append(errs, fmt.Errorf("detector.dwell_threshold %s must be positive", cfg.Detector.DwellThreshold))
	}
	if cfg.Detector.ReferencePitch < 400 || cfg.Detector.ReferencePitch > 480 {
		errs = append(errs, fmt.Errorf("detector.reference_pitch %.2f is out of range [400, 480]", cfg.Detector.ReferencePitch))
	}

	if cfg.UI.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("ui.tick_interval %s must be positive", cfg.UI.TickInterval))
	}

	return errors.Join(errs...)
}
