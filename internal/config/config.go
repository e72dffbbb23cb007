// Package config provides the configuration schema and loader for the note
// tracker.
package config

import (
	"log/slog"
	"time"

	"github.com/0xlemi/notetracker/internal/pitch"
	"github.com/0xlemi/notetracker/internal/tracker"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// SlogLevel maps l to a slog level. Unknown levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	// LogFile receives the log output; "-" means stderr. The terminal itself
	// belongs to the UI.
	LogFile string `yaml:"log_file"`

	Audio    AudioConfig    `yaml:"audio"`
	Detector DetectorConfig `yaml:"detector"`
	UI       UIConfig       `yaml:"ui"`
	Server   ServerConfig   `yaml:"server"`
	Record   RecordConfig   `yaml:"record"`
}

// AudioConfig describes the capture device settings.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`

	// BufferSize is the analysis window in samples.
	BufferSize    int     `yaml:"buffer_size"`
	Channels      int     `yaml:"channels"`
	Amplification float32 `yaml:"amplification"`
}

// DetectorConfig tunes the pitch pipeline and the debounce.
type DetectorConfig struct {
	Mode             tracker.Mode  `yaml:"mode"`
	Estimator        string        `yaml:"estimator"`
	SilenceThreshold float64       `yaml:"silence_threshold_db"`
	DwellThreshold   time.Duration `yaml:"dwell_threshold"`
	ReferencePitch   float64       `yaml:"reference_pitch"`
	SharpSpelling    bool          `yaml:"sharp_spelling"`
}

// UIConfig tunes the terminal UI.
type UIConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

// ServerConfig configures the optional HTTP API. An empty ListenAddr
// disables it.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// RecordConfig configures the optional MIDI recording. An empty MIDIPath
// disables it.
type RecordConfig struct {
	MIDIPath string `yaml:"midi_path"`
}

// Default returns the configuration used when no file is given. Values
// missing from a loaded file keep these defaults.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		LogFile:  "notetracker.log",
		Audio: AudioConfig{
			SampleRate:    44100,
			BufferSize:    4096,
			Channels:      1,
			Amplification: 1,
		},
		Detector: DetectorConfig{
			Mode:             tracker.ModeAuto,
			Estimator:        pitch.KindFFT,
			SilenceThreshold: pitch.DefaultThresholdDB,
			DwellThreshold:   tracker.DefaultDwellThreshold,
			ReferencePitch:   pitch.ConcertA,
			SharpSpelling:    true,
		},
		UI: UIConfig{
			TickInterval: 16 * time.Millisecond,
		},
	}
}

// TrackerConfig returns the tracker settings held in c.
func (c *Config) TrackerConfig() tracker.Config {
	return tracker.Config{
		DwellThreshold: c.Detector.DwellThreshold,
		ReferencePitch: c.Detector.ReferencePitch,
		SharpSpelling:  c.Detector.SharpSpelling,
	}
}
