package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0xlemi/notetracker/internal/config"
	"github.com/0xlemi/notetracker/internal/tracker"
)

func TestLoadFromReader_Empty(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	def := config.Default()
	if cfg.Audio != def.Audio || cfg.Detector != def.Detector {
		t.Errorf("empty config = %+v, want defaults %+v", cfg, def)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: debug
detector:
  mode: dedicated
  estimator: yin
  dwell_threshold: 400ms
  reference_pitch: 442
  sharp_spelling: false
server:
  listen_addr: ":8080"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.LogLevel.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.LogLevel)
	}
	if cfg.Detector.Mode != tracker.ModeDedicated {
		t.Errorf("mode = %q, want dedicated", cfg.Detector.Mode)
	}
	if cfg.Detector.DwellThreshold != 400*time.Millisecond {
		t.Errorf("dwell = %v, want 400ms", cfg.Detector.DwellThreshold)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	// Untouched sections keep their defaults.
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.BufferSize != 4096 {
		t.Errorf("audio = %+v, want defaults", cfg.Audio)
	}
	if cfg.Detector.SilenceThreshold != -40 {
		t.Errorf("silence threshold = %v, want -40", cfg.Detector.SilenceThreshold)
	}

	tc := cfg.TrackerConfig()
	if tc.ReferencePitch != 442 || tc.SharpSpelling {
		t.Errorf("tracker config = %+v", tc)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("detector:\n  thresold: -30\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: loud
audio:
  buffer_size: 0
detector:
  mode: threaded
  estimator: zcr
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"log_level", "audio.buffer_size", "detector.mode", "detector.estimator"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_BufferLargerThanRing(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Audio.BufferSize = 48000
	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected error for buffer larger than sample rate")
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "notetracker.yaml")
	if err := os.WriteFile(path, []byte("record:\n  midi_path: take.mid\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Record.MIDIPath != "take.mid" {
		t.Errorf("midi_path = %q, want take.mid", cfg.Record.MIDIPath)
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
