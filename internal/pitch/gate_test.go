package pitch_test

import (
	"math"
	"testing"

	"github.com/0xlemi/notetracker/internal/pitch"
)

func TestLevelSilence(t *testing.T) {
	rms, db := pitch.Level(make([]float64, 512))
	if rms != 0 {
		t.Errorf("rms = %v, want 0", rms)
	}
	if !math.IsInf(db, -1) {
		t.Errorf("db = %v, want -Inf", db)
	}
	if pitch.NewGate().Accept(make([]float64, 512)) {
		t.Error("silent window accepted")
	}
}

func TestLevelEmpty(t *testing.T) {
	_, db := pitch.Level(nil)
	if !math.IsInf(db, -1) {
		t.Errorf("db = %v, want -Inf", db)
	}
}

func TestLevelConstant(t *testing.T) {
	window := make([]float64, 256)
	for i := range window {
		window[i] = 0.5
	}
	rms, db := pitch.Level(window)
	if math.Abs(rms-0.5) > 1e-12 {
		t.Errorf("rms = %v, want 0.5", rms)
	}
	if math.Abs(db-20*math.Log10(0.5)) > 1e-9 {
		t.Errorf("db = %v, want %v", db, 20*math.Log10(0.5))
	}
}

func TestGateBoundary(t *testing.T) {
	g := pitch.Gate{ThresholdDB: -40}
	if !g.Accepts(-40) {
		t.Error("level equal to threshold must be accepted")
	}
	if g.Accepts(math.Nextafter(-40, math.Inf(-1))) {
		t.Error("level just below threshold must be rejected")
	}
	if g.Accepts(math.NaN()) {
		t.Error("NaN level must be rejected")
	}
	if g.Accepts(math.Inf(-1)) {
		t.Error("-Inf level must be rejected")
	}
}

func TestGateBoundaryWindow(t *testing.T) {
	window := sine(440, 44100, 0.01, 1024)
	_, db := pitch.Level(window)

	if !(pitch.Gate{ThresholdDB: db}).Accept(window) {
		t.Error("window at threshold rejected")
	}
	if (pitch.Gate{ThresholdDB: math.Nextafter(db, math.Inf(1))}).Accept(window) {
		t.Error("window below threshold accepted")
	}
}

func TestGateQuietSignal(t *testing.T) {
	// 0.001 peak amplitude is about -63 dBFS
	if pitch.NewGate().Accept(sine(440, 44100, 0.001, 1024)) {
		t.Error("quiet signal accepted")
	}
	if !pitch.NewGate().Accept(sine(440, 44100, 0.5, 1024)) {
		t.Error("loud signal rejected")
	}
}
