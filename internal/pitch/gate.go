package pitch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultThresholdDB is the level below which a window is treated as silence.
const DefaultThresholdDB = -40.0

// Level calculates the RMS and dB level of a window. A silent or empty window
// has a level of -Inf dB.
func Level(window []float64) (rms, db float64) {
	if len(window) == 0 {
		return 0, math.Inf(-1)
	}

	rms = math.Sqrt(floats.Dot(window, window) / float64(len(window)))

	// log10(0) is -Inf, which every threshold rejects
	db = 20 * math.Log10(rms)
	return rms, db
}

// Gate rejects windows that are too quiet to carry a pitch. Pitch estimators
// report spurious frequencies on noise, so gated windows are never estimated.
type Gate struct {
	ThresholdDB float64
}

// NewGate creates a gate with the default threshold
func NewGate() Gate {
	return Gate{ThresholdDB: DefaultThresholdDB}
}

// Accepts reports whether a level passes the gate. A level exactly at the
// threshold is accepted.
func (g Gate) Accepts(db float64) bool {
	return db >= g.ThresholdDB
}

// Accept reports whether the window carries enough signal to analyze.
func (g Gate) Accept(window []float64) bool {
	_, db := Level(window)
	return g.Accepts(db)
}
