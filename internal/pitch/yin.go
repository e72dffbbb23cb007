package pitch

import (
	"gonum.org/v1/gonum/floats"
)

// YINEstimator implements the YIN autocorrelation-style estimator
// (de Cheveigné and Kawahara, 2002). It tracks voices more reliably than
// spectral peak picking because it is less prone to octave errors.
type YINEstimator struct {
	sampleRate int
	threshold  float64

	diff []float64
}

// NewYINEstimator creates a YIN estimator with the usual 0.15 threshold
func NewYINEstimator(sampleRate int) *YINEstimator {
	return &YINEstimator{
		sampleRate: sampleRate,
		threshold:  0.15,
	}
}

// ComputePitch returns the estimated fundamental, or 0 when no lag falls
// under the threshold.
func (y *YINEstimator) ComputePitch(samples []float64, offset, length int) float64 {
	samples = span(samples, offset, length)
	half := len(samples) / 2
	if half < 2 {
		return 0
	}

	if cap(y.diff) < half {
		y.diff = make([]float64, half)
	}
	diff := y.diff[:half]

	// Difference function: squared distance between the window and its lagged copy
	diff[0] = 0
	for tau := 1; tau < half; tau++ {
		d := floats.Distance(samples[:half], samples[tau:tau+half], 2)
		diff[tau] = d * d
	}

	// Cumulative mean normalized difference
	diff[0] = 1
	running := 0.0
	for tau := 1; tau < half; tau++ {
		running += diff[tau]
		if running == 0 {
			diff[tau] = 1
			continue
		}
		diff[tau] *= float64(tau) / running
	}

	tau := y.absoluteThreshold(diff)
	if tau < 0 {
		return 0
	}

	return float64(y.sampleRate) / parabolicInterpolation(diff, tau)
}

// absoluteThreshold returns the first lag whose normalized difference dips
// under the threshold, walked down to its local minimum.
func (y *YINEstimator) absoluteThreshold(diff []float64) int {
	for tau := 2; tau < len(diff); tau++ {
		if diff[tau] >= y.threshold {
			continue
		}
		for tau+1 < len(diff) && diff[tau+1] < diff[tau] {
			tau++
		}
		return tau
	}
	return -1
}

func parabolicInterpolation(diff []float64, tau int) float64 {
	if tau < 1 || tau+1 >= len(diff) {
		return float64(tau)
	}
	s0, s1, s2 := diff[tau-1], diff[tau], diff[tau+1]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 {
		return float64(tau)
	}
	return float64(tau) + (s2-s0)/denom
}
