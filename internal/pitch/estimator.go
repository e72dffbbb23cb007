package pitch

import "fmt"

// Estimator converts a window of samples into a fundamental frequency.
// Implementations must be deterministic for a given window, return 0 (or a
// negative value) when no reliable periodicity is found, and tolerate a
// length shorter than a full analysis window.
type Estimator interface {
	ComputePitch(window []float64, offset, length int) float64
}

// EstimatorFunc adapts a plain function to the Estimator interface.
type EstimatorFunc func(window []float64, offset, length int) float64

// ComputePitch calls f.
func (f EstimatorFunc) ComputePitch(window []float64, offset, length int) float64 {
	return f(window, offset, length)
}

// Estimator kinds accepted by NewEstimator.
const (
	KindFFT = "fft"
	KindYIN = "yin"
)

// NewEstimator builds the estimator named by kind.
func NewEstimator(kind string, sampleRate, windowSize int) (Estimator, error) {
	switch kind {
	case KindFFT, "":
		return NewFFTEstimator(sampleRate, windowSize), nil
	case KindYIN:
		return NewYINEstimator(sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown estimator %q", kind)
	}
}

// span clamps offset and length to the bounds of window.
func span(window []float64, offset, length int) []float64 {
	if offset < 0 {
		offset = 0
	}
	if offset > len(window) {
		return nil
	}
	end := offset + length
	if length < 0 || end > len(window) {
		end = len(window)
	}
	return window[offset:end]
}
