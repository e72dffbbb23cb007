package pitch

import (
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFTEstimator implements pitch estimation using FFT peak picking
type FFTEstimator struct {
	sampleRate    int
	fftSize       int
	minFrequency  float64 // Lowest frequency to detect (Hz)
	maxFrequency  float64 // Highest frequency to detect (Hz)
	noiseFloor    float64 // Minimum spectral magnitude considered signal
	peakThreshold float64 // Minimum peak height as fraction of highest peak

	frame []float64
}

// NewFFTEstimator creates a new FFT-based estimator. Shorter windows are
// zero-padded to fftSize so the bin resolution stays constant.
func NewFFTEstimator(sampleRate, fftSize int) *FFTEstimator {
	return &FFTEstimator{
		sampleRate:    sampleRate,
		fftSize:       fftSize,
		minFrequency:  50.0,   // Below the low E of a bass guitar's B string
		maxFrequency:  2000.0, // Well above a soprano's top note
		noiseFloor:    0.01,
		peakThreshold: 0.2,
		frame:         make([]float64, fftSize),
	}
}

// ComputePitch returns the frequency of the strongest spectral peak, or 0
// when the spectrum has no clear peak in range.
func (e *FFTEstimator) ComputePitch(samples []float64, offset, length int) float64 {
	samples = span(samples, offset, length)
	if len(samples) < 2 {
		return 0
	}
	if len(samples) > e.fftSize {
		samples = samples[len(samples)-e.fftSize:]
	}

	// Apply windowing function (Hann window) over the real samples only,
	// then zero-pad the rest of the frame
	n := copy(e.frame, samples)
	window.Apply(e.frame[:n], window.Hann)
	clear(e.frame[n:])

	spectrum := fft.FFTReal(e.frame)

	return e.findFundamentalFrequency(spectrum)
}

// Peak represents a peak in the frequency spectrum
type Peak struct {
	Bin       int
	Magnitude float64
	Frequency float64
}

// findFundamentalFrequency finds the strongest in-range peak using quadratic
// interpolation around the peak bin
func (e *FFTEstimator) findFundamentalFrequency(spectrum []complex128) float64 {
	// We only need to look at the first half of the spectrum (Nyquist theorem)
	spectrumHalf := spectrum[:len(spectrum)/2]

	binSizeHz := float64(e.sampleRate) / float64(len(spectrum))

	minBin := max(int(e.minFrequency/binSizeHz), 1) // Avoid DC component
	maxBin := min(int(e.maxFrequency/binSizeHz), len(spectrumHalf)-1)
	if maxBin-minBin < 2 {
		return 0
	}

	maxMagnitude := 0.0
	for i := minBin; i <= maxBin; i++ {
		maxMagnitude = max(maxMagnitude, cmplx.Abs(spectrumHalf[i]))
	}

	if maxMagnitude < e.noiseFloor {
		return 0
	}

	var peaks []Peak
	for i := minBin + 1; i < maxBin; i++ {
		prev := cmplx.Abs(spectrumHalf[i-1])
		current := cmplx.Abs(spectrumHalf[i])
		next := cmplx.Abs(spectrumHalf[i+1])

		if current <= prev || current <= next || current <= maxMagnitude*e.peakThreshold {
			continue
		}

		// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
		freq := float64(i) * binSizeHz
		if denom := prev - 2*current + next; denom != 0 {
			delta := 0.5 * (prev - next) / denom
			freq = (float64(i) + delta) * binSizeHz
		}

		peaks = append(peaks, Peak{
			Bin:       i,
			Magnitude: current,
			Frequency: freq,
		})
	}

	if len(peaks) == 0 {
		return 0
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	return peaks[0].Frequency
}
