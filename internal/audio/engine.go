package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// Engine is a capture-and-estimate loop that runs on its own goroutine and
// publishes the latest pitch. Init must be called before the first Run and
// Destroy after the last one.
type Engine interface {
	// Init acquires the audio device and buffers
	Init() error

	// Run captures and estimates continuously until ctx is cancelled
	Run(ctx context.Context) error

	// Destroy releases everything acquired by Init
	Destroy() error

	// CurrentPitch returns the most recently published pitch in Hz
	CurrentPitch() float64
}

// AnalyzeFunc turns one window of samples into a pitch in Hz, 0 for none
type AnalyzeFunc func(window []float64) float64

// PortAudioEngine reads blocking PortAudio input and analyzes every buffer
type PortAudioEngine struct {
	sampleRate    int
	analyze       AnalyzeFunc
	amplification float32

	in     []float32
	window []float64
	stream *portaudio.Stream
	pitch  atomic.Uint64
}

// NewPortAudioEngine creates an engine analyzing windowSize samples per read
func NewPortAudioEngine(sampleRate, windowSize int, amplification float32, analyze AnalyzeFunc) *PortAudioEngine {
	return &PortAudioEngine{
		sampleRate:    sampleRate,
		analyze:       analyze,
		amplification: clampAmplification(amplification),
		in:            make([]float32, windowSize),
		window:        make([]float64, windowSize),
	}
}

// Init opens the default input device for blocking reads
func (e *PortAudioEngine) Init() error {
	if e.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(e.sampleRate), len(e.in), e.in)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("open input stream: %w", err)
	}
	e.stream = stream
	return nil
}

// Run starts the stream and analyzes each buffer until ctx is cancelled.
// A blocking read holds the loop for at most one buffer.
func (e *PortAudioEngine) Run(ctx context.Context) error {
	if e.stream == nil {
		return ErrNotInitialized
	}

	if err := e.stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer func() {
		if err := e.stream.Stop(); err != nil {
			slog.Warn("stop input stream", "err", err)
		}
		e.publish(0)
	}()

	for ctx.Err() == nil {
		if err := e.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return fmt.Errorf("read input stream: %w", err)
		}

		for i, sample := range e.in {
			e.window[i] = float64(sample * e.amplification)
		}
		e.publish(e.analyze(e.window))
	}
	return nil
}

// Destroy closes the stream and releases PortAudio
func (e *PortAudioEngine) Destroy() error {
	if e.stream == nil {
		return nil
	}
	err := e.stream.Close()
	e.stream = nil
	return errors.Join(err, portaudio.Terminate())
}

// CurrentPitch returns the last published pitch
func (e *PortAudioEngine) CurrentPitch() float64 {
	return math.Float64frombits(e.pitch.Load())
}

func (e *PortAudioEngine) publish(pitch float64) {
	e.pitch.Store(math.Float64bits(pitch))
}
