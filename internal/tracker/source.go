package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/0xlemi/notetracker/internal/audio"
	"github.com/0xlemi/notetracker/internal/observe"
	"github.com/0xlemi/notetracker/internal/pitch"
)

// PitchSource is a capture-and-estimate backend. Exactly one implementation
// is chosen at startup and kept for the tracker's lifetime.
type PitchSource interface {
	// Start begins capturing. Calling it again restarts the capture.
	Start() error

	// Pitch returns the current pitch estimate in Hz, 0 for none
	Pitch() float64

	// Stop halts capturing and returns once it has fully stopped. It is
	// safe to call on a source that was never started.
	Stop() error

	// Close stops the source and releases its resources
	Close() error
}

// Mode selects how the pipeline captures and estimates
type Mode string

const (
	// ModeAuto picks a mode from the platform's capabilities.
	ModeAuto Mode = "auto"

	// ModeCooperative runs the whole pipeline synchronously in Tick.
	ModeCooperative Mode = "cooperative"

	// ModeDedicated runs capture and estimation on a background goroutine.
	ModeDedicated Mode = "dedicated"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeAuto, ModeCooperative, ModeDedicated:
		return true
	}
	return false
}

// HasNativeCaptureSupport reports whether the platform's audio stack supports
// low-latency blocking capture on a dedicated loop.
func HasNativeCaptureSupport() bool {
	return runtime.GOOS == "android" || runtime.GOOS == "ios"
}

// SelectMode resolves ModeAuto into a concrete mode.
func SelectMode(requested Mode) Mode {
	if requested != ModeAuto && requested != "" {
		return requested
	}
	if HasNativeCaptureSupport() {
		return ModeDedicated
	}
	return ModeCooperative
}

// Analyzer gates a window and estimates its pitch
type Analyzer struct {
	Gate      pitch.Gate
	Estimator pitch.Estimator
	Metrics   *observe.Metrics
}

// Analyze returns the window's pitch, or 0 when the window is gated or the
// estimator finds no periodicity.
func (a Analyzer) Analyze(window []float64) float64 {
	ctx := context.Background()

	if !a.Gate.Accept(window) {
		a.metrics().GatedWindows.Add(ctx, 1)
		return 0
	}

	start := time.Now()
	p := a.Estimator.ComputePitch(window, 0, len(window))
	a.metrics().EstimateDuration.Record(ctx, time.Since(start).Seconds())

	if !(p > 0) {
		return 0
	}
	return p
}

func (a Analyzer) metrics() *observe.Metrics {
	if a.Metrics == nil {
		return observe.Noop()
	}
	return a.Metrics
}

// Cooperative polls a capture buffer on every call to Pitch. It starts no
// goroutines of its own.
type Cooperative struct {
	src      audio.Source
	window   *audio.Window
	analyzer Analyzer

	lastPitch float64
}

// NewCooperative creates a cooperative source reading windows of up to
// windowSize samples from src.
func NewCooperative(src audio.Source, windowSize int, analyzer Analyzer) *Cooperative {
	return &Cooperative{
		src:      src,
		window:   audio.NewWindow(src, windowSize),
		analyzer: analyzer,
	}
}

// Start starts the capturer, if src is one, and skips any audio buffered
// before the call.
func (c *Cooperative) Start() error {
	if capturer, ok := c.src.(audio.Capturer); ok && !capturer.IsCapturing() {
		if err := capturer.Start(); err != nil {
			return err
		}
	}
	c.window.Sync()
	c.lastPitch = 0
	return nil
}

// Pitch analyzes the samples written since the previous call. Without new
// samples the previous estimate is returned unchanged.
func (c *Cooperative) Pitch() float64 {
	samples, available := c.window.Poll()
	if available == 0 {
		return c.lastPitch
	}

	c.lastPitch = c.analyzer.Analyze(samples)
	return c.lastPitch
}

// Stop stops the capturer, if src is one
func (c *Cooperative) Stop() error {
	if capturer, ok := c.src.(audio.Capturer); ok && capturer.IsCapturing() {
		return capturer.Stop()
	}
	return nil
}

// Close stops capture and closes src when it is an io.Closer
func (c *Cooperative) Close() error {
	err := c.Stop()
	if closer, ok := c.src.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

// Dedicated runs an audio.Engine loop on a background goroutine and reads
// the pitch it publishes. At most one loop runs at a time.
type Dedicated struct {
	engine audio.Engine

	mu          sync.Mutex
	initialized bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewDedicated creates a dedicated source driving engine
func NewDedicated(engine audio.Engine) *Dedicated {
	return &Dedicated{engine: engine}
}

// Start initializes the engine on first use, stops any running loop and
// launches a new one.
func (d *Dedicated) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		if err := d.engine.Init(); err != nil {
			return fmt.Errorf("init capture engine: %w", err)
		}
		d.initialized = true
	}

	d.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := d.engine.Run(ctx); err != nil {
			slog.Error("capture loop exited", "err", err)
		}
	}()

	d.cancel = cancel
	d.done = done
	slog.Debug("capture loop started")
	return nil
}

// Pitch returns the engine's latest published pitch
func (d *Dedicated) Pitch() float64 {
	p := d.engine.CurrentPitch()
	if !(p > 0) {
		return 0
	}
	return p
}

// Stop cancels the loop and blocks until its goroutine has returned
func (d *Dedicated) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *Dedicated) stopLocked() {
	if d.done == nil {
		return
	}
	d.cancel()
	<-d.done
	d.cancel = nil
	d.done = nil
	slog.Debug("capture loop stopped")
}

// Running reports whether a loop goroutine is active
func (d *Dedicated) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done != nil
}

// Close stops the loop and destroys the engine
func (d *Dedicated) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	if !d.initialized {
		return nil
	}
	d.initialized = false
	if err := d.engine.Destroy(); err != nil {
		return fmt.Errorf("destroy capture engine: %w", err)
	}
	return nil
}
