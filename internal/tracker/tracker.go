// Package tracker turns a stream of pitch estimates into note snapshots and
// debounced "note detected" events.
//
// A [Tracker] is driven by its host calling [Tracker.Tick] once per rendering
// tick. Each tick reads the [PitchSource], maps the pitch to a note, replaces
// the snapshot and, once a note has been held for the dwell threshold, fires
// the subscribers exactly once for it.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/0xlemi/notetracker/internal/observe"
	"github.com/0xlemi/notetracker/internal/pitch"
)

var (
	// ErrAlreadyActive is returned by New while another Tracker is open.
	ErrAlreadyActive = errors.New("tracker: a note tracker is already active")

	// ErrNoSource is returned by New when no pitch source is given.
	ErrNoSource = errors.New("tracker: no pitch source")
)

// DefaultDwellThreshold is how long a note must be held before it is detected
const DefaultDwellThreshold = 250 * time.Millisecond

// active guards the one-tracker-per-process rule
var active atomic.Bool

// Config holds the tracker's tunables
type Config struct {
	DwellThreshold time.Duration
	ReferencePitch float64
	SharpSpelling  bool
}

// DefaultConfig returns the default tracker configuration
func DefaultConfig() Config {
	return Config{
		DwellThreshold: DefaultDwellThreshold,
		ReferencePitch: pitch.ConcertA,
		SharpSpelling:  true,
	}
}

// Option configures a Tracker
type Option func(*Tracker)

// WithMetrics records pipeline metrics on m
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Tracker) {
		if m != nil {
			t.metrics = m
		}
	}
}

type subscriber struct {
	id int
	fn func(name string)
}

// Tracker is the note detector. Tick, Suspend and Resume must be called from
// one goroutine; Snapshot and Subscribe are safe from any goroutine.
type Tracker struct {
	cfg     Config
	source  PitchSource
	metrics *observe.Metrics

	debounce debouncer

	mu       sync.Mutex
	snapshot pitch.Note

	subMu       sync.Mutex
	subscribers []subscriber
	nextID      int

	closeOnce sync.Once
}

// New creates the process's tracker around source. Zero-valued fields of cfg
// take their defaults.
func New(cfg Config, source PitchSource, opts ...Option) (*Tracker, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if !active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyActive
	}

	def := DefaultConfig()
	if cfg.DwellThreshold <= 0 {
		cfg.DwellThreshold = def.DwellThreshold
	}
	if !(cfg.ReferencePitch > 0) {
		cfg.ReferencePitch = def.ReferencePitch
	}

	t := &Tracker{
		cfg:      cfg,
		source:   source,
		metrics:  observe.Noop(),
		snapshot: pitch.Silent(),
	}
	t.debounce.threshold = cfg.DwellThreshold
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Start begins capturing
func (t *Tracker) Start() error {
	return t.source.Start()
}

// Tick runs one step of the pipeline. elapsed is the time since the previous
// tick.
func (t *Tracker) Tick(elapsed time.Duration) {
	ctx := context.Background()
	p := t.source.Pitch()

	note, err := pitch.Describe(p, t.cfg.ReferencePitch, t.cfg.SharpSpelling)
	if err != nil {
		slog.Warn("note lookup failed", "note", note.Name, "pitch", p, "err", err)
		t.metrics.LookupMisses.Add(ctx, 1)
	}

	t.mu.Lock()
	t.snapshot = note
	t.mu.Unlock()

	t.metrics.Ticks.Add(ctx, 1)
	t.metrics.Pitch.Record(ctx, note.Pitch)

	name, ok := t.debounce.observe(note, elapsed)
	if !ok {
		return
	}
	slog.Debug("note detected", "note", name, "pitch", note.Pitch, "accuracy", note.Accuracy)
	t.metrics.NotesDetected.Add(ctx, 1, metric.WithAttributes(attribute.String("note", name)))
	t.emit(name)
}

// Snapshot returns a copy of the latest note
func (t *Tracker) Snapshot() pitch.Note {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

// Subscribe registers fn to be called with every detected note name, on the
// goroutine calling Tick. The returned func removes the subscription.
func (t *Tracker) Subscribe(fn func(name string)) (unsubscribe func()) {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	id := t.nextID
	t.nextID++
	t.subscribers = append(t.subscribers, subscriber{id: id, fn: fn})

	return func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		for i, s := range t.subscribers {
			if s.id == id {
				t.subscribers = append(t.subscribers[:i:i], t.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (t *Tracker) emit(name string) {
	t.subMu.Lock()
	subs := t.subscribers
	t.subMu.Unlock()

	for _, s := range subs {
		s.fn(name)
	}
}

// Suspend stops the source and clears the debounce state, as when the host
// application is paused.
func (t *Tracker) Suspend() error {
	err := t.source.Stop()
	t.debounce.reset()

	t.mu.Lock()
	t.snapshot = pitch.Silent()
	t.mu.Unlock()

	slog.Info("tracker suspended")
	return err
}

// Resume restarts the source after Suspend
func (t *Tracker) Resume() error {
	if err := t.source.Start(); err != nil {
		return err
	}
	slog.Info("tracker resumed")
	return nil
}

// Close stops the source, releases it and allows a new Tracker to be created
func (t *Tracker) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.source.Close()
		active.Store(false)
	})
	return err
}
