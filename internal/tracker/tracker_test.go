package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/0xlemi/notetracker/internal/observe"
	"github.com/0xlemi/notetracker/internal/pitch"
)

const tick = 16 * time.Millisecond

// scriptedSource returns one pitch per call to Pitch, repeating the last one
// once the script runs out.
type scriptedSource struct {
	pitches []float64
	calls   int
	starts  int
	stops   int
	closed  bool
}

func (s *scriptedSource) Start() error { s.starts++; return nil }
func (s *scriptedSource) Stop() error  { s.stops++; return nil }
func (s *scriptedSource) Close() error { s.closed = true; return nil }

func (s *scriptedSource) Pitch() float64 {
	if len(s.pitches) == 0 {
		return 0
	}
	i := min(s.calls, len(s.pitches)-1)
	s.calls++
	return s.pitches[i]
}

func repeat(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = freq
	}
	return out
}

func newTestTracker(t *testing.T, src PitchSource, opts ...Option) *Tracker {
	t.Helper()
	tr, err := New(Config{}, src, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

// record subscribes to tr and returns a pointer to the names received
func record(tr *Tracker) *[]string {
	var got []string
	tr.Subscribe(func(name string) { got = append(got, name) })
	return &got
}

func TestSustainedNoteFiresOnce(t *testing.T) {
	src := &scriptedSource{pitches: repeat(440, 60)}
	tr := newTestTracker(t, src)
	got := record(tr)

	for range 60 {
		tr.Tick(tick)
	}

	if len(*got) != 1 || (*got)[0] != "A" {
		t.Fatalf("events = %v, want [A]", *got)
	}
}

func TestAlternatingNotesNeverFire(t *testing.T) {
	var pitches []float64
	for i := range 100 {
		if i%2 == 0 {
			pitches = append(pitches, 440)
		} else {
			pitches = append(pitches, 493.88)
		}
	}
	tr := newTestTracker(t, &scriptedSource{pitches: pitches})
	got := record(tr)

	for range pitches {
		tr.Tick(tick)
	}

	if len(*got) != 0 {
		t.Fatalf("events = %v, want none", *got)
	}
}

func TestDoubleDwellFiresOnce(t *testing.T) {
	// One tick to become the stable candidate, then two dwell thresholds.
	n := 1 + int(2*DefaultDwellThreshold/tick)
	tr := newTestTracker(t, &scriptedSource{pitches: repeat(261.63, n)})
	got := record(tr)

	for range n {
		tr.Tick(tick)
	}

	if len(*got) != 1 || (*got)[0] != "C" {
		t.Fatalf("events = %v, want [C]", *got)
	}
}

func TestShortNoteDoesNotFire(t *testing.T) {
	n := int(DefaultDwellThreshold/tick) - 1
	pitches := append(repeat(440, n), 0)
	tr := newTestTracker(t, &scriptedSource{pitches: pitches})
	got := record(tr)

	for range pitches {
		tr.Tick(tick)
	}

	if len(*got) != 0 {
		t.Fatalf("events = %v, want none", *got)
	}
}

func TestRefiresAfterSilence(t *testing.T) {
	var pitches []float64
	pitches = append(pitches, repeat(440, 30)...)
	pitches = append(pitches, 0)
	pitches = append(pitches, repeat(440, 30)...)
	tr := newTestTracker(t, &scriptedSource{pitches: pitches})
	got := record(tr)

	for range pitches {
		tr.Tick(tick)
	}

	if len(*got) != 2 {
		t.Fatalf("events = %v, want [A A]", *got)
	}
}

func TestNoteChangeFiresNewNote(t *testing.T) {
	pitches := append(repeat(440, 30), repeat(880, 30)...)
	tr := newTestTracker(t, &scriptedSource{pitches: pitches})
	got := record(tr)

	for range pitches {
		tr.Tick(tick)
	}

	want := []string{"A", "A2"}
	if len(*got) != len(want) || (*got)[0] != want[0] || (*got)[1] != want[1] {
		t.Fatalf("events = %v, want %v", *got, want)
	}
}

func TestSnapshot(t *testing.T) {
	tr := newTestTracker(t, &scriptedSource{pitches: []float64{440, 0}})

	if got := tr.Snapshot(); got != pitch.Silent() {
		t.Fatalf("initial snapshot = %+v, want silent", got)
	}

	tr.Tick(tick)
	got := tr.Snapshot()
	if got.Name != "A" || got.Pitch != 440 {
		t.Errorf("snapshot = %+v, want A at 440", got)
	}
	if got.Accuracy > 0.1 || got.Accuracy < -0.1 {
		t.Errorf("accuracy = %v, want ~0", got.Accuracy)
	}

	tr.Tick(tick)
	if got := tr.Snapshot(); got != pitch.Silent() {
		t.Errorf("snapshot after silence = %+v, want silent", got)
	}
}

func TestOutOfRangeDegradesToNoNote(t *testing.T) {
	tr := newTestTracker(t, &scriptedSource{pitches: repeat(8000, 40)})
	got := record(tr)

	for range 40 {
		tr.Tick(tick)
	}

	snap := tr.Snapshot()
	if snap.Name != pitch.NoNote || snap.Accuracy != 0 {
		t.Errorf("snapshot = %+v, want NoNote with zero accuracy", snap)
	}
	if len(*got) != 0 {
		t.Errorf("events = %v, want none", *got)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	tr := newTestTracker(t, &scriptedSource{pitches: repeat(440, 60)})

	var first, second int
	unsubscribe := tr.Subscribe(func(string) { first++ })
	tr.Subscribe(func(string) { second++ })
	unsubscribe()

	for range 60 {
		tr.Tick(tick)
	}

	if first != 0 {
		t.Errorf("unsubscribed callback ran %d times", first)
	}
	if second != 1 {
		t.Errorf("subscribed callback ran %d times, want 1", second)
	}
}

func TestNoSubscribers(t *testing.T) {
	tr := newTestTracker(t, &scriptedSource{pitches: repeat(440, 60)})
	for range 60 {
		tr.Tick(tick)
	}
}

func TestSingleActiveTracker(t *testing.T) {
	tr := newTestTracker(t, &scriptedSource{})

	if _, err := New(Config{}, &scriptedSource{}); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("second New error = %v, want ErrAlreadyActive", err)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	again, err := New(Config{}, &scriptedSource{})
	if err != nil {
		t.Fatalf("New after Close: %v", err)
	}
	_ = again.Close()
}

func TestNilSource(t *testing.T) {
	if _, err := New(Config{}, nil); !errors.Is(err, ErrNoSource) {
		t.Fatalf("error = %v, want ErrNoSource", err)
	}
}

func TestSuspendResume(t *testing.T) {
	src := &scriptedSource{pitches: repeat(440, 100)}
	tr := newTestTracker(t, src)
	got := record(tr)

	if err := tr.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for range 30 {
		tr.Tick(tick)
	}
	if err := tr.Suspend(); err != nil {
		t.Fatalf("Suspend: %v", err)
	}
	if snap := tr.Snapshot(); snap != pitch.Silent() {
		t.Errorf("snapshot after Suspend = %+v, want silent", snap)
	}
	if err := tr.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	for range 30 {
		tr.Tick(tick)
	}

	if src.starts != 2 || src.stops != 1 {
		t.Errorf("starts = %d, stops = %d, want 2 and 1", src.starts, src.stops)
	}
	// The debounce state is cleared on suspend, so the held note fires again.
	if len(*got) != 2 {
		t.Errorf("events = %v, want two", *got)
	}
}

func TestCloseReleasesSource(t *testing.T) {
	src := &scriptedSource{}
	tr, err := New(Config{}, src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = tr.Close()
	_ = tr.Close()
	if !src.closed {
		t.Error("source not closed")
	}
}

func TestTrackerMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	tr := newTestTracker(t, &scriptedSource{pitches: repeat(440, 30)}, WithMetrics(m))
	for range 30 {
		tr.Tick(tick)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	for name, want := range map[string]int64{
		"notetracker.ticks":          30,
		"notetracker.notes_detected": 1,
	} {
		var found bool
		for _, sm := range rm.ScopeMetrics {
			for _, met := range sm.Metrics {
				if met.Name != name {
					continue
				}
				found = true
				sum := met.Data.(metricdata.Sum[int64])
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				if total != want {
					t.Errorf("%s = %d, want %d", name, total, want)
				}
			}
		}
		if !found {
			t.Errorf("metric %q not found", name)
		}
	}
}
