// Package observe provides the OpenTelemetry instruments recorded by the note
// tracker and the meter provider that exports them to Prometheus.
//
// Tests should build [Metrics] with [NewMetrics] on an SDK meter provider
// backed by a manual reader; code that does not care about metrics uses
// [Noop].
package observe

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all tracker metrics.
const meterName = "github.com/0xlemi/notetracker"

// Metrics holds the metric instruments for the capture-to-event pipeline.
// All fields are safe for concurrent use.
type Metrics struct {
	// Ticks counts pipeline ticks.
	Ticks metric.Int64Counter

	// GatedWindows counts analysis windows rejected as silence.
	GatedWindows metric.Int64Counter

	// EstimateDuration tracks how long the pitch estimator takes per window.
	EstimateDuration metric.Float64Histogram

	// NotesDetected counts emitted note events. Use with attribute:
	//   attribute.String("note", ...)
	NotesDetected metric.Int64Counter

	// LookupMisses counts note names the accuracy lookup did not know.
	LookupMisses metric.Int64Counter

	// Pitch records the instantaneous pitch in Hz, 0 for silence.
	Pitch metric.Float64Gauge
}

// estimateBuckets are histogram boundaries (in seconds) sized for a single
// window estimate, which has to fit in a rendering tick.
var estimateBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025,
}

// NewMetrics creates all instruments on the given [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Ticks, err = m.Int64Counter("notetracker.ticks",
		metric.WithDescription("Pipeline ticks processed."),
	); err != nil {
		return nil, err
	}
	if met.GatedWindows, err = m.Int64Counter("notetracker.gated_windows",
		metric.WithDescription("Analysis windows rejected by the silence gate."),
	); err != nil {
		return nil, err
	}
	if met.EstimateDuration, err = m.Float64Histogram("notetracker.estimate.duration",
		metric.WithDescription("Latency of a single pitch estimate."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(estimateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.NotesDetected, err = m.Int64Counter("notetracker.notes_detected",
		metric.WithDescription("Stable notes emitted to subscribers."),
	); err != nil {
		return nil, err
	}
	if met.LookupMisses, err = m.Int64Counter("notetracker.lookup_misses",
		metric.WithDescription("Note names missing from the chromatic tables."),
	); err != nil {
		return nil, err
	}
	if met.Pitch, err = m.Float64Gauge("notetracker.pitch",
		metric.WithDescription("Most recent pitch estimate."),
		metric.WithUnit("Hz"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Noop returns instruments that record nothing.
func Noop() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The no-op provider never fails to create instruments.
		panic(err)
	}
	return met
}
