package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// InitProvider installs a global [sdkmetric.MeterProvider] backed by a
// Prometheus exporter registered on the default Prometheus registry, so the
// instruments are served by promhttp.Handler.
//
// Returns a shutdown function that flushes the provider. Call it in a defer
// from main().
func InitProvider(serviceName, serviceVersion string) (shutdown func(context.Context) error, err error) {
	if serviceName == "" {
		serviceName = "notetracker"
	}

	exporter, err := promexporter.New()
	if err != nil {
		return nil, err
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
