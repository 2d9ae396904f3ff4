package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Handler returns the Prometheus scrape endpoint both binaries mount at
// /metrics, next to /health.
func Handler() http.Handler {
	return promhttp.Handler()
}

// InitProvider sets up a process-global MeterProvider backed by a Prometheus
// exporter, registers it via otel.SetMeterProvider, and returns a ready
// Metrics instance plus a shutdown func to call from main on exit.
func InitProvider(serviceName string) (*Metrics, func(context.Context) error, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	)

	exp, err := promexporter.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exp),
	)
	otel.SetMeterProvider(mp)

	m, err := New(mp)
	if err != nil {
		return nil, nil, err
	}

	return m, mp.Shutdown, nil
}
