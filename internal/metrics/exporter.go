package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "chatlog-relay"

// Exporter owns the meter provider and serves its readings in Prometheus
// text format.
type Exporter struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
}

// NewExporter creates a meter provider backed by a dedicated Prometheus
// registry.
func NewExporter() (*Exporter, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	return &Exporter{
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)),
		registry:      registry,
	}, nil
}

// Meter returns the meter instruments are created on.
func (e *Exporter) Meter() metric.Meter {
	return e.meterProvider.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))
}

// Handler serves the collected metrics.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.meterProvider.Shutdown(ctx)
}
