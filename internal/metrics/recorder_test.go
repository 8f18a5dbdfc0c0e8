package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestRecorder(t *testing.T, gauges Gauges) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { provider.Shutdown(context.Background()) })

	rec, err := NewRecorder(provider.Meter("test"), gauges)
	if err != nil {
		t.Fatalf("creating recorder: %v", err)
	}
	return rec, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collecting: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return 0
}

func TestRecorder_CountsByOutcome(t *testing.T) {
	rec, reader := setupTestRecorder(t, Gauges{})
	ctx := context.Background()

	rec.Delivery(ctx, OutcomeSuccess)
	rec.Delivery(ctx, OutcomeSuccess)
	rec.Delivery(ctx, "network_failure")
	rec.Skipped(ctx, "channel_not_found")
	rec.Registration(ctx, "invalid_endpoint")

	data := collect(t, reader)

	if got := sumFor(t, data["relay.deliveries"], "outcome", OutcomeSuccess); got != 2 {
		t.Errorf("success deliveries: got %d, want 2", got)
	}
	if got := sumFor(t, data["relay.deliveries"], "outcome", "network_failure"); got != 1 {
		t.Errorf("network failures: got %d, want 1", got)
	}
	if got := sumFor(t, data["relay.skipped"], "reason", "channel_not_found"); got != 1 {
		t.Errorf("skipped: got %d, want 1", got)
	}
	if got := sumFor(t, data["setlog.registrations"], "outcome", "invalid_endpoint"); got != 1 {
		t.Errorf("registrations: got %d, want 1", got)
	}
}

func TestRecorder_Gauges(t *testing.T) {
	_, reader := setupTestRecorder(t, Gauges{
		Routes:     func() int { return 3 },
		QueueDepth: func() int { return 7 },
	})

	data := collect(t, reader)

	routes, ok := data["relay.routes"].(metricdata.Gauge[int64])
	if !ok || len(routes.DataPoints) != 1 || routes.DataPoints[0].Value != 3 {
		t.Errorf("unexpected routes gauge %+v", data["relay.routes"])
	}
	depth, ok := data["relay.queue.depth"].(metricdata.Gauge[int64])
	if !ok || len(depth.DataPoints) != 1 || depth.DataPoints[0].Value != 7 {
		t.Errorf("unexpected queue depth gauge %+v", data["relay.queue.depth"])
	}
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Delivery(context.Background(), OutcomeSuccess)
	rec.Skipped(context.Background(), "x")
	rec.Registration(context.Background(), "x")
}

func TestExporter_ServesPrometheusText(t *testing.T) {
	exp, err := NewExporter()
	if err != nil {
		t.Fatalf("creating exporter: %v", err)
	}
	t.Cleanup(func() { exp.Shutdown(context.Background()) })

	rec, err := NewRecorder(exp.Meter(), Gauges{Routes: func() int { return 1 }})
	if err != nil {
		t.Fatalf("creating recorder: %v", err)
	}
	rec.Delivery(context.Background(), OutcomeSuccess)

	w := httptest.NewRecorder()
	exp.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(w.Body)
	text := string(body)
	if !strings.Contains(text, "relay_deliveries") && !strings.Contains(text, "relay.deliveries") {
		t.Errorf("expected relay_deliveries in output, got:\n%s", body)
	}
}
