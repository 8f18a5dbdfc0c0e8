package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Delivery outcomes besides the error kind labels.
const OutcomeSuccess = "success"

// Gauges report values read at collection time.
type Gauges struct {
	Routes     func() int
	QueueDepth func() int
}

// Recorder counts relay and registration outcomes. A nil Recorder is valid
// and records nothing.
type Recorder struct {
	deliveries    metric.Int64Counter
	skipped       metric.Int64Counter
	registrations metric.Int64Counter
}

// NewRecorder registers the relay instruments on meter.
func NewRecorder(meter metric.Meter, gauges Gauges) (*Recorder, error) {
	r := &Recorder{}
	var err error

	r.deliveries, err = meter.Int64Counter(
		"relay.deliveries",
		metric.WithDescription("Webhook deliveries attempted, by outcome"),
		metric.WithUnit("{deliveries}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deliveries counter: %w", err)
	}

	r.skipped, err = meter.Int64Counter(
		"relay.skipped",
		metric.WithDescription("Routed messages that were not delivered, by reason"),
		metric.WithUnit("{messages}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}

	r.registrations, err = meter.Int64Counter(
		"setlog.registrations",
		metric.WithDescription("Chat log registrations, by outcome"),
		metric.WithUnit("{registrations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registrations counter: %w", err)
	}

	if gauges.Routes != nil {
		_, err = meter.Int64ObservableGauge(
			"relay.routes",
			metric.WithDescription("Registered source channels"),
			metric.WithUnit("{routes}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(gauges.Routes()))
				return nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("creating routes gauge: %w", err)
		}
	}

	if gauges.QueueDepth != nil {
		_, err = meter.Int64ObservableGauge(
			"relay.queue.depth",
			metric.WithDescription("Delivery jobs waiting for a worker"),
			metric.WithUnit("{jobs}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(gauges.QueueDepth()))
				return nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("creating queue depth gauge: %w", err)
		}
	}

	return r, nil
}

// Delivery records one delivery attempt.
func (r *Recorder) Delivery(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Skipped records a routed message that was dropped before delivery.
func (r *Recorder) Skipped(ctx context.Context, reason string) {
	if r == nil {
		return
	}
	r.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Registration records one /setlog outcome.
func (r *Recorder) Registration(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.registrations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
