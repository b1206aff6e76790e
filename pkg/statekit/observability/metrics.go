package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records statekit metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordMutation records a successful cell mutation.
	RecordMutation(ctx context.Context, cellID string)

	// RecordDelivery records one subscriber delivery with its duration
	// and error status.
	RecordDelivery(ctx context.Context, cellID string, duration time.Duration, err error)

	// RecordDrain records a completed batch drain.
	RecordDrain(ctx context.Context, rounds, cells int, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	mutations        metric.Int64Counter
	deliveries       metric.Int64Counter
	deliveryLatency  metric.Float64Histogram
	subscriberErrors metric.Int64Counter
	drains           metric.Int64Counter
	drainLatency     metric.Float64Histogram
	drainCells       metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("statekit")

	mutations, err := meter.Int64Counter("statekit.cell.mutations",
		metric.WithDescription("Number of successful cell mutations"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("statekit.subscriber.deliveries",
		metric.WithDescription("Number of subscriber deliveries"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("statekit.subscriber.latency_ms",
		metric.WithDescription("Subscriber callback latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	subscriberErrors, err := meter.Int64Counter("statekit.subscriber.errors",
		metric.WithDescription("Number of failed subscriber deliveries"),
	)
	if err != nil {
		return nil, err
	}

	drains, err := meter.Int64Counter("statekit.batch.drains",
		metric.WithDescription("Number of batch drains"),
	)
	if err != nil {
		return nil, err
	}

	drainLatency, err := meter.Float64Histogram("statekit.batch.latency_ms",
		metric.WithDescription("Batch drain latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	drainCells, err := meter.Int64Histogram("statekit.batch.cells",
		metric.WithDescription("Cells notified per batch drain"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		mutations:        mutations,
		deliveries:       deliveries,
		deliveryLatency:  deliveryLatency,
		subscriberErrors: subscriberErrors,
		drains:           drains,
		drainLatency:     drainLatency,
		drainCells:       drainCells,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordMutation records a successful cell mutation.
func (m *otelMetrics) RecordMutation(ctx context.Context, cellID string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cell_id", cellID),
	))
}

// RecordDelivery records one subscriber delivery.
func (m *otelMetrics) RecordDelivery(ctx context.Context, cellID string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("cell_id", cellID),
	}

	m.deliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.subscriberErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDrain records a completed batch drain.
func (m *otelMetrics) RecordDrain(ctx context.Context, rounds, cells int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
		attribute.Int("rounds", rounds),
	}

	m.drains.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.drainLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	m.drainCells.Record(ctx, int64(cells), metric.WithAttributes(attrs...))
}
