package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a reader to
// collect from.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)

	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop, "Expected real metrics recorder, got noop")
}

func TestRecordMutation(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordMutation(ctx, "cell-a1b2c3d4")
	m.RecordMutation(ctx, "cell-a1b2c3d4")

	rm := collectMetrics(t, reader)
	mutations := findMetric(rm, "statekit.cell.mutations")
	require.NotNil(t, mutations)

	sum, ok := mutations.Data.(metricdata.Sum[int64])
	require.True(t, ok, "Expected Sum type")
	require.NotEmpty(t, sum.DataPoints)

	found := false
	for _, dp := range sum.DataPoints {
		for _, attr := range dp.Attributes.ToSlice() {
			if attr.Key == "cell_id" && attr.Value.AsString() == "cell-a1b2c3d4" {
				found = true
				assert.Equal(t, int64(2), dp.Value)
			}
		}
	}
	assert.True(t, found, "Expected datapoint labeled with the cell id")
}

func TestRecordDelivery(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records count and latency", func(t *testing.T) {
		m.RecordDelivery(ctx, "cell-1", 5*time.Millisecond, nil)

		rm := collectMetrics(t, reader)

		deliveries := findMetric(rm, "statekit.subscriber.deliveries")
		require.NotNil(t, deliveries)
		sum, ok := deliveries.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)

		latency := findMetric(rm, "statekit.subscriber.latency_ms")
		require.NotNil(t, latency)
		hist, ok := latency.Data.(metricdata.Histogram[float64])
		require.True(t, ok, "Expected Histogram type")
		require.NotEmpty(t, hist.DataPoints)
	})

	t.Run("counts errors separately", func(t *testing.T) {
		m.RecordDelivery(ctx, "cell-1", time.Millisecond, errors.New("callback failed"))

		rm := collectMetrics(t, reader)
		failures := findMetric(rm, "statekit.subscriber.errors")
		require.NotNil(t, failures)

		sum, ok := failures.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	})
}

func TestRecordDrain(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordDrain(ctx, 2, 3, 10*time.Millisecond, nil)

	rm := collectMetrics(t, reader)

	drains := findMetric(rm, "statekit.batch.drains")
	require.NotNil(t, drains)
	sum, ok := drains.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)

	successFound := false
	for _, attr := range sum.DataPoints[0].Attributes.ToSlice() {
		if attr.Key == "success" {
			successFound = true
			assert.True(t, attr.Value.AsBool())
		}
	}
	assert.True(t, successFound, "Expected success attribute")

	cells := findMetric(rm, "statekit.batch.cells")
	require.NotNil(t, cells)
	hist, ok := cells.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	latency := findMetric(rm, "statekit.batch.latency_ms")
	require.NotNil(t, latency)
}
