package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/astrogoddess/storefront/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func restoreGlobalMeterProvider(t *testing.T) {
	t.Helper()
	original := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(original) })
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

// sumOf adds every data point of an int64 sum, filtered by attr when given
func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	m, ok := findMetric(rm, name)
	require.True(t, ok, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)

	var total int64
	for _, dp := range sum.DataPoints {
		matches := true
		for _, attr := range attrs {
			v, found := dp.Attributes.Value(attr.Key)
			if !found || v.Emit() != attr.Value.Emit() {
				matches = false
			}
		}
		if matches {
			total += dp.Value
		}
	}
	return total
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	restoreGlobalMeterProvider(t)

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "storefront-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	counter, err := telemetry.NewCounter(mp.Meter("test"), "noop_total", "noop", "1")
	require.NoError(t, err)
	counter.Inc(context.Background())
	assert.NoError(t, mp.ForceFlush(context.Background()))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestNewMeterProvider_WithReader(t *testing.T) {
	restoreGlobalMeterProvider(t)
	reader := sdkmetric.NewManualReader()

	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:        true,
		ExportInterval: time.Minute,
		ServiceName:    "storefront-test",
	}, zaptest.NewLogger(t), sdkmetric.WithReader(reader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	assert.True(t, mp.IsEnabled())

	meter := mp.Meter(telemetry.MeterName)
	counter, err := telemetry.NewCounter(meter, "requests_total", "requests", "{request}")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)
	counter.Inc(context.Background())

	histogram, err := telemetry.NewHistogram(meter, "latency", "latency", "s", []float64{0.1, 1})
	require.NoError(t, err)
	histogram.Record(context.Background(), 0.5)

	rm := collect(t, reader)
	assert.Equal(t, int64(4), sumOf(t, rm, "requests_total"))

	m, ok := findMetric(rm, "latency")
	require.True(t, ok)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, []float64{0.1, 1}, hist.DataPoints[0].Bounds)
}
