package telemetry_test

import (
	"context"
	"testing"

	"github.com/astrogoddess/storefront/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
)

func restoreGlobalProvider(t *testing.T) {
	t.Helper()
	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	restoreGlobalProvider(t)

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:     false,
		ServiceName: "storefront-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_WithoutCollector(t *testing.T) {
	restoreGlobalProvider(t)
	recorder := tracetest.NewSpanRecorder()

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:       true,
		SamplingRatio: 1.0,
		ServiceName:   "storefront-test",
	}, zaptest.NewLogger(t), sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.True(t, tp.IsEnabled())

	_, span := telemetry.StartSpan(context.Background(), "cart.test")
	assert.True(t, span.SpanContext().TraceID().IsValid())
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "cart.test", ended[0].Name())
}

func TestNewTracerProvider_NeverSample(t *testing.T) {
	restoreGlobalProvider(t)
	recorder := tracetest.NewSpanRecorder()

	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:       true,
		SamplingRatio: 0,
		ServiceName:   "storefront-test",
	}, zaptest.NewLogger(t), sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := tp.Tracer("test").Start(context.Background(), "dropped")
	assert.False(t, span.IsRecording())
	span.End()

	assert.Empty(t, recorder.Ended())
}
