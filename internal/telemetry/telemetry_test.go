package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/tenkimap/tenkimap/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "tenkimap-test",
		Environment:  "test",
		OTLPEndpoint: "localhost:4317",
	})
	require.NoError(t, err)
	require.NotNil(t, provider)

	assert.False(t, provider.Enabled())
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestInit_InstallsTraceContextPropagator(t *testing.T) {
	_, err := telemetry.Init(context.Background(), telemetry.Config{})
	require.NoError(t, err)

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(context.Background(), carrier)
	assert.Empty(t, carrier.Get("traceparent"), "no span in context, nothing injected")
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestUpstreamMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.UpstreamMetrics
	assert.NotPanics(t, func() {
		m.Record(context.Background(), "open-meteo-forecast", "ok", time.Second)
	})
}

func TestUpstreamMetrics_RecordOnCancelledContext(t *testing.T) {
	m, err := telemetry.NewUpstreamMetrics()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.True(t, errors.Is(ctx.Err(), context.Canceled))

	assert.NotPanics(t, func() {
		m.Record(ctx, "open-meteo-geocoding", "unavailable", 250*time.Millisecond)
	})
}
