package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracerProviderNone(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Exporter: ExporterNone})
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProviderStdout(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{ServiceName: "test", Exporter: ExporterStdout})
	require.NoError(t, err)
	require.NotNil(t, tp)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProviderUnknownExporter(t *testing.T) {
	_, err := NewTracerProvider(context.Background(), Config{Exporter: "bogus"})
	require.Error(t, err)
}

func TestStartStoreAndRetrieveSpans(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{Exporter: ExporterNone})
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	ctx, span := StartStoreSpan(context.Background(), "abc123", 4, 2)
	require.NotNil(t, span)
	span.End()

	ctx, span = StartRetrieveSpan(ctx, "abc123", 4)
	require.NotNil(t, span)
	span.End()
}
