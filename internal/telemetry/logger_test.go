package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewLogger_AddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "orders")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3},
		SpanID:  trace.SpanID{4, 5, 6},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.With("component", "test").DebugContext(ctx, "hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "orders", line["service"])
	assert.Equal(t, "test", line["component"])
	assert.Equal(t, sc.TraceID().String(), line["trace_id"])
	assert.Equal(t, sc.SpanID().String(), line["span_id"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "orders")

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestSetupTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracer(context.Background(), TracerConfig{ServiceName: "orders"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
