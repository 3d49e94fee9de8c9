package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestNewTrace_FromSpanContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01, 0x02},
		SpanID:  trace.SpanID{0x03},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	got := NewTrace(ctx, "req-1")

	assert.Equal(t, sc.TraceID().String(), got.TraceID)
	assert.Equal(t, sc.SpanID().String(), got.SpanID)
	assert.Equal(t, "req-1", got.RequestID)
}

func TestNewTrace_Generated(t *testing.T) {
	got := NewTrace(context.Background(), "")

	assert.Len(t, got.TraceID, 32)
	assert.Len(t, got.SpanID, 16)
	assert.NotEmpty(t, got.RequestID)
}

func TestTraceFrom(t *testing.T) {
	_, ok := TraceFrom(context.Background())
	assert.False(t, ok)
	assert.Empty(t, RequestID(context.Background()))

	ctx := WithTrace(context.Background(), Trace{TraceID: "t", SpanID: "s", RequestID: "r"})
	got, ok := TraceFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "t", got.TraceID)
	assert.Equal(t, "r", RequestID(ctx))
}
