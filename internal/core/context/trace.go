// Package context carries the correlation ids of the current request or
// worker pass. Acting users are never read from here; services receive them
// as parameters.
package context

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Trace holds the ids stamped on log entries and error bodies.
type Trace struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceKey struct{}

func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFrom returns the ids stored by WithTrace.
func TraceFrom(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// RequestID is empty outside a request.
func RequestID(ctx context.Context) string {
	t, _ := TraceFrom(ctx)
	return t.RequestID
}

// NewTrace derives ids from the span recorded in ctx. Missing parts are
// generated, so background jobs without a tracer still get correlatable logs.
func NewTrace(ctx context.Context, requestID string) Trace {
	t := Trace{RequestID: requestID}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		t.TraceID = sc.TraceID().String()
		t.SpanID = sc.SpanID().String()
	}
	if t.TraceID == "" {
		t.TraceID = randomHex(16)
	}
	if t.SpanID == "" {
		t.SpanID = randomHex(8)
	}
	if t.RequestID == "" {
		t.RequestID = uuid.NewString()
	}
	return t
}

func randomHex(n int) string {
	u := uuid.New()
	return hex.EncodeToString(u[:n])
}
