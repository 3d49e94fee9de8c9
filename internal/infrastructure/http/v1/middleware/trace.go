package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "stockflow/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"

	KeyRequestID = "request_id"
	KeyTraceID   = "trace_id"
)

var tracer = otel.Tracer("stockflow/http")

// Trace opens a server span around the request and stores its ids in the
// request context. A client-supplied X-Request-ID or X-Trace-ID is kept.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.method", c.Request.Method)))
		defer span.End()

		ids := appctx.NewTrace(ctx, c.GetHeader(HeaderRequestID))
		if traceID := c.GetHeader(HeaderTraceID); traceID != "" {
			ids.TraceID = traceID
		}
		span.SetAttributes(attribute.String("http.request_id", ids.RequestID))

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, ids))
		c.Set(KeyTraceID, ids.TraceID)
		c.Set(KeyRequestID, ids.RequestID)
		c.Header(HeaderRequestID, ids.RequestID)
		c.Header(HeaderTraceID, ids.TraceID)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
