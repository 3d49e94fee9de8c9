// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/pkg/logger"
)

// Recovery answers a panicking handler with INTERNAL_ERROR. ErrorHandler never
// sees the panic, so the body is written here; the stack goes to the log only.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered", "error", rec, "stack", string(debug.Stack()))

			c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
				Code:    apperror.CodeInternal,
				Message: "Internal server error",
				Details: map[string]any{"request_id": appctx.RequestID(ctx)},
			})
		}()
		c.Next()
	}
}
