package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/pkg/logger"
)

func newEngine(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), Trace(), Logger(logger.NewNop()), ErrorHandler())
	r.GET("/x", handler)
	return r
}

func serve(r http.Handler) (*httptest.ResponseRecorder, ErrorResponse) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	var body ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRecoveryWritesInternalError(t *testing.T) {
	w, body := serve(newEngine(func(*gin.Context) { panic("boom") }))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperror.CodeInternal, body.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	assert.Equal(t, w.Header().Get(HeaderRequestID), body.Details["request_id"])
}

func TestErrorHandler(t *testing.T) {
	t.Run("app error keeps code and details", func(t *testing.T) {
		w, body := serve(newEngine(func(c *gin.Context) {
			_ = c.Error(apperror.NewInvalidTransition("NEW", "CLOSED"))
			c.Abort()
		}))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apperror.CodeInvalidTransition, body.Code)
		assert.Equal(t, "NEW", body.Details["current_status"])
	})

	t.Run("plain error is hidden", func(t *testing.T) {
		w, body := serve(newEngine(func(c *gin.Context) {
			_ = c.Error(errors.New("connection refused to 10.0.0.1"))
			c.Abort()
		}))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, apperror.CodeInternal, body.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.1")
		assert.Equal(t, w.Header().Get(HeaderRequestID), body.Details["request_id"])
	})
}

func TestTraceEchoesRequestID(t *testing.T) {
	r := newEngine(func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(HeaderTraceID))
}
