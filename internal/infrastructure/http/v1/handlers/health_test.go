package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ready(t *testing.T, checks ...HealthCheck) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health/ready", NewHealthHandler(nil, checks...).Ready)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }

	t.Run("all healthy", func(t *testing.T) {
		code, body := ready(t, HealthCheck{"postgres", ok}, HealthCheck{"redis", ok})
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, map[string]any{"postgres": "healthy", "redis": "healthy"}, body["checks"])
	})

	t.Run("one failing", func(t *testing.T) {
		code, body := ready(t,
			HealthCheck{"postgres", ok},
			HealthCheck{"redis", func(context.Context) error { return errors.New("dial tcp: refused") }})
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, "unhealthy: dial tcp: refused", body["checks"].(map[string]any)["redis"])
	})
}
