package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// HealthCheck probes one dependency: the database pool or Redis.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	info    map[string]any
	timeout time.Duration
}

// NewHealthHandler serves info verbatim on /health/info.
func NewHealthHandler(info map[string]any, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, info: info, timeout: 2 * time.Second}
}

// Live always answers ok while the process serves HTTP.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every dependency in parallel and answers 503 if any fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]string, len(h.checks))
		healthy = true
	)
	for _, check := range h.checks {
		g.Go(func() error {
			res := "healthy"
			if err := check.Ping(ctx); err != nil {
				res = "unhealthy: " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[check.Name] = res
			healthy = healthy && res == "healthy"
			return nil
		})
	}
	_ = g.Wait()

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "checks": results})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": results})
}

func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, h.info)
}
