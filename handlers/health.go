package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/emojiforge/emojiforge/backend/go-services/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// HealthHandler serves liveness and readiness. /ready is 200 only when every
// registered check passes.
type HealthHandler struct {
	started time.Time
	timeout time.Duration
	checks  map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	if checks == nil {
		checks = map[string]Check{}
	}
	return &HealthHandler{started: time.Now(), timeout: 2 * time.Second, checks: checks}
}

func (h *HealthHandler) Register(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", h.Ready)
}

func (h *HealthHandler) Ready(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	ready := true
	deps := make(map[string]bool, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		deps[name] = err == nil
		if err != nil {
			ready = false
			logger.Warnf("readiness: %s: %v", name, err)
		}
	}

	uptime := time.Since(h.started).String()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": uptime})
}
