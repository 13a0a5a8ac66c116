// handlers_health.go - Liveness endpoint
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/csv-profiler/backend/internal/analysis"
)

// HealthHandlerImpl reports server liveness plus a coarse view of the
// profiling workload.
type HealthHandlerImpl struct {
	version string
	manager *analysis.Manager
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, manager *analysis.Manager) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		manager: manager,
		started: time.Now(),
	}
}

// HandleHealth returns server status, version, uptime and the number of
// analyses currently held in memory.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"analyses":       h.manager.Count(),
	})
}
