// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	traces  TraceService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, traces TraceService) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		traces:  traces,
	}
}

// HandleHealth returns server health status and cache counters
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.traces != nil {
		body["traces"] = h.traces.Stats()
	}
	return c.JSON(http.StatusOK, body)
}
