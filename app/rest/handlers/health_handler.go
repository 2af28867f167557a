package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status    string                  `json:"status"`
	Timestamp string                  `json:"timestamp"`
	Checks    map[string]HealthStatus `json:"checks,omitempty"`
}

// HealthStatus describes one dependency check
type HealthStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db     HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// Health handles GET /v1/health. Liveness only; no dependencies touched.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /v1/health/ready and verifies database connectivity.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]HealthStatus)
	status := http.StatusOK
	overall := "ready"

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Error("readiness check failed", "check", "database", "error", err)
		checks["database"] = HealthStatus{Status: "unhealthy", Error: err.Error()}
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	} else {
		checks["database"] = HealthStatus{Status: "healthy"}
	}

	return c.JSON(status, HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
