package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"tenant-service/app/domain"
	"tenant-service/app/driver/postgres"
	"tenant-service/app/rest/middleware"
	"tenant-service/app/tenantctx"
)

// SchemaRouter supplies schema-scoped connections for the probe query.
type SchemaRouter interface {
	WithConn(ctx context.Context, fn func(q postgres.Querier) error) error
}

// TenantDebugResponse reports how the current request resolved its tenant.
// CurrentSchema and SearchPath are read live from a routed connection, not
// recomputed, so the response shows what queries would actually see.
type TenantDebugResponse struct {
	TenantHeader  string `json:"tenant_header"`
	HeaderValid   bool   `json:"header_valid"`
	Bound         bool   `json:"bound"`
	BoundSchema   string `json:"bound_schema"`
	CurrentSchema string `json:"current_schema"`
	SearchPath    string `json:"search_path"`
}

// DebugHandler exposes tenant resolution internals. Only mounted when debug
// mode is enabled.
type DebugHandler struct {
	router SchemaRouter
	logger *slog.Logger
}

// NewDebugHandler creates a new debug handler
func NewDebugHandler(router SchemaRouter, logger *slog.Logger) *DebugHandler {
	return &DebugHandler{router: router, logger: logger}
}

// Tenant handles GET /v1/debug/tenant.
func (h *DebugHandler) Tenant(c echo.Context) error {
	ctx := c.Request().Context()

	rawHeader, _ := c.Get(middleware.ContextKeyTenantHeader).(string)
	headerValid := rawHeader == "" || domain.ValidSchemaName(rawHeader)

	var currentSchema, searchPath string
	err := h.router.WithConn(ctx, func(q postgres.Querier) error {
		return q.QueryRow(ctx,
			"SELECT current_schema(), current_setting('search_path')").
			Scan(&currentSchema, &searchPath)
	})
	if err != nil {
		h.logger.Error("tenant probe failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "tenant probe failed",
			Code:  "DEBUG_PROBE_FAILED",
		})
	}

	return c.JSON(http.StatusOK, TenantDebugResponse{
		TenantHeader:  rawHeader,
		HeaderValid:   headerValid,
		Bound:         tenantctx.IsBound(ctx),
		BoundSchema:   tenantctx.Current(ctx).String(),
		CurrentSchema: currentSchema,
		SearchPath:    searchPath,
	})
}
