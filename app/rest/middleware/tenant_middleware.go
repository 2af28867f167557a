package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"tenant-service/app/domain"
	"tenant-service/app/tenantctx"
)

// TenantHeader carries the raw tenant schema hint on inbound requests.
const TenantHeader = "X-Tenant-Schema"

// ContextKeyTenantHeader exposes the raw header to the debug surface.
const ContextKeyTenantHeader = "tenant_header"

// TenantMiddleware owns the request-scope lifecycle of the tenant binding:
// install scope, resolve and bind, clear unconditionally on every exit path.
type TenantMiddleware struct {
	logger *slog.Logger
}

// NewTenantMiddleware creates a new tenant middleware
func NewTenantMiddleware(logger *slog.Logger) *TenantMiddleware {
	return &TenantMiddleware{
		logger: logger.With("component", "tenant_middleware"),
	}
}

// Scope installs the binding slot and resolves the tenant hint. A request
// whose hint fails the schema-name grammar is rejected here, before any
// database interaction. The deferred Clear runs on success, error, panic
// and timeout alike, so a pooled worker can never leak a binding into an
// unrelated request.
func (m *TenantMiddleware) Scope() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := tenantctx.NewScope(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			defer tenantctx.Clear(ctx)

			raw := c.Request().Header.Get(TenantHeader)
			c.Set(ContextKeyTenantHeader, raw)

			identity, err := domain.NewTenantIdentity(raw)
			if err != nil {
				m.logger.Warn("tenant hint rejected", "header", raw, "ip", c.RealIP())
				return c.JSON(http.StatusBadRequest, map[string]interface{}{
					"error": "invalid tenant schema name",
					"code":  "INVALID_SCHEMA_NAME",
				})
			}

			// An absent hint leaves the scope unbound, which routes to the
			// control plane exactly like an explicit control-plane binding.
			if !identity.IsControlPlane() {
				if err := tenantctx.Bind(ctx, identity); err != nil {
					m.logger.Error("tenant bind failed", "error", err)
					return c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"error": "tenant binding failed",
						"code":  "TENANT_BIND_FAILED",
					})
				}
			}

			return next(c)
		}
	}
}
