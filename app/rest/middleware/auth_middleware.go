package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tenant-service/app/domain"
	"tenant-service/app/port"
	"tenant-service/app/tenantctx"
)

// Context keys for verified token facts.
const (
	ContextKeyAccountID  = "account_id"
	ContextKeyAuthDomain = "auth_domain"
)

// AuthMiddleware verifies domain-tagged access tokens.
type AuthMiddleware struct {
	tokens port.TokenIssuer
	logger *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(tokens port.TokenIssuer, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger.With("component", "auth_middleware"),
	}
}

// RequireDomain requires a bearer token minted for the given auth domain.
// A token from the other domain is rejected outright. For tenant tokens the
// schema claim must agree with the scope binding: it binds an unbound scope
// and refuses a mismatching one.
func (m *AuthMiddleware) RequireDomain(expected domain.AuthDomain) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := m.extractBearerToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			claims, err := m.tokens.Verify(raw, expected)
			if err != nil {
				m.logger.Warn("token rejected", "error", err, "ip", c.RealIP())
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if expected == domain.AuthDomainTenant {
				if err := m.bindFromClaims(c, claims); err != nil {
					return err
				}
			}

			c.Set(ContextKeyAccountID, claims.AccountID)
			c.Set(ContextKeyAuthDomain, string(claims.Domain))

			return next(c)
		}
	}
}

// bindFromClaims reconciles the token's schema claim with the scope binding.
func (m *AuthMiddleware) bindFromClaims(c echo.Context, claims *domain.TokenClaims) error {
	identity, err := domain.NewTenantIdentity(claims.SchemaName)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	ctx := c.Request().Context()
	if tenantctx.IsBound(ctx) {
		if tenantctx.Current(ctx) != identity {
			m.logger.Warn("tenant header disagrees with token schema",
				"bound", tenantctx.Current(ctx).String(),
				"claimed", identity.String())
			return echo.NewHTTPError(http.StatusForbidden, "tenant mismatch")
		}
		return nil
	}

	if err := tenantctx.Bind(ctx, identity); err != nil {
		m.logger.Error("tenant bind from claims failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "tenant binding failed")
	}
	return nil
}

// extractBearerToken pulls the token from the Authorization header.
func (m *AuthMiddleware) extractBearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
