package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/app/domain"
	custommw "tenant-service/app/rest/middleware"
	"tenant-service/app/tenantctx"
	"tenant-service/app/token"
)

func newIssuer() *token.JWTIssuer {
	return token.NewJWTIssuer(token.Config{
		Secret: "0123456789abcdef0123456789abcdef",
		Issuer: "tenant-service",
		TTL:    time.Hour,
	})
}

func mintToken(t *testing.T, issuer *token.JWTIssuer, schemaName string) string {
	t.Helper()
	issued, err := issuer.Issue(domain.AccountSnapshot{
		ID:          7,
		DisplayName: "User",
		SchemaName:  schemaName,
		Status:      domain.AccountStatusActive,
	})
	require.NoError(t, err)
	return issued.AccessToken
}

// doAuthed runs a request through tenant scope plus the domain guard.
func doAuthed(t *testing.T, expected domain.AuthDomain, tenantHeader, bearer string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	issuer := newIssuer()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tenantHeader != "" {
		req.Header.Set(custommw.TenantHeader, tenantHeader)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	scope := custommw.NewTenantMiddleware(testLogger()).Scope()
	guard := custommw.NewAuthMiddleware(issuer, testLogger()).RequireDomain(expected)

	err := scope(guard(handler))(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestRequireDomain(t *testing.T) {
	issuer := newIssuer()

	t.Run("missing token rejected", func(t *testing.T) {
		rec := doAuthed(t, domain.AuthDomainTenant, "", "", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tenant token binds the scope from its claims", func(t *testing.T) {
		raw := mintToken(t, issuer, "t_acme")

		rec := doAuthed(t, domain.AuthDomainTenant, "", raw, func(c echo.Context) error {
			ctx := c.Request().Context()
			assert.True(t, tenantctx.IsBound(ctx))
			assert.Equal(t, "t_acme", tenantctx.Current(ctx).SchemaName())
			assert.Equal(t, int64(7), c.Get(custommw.ContextKeyAccountID))
			return c.NoContent(http.StatusOK)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("matching header and claims pass", func(t *testing.T) {
		raw := mintToken(t, issuer, "t_acme")

		rec := doAuthed(t, domain.AuthDomainTenant, "t_acme", raw, func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header disagreeing with claims rejected", func(t *testing.T) {
		raw := mintToken(t, issuer, "t_acme")

		rec := doAuthed(t, domain.AuthDomainTenant, "t_other", raw, func(c echo.Context) error {
			t.Fatal("handler must not run on tenant mismatch")
			return nil
		})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("tenant token rejected on control-plane surface", func(t *testing.T) {
		raw := mintToken(t, issuer, "t_acme")

		rec := doAuthed(t, domain.AuthDomainControlPlane, "", raw, func(c echo.Context) error {
			t.Fatal("handler must not run for the wrong auth domain")
			return nil
		})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("control-plane token accepted on control-plane surface", func(t *testing.T) {
		raw := mintToken(t, issuer, "")

		rec := doAuthed(t, domain.AuthDomainControlPlane, "", raw, func(c echo.Context) error {
			assert.Equal(t, string(domain.AuthDomainControlPlane), c.Get(custommw.ContextKeyAuthDomain))
			return c.NoContent(http.StatusOK)
		})

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		rec := doAuthed(t, domain.AuthDomainTenant, "", "not.a.token", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
