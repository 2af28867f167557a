package rest

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tenant-service/app/domain"
	"tenant-service/app/port"
	"tenant-service/app/rest/handlers"
	custommw "tenant-service/app/rest/middleware"
)

// RouterConfig holds router configuration
type RouterConfig struct {
	Logger           *slog.Logger
	LoginUsecase     port.LoginUsecase
	ProvisionUsecase port.ProvisionUsecase
	TokenIssuer      port.TokenIssuer
	HealthChecker    handlers.HealthChecker
	SchemaRouter     handlers.SchemaRouter
	EnableDebug      bool
}

// NewRouter creates and configures the Echo router
func NewRouter(config RouterConfig) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.Debug = config.EnableDebug

	// Create handlers
	authHandler := handlers.NewAuthHandler(config.LoginUsecase, config.Logger)
	accountHandler := handlers.NewAccountHandler(config.ProvisionUsecase, config.Logger)
	healthHandler := handlers.NewHealthHandler(config.HealthChecker, config.Logger)

	// Create middleware
	tenantMiddleware := custommw.NewTenantMiddleware(config.Logger)
	authMiddleware := custommw.NewAuthMiddleware(config.TokenIssuer, config.Logger)
	rateLimiter := custommw.NewRateLimiter()

	// Global middleware. The tenant scope middleware runs on every request so
	// that binding and cleanup happen exactly once per request lifecycle.
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(custommw.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())
	e.Use(tenantMiddleware.Scope())

	// API versioning
	v1 := e.Group("/v1")

	// Health endpoints (no auth required)
	v1.GET("/health", healthHandler.Health)
	v1.GET("/health/live", healthHandler.Health)
	v1.GET("/health/ready", healthHandler.Ready)

	// Authentication endpoints (public)
	auth := v1.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/confirm", authHandler.Confirm)

	// Account provisioning requires a control-plane token
	accounts := v1.Group("/accounts")
	accounts.Use(authMiddleware.RequireDomain(domain.AuthDomainControlPlane))
	accounts.POST("", accountHandler.Create)

	// Debug surface, only mounted in debug mode
	if config.EnableDebug {
		debugHandler := handlers.NewDebugHandler(config.SchemaRouter, config.Logger)
		debug := v1.Group("/debug")
		debug.GET("/tenant", debugHandler.Tenant)
	}

	return e
}
