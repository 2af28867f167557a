package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"

	"tenant-service/app/config"
	"tenant-service/app/driver/postgres"
	"tenant-service/app/port"
	"tenant-service/app/rest"
	"tenant-service/app/scheduler"
	"tenant-service/app/token"
	"tenant-service/app/usecase"
)

// Container holds all dependencies for the application
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Drivers
	DB     *postgres.DB
	Router *postgres.Router

	// Repositories
	AccountRepository   port.AccountRepository
	ChallengeRepository port.ChallengeRepository
	ScheduleRepository  port.ScheduleRepository

	// Usecases
	LoginUsecase     port.LoginUsecase
	ProvisionUsecase port.ProvisionUsecase
	TokenIssuer      port.TokenIssuer

	// Background workers
	Scheduler *scheduler.Scheduler
}

// NewContainer creates and initializes a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	container := &Container{
		Config: cfg,
		Logger: logger,
	}

	// Initialize database connection
	var err error
	container.DB, err = postgres.NewConnection(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize schema routing over the shared pool
	container.Router = postgres.NewRouter(container.DB.Pool(), logger)

	// Initialize repositories
	container.AccountRepository = postgres.NewAccountRepository(container.DB.Pool(), logger)
	container.ChallengeRepository = postgres.NewChallengeRepository(container.DB.Pool(), logger)
	container.ScheduleRepository = postgres.NewScheduleRepository(container.DB.Pool(), logger)

	// Initialize token issuer
	container.TokenIssuer = token.NewJWTIssuer(token.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})

	// Initialize usecases
	container.LoginUsecase = usecase.NewLoginUseCase(
		container.AccountRepository,
		container.ChallengeRepository,
		container.TokenIssuer,
		cfg.ChallengeTTL,
		logger,
	)

	provisioner := postgres.NewProvisioner(container.DB.Pool(), logger)
	container.ProvisionUsecase = usecase.NewProvisionUseCase(
		container.AccountRepository,
		container.ScheduleRepository,
		provisioner,
		logger,
	)

	// Initialize the job scheduler. Dispatch happens after commit, so
	// handlers observe the advanced next_run_at.
	if cfg.EnableScheduler {
		txManager := postgres.NewTxManager(container.DB.Pool(), logger)
		container.Scheduler = scheduler.New(
			txManager,
			container.ScheduleRepository,
			scheduler.NewJobDispatcher(container.ChallengeRepository, logger),
			cfg.SchedulerInterval,
			logger,
		)
	}

	logger.Info("Container initialized with full dependency stack")

	return container, nil
}

// CreateRouter creates and returns a fully configured Echo router
func (c *Container) CreateRouter() *echo.Echo {
	routerConfig := rest.RouterConfig{
		Logger:           c.Logger,
		LoginUsecase:     c.LoginUsecase,
		ProvisionUsecase: c.ProvisionUsecase,
		TokenIssuer:      c.TokenIssuer,
		HealthChecker:    c.DB.Pool(),
		SchemaRouter:     c.Router,
		EnableDebug:      c.Config.EnableDebug,
	}

	router := rest.NewRouter(routerConfig)

	c.Logger.Info("Full API router created")
	return router
}

// StartScheduler starts the background job scheduler if it is enabled. The
// control-plane migration baseline must be applied first; a scheduler ticking
// against a half-migrated database would fail every scan.
func (c *Container) StartScheduler(ctx context.Context) error {
	if c.Scheduler == nil {
		return nil
	}

	var table *string
	err := c.DB.Pool().QueryRow(ctx,
		"SELECT to_regclass('public.account_job_schedules')::text").Scan(&table)
	if err != nil {
		return fmt.Errorf("failed to check migration baseline: %w", err)
	}
	if table == nil {
		return fmt.Errorf("control-plane migration baseline not applied, run cmd/migrate first")
	}

	c.Scheduler.Start(ctx)
	return nil
}

// Close stops background workers and closes all resources
func (c *Container) Close() error {
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	if c.DB != nil {
		c.DB.Close()
	}

	c.Logger.Info("Container closed successfully")
	return nil
}
