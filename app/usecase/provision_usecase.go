package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tenant-service/app/domain"
	"tenant-service/app/port"
	applogger "tenant-service/app/utils/logger"
)

// ProvisionUseCase creates tenant accounts: a control-plane account row, a
// freshly migrated tenant schema, and the default job schedule.
type ProvisionUseCase struct {
	accounts    port.AccountRepository
	schedules   port.ScheduleRepository
	provisioner port.SchemaProvisioner
	logger      *slog.Logger
}

// NewProvisionUseCase creates a new ProvisionUseCase instance
func NewProvisionUseCase(
	accounts port.AccountRepository,
	schedules port.ScheduleRepository,
	provisioner port.SchemaProvisioner,
	logger *slog.Logger,
) port.ProvisionUsecase {
	return &ProvisionUseCase{
		accounts:    accounts,
		schedules:   schedules,
		provisioner: provisioner,
		logger:      logger.With("component", "provision_usecase"),
	}
}

// CreateTenantAccount provisions the schema first, then records the account.
// Provisioning is idempotent, so a failure after the schema exists can be
// retried without leaving a half-migrated tenant behind.
func (uc *ProvisionUseCase) CreateTenantAccount(ctx context.Context, email, password, displayName, schemaName string) (*domain.Account, error) {
	identity, err := domain.NewTenantIdentity(schemaName)
	if err != nil {
		return nil, err
	}
	if identity.IsControlPlane() {
		return nil, fmt.Errorf("%w: tenant schema name required", domain.ErrInvalidSchemaName)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := uc.provisioner.ProvisionAndMigrate(ctx, identity.SchemaName()); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account, err := uc.accounts.Create(ctx, &domain.Account{
		Email:        domain.NormalizeEmail(email),
		DisplayName:  displayName,
		SchemaName:   identity.SchemaName(),
		PasswordHash: string(hash),
		Status:       domain.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	schedule := &domain.AccountJobSchedule{
		AccountID: account.ID,
		JobKey:    domain.JobKeyUsageRollup,
		LocalTime: "03:00",
		ZoneID:    "UTC",
		Enabled:   true,
	}
	next, err := schedule.NextOccurrence(now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute first run: %w", err)
	}
	schedule.NextRunAt = next

	if _, err := uc.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}

	applogger.WithTenant(uc.logger, account.SchemaName).Info("tenant account provisioned",
		"account_id", account.ID)
	return account, nil
}
