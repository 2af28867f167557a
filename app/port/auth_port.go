package port

import (
	"context"

	"github.com/google/uuid"

	"tenant-service/app/domain"
)

// LoginUsecase implements login with multi-account disambiguation.
type LoginUsecase interface {
	// Init validates credentials against every candidate account sharing
	// the email. Exactly one valid candidate yields a token directly; two
	// or more yield a time-boxed, single-use challenge.
	Init(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Confirm redeems a challenge for the chosen account. The password was
	// already proven during Init and is not re-prompted.
	Confirm(ctx context.Context, challengeID uuid.UUID, accountID int64) (*domain.IssuedToken, error)
}

// SchemaProvisioner provisions and migrates a tenant schema.
type SchemaProvisioner interface {
	ProvisionAndMigrate(ctx context.Context, schemaName string) error
}

// ProvisionUsecase creates tenant accounts and their schemas.
type ProvisionUsecase interface {
	CreateTenantAccount(ctx context.Context, email, password, displayName, schemaName string) (*domain.Account, error)
}
