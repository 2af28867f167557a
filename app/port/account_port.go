package port

import (
	"context"

	"tenant-service/app/domain"
)

// AccountRepository defines control-plane account data access.
type AccountRepository interface {
	// Create inserts a new account and returns it with its assigned id.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)

	// FindByEmail returns all accounts sharing the normalized email,
	// ordered by account id ascending.
	FindByEmail(ctx context.Context, email string) ([]*domain.Account, error)

	// GetSnapshot returns the routing projection of one account.
	GetSnapshot(ctx context.Context, id int64) (domain.AccountSnapshot, error)
}
