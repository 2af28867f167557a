package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"tenant-service/app/domain"
	"tenant-service/app/port"
)

// AccountRepository implements port.AccountRepository for PostgreSQL.
// Accounts live in the control-plane schema.
type AccountRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(db DatabaseIface, logger *slog.Logger) port.AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger.With("component", "account_repository"),
	}
}

// Create inserts a new account in the control-plane schema
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	query := `
		INSERT INTO accounts (
			email, display_name, schema_name, password_hash, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id`

	err := r.db.QueryRow(ctx, query,
		account.Email,
		account.DisplayName,
		account.SchemaName,
		account.PasswordHash,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	).Scan(&account.ID)

	if err != nil {
		r.logger.Error("failed to create account", "email", account.Email, "error", err)
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	r.logger.Info("account created", "account_id", account.ID, "schema", account.SchemaName)
	return account, nil
}

// FindByEmail returns every account sharing the normalized email, ordered by
// id ascending so candidate lists are reproducible.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) ([]*domain.Account, error) {
	query := `
		SELECT id, email, display_name, schema_name, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE email = $1 AND status != 'deleted'
		ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, domain.NormalizeEmail(email))
	if err != nil {
		r.logger.Error("failed to query accounts by email", "error", err)
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var account domain.Account
		err := rows.Scan(
			&account.ID,
			&account.Email,
			&account.DisplayName,
			&account.SchemaName,
			&account.PasswordHash,
			&account.Status,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan account row", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// GetSnapshot retrieves the routing projection of an account
func (r *AccountRepository) GetSnapshot(ctx context.Context, id int64) (domain.AccountSnapshot, error) {
	query := `
		SELECT id, display_name, schema_name, status
		FROM accounts
		WHERE id = $1 AND status != 'deleted'`

	var snapshot domain.AccountSnapshot
	err := r.db.QueryRow(ctx, query, id).Scan(
		&snapshot.ID,
		&snapshot.DisplayName,
		&snapshot.SchemaName,
		&snapshot.Status,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AccountSnapshot{}, domain.ErrAccountNotFound
		}
		r.logger.Error("failed to get account snapshot", "account_id", id, "error", err)
		return domain.AccountSnapshot{}, fmt.Errorf("failed to get account snapshot: %w", err)
	}

	return snapshot, nil
}
