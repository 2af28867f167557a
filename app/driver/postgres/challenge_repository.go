package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tenant-service/app/domain"
	"tenant-service/app/port"
)

// ChallengeRepository implements port.ChallengeRepository for PostgreSQL.
// Challenge rows live in the control-plane schema.
type ChallengeRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewChallengeRepository creates a new PostgreSQL challenge repository
func NewChallengeRepository(db DatabaseIface, logger *slog.Logger) port.ChallengeRepository {
	return &ChallengeRepository{
		db:     db,
		logger: logger.With("component", "challenge_repository"),
	}
}

// Create stores a new login challenge
func (r *ChallengeRepository) Create(ctx context.Context, challenge *domain.LoginChallenge) error {
	query := `
		INSERT INTO login_challenges (
			id, email, candidate_account_ids, created_at, expires_at, used_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)`

	_, err := r.db.Exec(ctx, query,
		challenge.ID,
		challenge.Email,
		challenge.CandidateAccountIDs,
		challenge.CreatedAt,
		challenge.ExpiresAt,
		challenge.UsedAt,
	)

	if err != nil {
		r.logger.Error("failed to store login challenge", "challenge_id", challenge.ID, "error", err)
		return fmt.Errorf("failed to store login challenge: %w", err)
	}

	r.logger.Info("login challenge created",
		"challenge_id", challenge.ID,
		"candidates", len(challenge.CandidateAccountIDs),
		"expires_at", challenge.ExpiresAt)
	return nil
}

// Get retrieves a login challenge by id
func (r *ChallengeRepository) Get(ctx context.Context, id uuid.UUID) (*domain.LoginChallenge, error) {
	query := `
		SELECT id, email, candidate_account_ids, created_at, expires_at, used_at
		FROM login_challenges
		WHERE id = $1`

	challenge := &domain.LoginChallenge{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&challenge.ID,
		&challenge.Email,
		&challenge.CandidateAccountIDs,
		&challenge.CreatedAt,
		&challenge.ExpiresAt,
		&challenge.UsedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChallengeNotFound
		}
		r.logger.Error("failed to get login challenge", "challenge_id", id, "error", err)
		return nil, fmt.Errorf("failed to get login challenge: %w", err)
	}

	return challenge, nil
}

// MarkUsed consumes the challenge exactly once. The conditional update on
// used_at IS NULL is what makes two racing confirms resolve to a single
// winner without any application-side locking.
func (r *ChallengeRepository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	query := `UPDATE login_challenges SET used_at = $2 WHERE id = $1 AND used_at IS NULL`

	result, err := r.db.Exec(ctx, query, id, usedAt)
	if err != nil {
		r.logger.Error("failed to mark challenge used", "challenge_id", id, "error", err)
		return fmt.Errorf("failed to mark challenge used: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrChallengeAlreadyUsed
	}

	r.logger.Info("login challenge redeemed", "challenge_id", id)
	return nil
}

// DeleteExpired removes challenges that expired before the given instant
func (r *ChallengeRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM login_challenges WHERE expires_at < $1`

	result, err := r.db.Exec(ctx, query, before)
	if err != nil {
		r.logger.Error("failed to delete expired challenges", "error", err)
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}

	deleted := result.RowsAffected()
	if deleted > 0 {
		r.logger.Info("expired login challenges deleted", "count", deleted)
	}
	return deleted, nil
}
