package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tenant-service/app/domain"
)

// ChallengeRepository persists login disambiguation challenges in the
// control-plane schema.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *domain.LoginChallenge) error

	Get(ctx context.Context, id uuid.UUID) (*domain.LoginChallenge, error)

	// MarkUsed consumes the challenge. Returns ErrChallengeAlreadyUsed if
	// another redemption won the race.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// DeleteExpired removes challenges dead since before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
