package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// LoginChallenge represents a pending choice among multiple candidate
// accounts that share one login email. Created when a password validates
// against two or more accounts, redeemed at most once, dead forever once
// used or expired.
type LoginChallenge struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	CandidateAccountIDs []int64    `json:"candidate_account_ids"`
	CreatedAt           time.Time  `json:"created_at"`
	ExpiresAt           time.Time  `json:"expires_at"`
	UsedAt              *time.Time `json:"used_at,omitempty"`
}

// NewLoginChallenge creates a challenge for the given candidates. Candidate
// order is normalized ascending so the same init call always yields a
// reproducible candidate ordering.
func NewLoginChallenge(email string, candidateIDs []int64, ttl time.Duration) (*LoginChallenge, error) {
	if len(candidateIDs) < 2 {
		return nil, fmt.Errorf("challenge requires at least 2 candidates, got %d", len(candidateIDs))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("challenge TTL must be positive, got %v", ttl)
	}

	sorted := slices.Clone(candidateIDs)
	slices.Sort(sorted)

	now := time.Now().UTC()
	return &LoginChallenge{
		ID:                  uuid.New(),
		Email:               NormalizeEmail(email),
		CandidateAccountIDs: sorted,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}, nil
}

// IsExpired reports whether the challenge is past its TTL.
func (c *LoginChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsUsed reports whether the challenge has already been redeemed.
func (c *LoginChallenge) IsUsed() bool {
	return c.UsedAt != nil
}

// IsCandidate reports whether the account id was offered by this challenge.
func (c *LoginChallenge) IsCandidate(accountID int64) bool {
	return slices.Contains(c.CandidateAccountIDs, accountID)
}

// Redeem validates the state machine transition CREATED -> REDEEMED for the
// chosen account. Expiry is checked before use so a stale challenge always
// reports ErrChallengeExpired, even if it was never redeemed.
func (c *LoginChallenge) Redeem(accountID int64, now time.Time) error {
	if c.IsExpired(now) {
		return ErrChallengeExpired
	}
	if c.IsUsed() {
		return ErrChallengeAlreadyUsed
	}
	if !c.IsCandidate(accountID) {
		return ErrAccountNotCandidate
	}
	used := now
	c.UsedAt = &used
	return nil
}
