package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/app/domain"
)

func TestNewLoginChallenge(t *testing.T) {
	t.Run("sorts candidates ascending", func(t *testing.T) {
		challenge, err := domain.NewLoginChallenge("User@Example.com", []int64{42, 7, 19}, 5*time.Minute)
		require.NoError(t, err)

		assert.Equal(t, []int64{7, 19, 42}, challenge.CandidateAccountIDs)
		assert.Equal(t, "user@example.com", challenge.Email)
		assert.NotEqual(t, challenge.ID.String(), "00000000-0000-0000-0000-000000000000")
		assert.Nil(t, challenge.UsedAt)
		assert.True(t, challenge.ExpiresAt.After(challenge.CreatedAt))
	})

	t.Run("rejects fewer than two candidates", func(t *testing.T) {
		_, err := domain.NewLoginChallenge("user@example.com", []int64{1}, 5*time.Minute)
		assert.Error(t, err)
	})

	t.Run("rejects non-positive TTL", func(t *testing.T) {
		_, err := domain.NewLoginChallenge("user@example.com", []int64{1, 2}, 0)
		assert.Error(t, err)
	})
}

func TestLoginChallenge_Redeem(t *testing.T) {
	newChallenge := func(t *testing.T) *domain.LoginChallenge {
		t.Helper()
		c, err := domain.NewLoginChallenge("user@example.com", []int64{1, 2}, 5*time.Minute)
		require.NoError(t, err)
		return c
	}

	t.Run("redeems a candidate exactly once", func(t *testing.T) {
		c := newChallenge(t)
		now := time.Now().UTC()

		require.NoError(t, c.Redeem(2, now))
		assert.True(t, c.IsUsed())

		// Second redemption of any candidate fails
		assert.ErrorIs(t, c.Redeem(1, now), domain.ErrChallengeAlreadyUsed)
	})

	t.Run("rejects non-candidate account", func(t *testing.T) {
		c := newChallenge(t)
		err := c.Redeem(99, time.Now().UTC())
		assert.ErrorIs(t, err, domain.ErrAccountNotCandidate)
		assert.False(t, c.IsUsed())
	})

	t.Run("expiry wins over used state", func(t *testing.T) {
		c := newChallenge(t)
		late := c.ExpiresAt.Add(time.Second)

		assert.ErrorIs(t, c.Redeem(1, late), domain.ErrChallengeExpired)

		// Even a previously used challenge reports expiry first
		require.NoError(t, c.Redeem(1, time.Now().UTC()))
		assert.ErrorIs(t, c.Redeem(2, late), domain.ErrChallengeExpired)
	})

	t.Run("boundary instant counts as expired", func(t *testing.T) {
		c := newChallenge(t)
		assert.True(t, c.IsExpired(c.ExpiresAt))
		assert.False(t, c.IsExpired(c.ExpiresAt.Add(-time.Millisecond)))
	})
}
