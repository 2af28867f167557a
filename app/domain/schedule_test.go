package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/app/domain"
)

func TestAccountJobSchedule_NextOccurrence(t *testing.T) {
	t.Run("same day when wall-clock is ahead", func(t *testing.T) {
		s := &domain.AccountJobSchedule{LocalTime: "15:00", ZoneID: "UTC"}
		now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

		next, err := s.NextOccurrence(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), next)
	})

	t.Run("next day when wall-clock already passed", func(t *testing.T) {
		s := &domain.AccountJobSchedule{LocalTime: "03:00", ZoneID: "UTC"}
		now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

		next, err := s.NextOccurrence(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), next)
	})

	t.Run("exact wall-clock instant rolls to next day", func(t *testing.T) {
		s := &domain.AccountJobSchedule{LocalTime: "09:00", ZoneID: "UTC"}
		now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

		next, err := s.NextOccurrence(now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("zone offset is honored", func(t *testing.T) {
		s := &domain.AccountJobSchedule{LocalTime: "09:00", ZoneID: "Asia/Tokyo"}
		now := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC) // 07:00 on 3/11 in Tokyo

		next, err := s.NextOccurrence(now)
		require.NoError(t, err)
		// 09:00 JST on 3/11 is 00:00 UTC
		assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), next)
	})

	t.Run("invalid zone rejected", func(t *testing.T) {
		s := &domain.AccountJobSchedule{LocalTime: "09:00", ZoneID: "Mars/Olympus"}
		_, err := s.NextOccurrence(time.Now())
		assert.Error(t, err)
	})

	t.Run("invalid local time rejected", func(t *testing.T) {
		s := &domain.AccountJobSchedule{LocalTime: "25:99", ZoneID: "UTC"}
		_, err := s.NextOccurrence(time.Now())
		assert.Error(t, err)
	})
}

func TestAccountJobSchedule_IsDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule domain.AccountJobSchedule
		want     bool
	}{
		{
			name:     "enabled and past due",
			schedule: domain.AccountJobSchedule{Enabled: true, NextRunAt: now.Add(-time.Minute)},
			want:     true,
		},
		{
			name:     "enabled at exact instant",
			schedule: domain.AccountJobSchedule{Enabled: true, NextRunAt: now},
			want:     true,
		},
		{
			name:     "enabled but in the future",
			schedule: domain.AccountJobSchedule{Enabled: true, NextRunAt: now.Add(time.Minute)},
			want:     false,
		},
		{
			name:     "disabled rows are never due",
			schedule: domain.AccountJobSchedule{Enabled: false, NextRunAt: now.Add(-time.Hour)},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.IsDue(now))
		})
	}
}
