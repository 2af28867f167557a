package domain

import (
	"fmt"
	"time"
)

// Job keys the control plane knows how to dispatch.
const (
	// JobKeyUsageRollup aggregates a tenant's usage counters once a day.
	JobKeyUsageRollup = "usage_rollup"
	// JobKeyChallengePurge deletes login challenges dead past their TTL.
	JobKeyChallengePurge = "challenge_purge"
)

// AccountJobSchedule is a control-plane row describing a recurring per-account
// job. NextRunAt is the sole dispatch key; a disabled row is excluded from the
// due-set regardless of NextRunAt.
type AccountJobSchedule struct {
	ID        int64      `json:"id"`
	AccountID int64      `json:"account_id"`
	JobKey    string     `json:"job_key"`
	LocalTime string     `json:"local_time"` // "15:04" wall-clock in ZoneID
	ZoneID    string     `json:"zone_id"`
	Enabled   bool       `json:"enabled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	NextRunAt time.Time  `json:"next_run_at"`
}

// NextOccurrence computes the next wall-clock occurrence of the schedule
// strictly after now, in the schedule's zone.
func (s *AccountJobSchedule) NextOccurrence(now time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(s.ZoneID)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid zone %q: %w", s.ZoneID, err)
	}

	wall, err := time.ParseInLocation("15:04", s.LocalTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local time %q: %w", s.LocalTime, err)
	}

	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), wall.Hour(), wall.Minute(), 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC(), nil
}

// IsDue reports whether the schedule belongs to the due-set at the given
// instant.
func (s *AccountJobSchedule) IsDue(now time.Time) bool {
	return s.Enabled && !s.NextRunAt.After(now)
}
