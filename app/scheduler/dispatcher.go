package scheduler

import (
	"context"
	"log/slog"
	"time"

	"tenant-service/app/domain"
	"tenant-service/app/port"
	applogger "tenant-service/app/utils/logger"
)

// JobDispatcher routes committed due schedules to their handlers.
// Maintenance jobs the control plane owns run inline; tenant job keys are
// logged until a real executor claims them.
type JobDispatcher struct {
	challenges port.ChallengeRepository
	logger     *slog.Logger
}

// NewJobDispatcher creates the default dispatcher.
func NewJobDispatcher(challenges port.ChallengeRepository, logger *slog.Logger) *JobDispatcher {
	return &JobDispatcher{
		challenges: challenges,
		logger:     logger.With("component", "job_dispatcher"),
	}
}

// Dispatch handles one schedule. Called only after the advancing transaction
// committed, so a handled job always matches a durably advanced next_run_at.
func (d *JobDispatcher) Dispatch(ctx context.Context, schedule *domain.AccountJobSchedule) {
	jobLogger := applogger.WithAccount(d.logger, schedule.AccountID)

	switch schedule.JobKey {
	case domain.JobKeyChallengePurge:
		deleted, err := d.challenges.DeleteExpired(ctx, time.Now().UTC())
		if err != nil {
			jobLogger.Error("challenge purge failed", "error", err)
			return
		}
		jobLogger.Info("expired challenges purged", "deleted", deleted)

	default:
		jobLogger.Info("dispatching scheduled job", "job_key", schedule.JobKey)
	}
}
