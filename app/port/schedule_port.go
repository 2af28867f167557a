package port

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"tenant-service/app/domain"
)

// ScheduleRepository reads and mutates account job schedules. Due and
// MarkRun run inside the scheduler's isolated transaction so a crash
// mid-tick cannot double-fire a job whose next_run_at was already advanced.
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *domain.AccountJobSchedule) (*domain.AccountJobSchedule, error)

	// Due selects enabled schedules with next_run_at <= now, earliest-due
	// first, locking the rows against concurrent scheduler instances.
	Due(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*domain.AccountJobSchedule, error)

	// MarkRun advances last_run_at and next_run_at for a dispatched row.
	MarkRun(ctx context.Context, tx pgx.Tx, id int64, ranAt, nextRunAt time.Time) error
}
