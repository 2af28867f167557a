package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"tenant-service/app/domain"
	"tenant-service/app/port"
)

// ScheduleRepository implements port.ScheduleRepository for PostgreSQL.
// Schedule rows live in the control-plane schema.
type ScheduleRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewScheduleRepository creates a new PostgreSQL schedule repository
func NewScheduleRepository(db DatabaseIface, logger *slog.Logger) port.ScheduleRepository {
	return &ScheduleRepository{
		db:     db,
		logger: logger.With("component", "schedule_repository"),
	}
}

// Create inserts a new account job schedule
func (r *ScheduleRepository) Create(ctx context.Context, schedule *domain.AccountJobSchedule) (*domain.AccountJobSchedule, error) {
	query := `
		INSERT INTO account_job_schedules (
			account_id, job_key, local_time, zone_id, enabled, last_run_at, next_run_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id`

	err := r.db.QueryRow(ctx, query,
		schedule.AccountID,
		schedule.JobKey,
		schedule.LocalTime,
		schedule.ZoneID,
		schedule.Enabled,
		schedule.LastRunAt,
		schedule.NextRunAt,
	).Scan(&schedule.ID)

	if err != nil {
		r.logger.Error("failed to create job schedule", "account_id", schedule.AccountID, "job_key", schedule.JobKey, "error", err)
		return nil, fmt.Errorf("failed to create job schedule: %w", err)
	}

	r.logger.Info("job schedule created", "schedule_id", schedule.ID, "job_key", schedule.JobKey)
	return schedule, nil
}

// Due selects the due-set inside the scheduler's transaction. Disabled rows
// are excluded regardless of next_run_at; rows are locked with SKIP LOCKED
// so concurrent scheduler instances never dispatch the same row twice.
func (r *ScheduleRepository) Due(ctx context.Context, tx pgx.Tx, now time.Time, limit int) ([]*domain.AccountJobSchedule, error) {
	query := `
		SELECT id, account_id, job_key, local_time, zone_id, enabled, last_run_at, next_run_at
		FROM account_job_schedules
		WHERE enabled = true AND next_run_at <= $1
		ORDER BY next_run_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.AccountJobSchedule
	for rows.Next() {
		var schedule domain.AccountJobSchedule
		err := rows.Scan(
			&schedule.ID,
			&schedule.AccountID,
			&schedule.JobKey,
			&schedule.LocalTime,
			&schedule.ZoneID,
			&schedule.Enabled,
			&schedule.LastRunAt,
			&schedule.NextRunAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		schedules = append(schedules, &schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

// MarkRun advances the dispatch keys for a processed row, in the same
// transaction that selected it.
func (r *ScheduleRepository) MarkRun(ctx context.Context, tx pgx.Tx, id int64, ranAt, nextRunAt time.Time) error {
	query := `UPDATE account_job_schedules SET last_run_at = $2, next_run_at = $3 WHERE id = $1`

	result, err := tx.Exec(ctx, query, id, ranAt, nextRunAt)
	if err != nil {
		return fmt.Errorf("failed to mark schedule run: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}

	return nil
}
