// Package scheduler periodically scans due account job schedules in the
// control-plane schema and dispatches them.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"tenant-service/app/domain"
	"tenant-service/app/driver/postgres"
	"tenant-service/app/port"
	"tenant-service/app/tenantctx"
	applogger "tenant-service/app/utils/logger"
)

const defaultBatchSize = 100

// Dispatcher receives due schedules after their dispatch keys committed.
type Dispatcher interface {
	Dispatch(ctx context.Context, schedule *domain.AccountJobSchedule)
}

// DispatchFunc adapts a function to the Dispatcher interface.
type DispatchFunc func(ctx context.Context, schedule *domain.AccountJobSchedule)

func (f DispatchFunc) Dispatch(ctx context.Context, schedule *domain.AccountJobSchedule) {
	f(ctx, schedule)
}

// Scheduler runs the fixed-interval due-set scan. Each tick selects and
// advances due rows in one isolated transaction, so a crash mid-tick never
// double-fires a job whose next_run_at was already advanced. Job handlers
// fire only after that transaction commits.
type Scheduler struct {
	txm        *postgres.TxManager
	schedules  port.ScheduleRepository
	dispatcher Dispatcher
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
	started    bool
	stop       chan struct{}
	stopped    chan struct{}
}

// New creates a scheduler. It must not be started before the control-plane
// migration baseline has been applied.
func New(txm *postgres.TxManager, schedules port.ScheduleRepository, dispatcher Dispatcher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		txm:        txm,
		schedules:  schedules,
		dispatcher: dispatcher,
		interval:   interval,
		batchSize:  defaultBatchSize,
		logger:     applogger.SchedulerLogger(logger),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start launches the tick loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.started = true
	go s.run(ctx)
	s.logger.Info("job scheduler started", "interval", s.interval)
}

// Stop halts the tick loop and waits for an in-flight tick to finish. A
// scheduler that was never started stops as a no-op.
func (s *Scheduler) Stop() {
	if !s.started {
		return
	}
	close(s.stop)
	<-s.stopped
	s.logger.Info("job scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A failed tick is logged and retried on the next interval;
			// the rollback leaves next_run_at untouched.
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick runs one due-set scan. The scan executes in a job scope explicitly
// bound to the control plane, inside an isolated transaction; dispatch
// callbacks are deferred to after commit so a job handler can never observe
// an advance that later rolled back.
func (s *Scheduler) Tick(ctx context.Context) error {
	return tenantctx.RunBound(ctx, domain.ControlPlane(), func(scoped context.Context) error {
		return s.txm.RunIsolated(scoped, func(txCtx context.Context, tx pgx.Tx) error {
			now := time.Now().UTC()

			due, err := s.schedules.Due(txCtx, tx, now, s.batchSize)
			if err != nil {
				return err
			}

			for _, schedule := range due {
				next, err := schedule.NextOccurrence(now)
				if err != nil {
					return err
				}

				if err := s.schedules.MarkRun(txCtx, tx, schedule.ID, now, next); err != nil {
					return err
				}

				dispatched := schedule
				postgres.AfterCommit(txCtx, func() {
					s.dispatcher.Dispatch(ctx, dispatched)
				})
			}

			if len(due) > 0 {
				s.logger.Info("schedules dispatched", "count", len(due))
			}
			return nil
		})
	})
}
