package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"tenant-service/app/tenantctx"
)

type txStateKeyType struct{}

var txStateKey txStateKeyType

// txState accumulates callbacks deferred until the enclosing transaction
// commits. Hooks are discarded wholesale on rollback.
type txState struct {
	hooks []func()
}

func (s *txState) fire(logger *slog.Logger) {
	for _, hook := range s.hooks {
		hook()
	}
	if len(s.hooks) > 0 {
		logger.Debug("after-commit hooks dispatched", "count", len(s.hooks))
	}
	s.hooks = nil
}

// TxManager exposes transaction propagation explicitly: callers see in the
// code whether work runs in the ambient transaction, an isolated one, or a
// read-only one, instead of inferring it from annotations.
type TxManager struct {
	db     TxBeginner
	logger *slog.Logger
}

// NewTxManager creates a transaction manager over the given beginner.
func NewTxManager(db TxBeginner, logger *slog.Logger) *TxManager {
	return &TxManager{
		db:     db,
		logger: logger.With("component", "tx_manager"),
	}
}

// WithinTransaction runs fn inside a single transaction on the manager's
// database. The context passed to fn carries the transaction mark, so any
// tenant bind attempted inside fn fails with ErrBindAfterTransactionStart.
// Nesting is rejected: propagation must be explicit, not implicit.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if tenantctx.InTransaction(ctx) {
		return fmt.Errorf("transaction already active in this scope")
	}
	return runTx(ctx, m.db, pgx.TxOptions{}, m.logger, fn)
}

// RunIsolated runs fn in a fresh transaction detached from any ambient one.
// The ambient transaction mark and after-commit state are stripped so the
// isolated unit commits or rolls back entirely on its own.
func (m *TxManager) RunIsolated(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	detached := tenantctx.WithoutTransaction(ctx)
	detached = context.WithValue(detached, txStateKey, (*txState)(nil))
	return runTx(detached, m.db, pgx.TxOptions{}, m.logger, fn)
}

// RunReadOnly runs fn in a read-only transaction.
func (m *TxManager) RunReadOnly(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if tenantctx.InTransaction(ctx) {
		return fmt.Errorf("transaction already active in this scope")
	}
	return runTx(ctx, m.db, pgx.TxOptions{AccessMode: pgx.ReadOnly}, m.logger, fn)
}

// runTx owns the strict ordering within one scope: begin, business work,
// commit or rollback, then after-commit dispatch.
func runTx(ctx context.Context, db TxBeginner, opts pgx.TxOptions, logger *slog.Logger, fn func(ctx context.Context, tx pgx.Tx) error) error {
	state := &txState{}
	txCtx := tenantctx.MarkTransaction(ctx)
	txCtx = context.WithValue(txCtx, txStateKey, state)

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(txCtx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	state.fire(logger)
	return nil
}

// AfterCommit defers fn until the enclosing transaction commits. Registered
// callbacks never run on rollback. With no transaction active, fn runs
// synchronously and immediately. Cross-schema side effects registered here
// can never be observed unless the tenant-side change durably committed.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txStateKey).(*txState); ok && state != nil && tenantctx.InTransaction(ctx) {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn()
}
