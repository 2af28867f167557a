package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/app/tenantctx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWithinTransaction(t *testing.T) {
	t.Run("commits and fires after-commit hooks once", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		txm := NewTxManager(mock, testLogger())

		fired := 0
		err = txm.WithinTransaction(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
			assert.True(t, tenantctx.InTransaction(ctx))
			AfterCommit(ctx, func() { fired++ })
			// The hook must not run before commit
			assert.Equal(t, 0, fired)
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, fired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error and discards hooks", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		txm := NewTxManager(mock, testLogger())
		wantErr := fmt.Errorf("business failure")

		fired := 0
		err = txm.WithinTransaction(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
			AfterCommit(ctx, func() { fired++ })
			return wantErr
		})

		assert.ErrorIs(t, err, wantErr)
		assert.Equal(t, 0, fired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects nesting", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		txm := NewTxManager(mock, testLogger())

		err = txm.WithinTransaction(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
			return txm.WithinTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
				t.Fatal("nested transaction body must not run")
				return nil
			})
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunIsolated(t *testing.T) {
	t.Run("runs inside an ambient transaction mark", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		txm := NewTxManager(mock, testLogger())

		// Simulate an ambient transaction on the scope
		ambient := tenantctx.MarkTransaction(context.Background())

		err = txm.RunIsolated(ambient, func(ctx context.Context, tx pgx.Tx) error {
			assert.True(t, tenantctx.InTransaction(ctx))
			return nil
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("isolated hooks fire on isolated commit only", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		txm := NewTxManager(mock, testLogger())

		fired := 0
		err = txm.RunIsolated(context.Background(), func(ctx context.Context, tx pgx.Tx) error {
			AfterCommit(ctx, func() { fired++ })
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, fired)
	})
}

func TestAfterCommit_NoTransaction(t *testing.T) {
	// Without a transaction the callback runs synchronously
	fired := 0
	AfterCommit(context.Background(), func() { fired++ })
	assert.Equal(t, 1, fired)
}
