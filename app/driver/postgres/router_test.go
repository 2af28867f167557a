package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/app/domain"
	"tenant-service/app/tenantctx"
)

// fakePooledConn records every Exec with the liveness of the context it ran
// under, so tests can assert the reset survives a dead request context.
type fakePooledConn struct {
	execSQL     []string
	execCtxErrs []error
	failOn      string
	released    bool
	destroyed   bool
}

func (f *fakePooledConn) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execCtxErrs = append(f.execCtxErrs, ctx.Err())
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	if ctx.Err() != nil {
		return pgconn.CommandTag{}, ctx.Err()
	}
	return pgconn.NewCommandTag("SET"), nil
}

func (f *fakePooledConn) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePooledConn) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (f *fakePooledConn) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePooledConn) Release() {
	f.released = true
}

func (f *fakePooledConn) Destroy(ctx context.Context) {
	f.destroyed = true
}

type fakeAcquirer struct {
	conn *fakePooledConn
	err  error
}

func (f *fakeAcquirer) AcquireConn(ctx context.Context) (PooledConn, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conn, nil
}

func newTestRouter(conn *fakePooledConn) *Router {
	return &Router{
		db:     &fakeAcquirer{conn: conn},
		logger: testLogger(),
	}
}

func boundCtx(t *testing.T, schema string) context.Context {
	t.Helper()
	ctx := tenantctx.NewScope(context.Background())
	identity, err := domain.NewTenantIdentity(schema)
	require.NoError(t, err)
	require.NoError(t, tenantctx.Bind(ctx, identity))
	return ctx
}

func TestSearchPathFor(t *testing.T) {
	t.Run("control plane", func(t *testing.T) {
		path, err := SearchPathFor(domain.ControlPlane())
		require.NoError(t, err)
		assert.Equal(t, "public", path)
	})

	t.Run("tenant schema includes control-plane fallback", func(t *testing.T) {
		identity, err := domain.NewTenantIdentity("t_acme")
		require.NoError(t, err)

		path, err := SearchPathFor(identity)
		require.NoError(t, err)
		assert.Equal(t, `"t_acme", public`, path)
	})
}

func TestRouterAcquire(t *testing.T) {
	t.Run("bound scope sets the tenant search_path", func(t *testing.T) {
		conn := &fakePooledConn{}
		r := newTestRouter(conn)

		scoped, err := r.Acquire(boundCtx(t, "t_acme"))
		require.NoError(t, err)

		require.Len(t, conn.execSQL, 1)
		assert.Equal(t, `SET search_path TO "t_acme", public`, conn.execSQL[0])
		assert.Equal(t, `"t_acme", public`, scoped.SearchPath())
	})

	t.Run("unbound scope routes to the control plane", func(t *testing.T) {
		conn := &fakePooledConn{}
		r := newTestRouter(conn)

		scoped, err := r.Acquire(tenantctx.NewScope(context.Background()))
		require.NoError(t, err)

		assert.Equal(t, "SET search_path TO public", conn.execSQL[0])
		assert.Equal(t, "public", scoped.SearchPath())
	})

	t.Run("failed set releases the connection", func(t *testing.T) {
		conn := &fakePooledConn{failOn: "t_acme"}
		r := newTestRouter(conn)

		_, err := r.Acquire(boundCtx(t, "t_acme"))
		assert.Error(t, err)
		assert.True(t, conn.released)
	})

	t.Run("acquire error is wrapped", func(t *testing.T) {
		r := &Router{db: &fakeAcquirer{err: errors.New("pool exhausted")}, logger: testLogger()}

		_, err := r.Acquire(tenantctx.NewScope(context.Background()))
		assert.ErrorContains(t, err, "failed to acquire connection")
	})
}

func TestScopedConnRelease(t *testing.T) {
	t.Run("reset runs even when the request context is cancelled", func(t *testing.T) {
		conn := &fakePooledConn{}
		r := newTestRouter(conn)

		ctx, cancel := context.WithCancel(boundCtx(t, "t_acme"))
		scoped, err := r.Acquire(ctx)
		require.NoError(t, err)

		// The request dies before release, as on a timeout.
		cancel()
		scoped.Release(ctx)

		require.Len(t, conn.execSQL, 2)
		assert.Equal(t, "SET search_path TO public", conn.execSQL[1])
		assert.NoError(t, conn.execCtxErrs[1], "reset must run on a live context")
		assert.True(t, conn.released)
		assert.False(t, conn.destroyed)
	})

	t.Run("failed reset destroys the connection", func(t *testing.T) {
		conn := &fakePooledConn{failOn: "search_path TO public"}
		r := newTestRouter(conn)

		scoped, err := r.Acquire(boundCtx(t, "t_acme"))
		require.NoError(t, err)

		scoped.Release(context.Background())

		assert.True(t, conn.destroyed, "a connection with a stale search_path must not re-enter the pool")
		assert.True(t, conn.released)
	})
}

func TestRouterWithConn(t *testing.T) {
	t.Run("releases after fn returns", func(t *testing.T) {
		conn := &fakePooledConn{}
		r := newTestRouter(conn)

		err := r.WithConn(boundCtx(t, "t_acme"), func(q Querier) error {
			return nil
		})

		require.NoError(t, err)
		assert.True(t, conn.released)
		assert.Equal(t, "SET search_path TO public", conn.execSQL[len(conn.execSQL)-1])
	})

	t.Run("releases when fn fails", func(t *testing.T) {
		conn := &fakePooledConn{}
		r := newTestRouter(conn)

		wantErr := errors.New("query failed")
		err := r.WithConn(boundCtx(t, "t_acme"), func(q Querier) error {
			return wantErr
		})

		assert.ErrorIs(t, err, wantErr)
		assert.True(t, conn.released)
	})
}
