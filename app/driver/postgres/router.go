package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tenant-service/app/domain"
	"tenant-service/app/tenantctx"
)

// resetTimeout bounds the search_path reset that runs on release. The reset
// is detached from the request's context, so it needs its own deadline.
const resetTimeout = 5 * time.Second

// PooledConn is the slice of a pooled connection the router needs: query
// execution, transactions, return-to-pool, and destruction of connections
// that must not be reused.
type PooledConn interface {
	Querier
	TxBeginner
	Release()
	Destroy(ctx context.Context)
}

// ConnAcquirer checks connections out of the cluster pool.
type ConnAcquirer interface {
	AcquireConn(ctx context.Context) (PooledConn, error)
}

// poolAcquirer adapts pgxpool to ConnAcquirer.
type poolAcquirer struct {
	pool *pgxpool.Pool
}

func (p poolAcquirer) AcquireConn(ctx context.Context) (PooledConn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return poolConn{conn}, nil
}

type poolConn struct {
	*pgxpool.Conn
}

// Destroy closes the underlying connection so that Release discards it
// instead of returning it to the pool.
func (c poolConn) Destroy(ctx context.Context) {
	_ = c.Conn.Conn().Close(ctx)
}

// Router supplies connections already scoped to the schema bound in the
// calling scope. Connections come from the single cluster pool; the
// search_path is set per-operation and reset before the connection returns
// to the pool, so a later request can never inherit a stale schema.
type Router struct {
	db     ConnAcquirer
	logger *slog.Logger
}

// NewRouter creates a schema routing provider over the cluster pool.
func NewRouter(pool *pgxpool.Pool, logger *slog.Logger) *Router {
	return &Router{
		db:     poolAcquirer{pool: pool},
		logger: logger.With("component", "schema_router"),
	}
}

// ScopedConn is a pooled connection whose search_path targets one schema.
type ScopedConn struct {
	conn       PooledConn
	logger     *slog.Logger
	searchPath string
}

// Querier returns the connection for query execution.
func (c *ScopedConn) Querier() Querier {
	return c.conn
}

// SearchPath returns the search_path the connection is configured with.
func (c *ScopedConn) SearchPath() string {
	return c.searchPath
}

// Release resets the search_path and returns the connection to the pool.
// The reset runs on a context detached from the caller's: a request that
// timed out must still reset, or its connection would re-enter the pool
// carrying the tenant's search_path into an unrelated scope. A connection
// whose reset fails is destroyed rather than returned.
func (c *ScopedConn) Release(ctx context.Context) {
	resetCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()

	if _, err := c.conn.Exec(resetCtx, "SET search_path TO public"); err != nil {
		c.logger.Error("search_path reset failed, destroying connection",
			"search_path", c.searchPath, "error", err)
		c.conn.Destroy(resetCtx)
	}
	c.conn.Release()
}

// SearchPathFor builds the search_path clause for a tenant identity. The
// schema name is re-validated at this boundary; nothing failing the grammar
// may ever be interpolated into a SET statement.
func SearchPathFor(identity domain.TenantIdentity) (string, error) {
	if identity.IsControlPlane() {
		return domain.ControlPlaneSchema, nil
	}
	schema := identity.SchemaName()
	if !domain.ValidSchemaName(schema) {
		return "", domain.ErrInvalidSchemaName
	}
	return fmt.Sprintf("%q, %s", schema, domain.ControlPlaneSchema), nil
}

// Acquire returns a connection configured for the identity bound in the
// calling scope. An unbound scope and an explicit control-plane binding
// both yield the control-plane search_path.
func (r *Router) Acquire(ctx context.Context) (*ScopedConn, error) {
	identity := tenantctx.Current(ctx)

	searchPath, err := SearchPathFor(identity)
	if err != nil {
		return nil, err
	}

	conn, err := r.db.AcquireConn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SET search_path TO "+searchPath); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to set search_path: %w", err)
	}

	r.logger.Debug("connection routed", "tenant", identity.String(), "search_path", searchPath)

	return &ScopedConn{conn: conn, logger: r.logger, searchPath: searchPath}, nil
}

// WithConn runs fn on a schema-scoped connection, releasing it on every
// exit path.
func (r *Router) WithConn(ctx context.Context, fn func(q Querier) error) error {
	scoped, err := r.Acquire(ctx)
	if err != nil {
		return err
	}
	defer scoped.Release(ctx)
	return fn(scoped.Querier())
}

// InTenantTransaction runs fn inside a transaction on a schema-scoped
// connection. The binding must already exist; the transaction mark set here
// makes any further bind in fn a protocol violation.
func (r *Router) InTenantTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if tenantctx.InTransaction(ctx) {
		return fmt.Errorf("transaction already active in this scope")
	}

	scoped, err := r.Acquire(ctx)
	if err != nil {
		return err
	}
	defer scoped.Release(ctx)

	return runTx(ctx, scoped.conn, pgx.TxOptions{}, r.logger, fn)
}
