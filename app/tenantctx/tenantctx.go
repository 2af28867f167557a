// Package tenantctx carries the tenant binding for one unit of work through
// its context. Every request and job run gets its own scope slot; bindings
// are never visible across concurrent scopes, and a scope must be cleared
// before its worker returns to the pool.
package tenantctx

import (
	"context"

	"tenant-service/app/domain"
)

type scopeKeyType struct{}
type txKeyType struct{}

var (
	scopeKey scopeKeyType
	txKey    txKeyType
)

// scope is the mutable binding slot for one execution scope. It is owned
// exclusively by the goroutine processing that unit of work.
type scope struct {
	identity domain.TenantIdentity
	bound    bool
}

// NewScope installs an empty binding slot on the context. Handlers and job
// runners call this exactly once at the scope boundary.
func NewScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey, &scope{})
}

// Bind associates the current scope with a tenant identity. Binding while a
// transaction is already active is a protocol violation: a transaction begun
// against the wrong schema can read or write another tenant's data, so the
// call fails loudly instead of reordering silently. Rebinding without an
// intervening Clear is also rejected.
func Bind(ctx context.Context, identity domain.TenantIdentity) error {
	s, ok := ctx.Value(scopeKey).(*scope)
	if !ok {
		return domain.ErrNoScope
	}
	if InTransaction(ctx) {
		return domain.ErrBindAfterTransactionStart
	}
	if s.bound {
		return domain.ErrTenantAlreadyBound
	}
	s.identity = identity
	s.bound = true
	return nil
}

// Current returns the bound identity. An unbound scope and a scope bound
// explicitly to the control plane are indistinguishable by design: both
// route to the shared schema.
func Current(ctx context.Context) domain.TenantIdentity {
	if s, ok := ctx.Value(scopeKey).(*scope); ok && s.bound {
		return s.identity
	}
	return domain.ControlPlane()
}

// IsBound reports whether the scope holds an explicit binding.
func IsBound(ctx context.Context) bool {
	s, ok := ctx.Value(scopeKey).(*scope)
	return ok && s.bound
}

// Clear resets the scope slot. Safe to call on every exit path, including
// scopes that never bound.
func Clear(ctx context.Context) {
	if s, ok := ctx.Value(scopeKey).(*scope); ok {
		s.identity = domain.ControlPlane()
		s.bound = false
	}
}

// RunBound executes fn inside a fresh scope bound to the given identity,
// guaranteeing the binding is cleared on every exit path.
func RunBound(ctx context.Context, identity domain.TenantIdentity, fn func(ctx context.Context) error) error {
	scoped := NewScope(ctx)
	if err := Bind(scoped, identity); err != nil {
		return err
	}
	defer Clear(scoped)
	return fn(scoped)
}

// MarkTransaction flags the context as having an active database
// transaction. The transaction manager sets this when it begins a
// transaction; Bind consults it to enforce the bind-before-transaction rule.
func MarkTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey, true)
}

// WithoutTransaction strips the transaction mark, used by isolated
// transactions that deliberately step outside the ambient one.
func WithoutTransaction(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey, false)
}

// InTransaction reports whether a transaction is active in this scope.
func InTransaction(ctx context.Context) bool {
	active, ok := ctx.Value(txKey).(bool)
	return ok && active
}
