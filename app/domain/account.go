package domain

import (
	"strings"
	"time"
)

// AuthDomain tags a token with the surface it was minted for. A token issued
// for one domain is never accepted as the other.
type AuthDomain string

const (
	AuthDomainTenant       AuthDomain = "TENANT"
	AuthDomainControlPlane AuthDomain = "CONTROLPLANE"
)

// AccountStatus represents the lifecycle status of an account
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusDeleted   AccountStatus = "deleted"
)

// Account is a control-plane account row. SchemaName is empty for accounts
// that live purely in the control-plane domain (operators, billing admins).
type Account struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	DisplayName  string        `json:"display_name"`
	SchemaName   string        `json:"schema_name,omitempty"`
	PasswordHash string        `json:"-"`
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// AccountSnapshot is the read-only projection authentication uses to decide
// routing without loading the full account aggregate.
type AccountSnapshot struct {
	ID          int64         `json:"account_id"`
	DisplayName string        `json:"display_name"`
	SchemaName  string        `json:"schema_name,omitempty"`
	Status      AccountStatus `json:"status"`
}

// Snapshot builds the routing projection of the account.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		SchemaName:  a.SchemaName,
		Status:      a.Status,
	}
}

// Identity resolves the schema identity the account routes to.
func (s AccountSnapshot) Identity() (TenantIdentity, error) {
	return NewTenantIdentity(s.SchemaName)
}

// Domain returns the auth domain tokens for this account carry.
func (s AccountSnapshot) Domain() AuthDomain {
	if s.SchemaName == "" {
		return AuthDomainControlPlane
	}
	return AuthDomainTenant
}

// NormalizeEmail canonicalizes an email for candidate lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
