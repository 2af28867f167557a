package domain

import (
	"time"

	"github.com/google/uuid"
)

// TokenClaims is the verified content of an access token.
type TokenClaims struct {
	AccountID  int64      `json:"account_id"`
	SchemaName string     `json:"schema_name,omitempty"`
	Domain     AuthDomain `json:"auth_domain"`
}

// IssuedToken is a minted access token plus the routing facts it encodes.
type IssuedToken struct {
	AccessToken string     `json:"access_token"`
	AccountID   int64      `json:"account_id"`
	SchemaName  string     `json:"schema_name,omitempty"`
	Domain      AuthDomain `json:"auth_domain"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// ChallengeCandidate is one selectable account offered during login
// disambiguation. It deliberately carries no credential information.
type ChallengeCandidate struct {
	AccountID   int64  `json:"account_id"`
	DisplayName string `json:"display_name"`
}

// LoginResult is the outcome of a login init: either a token (single
// matching account) or a disambiguation challenge (several).
type LoginResult struct {
	Token              *IssuedToken         `json:"token,omitempty"`
	ChallengeID        *uuid.UUID           `json:"challenge_id,omitempty"`
	ChallengeExpiresAt *time.Time           `json:"challenge_expires_at,omitempty"`
	Candidates         []ChallengeCandidate `json:"candidates,omitempty"`
}

// NeedsDisambiguation reports whether the caller must confirm a candidate.
func (r *LoginResult) NeedsDisambiguation() bool {
	return r.ChallengeID != nil
}
