package port

import "tenant-service/app/domain"

// TokenIssuer mints and verifies domain-tagged access tokens.
type TokenIssuer interface {
	// Issue mints a token for the account, tagged with its auth domain.
	Issue(snapshot domain.AccountSnapshot) (*domain.IssuedToken, error)

	// Verify parses a raw token and enforces that it was minted for the
	// expected auth domain. A TENANT token is never accepted where a
	// CONTROLPLANE token is required, and vice versa.
	Verify(raw string, expected domain.AuthDomain) (*domain.TokenClaims, error)
}
