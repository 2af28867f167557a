// Package token mints and verifies domain-tagged access tokens. A token
// minted for the TENANT domain is never accepted as a CONTROLPLANE token,
// and vice versa.
package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenant-service/app/domain"
)

// Config holds JWT generation configuration.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// accessClaims represents the JWT claims carried by access tokens.
type accessClaims struct {
	SchemaName string `json:"schema_name,omitempty"`
	AuthDomain string `json:"auth_domain"`
	jwt.RegisteredClaims
}

// JWTIssuer generates signed access tokens. Implements port.TokenIssuer.
type JWTIssuer struct {
	cfg Config
}

// NewJWTIssuer creates a new JWT issuer.
func NewJWTIssuer(cfg Config) *JWTIssuer {
	return &JWTIssuer{cfg: cfg}
}

// Issue mints a token for the account snapshot, tagged with the auth domain
// derived from its schema binding.
func (j *JWTIssuer) Issue(snapshot domain.AccountSnapshot) (*domain.IssuedToken, error) {
	if snapshot.Status != domain.AccountStatusActive {
		return nil, domain.ErrAccountDisabled
	}

	now := time.Now()
	expiresAt := now.Add(j.cfg.TTL)
	authDomain := snapshot.Domain()

	claims := accessClaims{
		SchemaName: snapshot.SchemaName,
		AuthDomain: string(authDomain),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.cfg.Issuer,
			Subject:   strconv.FormatInt(snapshot.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &domain.IssuedToken{
		AccessToken: signed,
		AccountID:   snapshot.ID,
		SchemaName:  snapshot.SchemaName,
		Domain:      authDomain,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify parses a raw token and enforces the expected auth domain.
func (j *JWTIssuer) Verify(raw string, expected domain.AuthDomain) (*domain.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(j.cfg.Secret), nil
	}, jwt.WithIssuer(j.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok {
		return nil, domain.ErrTokenInvalid
	}

	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}

	if domain.AuthDomain(claims.AuthDomain) != expected {
		return nil, domain.ErrWrongAuthDomain
	}

	return &domain.TokenClaims{
		AccountID:  accountID,
		SchemaName: claims.SchemaName,
		Domain:     domain.AuthDomain(claims.AuthDomain),
	}, nil
}
