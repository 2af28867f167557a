package domain

import "errors"

// Schema routing errors
var (
	ErrInvalidSchemaName         = errors.New("invalid schema name")
	ErrNoScope                   = errors.New("no tenant scope installed")
	ErrTenantAlreadyBound        = errors.New("tenant already bound in this scope")
	ErrBindAfterTransactionStart = errors.New("tenant bind attempted after transaction start")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrWrongAuthDomain    = errors.New("token issued for a different auth domain")
)

// Login challenge errors
var (
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrChallengeExpired     = errors.New("challenge expired")
	ErrChallengeAlreadyUsed = errors.New("challenge already used")
	ErrAccountNotCandidate  = errors.New("account is not a challenge candidate")
)

// Provisioning and scheduling errors
var (
	ErrMigrationFailed  = errors.New("tenant schema migration failed")
	ErrScheduleNotFound = errors.New("job schedule not found")
)
