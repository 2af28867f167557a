package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-service/app/domain"
	"tenant-service/app/rest/handlers"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubLoginUsecase returns canned results per test case.
type stubLoginUsecase struct {
	initResult    *domain.LoginResult
	initErr       error
	confirmResult *domain.IssuedToken
	confirmErr    error
}

func (s *stubLoginUsecase) Init(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	return s.initResult, s.initErr
}

func (s *stubLoginUsecase) Confirm(ctx context.Context, challengeID uuid.UUID, accountID int64) (*domain.IssuedToken, error) {
	return s.confirmResult, s.confirmErr
}

func postJSON(t *testing.T, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, handler(c))
	return rec
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("single match returns a token", func(t *testing.T) {
		uc := &stubLoginUsecase{initResult: &domain.LoginResult{
			Token: &domain.IssuedToken{
				AccessToken: "signed-token",
				AccountID:   7,
				SchemaName:  "t_acme",
				Domain:      domain.AuthDomainTenant,
				ExpiresAt:   time.Now().Add(time.Hour),
			},
		}}
		h := handlers.NewAuthHandler(uc, testLogger())

		rec := postJSON(t, h.Login, `{"email":"user@example.com","password":"secret"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		var token domain.IssuedToken
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
		assert.Equal(t, "signed-token", token.AccessToken)
		assert.Equal(t, int64(7), token.AccountID)
	})

	t.Run("multiple matches return a challenge", func(t *testing.T) {
		challengeID := uuid.New()
		expiresAt := time.Now().UTC().Add(5 * time.Minute)
		uc := &stubLoginUsecase{initResult: &domain.LoginResult{
			ChallengeID:        &challengeID,
			ChallengeExpiresAt: &expiresAt,
			Candidates: []domain.ChallengeCandidate{
				{AccountID: 1, DisplayName: "Acme User"},
				{AccountID: 2, DisplayName: "Beta User"},
			},
		}}
		h := handlers.NewAuthHandler(uc, testLogger())

		rec := postJSON(t, h.Login, `{"email":"user@example.com","password":"secret"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp handlers.ChallengeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, challengeID.String(), resp.ChallengeID)
		require.Len(t, resp.Candidates, 2)
		assert.Equal(t, int64(1), resp.Candidates[0].AccountID)
	})

	t.Run("invalid credentials map to 401", func(t *testing.T) {
		uc := &stubLoginUsecase{initErr: domain.ErrInvalidCredentials}
		h := handlers.NewAuthHandler(uc, testLogger())

		rec := postJSON(t, h.Login, `{"email":"user@example.com","password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
	})

	t.Run("malformed email rejected by validation", func(t *testing.T) {
		h := handlers.NewAuthHandler(&stubLoginUsecase{}, testLogger())

		rec := postJSON(t, h.Login, `{"email":"not-an-email","password":"secret"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("missing password rejected", func(t *testing.T) {
		h := handlers.NewAuthHandler(&stubLoginUsecase{}, testLogger())

		rec := postJSON(t, h.Login, `{"email":"user@example.com"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Confirm(t *testing.T) {
	validBody := func(id uuid.UUID) string {
		return `{"challenge_id":"` + id.String() + `","account_id":2}`
	}

	t.Run("confirming mints the chosen account token", func(t *testing.T) {
		uc := &stubLoginUsecase{confirmResult: &domain.IssuedToken{
			AccessToken: "signed-token",
			AccountID:   2,
			SchemaName:  "t_beta",
			Domain:      domain.AuthDomainTenant,
			ExpiresAt:   time.Now().Add(time.Hour),
		}}
		h := handlers.NewAuthHandler(uc, testLogger())

		rec := postJSON(t, h.Confirm, validBody(uuid.New()))

		assert.Equal(t, http.StatusOK, rec.Code)
		var token domain.IssuedToken
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
		assert.Equal(t, int64(2), token.AccountID)
	})

	t.Run("domain errors map to distinct statuses", func(t *testing.T) {
		tests := []struct {
			name     string
			err      error
			wantCode int
		}{
			{"not found", domain.ErrChallengeNotFound, http.StatusNotFound},
			{"expired", domain.ErrChallengeExpired, http.StatusGone},
			{"already used", domain.ErrChallengeAlreadyUsed, http.StatusConflict},
			{"not a candidate", domain.ErrAccountNotCandidate, http.StatusForbidden},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h := handlers.NewAuthHandler(&stubLoginUsecase{confirmErr: tt.err}, testLogger())

				rec := postJSON(t, h.Confirm, validBody(uuid.New()))
				assert.Equal(t, tt.wantCode, rec.Code)
			})
		}
	})

	t.Run("malformed challenge id rejected", func(t *testing.T) {
		h := handlers.NewAuthHandler(&stubLoginUsecase{}, testLogger())

		rec := postJSON(t, h.Confirm, `{"challenge_id":"not-a-uuid","account_id":2}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
