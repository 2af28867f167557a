package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tenant-service/app/domain"
	"tenant-service/app/port"
)

// ErrorResponse is the common error payload shape
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// LoginRequest is the login init payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ConfirmRequest redeems a disambiguation challenge
type ConfirmRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required,uuid"`
	AccountID   int64  `json:"account_id" validate:"required,gt=0"`
}

// ChallengeResponse is returned when login needs disambiguation
type ChallengeResponse struct {
	ChallengeID string                      `json:"challenge_id"`
	ExpiresAt   string                      `json:"expires_at"`
	Candidates  []domain.ChallengeCandidate `json:"candidates"`
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	loginUsecase port.LoginUsecase
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(loginUsecase port.LoginUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		loginUsecase: loginUsecase,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Login handles POST /v1/auth/login. The response is either an issued token
// (single matching account) or a challenge payload (several).
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_REQUEST"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Code: "VALIDATION_FAILED"})
	}

	result, err := h.loginUsecase.Init(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	if result.NeedsDisambiguation() {
		return c.JSON(http.StatusOK, ChallengeResponse{
			ChallengeID: result.ChallengeID.String(),
			ExpiresAt:   result.ChallengeExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Candidates:  result.Candidates,
		})
	}

	return c.JSON(http.StatusOK, result.Token)
}

// Confirm handles POST /v1/auth/confirm. The password was already proven
// during login init; confirming only selects among the offered candidates.
func (h *AuthHandler) Confirm(c echo.Context) error {
	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_REQUEST"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Code: "VALIDATION_FAILED"})
	}

	challengeID, err := uuid.Parse(req.ChallengeID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid challenge id", Code: "BAD_REQUEST"})
	}

	issued, err := h.loginUsecase.Confirm(c.Request().Context(), challengeID, req.AccountID)
	if err != nil {
		return h.mapAuthError(c, err)
	}

	return c.JSON(http.StatusOK, issued)
}

// mapAuthError translates domain sentinels to HTTP responses. None of the
// rejections reveal which account's credential check failed.
func (h *AuthHandler) mapAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrAccountDisabled):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
	case errors.Is(err, domain.ErrChallengeNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "challenge not found", Code: "CHALLENGE_NOT_FOUND"})
	case errors.Is(err, domain.ErrChallengeExpired):
		return c.JSON(http.StatusGone, ErrorResponse{Error: "challenge expired", Code: "CHALLENGE_EXPIRED"})
	case errors.Is(err, domain.ErrChallengeAlreadyUsed):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "challenge already used", Code: "CHALLENGE_ALREADY_USED"})
	case errors.Is(err, domain.ErrAccountNotCandidate):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "account is not a candidate", Code: "ACCOUNT_NOT_CANDIDATE"})
	case errors.Is(err, domain.ErrAccountNotFound):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials", Code: "INVALID_CREDENTIALS"})
	default:
		h.logger.Error("login failed", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"})
	}
}
