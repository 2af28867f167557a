package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"tenant-service/app/domain"
	"tenant-service/app/port"
)

// CreateAccountRequest provisions a new tenant account and schema
type CreateAccountRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=12"`
	DisplayName string `json:"display_name" validate:"required"`
	SchemaName  string `json:"schema_name" validate:"required"`
}

// AccountHandler handles account provisioning HTTP requests
type AccountHandler struct {
	provisionUsecase port.ProvisionUsecase
	validate         *validator.Validate
	logger           *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(provisionUsecase port.ProvisionUsecase, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		provisionUsecase: provisionUsecase,
		validate:         validator.New(),
		logger:           logger,
	}
}

// Create handles POST /v1/accounts (control-plane tokens only).
func (h *AccountHandler) Create(c echo.Context) error {
	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_REQUEST"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Code: "VALIDATION_FAILED"})
	}

	account, err := h.provisionUsecase.CreateTenantAccount(
		c.Request().Context(), req.Email, req.Password, req.DisplayName, req.SchemaName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSchemaName):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid schema name", Code: "INVALID_SCHEMA_NAME"})
		case errors.Is(err, domain.ErrMigrationFailed):
			h.logger.Error("tenant provisioning failed", "schema", req.SchemaName, "error", err)
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "provisioning failed, retry later", Code: "PROVISIONING_FAILED"})
		default:
			h.logger.Error("account creation failed", "error", err)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: "INTERNAL_ERROR"})
		}
	}

	return c.JSON(http.StatusCreated, account)
}
