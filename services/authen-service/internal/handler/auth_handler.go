package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/authen-service/internal/service"
	"go.uber.org/zap"
)

type accountService interface {
	Register(ctx context.Context, email, password, displayName string) (*identity.User, error)
	Login(ctx context.Context, email, password string, tenantID *uuid.UUID) (*service.Session, error)
	SwitchTenant(ctx context.Context, userID, tenantID uuid.UUID) (*service.Session, error)
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"max=200"`
}

type LoginRequest struct {
	Email    string     `json:"email" validate:"required"`
	Password string     `json:"password" validate:"required"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

type AuthHandler struct {
	accounts accountService
}

func NewAuthHandler(accounts accountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	user, err := h.accounts.Register(logger.RequestContext(c), req.Email, req.Password, req.DisplayName)
	if err != nil {
		return apperror.Respond(c, err, "registration failed")
	}

	logger.FromEcho(c).Info("User registered", zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	ctx := service.WithClient(logger.RequestContext(c), service.ClientInfo{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	session, err := h.accounts.Login(ctx, req.Email, req.Password, req.TenantID)
	if err != nil {
		return apperror.Respond(c, err, "login failed")
	}

	fields := []zap.Field{zap.String("email", session.User.Email)}
	if session.Tenant != nil {
		fields = append(fields, zap.String("tenant_id", session.Tenant.ID.String()))
	}
	logger.FromEcho(c).Info("User logged in", fields...)
	return c.JSON(http.StatusOK, session)
}
