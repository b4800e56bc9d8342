package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/logger"
	gomiddleware "github.com/suteetoe/opshub/gomicro/middleware"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/authen-service/internal/service"
	"go.uber.org/zap"
)

type tenantService interface {
	Create(ctx context.Context, caller service.Caller, name, description string, settings map[string]interface{}) (*identity.Tenant, error)
	List(ctx context.Context, caller service.Caller) ([]service.TenantSummary, error)
	Get(ctx context.Context, caller service.Caller, tenantID uuid.UUID) (*identity.Tenant, error)
	SetDefault(ctx context.Context, caller service.Caller, tenantID uuid.UUID) error
	AddMember(ctx context.Context, caller service.Caller, tenantID uuid.UUID, email string, roles []string) (*identity.TenantMembership, bool, error)
	UpdateRoles(ctx context.Context, caller service.Caller, tenantID, userID uuid.UUID, roles []string) (*identity.TenantMembership, error)
	RemoveMember(ctx context.Context, caller service.Caller, tenantID, userID uuid.UUID) error
}

type CreateTenantRequest struct {
	Name        string                 `json:"name" validate:"required,max=200"`
	Description string                 `json:"description"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
}

type TenantSelectRequest struct {
	TenantID uuid.UUID `json:"tenant_id" validate:"required"`
}

type AddMemberRequest struct {
	TenantID  uuid.UUID `json:"tenant_id" validate:"required"`
	UserEmail string    `json:"user_email" validate:"required,email"`
	Roles     []string  `json:"roles"`
}

type RolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1"`
}

type TenantHandler struct {
	tenants  tenantService
	accounts accountService
}

func NewTenantHandler(tenants tenantService, accounts accountService) *TenantHandler {
	return &TenantHandler{tenants: tenants, accounts: accounts}
}

func (h *TenantHandler) Register(g *echo.Group) {
	g.POST("/tenants", h.Create)
	g.GET("/tenants", h.List)
	g.GET("/tenants/:id", h.Get)
	g.POST("/tenant-auth/switch", h.Switch)
	g.POST("/tenant-auth/default", h.SetDefault)
	g.POST("/tenant-users", h.AddMember)
	g.PUT("/tenant-users/:tenant_id/:user_id/roles", h.UpdateRoles)
	g.DELETE("/tenant-users/:tenant_id/:user_id", h.RemoveMember)
}

func caller(c echo.Context) (service.Caller, error) {
	userID, ok := gomiddleware.UserID(c)
	if !ok {
		return service.Caller{}, apperror.Unauthorized("authentication required")
	}
	return service.Caller{UserID: userID, IsSystemAdmin: gomiddleware.IsSystemAdmin(c)}, nil
}

func param(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.BadRequest("invalid %s", name)
	}
	return id, nil
}

func (h *TenantHandler) Create(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req CreateTenantRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	tenant, err := h.tenants.Create(logger.RequestContext(c), who, req.Name, req.Description, req.Settings)
	if err != nil {
		return apperror.Respond(c, err, "tenant creation failed")
	}

	logger.FromEcho(c).Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Tenant created successfully",
		"tenant":  tenant,
	})
}

func (h *TenantHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	tenants, err := h.tenants.List(logger.RequestContext(c), who)
	if err != nil {
		return apperror.Respond(c, err, "failed to retrieve tenants")
	}
	return c.JSON(http.StatusOK, tenants)
}

func (h *TenantHandler) Get(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	id, err := param(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	tenant, err := h.tenants.Get(logger.RequestContext(c), who, id)
	if err != nil {
		return apperror.Respond(c, err, "failed to retrieve tenant")
	}
	return c.JSON(http.StatusOK, tenant)
}

// Switch issues a token for another tenant of the caller
func (h *TenantHandler) Switch(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req TenantSelectRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	session, err := h.accounts.SwitchTenant(logger.RequestContext(c), who.UserID, req.TenantID)
	if err != nil {
		return apperror.Respond(c, err, "token error")
	}
	logger.FromEcho(c).Info("User switched tenant", zap.String("tenant_id", req.TenantID.String()))
	return c.JSON(http.StatusOK, session)
}

func (h *TenantHandler) SetDefault(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req TenantSelectRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if err := h.tenants.SetDefault(logger.RequestContext(c), who, req.TenantID); err != nil {
		return apperror.Respond(c, err, "failed to set default tenant")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "Default tenant updated",
		"tenant_id": req.TenantID,
	})
}

func (h *TenantHandler) AddMember(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req AddMemberRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	membership, created, err := h.tenants.AddMember(logger.RequestContext(c), who, req.TenantID, req.UserEmail, req.Roles)
	if err != nil {
		return apperror.Respond(c, err, "failed to add user to tenant")
	}

	logger.FromEcho(c).Info("Tenant membership saved",
		zap.String("tenant_id", req.TenantID.String()),
		zap.String("user_email", req.UserEmail),
		zap.Strings("roles", membership.Roles),
		zap.Bool("created", created))
	if !created {
		return c.JSON(http.StatusOK, echo.Map{"message": "User roles updated in tenant", "membership": membership})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User added to tenant successfully", "membership": membership})
}

func (h *TenantHandler) UpdateRoles(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	tenantID, err := param(c, "tenant_id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	userID, err := param(c, "user_id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req RolesRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	membership, err := h.tenants.UpdateRoles(logger.RequestContext(c), who, tenantID, userID, req.Roles)
	if err != nil {
		return apperror.Respond(c, err, "failed to update roles")
	}
	return c.JSON(http.StatusOK, membership)
}

func (h *TenantHandler) RemoveMember(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	tenantID, err := param(c, "tenant_id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	userID, err := param(c, "user_id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	if err := h.tenants.RemoveMember(logger.RequestContext(c), who, tenantID, userID); err != nil {
		return apperror.Respond(c, err, "failed to remove user from tenant")
	}
	logger.FromEcho(c).Info("User removed from tenant",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", userID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "User removed from tenant successfully"})
}
