package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

type PermissionHandler struct {
	actorResolver
	svc *service.PermissionService
}

func NewPermissionHandler(svc *service.PermissionService, access service.AccessVerifier) *PermissionHandler {
	return &PermissionHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *PermissionHandler) Register(r Router) {
	r.route(http.MethodGet, "/permissions/me", "", "", h.Me)
}

// Me lists the caller's effective grants in the current tenant
func (h *PermissionHandler) Me(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve permissions")
	}
	grants, err := h.svc.Effective(logger.RequestContext(c), actor)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve permissions")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"tenant_id":   actor.TenantID,
		"roles":       actor.Roles,
		"permissions": grants,
	})
}
