package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

type ArchiveHandler struct {
	actorResolver
	svc *service.ArchiveService
}

func NewArchiveHandler(svc *service.ArchiveService, access service.AccessVerifier) *ArchiveHandler {
	return &ArchiveHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *ArchiveHandler) Register(r Router) {
	r.route(http.MethodGet, "/data-archives", model.ResourceDataArchive, model.ActionRead, h.List)
	r.route(http.MethodGet, "/data-archives/:id", model.ResourceDataArchive, model.ActionRead, h.Get)
}

func (h *ArchiveHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve archives")
	}
	rows, err := h.svc.List(logger.RequestContext(c), actor.TenantID, c.QueryParam("entityType"))
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve archives")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ArchiveHandler) Get(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve archive")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	row, err := h.svc.Get(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve archive")
	}
	return c.JSON(http.StatusOK, row)
}
