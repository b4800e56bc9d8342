package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"go.uber.org/zap"
)

type ProjectAssignmentRequest struct {
	UserID    *uuid.UUID `json:"user_id"`
	ProjectID *uuid.UUID `json:"project_id"`
	StartDate *Date      `json:"start_date"`
	EndDate   *Date      `json:"end_date"`
	Notes     *string    `json:"notes" validate:"omitempty,max=1000"`
}

func (r ProjectAssignmentRequest) input() service.ProjectAssignmentInput {
	return service.ProjectAssignmentInput{
		UserID:    r.UserID,
		ProjectID: r.ProjectID,
		StartDate: r.StartDate.Ptr(),
		EndDate:   r.EndDate.Ptr(),
		Notes:     r.Notes,
	}
}

type ProjectAssignmentHandler struct {
	actorResolver
	svc *service.ProjectAssignmentService
}

func NewProjectAssignmentHandler(svc *service.ProjectAssignmentService, access service.AccessVerifier) *ProjectAssignmentHandler {
	return &ProjectAssignmentHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *ProjectAssignmentHandler) Register(r Router) {
	const res = model.ResourceProjectAssignment
	r.route(http.MethodGet, "/project-assignments", res, model.ActionRead, h.List)
	r.route(http.MethodGet, "/project-assignments/:id", res, model.ActionRead, h.Get)
	r.route(http.MethodPost, "/project-assignments", res, model.ActionCreate, h.Create)
	r.route(http.MethodPut, "/project-assignments/:id", res, model.ActionUpdate, h.Update)
	r.route(http.MethodPost, "/project-assignments/:id/approve", res, model.ActionApprove, h.Approve)
	r.route(http.MethodDelete, "/project-assignments/:id", res, model.ActionDelete, h.Delete)
	r.route(http.MethodPost, "/project-assignments/:id/restore", res, model.ActionRestore, h.Restore)
	r.route(http.MethodDelete, "/project-assignments/:id/hard", res, model.ActionHardDelete, h.HardDelete)
}

func (h *ProjectAssignmentHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve project assignments")
	}

	filter := repository.ProjectAssignmentFilter{
		Status:         c.QueryParam("status"),
		IncludeDeleted: queryBool(c, "includeDeleted"),
	}
	if filter.UserID, err = queryUUID(c, "userId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.ProjectID, err = queryUUID(c, "projectId"); err != nil {
		return apperror.Respond(c, err, "")
	}

	items, err := h.svc.List(logger.RequestContext(c), actor.TenantID, filter)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve project assignments")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProjectAssignmentHandler) Get(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve project assignment")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	pa, err := h.svc.Get(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve project assignment")
	}
	return c.JSON(http.StatusOK, pa)
}

func (h *ProjectAssignmentHandler) Create(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create project assignment")
	}
	var req ProjectAssignmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	pa, err := h.svc.Create(logger.RequestContext(c), actor, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create project assignment")
	}
	logger.FromEcho(c).Info("Project assignment created",
		zap.String("project_assignment_id", pa.ID.String()),
		zap.String("project_id", pa.ProjectID.String()))
	return c.JSON(http.StatusCreated, pa)
}

func (h *ProjectAssignmentHandler) Update(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update project assignment")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req ProjectAssignmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	pa, err := h.svc.Update(logger.RequestContext(c), actor, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update project assignment")
	}
	return c.JSON(http.StatusOK, pa)
}

func (h *ProjectAssignmentHandler) Approve(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to approve project assignment")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	pa, err := h.svc.Approve(logger.RequestContext(c), actor, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to approve project assignment")
	}
	return c.JSON(http.StatusOK, pa)
}

func (h *ProjectAssignmentHandler) Delete(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete project assignment")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	if err := h.svc.Delete(logger.RequestContext(c), actor, id, c.QueryParam("reason")); err != nil {
		return apperror.Respond(c, err, "Failed to delete project assignment")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProjectAssignmentHandler) Restore(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to restore project assignment")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	if err := h.svc.Restore(logger.RequestContext(c), actor, id); err != nil {
		return apperror.Respond(c, err, "Failed to restore project assignment")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Project assignment restored"})
}

func (h *ProjectAssignmentHandler) HardDelete(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete project assignment")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	if err := h.svc.HardDelete(logger.RequestContext(c), actor, id); err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete project assignment")
	}
	logger.FromEcho(c).Warn("Project assignment permanently deleted",
		zap.String("project_assignment_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}
