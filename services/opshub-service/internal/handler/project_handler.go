package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

type ProjectRequest struct {
	Name          *string    `json:"name" validate:"omitempty,max=200"`
	ProgramCode   *string    `json:"program_code" validate:"omitempty,max=50"`
	Description   *string    `json:"description"`
	StartDate     *Date      `json:"start_date"`
	EndDate       *Date      `json:"end_date"`
	Status        *string    `json:"status" validate:"omitempty,oneof=Active OnHold Closed"`
	ManagerUserID *uuid.UUID `json:"manager_user_id"`
}

func (r ProjectRequest) input() service.ProjectInput {
	return service.ProjectInput{
		Name:          r.Name,
		ProgramCode:   r.ProgramCode,
		Description:   r.Description,
		StartDate:     r.StartDate.Ptr(),
		EndDate:       r.EndDate.Ptr(),
		Status:        r.Status,
		ManagerUserID: r.ManagerUserID,
	}
}

type ProjectHandler struct {
	actorResolver
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService, access service.AccessVerifier) *ProjectHandler {
	return &ProjectHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *ProjectHandler) Register(r Router) {
	r.route(http.MethodGet, "/projects", model.ResourceProject, model.ActionRead, h.List)
	r.route(http.MethodGet, "/projects/:id", model.ResourceProject, model.ActionRead, h.Get)
	r.route(http.MethodPost, "/projects", model.ResourceProject, model.ActionCreate, h.Create)
	r.route(http.MethodPut, "/projects/:id", model.ResourceProject, model.ActionUpdate, h.Update)
}

func (h *ProjectHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve projects")
	}
	projects, err := h.svc.List(logger.RequestContext(c), actor.TenantID, c.QueryParam("status"))
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve projects")
	}
	return c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve project")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	project, err := h.svc.Get(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve project")
	}
	return c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Create(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create project")
	}
	var req ProjectRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	project, err := h.svc.Create(logger.RequestContext(c), actor, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create project")
	}
	return c.JSON(http.StatusCreated, project)
}

func (h *ProjectHandler) Update(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update project")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req ProjectRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	project, err := h.svc.Update(logger.RequestContext(c), actor, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update project")
	}
	return c.JSON(http.StatusOK, project)
}
