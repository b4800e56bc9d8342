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

type AssignmentRequestBody struct {
	UserID              *uuid.UUID              `json:"user_id"`
	WbsElementID        *uuid.UUID              `json:"wbs_element_id"`
	ProjectAssignmentID *uuid.UUID              `json:"project_assignment_id"`
	StartDate           *Date                   `json:"start_date"`
	EndDate             *Date                   `json:"end_date"`
	AllocationPct       *int                    `json:"allocation_pct" validate:"omitempty,min=0,max=200"`
	Status              *model.AssignmentStatus `json:"status" validate:"omitempty,oneof=Draft PendingApproval Active Completed Cancelled"`
	Notes               *string                 `json:"notes"`
}

func (r AssignmentRequestBody) input() service.AssignmentInput {
	return service.AssignmentInput{
		UserID:              r.UserID,
		WbsElementID:        r.WbsElementID,
		ProjectAssignmentID: r.ProjectAssignmentID,
		StartDate:           r.StartDate.Ptr(),
		EndDate:             r.EndDate.Ptr(),
		AllocationPct:       r.AllocationPct,
		Status:              r.Status,
		Notes:               r.Notes,
	}
}

// AssignmentHandler serves WBS-level assignments. Like bookings it authorizes per
// operation from the userId and tenantId query parameters.
type AssignmentHandler struct {
	svc *service.AssignmentService
}

func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{svc: svc}
}

func (h *AssignmentHandler) Register(g *echo.Group) {
	g.GET("/assignments", h.List)
	g.GET("/assignments/:id", h.Get)
	g.GET("/assignments/:id/history", h.History)
	g.POST("/assignments", h.Create)
	g.PUT("/assignments/:id", h.Update)
	g.POST("/assignments/:id/approve", h.Approve)
	g.DELETE("/assignments/:id", h.Delete)
	g.POST("/assignments/:id/restore", h.Restore)
	g.DELETE("/assignments/:id/hard", h.HardDelete)
}

func (h *AssignmentHandler) List(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignments")
	}

	filter := repository.AssignmentFilter{Status: c.QueryParam("status")}
	if filter.PersonID, err = queryUUID(c, "personId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.WbsElementID, err = queryUUID(c, "wbsElementId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.ProjectAssignmentID, err = queryUUID(c, "projectAssignmentId"); err != nil {
		return apperror.Respond(c, err, "")
	}

	items, err := h.svc.List(logger.RequestContext(c), userID, tenantID, filter)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignments")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AssignmentHandler) Get(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment")
	}

	a, err := h.svc.Get(logger.RequestContext(c), userID, tenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssignmentHandler) History(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment history")
	}

	rows, err := h.svc.History(logger.RequestContext(c), userID, tenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment history")
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *AssignmentHandler) Create(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create assignment")
	}
	var req AssignmentRequestBody
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	a, err := h.svc.Create(logger.RequestContext(c), userID, tenantID, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create assignment")
	}
	logger.FromEcho(c).Info("Assignment created",
		zap.String("assignment_id", a.ID.String()),
		zap.String("wbs_element_id", a.WbsElementID.String()))
	return c.JSON(http.StatusCreated, a)
}

func (h *AssignmentHandler) Update(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update assignment")
	}
	var req AssignmentRequestBody
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	a, err := h.svc.Update(logger.RequestContext(c), userID, tenantID, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update assignment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssignmentHandler) Approve(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to approve assignment")
	}

	a, err := h.svc.Approve(logger.RequestContext(c), userID, tenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to approve assignment")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *AssignmentHandler) Delete(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete assignment")
	}

	if err := h.svc.Delete(logger.RequestContext(c), userID, tenantID, id, c.QueryParam("reason")); err != nil {
		return apperror.Respond(c, err, "Failed to delete assignment")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AssignmentHandler) Restore(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to restore assignment")
	}

	if err := h.svc.Restore(logger.RequestContext(c), userID, tenantID, id); err != nil {
		return apperror.Respond(c, err, "Failed to restore assignment")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Assignment restored"})
}

func (h *AssignmentHandler) HardDelete(c echo.Context) error {
	userID, tenantID, id, err := h.target(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete assignment")
	}

	if err := h.svc.HardDelete(logger.RequestContext(c), userID, tenantID, id); err != nil {
		return apperror.Respond(c, err, "Failed to permanently delete assignment")
	}
	logger.FromEcho(c).Warn("Assignment permanently deleted", zap.String("assignment_id", id.String()))
	return c.NoContent(http.StatusNoContent)
}

func (h *AssignmentHandler) target(c echo.Context) (uuid.UUID, uuid.UUID, uuid.UUID, error) {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return uuid.Nil, uuid.Nil, uuid.Nil, err
	}
	return userID, tenantID, id, nil
}
