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

type CreateAssignmentRequest struct {
	RequestedForUserID *uuid.UUID `json:"requested_for_user_id"`
	ProjectID          *uuid.UUID `json:"project_id"`
	WbsElementID       *uuid.UUID `json:"wbs_element_id"`
	StartDate          *Date      `json:"start_date"`
	EndDate            *Date      `json:"end_date"`
	AllocationPct      int        `json:"allocation_pct"`
	Notes              string     `json:"notes" validate:"max=2000"`
	ApproverGroupID    *uuid.UUID `json:"approver_group_id"`
}

type ApproveAssignmentRequest struct {
	ApprovedByUserID *uuid.UUID `json:"approved_by_user_id"`
	CreateAssignment *bool      `json:"create_assignment"`
	AllocationPct    *int       `json:"allocation_pct"`
	Notes            string     `json:"notes"`
}

type RejectAssignmentRequest struct {
	Reason string `json:"reason"`
}

type AssignmentRequestHandler struct {
	actorResolver
	svc *service.AssignmentRequestService
}

func NewAssignmentRequestHandler(svc *service.AssignmentRequestService, access service.AccessVerifier) *AssignmentRequestHandler {
	return &AssignmentRequestHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *AssignmentRequestHandler) Register(r Router) {
	const res = model.ResourceAssignmentRequest
	r.route(http.MethodGet, "/assignment-requests", res, model.ActionRead, h.List)
	r.route(http.MethodGet, "/assignment-requests/:id", res, model.ActionRead, h.Get)
	r.route(http.MethodPost, "/assignment-requests", res, model.ActionCreate, h.Create)
	r.route(http.MethodPost, "/assignment-requests/:id/approve", res, model.ActionApprove, h.Approve)
	r.route(http.MethodPost, "/assignment-requests/:id/reject", res, model.ActionApprove, h.Reject)
	r.route(http.MethodPost, "/assignment-requests/:id/cancel", res, model.ActionUpdate, h.Cancel)
}

func (h *AssignmentRequestHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment requests")
	}

	filter := repository.AssignmentRequestFilter{Status: c.QueryParam("status")}
	if filter.ProjectID, err = queryUUID(c, "projectId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.RequestedForUserID, err = queryUUID(c, "requestedForUserId"); err != nil {
		return apperror.Respond(c, err, "")
	}

	items, err := h.svc.List(logger.RequestContext(c), actor.TenantID, filter)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment requests")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AssignmentRequestHandler) Get(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment request")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	request, err := h.svc.Get(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve assignment request")
	}
	return c.JSON(http.StatusOK, request)
}

func (h *AssignmentRequestHandler) Create(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create assignment request")
	}
	var req CreateAssignmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	request, err := h.svc.Create(logger.RequestContext(c), actor, service.AssignmentRequestInput{
		RequestedForUserID: req.RequestedForUserID,
		ProjectID:          req.ProjectID,
		WbsElementID:       req.WbsElementID,
		StartDate:          req.StartDate.Ptr(),
		EndDate:            req.EndDate.Ptr(),
		AllocationPct:      req.AllocationPct,
		Notes:              req.Notes,
		ApproverGroupID:    req.ApproverGroupID,
	})
	if err != nil {
		return apperror.Respond(c, err, "Failed to create assignment request")
	}
	logger.FromEcho(c).Info("Assignment request created",
		zap.String("request_id", request.ID.String()),
		zap.String("project_id", request.ProjectID.String()))
	return c.JSON(http.StatusCreated, request)
}

func (h *AssignmentRequestHandler) Approve(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to approve assignment request")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req ApproveAssignmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	request, err := h.svc.Approve(logger.RequestContext(c), actor, id, service.ApproveRequestInput{
		ApprovedByUserID: req.ApprovedByUserID,
		CreateAssignment: req.CreateAssignment,
		AllocationPct:    req.AllocationPct,
		Notes:            req.Notes,
	})
	if err != nil {
		return apperror.Respond(c, err, "Failed to approve assignment request")
	}
	return c.JSON(http.StatusOK, request)
}

func (h *AssignmentRequestHandler) Reject(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to reject assignment request")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req RejectAssignmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	request, err := h.svc.Reject(logger.RequestContext(c), actor, id, req.Reason)
	if err != nil {
		return apperror.Respond(c, err, "Failed to reject assignment request")
	}
	return c.JSON(http.StatusOK, request)
}

func (h *AssignmentRequestHandler) Cancel(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to cancel assignment request")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	request, err := h.svc.Cancel(logger.RequestContext(c), actor, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to cancel assignment request")
	}
	return c.JSON(http.StatusOK, request)
}
