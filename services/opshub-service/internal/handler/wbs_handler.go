package handler

import (
	"context"
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

type wbsService interface {
	List(ctx context.Context, tenantID uuid.UUID, filter repository.WbsFilter) ([]model.WbsElement, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.WbsElement, error)
	PendingApproval(ctx context.Context, tenantID uuid.UUID, approverID *uuid.UUID) ([]model.WbsElement, error)
	History(ctx context.Context, tenantID, id uuid.UUID) ([]model.WbsChangeHistory, error)
	Create(ctx context.Context, actor service.Actor, in service.WbsInput) (*model.WbsElement, error)
	Update(ctx context.Context, actor service.Actor, id uuid.UUID, in service.WbsInput) (*model.WbsElement, error)
	Submit(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error)
	Approve(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error)
	Reject(ctx context.Context, actor service.Actor, id uuid.UUID, reason string) (*model.WbsElement, error)
	Suspend(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error)
	Close(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error)
}

type WbsRequest struct {
	ProjectID      *uuid.UUID `json:"project_id"`
	Code           *string    `json:"code" validate:"omitempty,max=50"`
	Description    *string    `json:"description"`
	Type           *string    `json:"type" validate:"omitempty,oneof=Billable NonBillable Overhead BidAndProposal"`
	StartDate      *Date      `json:"start_date"`
	EndDate        *Date      `json:"end_date"`
	OwnerUserID    *uuid.UUID `json:"owner_user_id"`
	ApproverUserID *uuid.UUID `json:"approver_user_id"`
}

func (r WbsRequest) input() service.WbsInput {
	return service.WbsInput{
		ProjectID:      r.ProjectID,
		Code:           r.Code,
		Description:    r.Description,
		Type:           r.Type,
		StartDate:      r.StartDate.Ptr(),
		EndDate:        r.EndDate.Ptr(),
		OwnerUserID:    r.OwnerUserID,
		ApproverUserID: r.ApproverUserID,
	}
}

// WbsTransitionRequest is the body of the workflow endpoints. UserID is accepted for
// compatibility; the acting user is always the token's user.
type WbsTransitionRequest struct {
	UserID *uuid.UUID `json:"user_id"`
	Notes  string     `json:"notes"`
}

type WbsHandler struct {
	actorResolver
	svc wbsService
}

func NewWbsHandler(svc wbsService, access service.AccessVerifier) *WbsHandler {
	return &WbsHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *WbsHandler) Register(r Router) {
	r.route(http.MethodGet, "/wbs", model.ResourceWbsElement, model.ActionRead, h.List)
	r.route(http.MethodGet, "/wbs/pending-approval", model.ResourceWbsElement, model.ActionRead, h.PendingApproval)
	r.route(http.MethodGet, "/wbs/:id", model.ResourceWbsElement, model.ActionRead, h.Get)
	r.route(http.MethodGet, "/wbs/:id/history", model.ResourceWbsElement, model.ActionRead, h.History)
	r.route(http.MethodPost, "/wbs", model.ResourceWbsElement, model.ActionCreate, h.Create)
	r.route(http.MethodPut, "/wbs/:id", model.ResourceWbsElement, model.ActionUpdate, h.Update)
	r.route(http.MethodPost, "/wbs/:id/submit", model.ResourceWbsElement, model.ActionUpdate, h.transition("submit", h.svc.Submit))
	r.route(http.MethodPost, "/wbs/:id/approve", model.ResourceWbsElement, model.ActionApprove, h.transition("approve", h.svc.Approve))
	r.route(http.MethodPost, "/wbs/:id/reject", model.ResourceWbsElement, model.ActionApprove, h.transition("reject", h.svc.Reject))
	r.route(http.MethodPost, "/wbs/:id/suspend", model.ResourceWbsElement, model.ActionApprove, h.transition("suspend", h.svc.Suspend))
	r.route(http.MethodPost, "/wbs/:id/close", model.ResourceWbsElement, model.ActionUpdate, h.transition("close", h.svc.Close))
}

func (h *WbsHandler) List(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS elements")
	}

	filter := repository.WbsFilter{
		Type:           c.QueryParam("type"),
		ApprovalStatus: c.QueryParam("approvalStatus"),
		IncludeHistory: queryBool(c, "includeHistory"),
	}
	if filter.ProjectID, err = queryUUID(c, "projectId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.OwnerID, err = queryUUID(c, "ownerId"); err != nil {
		return apperror.Respond(c, err, "")
	}

	items, err := h.svc.List(logger.RequestContext(c), actor.TenantID, filter)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS elements")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WbsHandler) PendingApproval(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS elements")
	}
	approverID, err := queryUUID(c, "approverId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	items, err := h.svc.PendingApproval(logger.RequestContext(c), actor.TenantID, approverID)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS elements")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WbsHandler) Get(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS element")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	wbs, err := h.svc.Get(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS element")
	}
	return c.JSON(http.StatusOK, wbs)
}

func (h *WbsHandler) History(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS history")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	history, err := h.svc.History(logger.RequestContext(c), actor.TenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve WBS history")
	}
	return c.JSON(http.StatusOK, history)
}

func (h *WbsHandler) Create(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create WBS element")
	}
	var req WbsRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	wbs, err := h.svc.Create(logger.RequestContext(c), actor, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create WBS element")
	}
	logger.FromEcho(c).Info("WBS element created",
		zap.String("wbs_id", wbs.ID.String()),
		zap.String("code", wbs.Code))
	return c.JSON(http.StatusCreated, wbs)
}

func (h *WbsHandler) Update(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update WBS element")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req WbsRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	wbs, err := h.svc.Update(logger.RequestContext(c), actor, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update WBS element")
	}
	return c.JSON(http.StatusOK, wbs)
}

type wbsTransition func(ctx context.Context, actor service.Actor, id uuid.UUID, notes string) (*model.WbsElement, error)

func (h *WbsHandler) transition(op string, fn wbsTransition) echo.HandlerFunc {
	return func(c echo.Context) error {
		fallback := "Failed to " + op + " WBS element"
		actor, err := h.actor(c)
		if err != nil {
			return apperror.Respond(c, err, fallback)
		}
		id, err := pathID(c, "id")
		if err != nil {
			return apperror.Respond(c, err, "")
		}

		var req WbsTransitionRequest
		if err := validation.BindAndValidate(c, &req); err != nil {
			return apperror.Respond(c, err, "")
		}
		if req.UserID != nil && *req.UserID != actor.UserID && !actor.IsSystemAdmin {
			logger.FromEcho(c).Warn("WBS transition requested on behalf of another user",
				zap.String("operation", op),
				zap.String("body_user_id", req.UserID.String()))
			return apperror.Respond(c, apperror.Forbidden("user_id does not match the authenticated user"), fallback)
		}

		wbs, err := fn(logger.RequestContext(c), actor, id, req.Notes)
		if err != nil {
			return apperror.Respond(c, err, fallback)
		}
		return c.JSON(http.StatusOK, wbs)
	}
}
