package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
)

// WbsInput carries the editable WBS fields. Nil fields keep their current value on update.
type WbsInput struct {
	ProjectID      *uuid.UUID
	Code           *string
	Description    *string
	Type           *string
	StartDate      *time.Time
	EndDate        *time.Time
	OwnerUserID    *uuid.UUID
	ApproverUserID *uuid.UUID
}

type WbsService struct {
	repo repository.WbsRepository
	now  Clock
}

func NewWbsService(repo repository.WbsRepository) *WbsService {
	return &WbsService{repo: repo, now: time.Now}
}

func (s *WbsService) List(ctx context.Context, tenantID uuid.UUID, filter repository.WbsFilter) ([]model.WbsElement, error) {
	return s.repo.List(ctx, tenantID, filter)
}

func (s *WbsService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.WbsElement, error) {
	wbs, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "WBS element not found")
	}
	return wbs, nil
}

func (s *WbsService) PendingApproval(ctx context.Context, tenantID uuid.UUID, approverID *uuid.UUID) ([]model.WbsElement, error) {
	return s.repo.PendingApproval(ctx, tenantID, approverID)
}

// History returns the element's change history, newest first
func (s *WbsService) History(ctx context.Context, tenantID, id uuid.UUID) ([]model.WbsChangeHistory, error) {
	if _, err := s.repo.Get(ctx, tenantID, id); err != nil {
		return nil, notFound(err, "WBS element not found")
	}
	return s.repo.History(ctx, tenantID, id)
}

func (s *WbsService) Create(ctx context.Context, actor Actor, in WbsInput) (*model.WbsElement, error) {
	if in.ProjectID == nil || in.Code == nil || strings.TrimSpace(*in.Code) == "" || in.StartDate == nil {
		return nil, apperror.BadRequest("Project, code and start date are required")
	}
	if in.Type != nil && !model.ValidWbsType(*in.Type) {
		return nil, apperror.BadRequest("Invalid WBS type: %s", *in.Type)
	}

	exists, err := s.repo.ProjectExists(ctx, actor.TenantID, *in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("Project not found")
	}

	code := strings.TrimSpace(*in.Code)
	dup, err := s.repo.CodeExists(ctx, actor.TenantID, *in.ProjectID, code, nil)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperror.Conflict("WBS code %s already exists in this project", code)
	}

	wbs := &model.WbsElement{
		Base:           model.Base{TenantID: actor.TenantID},
		ProjectID:      *in.ProjectID,
		Code:           code,
		Type:           model.WbsTypeBillable,
		Status:         model.WbsStatusDraft,
		ApprovalStatus: model.WbsApprovalDraft,
		StartDate:      *in.StartDate,
		EndDate:        in.EndDate,
		OwnerUserID:    in.OwnerUserID,
		ApproverUserID: in.ApproverUserID,
	}
	if in.Description != nil {
		wbs.Description = *in.Description
	}
	if in.Type != nil {
		wbs.Type = *in.Type
	}
	if err := validateWbsDates(wbs); err != nil {
		return nil, err
	}
	wbs.Touch(actor.UserID)

	history, err := s.history(actor, model.WbsChangeCreated, nil, wbs.Snapshot(), "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateWithHistory(ctx, wbs, history); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("wbs", "create")
	return wbs, nil
}

func (s *WbsService) Update(ctx context.Context, actor Actor, id uuid.UUID, in WbsInput) (*model.WbsElement, error) {
	wbs, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "WBS element not found")
	}
	if !wbs.ApprovalStatus.Editable() {
		return nil, apperror.BadRequest("WBS element can only be edited in Draft or Rejected status")
	}
	if in.Type != nil && !model.ValidWbsType(*in.Type) {
		return nil, apperror.BadRequest("Invalid WBS type: %s", *in.Type)
	}

	before := wbs.Snapshot()
	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code != wbs.Code {
			dup, err := s.repo.CodeExists(ctx, actor.TenantID, wbs.ProjectID, code, &wbs.ID)
			if err != nil {
				return nil, err
			}
			if dup {
				return nil, apperror.Conflict("WBS code %s already exists in this project", code)
			}
		}
		wbs.Code = code
	}
	if in.Description != nil {
		wbs.Description = *in.Description
	}
	if in.Type != nil {
		wbs.Type = *in.Type
	}
	if in.StartDate != nil {
		wbs.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		wbs.EndDate = in.EndDate
	}
	if in.OwnerUserID != nil {
		wbs.OwnerUserID = in.OwnerUserID
	}
	if in.ApproverUserID != nil {
		wbs.ApproverUserID = in.ApproverUserID
	}
	if err := validateWbsDates(wbs); err != nil {
		return nil, err
	}
	wbs.Touch(actor.UserID)

	history, err := s.history(actor, model.WbsChangeUpdated, &before, wbs.Snapshot(), "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWithHistory(ctx, wbs, history); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("wbs", "update")
	return wbs, nil
}

// Submit sends a Draft or Rejected element to its approver
func (s *WbsService) Submit(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return s.transition(ctx, actor, id, "submit", notes, func(wbs *model.WbsElement) error {
		if !wbs.ApprovalStatus.Editable() {
			return apperror.BadRequest("Only Draft or Rejected WBS elements can be submitted")
		}
		if wbs.ApproverUserID == nil {
			return apperror.BadRequest("An approver must be assigned before submitting")
		}
		submitted := s.now().UTC()
		wbs.ApprovalStatus = model.WbsApprovalPendingApproval
		wbs.SubmittedAt = &submitted
		return nil
	})
}

func (s *WbsService) Approve(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return s.transition(ctx, actor, id, "approve", notes, func(wbs *model.WbsElement) error {
		if err := checkApprover(wbs, actor.UserID); err != nil {
			return err
		}
		approved := s.now().UTC()
		wbs.ApprovalStatus = model.WbsApprovalApproved
		wbs.Status = model.WbsStatusActive
		wbs.ApprovedByUserID = &actor.UserID
		wbs.ApprovedAt = &approved
		wbs.ApprovalNotes = notes
		return nil
	})
}

func (s *WbsService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*model.WbsElement, error) {
	return s.transition(ctx, actor, id, "reject", reason, func(wbs *model.WbsElement) error {
		if err := checkApprover(wbs, actor.UserID); err != nil {
			return err
		}
		if strings.TrimSpace(reason) == "" {
			return apperror.BadRequest("A rejection reason is required")
		}
		wbs.ApprovalStatus = model.WbsApprovalRejected
		wbs.ApprovalNotes = reason
		return nil
	})
}

func (s *WbsService) Suspend(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return s.transition(ctx, actor, id, "suspend", notes, func(wbs *model.WbsElement) error {
		if wbs.ApprovalStatus != model.WbsApprovalApproved {
			return apperror.BadRequest("Only approved WBS elements can be suspended")
		}
		wbs.ApprovalStatus = model.WbsApprovalSuspended
		wbs.Status = model.WbsStatusDraft
		return nil
	})
}

func (s *WbsService) Close(ctx context.Context, actor Actor, id uuid.UUID, notes string) (*model.WbsElement, error) {
	return s.transition(ctx, actor, id, "close", notes, func(wbs *model.WbsElement) error {
		wbs.ApprovalStatus = model.WbsApprovalClosed
		wbs.Status = model.WbsStatusClosed
		return nil
	})
}

// transition loads the element, applies change and stores it with a StatusChanged history row
func (s *WbsService) transition(ctx context.Context, actor Actor, id uuid.UUID, op, notes string, change func(*model.WbsElement) error) (*model.WbsElement, error) {
	wbs, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "WBS element not found")
	}

	before := wbs.Snapshot()
	if err := change(wbs); err != nil {
		return nil, err
	}
	wbs.Touch(actor.UserID)

	history, err := s.history(actor, model.WbsChangeStatusChanged, &before, wbs.Snapshot(), notes)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWithHistory(ctx, wbs, history); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("wbs", op)
	return wbs, nil
}

func (s *WbsService) history(actor Actor, changeType string, before *model.WbsSnapshot, after model.WbsSnapshot, notes string) (*model.WbsChangeHistory, error) {
	h := &model.WbsChangeHistory{
		TenantID:        actor.TenantID,
		ChangedByUserID: actor.UserID,
		ChangedAt:       s.now().UTC(),
		ChangeType:      changeType,
		Notes:           notes,
	}

	newValues, err := json.Marshal(after)
	if err != nil {
		return nil, err
	}
	h.NewValues = newValues

	if before != nil {
		oldValues, err := json.Marshal(before)
		if err != nil {
			return nil, err
		}
		h.OldValues = oldValues
	}
	return h, nil
}

func checkApprover(wbs *model.WbsElement, userID uuid.UUID) error {
	if wbs.ApprovalStatus != model.WbsApprovalPendingApproval {
		return apperror.BadRequest("WBS element is not pending approval")
	}
	if wbs.ApproverUserID == nil || *wbs.ApproverUserID != userID {
		return apperror.BadRequest("Only the assigned approver can approve or reject this WBS element")
	}
	return nil
}

func validateWbsDates(wbs *model.WbsElement) error {
	if wbs.EndDate != nil && wbs.EndDate.Before(wbs.StartDate) {
		return apperror.BadRequest("End date must not be before start date")
	}
	return nil
}
