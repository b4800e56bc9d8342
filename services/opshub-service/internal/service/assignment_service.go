package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
)

var (
	// assignmentEditorRoles may create and change WBS assignments
	assignmentEditorRoles = []string{identity.RoleTeamLead, identity.RoleProjectManager, identity.RoleResourceManager, identity.RoleTenantAdmin}
	// assignmentApproverRoles may approve WBS assignments
	assignmentApproverRoles = []string{identity.RoleProjectManager, identity.RoleResourceManager, identity.RoleTenantAdmin}
)

const (
	defaultAllocationPct = 100
	maxAllocationPct     = 200
)

// AssignmentInput carries the editable assignment fields. Nil fields keep their current value on update.
type AssignmentInput struct {
	UserID              *uuid.UUID
	WbsElementID        *uuid.UUID
	ProjectAssignmentID *uuid.UUID
	StartDate           *time.Time
	EndDate             *time.Time
	AllocationPct       *int
	Status              *model.AssignmentStatus
	Notes               *string
}

type AssignmentService struct {
	repo   repository.AssignmentRepository
	access AccessVerifier
	now    Clock
}

func NewAssignmentService(repo repository.AssignmentRepository, access AccessVerifier) *AssignmentService {
	return &AssignmentService{repo: repo, access: access, now: time.Now}
}

func (s *AssignmentService) List(ctx context.Context, userID, tenantID uuid.UUID, filter repository.AssignmentFilter) ([]model.Assignment, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, tenantID, filter)
}

func (s *AssignmentService) Get(ctx context.Context, userID, tenantID, id uuid.UUID) (*model.Assignment, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID); err != nil {
		return nil, err
	}
	assignment, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment not found")
	}
	return assignment, nil
}

func (s *AssignmentService) History(ctx context.Context, userID, tenantID, id uuid.UUID) ([]model.AssignmentHistory, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, tenantID, id)
}

func (s *AssignmentService) Create(ctx context.Context, userID, tenantID uuid.UUID, in AssignmentInput) (*model.Assignment, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID, assignmentEditorRoles...); err != nil {
		return nil, err
	}
	if in.UserID == nil || in.WbsElementID == nil || in.StartDate == nil {
		return nil, apperror.BadRequest("User, WBS element and start date are required")
	}

	assignment := &model.Assignment{
		Base:                model.Base{TenantID: tenantID},
		UserID:              *in.UserID,
		WbsElementID:        *in.WbsElementID,
		ProjectAssignmentID: in.ProjectAssignmentID,
		StartDate:           *in.StartDate,
		EndDate:             in.EndDate,
		AllocationPct:       defaultAllocationPct,
		Status:              model.AssignmentPendingApproval,
	}
	if in.AllocationPct != nil {
		assignment.AllocationPct = *in.AllocationPct
	}
	if in.Notes != nil {
		assignment.Notes = *in.Notes
	}

	if err := s.validate(ctx, assignment, nil); err != nil {
		return nil, err
	}

	assignment.Touch(userID)
	history, err := s.historyRow(assignment, userID, "Assignment created")
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateWithHistory(ctx, assignment, history); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("assignments", "create")
	return assignment, nil
}

func (s *AssignmentService) Update(ctx context.Context, userID, tenantID, id uuid.UUID, in AssignmentInput) (*model.Assignment, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID, assignmentEditorRoles...); err != nil {
		return nil, err
	}
	assignment, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment not found")
	}
	previousStatus := assignment.Status

	if in.WbsElementID != nil {
		assignment.WbsElementID = *in.WbsElementID
	}
	if in.ProjectAssignmentID != nil {
		assignment.ProjectAssignmentID = in.ProjectAssignmentID
	}
	if in.StartDate != nil {
		assignment.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		assignment.EndDate = in.EndDate
	}
	if in.AllocationPct != nil {
		assignment.AllocationPct = *in.AllocationPct
	}
	if in.Status != nil && *in.Status != assignment.Status {
		if err := s.checkStatusChange(ctx, userID, tenantID, assignment.Status, *in.Status); err != nil {
			return nil, err
		}
		assignment.Status = *in.Status
	}
	if in.Notes != nil {
		assignment.Notes = *in.Notes
	}

	if err := s.validate(ctx, assignment, &assignment.ID); err != nil {
		return nil, err
	}

	assignment.Touch(userID)
	assignment.WbsElement = nil

	var history *model.AssignmentHistory
	if assignment.Status != previousStatus {
		if history, err = s.historyRow(assignment, userID, "Status changed from "+string(previousStatus)); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateWithHistory(ctx, assignment, history); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("assignments", "update")
	return assignment, nil
}

// checkStatusChange keeps activation behind Approve. Editors may move an assignment between
// Draft, PendingApproval and Cancelled; anything touching Active or Completed needs an approver.
func (s *AssignmentService) checkStatusChange(ctx context.Context, userID, tenantID uuid.UUID, from, to model.AssignmentStatus) error {
	switch to {
	case model.AssignmentDraft, model.AssignmentPendingApproval, model.AssignmentCancelled, model.AssignmentCompleted:
	case model.AssignmentActive:
		return apperror.BadRequest("Assignments are activated through approval")
	default:
		return apperror.BadRequest("Invalid assignment status: %s", to)
	}
	if to != model.AssignmentCompleted && from != model.AssignmentActive && from != model.AssignmentCompleted {
		return nil
	}
	_, err := s.access.VerifyUserAccess(ctx, userID, tenantID, assignmentApproverRoles...)
	return err
}

// Approve activates the assignment and records who approved it
func (s *AssignmentService) Approve(ctx context.Context, userID, tenantID, id uuid.UUID) (*model.Assignment, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID, assignmentApproverRoles...); err != nil {
		return nil, err
	}
	assignment, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Assignment not found")
	}
	if assignment.Status != model.AssignmentPendingApproval && assignment.Status != model.AssignmentDraft {
		return nil, apperror.BadRequest("Only draft or pending assignments can be approved")
	}

	approved := s.now().UTC()
	assignment.Status = model.AssignmentActive
	assignment.ApprovedByUserID = &userID
	assignment.ApprovedAt = &approved
	assignment.Touch(userID)
	assignment.WbsElement = nil

	history, err := s.historyRow(assignment, userID, "Assignment approved")
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateWithHistory(ctx, assignment, history); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("assignments", "approve")
	return assignment, nil
}

func (s *AssignmentService) Delete(ctx context.Context, userID, tenantID, id uuid.UUID, reason string) error {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID, assignmentEditorRoles...); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id, userID, reason); err != nil {
		return notFound(err, "Assignment not found")
	}
	prometheus.RecordOperation("assignments", "delete")
	return nil
}

func (s *AssignmentService) Restore(ctx context.Context, userID, tenantID, id uuid.UUID) error {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID, assignmentEditorRoles...); err != nil {
		return err
	}
	if err := s.repo.Restore(ctx, tenantID, id); err != nil {
		return notFound(err, "Deleted assignment not found")
	}
	prometheus.RecordOperation("assignments", "restore")
	return nil
}

func (s *AssignmentService) HardDelete(ctx context.Context, userID, tenantID, id uuid.UUID) error {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID, identity.RoleTenantAdmin); err != nil {
		return err
	}
	if err := s.repo.HardDelete(ctx, tenantID, id, userID); err != nil {
		return notFound(err, "Assignment not found")
	}
	prometheus.RecordOperation("assignments", "hard_delete")
	return nil
}

func (s *AssignmentService) validate(ctx context.Context, a *model.Assignment, excludeID *uuid.UUID) error {
	if a.AllocationPct <= 0 || a.AllocationPct > maxAllocationPct {
		return apperror.BadRequest("Allocation must be between 1 and %d percent", maxAllocationPct)
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return apperror.BadRequest("End date must not be before start date")
	}

	if _, err := s.repo.FindWbs(ctx, a.TenantID, a.WbsElementID); err != nil {
		return badRequestIfMissing(err, "WBS element not found")
	}

	if a.ProjectAssignmentID != nil {
		pa, err := s.repo.FindProjectAssignment(ctx, a.TenantID, *a.ProjectAssignmentID)
		if err != nil {
			return badRequestIfMissing(err, "Project assignment not found")
		}
		if pa.UserID != a.UserID {
			return apperror.BadRequest("Project assignment belongs to a different user")
		}
		if !model.Within(a.StartDate, a.EndDate, pa.StartDate, pa.EndDate) {
			return apperror.BadRequest("Assignment dates must fall within the project assignment dates")
		}
	}

	overlap, err := s.repo.HasActiveOverlap(ctx, a.TenantID, a.UserID, a.WbsElementID, a.StartDate, a.EndDate, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return apperror.BadRequest("Person already has an active assignment on this WBS element for an overlapping period")
	}
	return nil
}

func (s *AssignmentService) historyRow(a *model.Assignment, userID uuid.UUID, notes string) (*model.AssignmentHistory, error) {
	snapshot, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return &model.AssignmentHistory{
		TenantID:        a.TenantID,
		ChangedByUserID: userID,
		ChangedAt:       s.now().UTC(),
		Status:          a.Status,
		Notes:           notes,
		Snapshot:        snapshot,
	}, nil
}
