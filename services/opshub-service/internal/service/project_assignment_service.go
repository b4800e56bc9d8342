package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
)

// ProjectAssignmentInput carries the editable project assignment fields
type ProjectAssignmentInput struct {
	UserID    *uuid.UUID
	ProjectID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Notes     *string
}

type ProjectAssignmentService struct {
	repo     repository.ProjectAssignmentRepository
	projects repository.ProjectRepository
	now      Clock
}

func NewProjectAssignmentService(repo repository.ProjectAssignmentRepository, projects repository.ProjectRepository) *ProjectAssignmentService {
	return &ProjectAssignmentService{repo: repo, projects: projects, now: time.Now}
}

func (s *ProjectAssignmentService) List(ctx context.Context, tenantID uuid.UUID, filter repository.ProjectAssignmentFilter) ([]model.ProjectAssignment, error) {
	return s.repo.List(ctx, tenantID, filter)
}

func (s *ProjectAssignmentService) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error) {
	pa, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Project assignment not found")
	}
	return pa, nil
}

func (s *ProjectAssignmentService) Create(ctx context.Context, actor Actor, in ProjectAssignmentInput) (*model.ProjectAssignment, error) {
	if in.UserID == nil || *in.UserID == uuid.Nil || in.ProjectID == nil || *in.ProjectID == uuid.Nil {
		return nil, apperror.BadRequest("UserId and ProjectId are required")
	}
	if in.StartDate == nil {
		return nil, apperror.BadRequest("Start date is required")
	}

	project, err := s.projects.Get(ctx, actor.TenantID, *in.ProjectID)
	if err != nil {
		return nil, badRequestIfMissing(err, "Project not found")
	}

	pa := &model.ProjectAssignment{
		Base:              model.Base{TenantID: actor.TenantID},
		UserID:            *in.UserID,
		ProjectID:         project.ID,
		StartDate:         *in.StartDate,
		EndDate:           in.EndDate,
		Status:            model.AssignmentPendingApproval,
		RequestedByUserID: &actor.UserID,
	}
	if in.Notes != nil {
		pa.Notes = *in.Notes
	}

	if err := s.validateRange(ctx, pa, project, nil); err != nil {
		return nil, err
	}

	pa.Touch(actor.UserID)
	if err := s.repo.Create(ctx, pa); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("project_assignments", "create")
	return pa, nil
}

func (s *ProjectAssignmentService) Update(ctx context.Context, actor Actor, id uuid.UUID, in ProjectAssignmentInput) (*model.ProjectAssignment, error) {
	pa, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Project assignment not found")
	}
	project, err := s.projects.Get(ctx, actor.TenantID, pa.ProjectID)
	if err != nil {
		return nil, badRequestIfMissing(err, "Project not found")
	}

	if in.StartDate != nil {
		pa.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		pa.EndDate = in.EndDate
	}
	if in.Notes != nil {
		pa.Notes = *in.Notes
	}

	if err := s.validateRange(ctx, pa, project, &pa.ID); err != nil {
		return nil, err
	}

	children, err := s.repo.ChildAssignments(ctx, actor.TenantID, pa.ID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		if !model.Within(child.StartDate, child.EndDate, pa.StartDate, pa.EndDate) {
			return nil, apperror.BadRequest("Existing WBS assignments must fall within the project assignment dates")
		}
	}

	pa.Touch(actor.UserID)
	pa.WbsAssignments = nil
	pa.Project = nil
	if err := s.repo.Update(ctx, pa); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("project_assignments", "update")
	return pa, nil
}

// Approve activates a pending project assignment
func (s *ProjectAssignmentService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*model.ProjectAssignment, error) {
	pa, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Project assignment not found")
	}
	if pa.Status != model.AssignmentPendingApproval {
		return nil, apperror.BadRequest("Only pending project assignments can be approved")
	}

	approved := s.now().UTC()
	pa.Status = model.AssignmentActive
	pa.ApprovedByUserID = &actor.UserID
	pa.ApprovedAt = &approved
	pa.Touch(actor.UserID)
	pa.WbsAssignments = nil
	pa.Project = nil
	if err := s.repo.Update(ctx, pa); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("project_assignments", "approve")
	return pa, nil
}

// Delete soft deletes the project assignment once it has no active WBS assignments
func (s *ProjectAssignmentService) Delete(ctx context.Context, actor Actor, id uuid.UUID, reason string) error {
	active := model.AssignmentActive
	count, err := s.repo.CountChildren(ctx, actor.TenantID, id, &active)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.BadRequest("Cannot delete project assignment with active WBS assignments. Please end or remove them first.")
	}
	if err := s.repo.SoftDelete(ctx, actor.TenantID, id, actor.UserID, reason); err != nil {
		return notFound(err, "Project assignment not found")
	}
	prometheus.RecordOperation("project_assignments", "delete")
	return nil
}

func (s *ProjectAssignmentService) Restore(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.repo.Restore(ctx, actor.TenantID, id); err != nil {
		return notFound(err, "Deleted project assignment not found")
	}
	prometheus.RecordOperation("project_assignments", "restore")
	return nil
}

// HardDelete archives and removes the project assignment. Any WBS assignment still
// referencing it, deleted or not, blocks the operation.
func (s *ProjectAssignmentService) HardDelete(ctx context.Context, actor Actor, id uuid.UUID) error {
	count, err := s.repo.CountChildren(ctx, actor.TenantID, id, nil)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.BadRequest("Cannot permanently delete project assignment that still has WBS assignments")
	}
	if err := s.repo.HardDelete(ctx, actor.TenantID, id, actor.UserID); err != nil {
		return notFound(err, "Project assignment not found")
	}
	prometheus.RecordOperation("project_assignments", "hard_delete")
	return nil
}

func (s *ProjectAssignmentService) validateRange(ctx context.Context, pa *model.ProjectAssignment, project *model.Project, excludeID *uuid.UUID) error {
	if pa.EndDate != nil && pa.EndDate.Before(pa.StartDate) {
		return apperror.BadRequest("End date must not be before start date")
	}
	if !model.Within(pa.StartDate, pa.EndDate, project.StartDate, project.EndDate) {
		return apperror.BadRequest("Assignment dates must fall within the project dates")
	}

	overlap, err := s.repo.HasActiveOverlap(ctx, pa.TenantID, pa.UserID, pa.ProjectID, pa.StartDate, pa.EndDate, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return apperror.BadRequest("User already has an active assignment on this project for an overlapping period")
	}
	return nil
}
