package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// ProjectAssignmentFilter narrows a project assignment listing
type ProjectAssignmentFilter struct {
	UserID         *uuid.UUID
	ProjectID      *uuid.UUID
	Status         string
	IncludeDeleted bool
}

type ProjectAssignmentRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter ProjectAssignmentFilter) ([]model.ProjectAssignment, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error)
	HasActiveOverlap(ctx context.Context, tenantID, userID, projectID uuid.UUID, start time.Time, end *time.Time, excludeID *uuid.UUID) (bool, error)
	ChildAssignments(ctx context.Context, tenantID, projectAssignmentID uuid.UUID) ([]model.Assignment, error)
	CountChildren(ctx context.Context, tenantID, projectAssignmentID uuid.UUID, status *model.AssignmentStatus) (int64, error)
	Create(ctx context.Context, pa *model.ProjectAssignment) error
	Update(ctx context.Context, pa *model.ProjectAssignment) error
	SoftDelete(ctx context.Context, tenantID, id, userID uuid.UUID, reason string) error
	Restore(ctx context.Context, tenantID, id uuid.UUID) error
	HardDelete(ctx context.Context, tenantID, id, userID uuid.UUID) error
}

type projectAssignmentRepository struct {
	db *gorm.DB
}

func NewProjectAssignmentRepository(db *gorm.DB) ProjectAssignmentRepository {
	return &projectAssignmentRepository{db: db}
}

func (r *projectAssignmentRepository) List(ctx context.Context, tenantID uuid.UUID, filter ProjectAssignmentFilter) ([]model.ProjectAssignment, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !filter.IncludeDeleted {
		query = query.Scopes(notDeleted)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assignments []model.ProjectAssignment
	if err := query.Preload("Project").Order("start_date asc").Find(&assignments).Error; err != nil {
		return nil, errors.Wrap(err, "list project assignments")
	}
	return assignments, nil
}

func (r *projectAssignmentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error) {
	var pa model.ProjectAssignment
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("WbsAssignments", notDeleted).
		Where("id = ? AND tenant_id = ? AND is_deleted = ?", id, tenantID, false).
		First(&pa).Error
	if err != nil {
		return nil, errors.Wrap(err, "get project assignment")
	}
	return &pa, nil
}

// HasActiveOverlap reports whether another Active project assignment of the user on the
// project intersects [start, end]. A nil end is open-ended.
func (r *projectAssignmentRepository) HasActiveOverlap(ctx context.Context, tenantID, userID, projectID uuid.UUID, start time.Time, end *time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.ProjectAssignment{}).
		Scopes(notDeleted).
		Where("tenant_id = ? AND user_id = ? AND project_id = ? AND status = ?", tenantID, userID, projectID, model.AssignmentActive).
		Where("end_date IS NULL OR end_date >= ?", start)
	if end != nil {
		query = query.Where("start_date <= ?", *end)
	}
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check project assignment overlap")
	}
	return count > 0, nil
}

func (r *projectAssignmentRepository) ChildAssignments(ctx context.Context, tenantID, projectAssignmentID uuid.UUID) ([]model.Assignment, error) {
	var children []model.Assignment
	err := r.db.WithContext(ctx).
		Scopes(notDeleted).
		Where("tenant_id = ? AND project_assignment_id = ?", tenantID, projectAssignmentID).
		Find(&children).Error
	if err != nil {
		return nil, errors.Wrap(err, "list child assignments")
	}
	return children, nil
}

// CountChildren counts WBS assignments under the project assignment, including soft-deleted
// ones when status is nil
func (r *projectAssignmentRepository) CountChildren(ctx context.Context, tenantID, projectAssignmentID uuid.UUID, status *model.AssignmentStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Assignment{}).
		Where("tenant_id = ? AND project_assignment_id = ?", tenantID, projectAssignmentID)
	if status != nil {
		query = query.Scopes(notDeleted).Where("status = ?", *status)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count child assignments")
	}
	return count, nil
}

func (r *projectAssignmentRepository) Create(ctx context.Context, pa *model.ProjectAssignment) error {
	return errors.Wrap(r.db.WithContext(ctx).Omit("Project", "WbsAssignments").Create(pa).Error, "create project assignment")
}

func (r *projectAssignmentRepository) Update(ctx context.Context, pa *model.ProjectAssignment) error {
	return errors.Wrap(r.db.WithContext(ctx).Omit("Project", "WbsAssignments").Save(pa).Error, "update project assignment")
}

func (r *projectAssignmentRepository) SoftDelete(ctx context.Context, tenantID, id, userID uuid.UUID, reason string) error {
	return SoftDelete(ctx, r.db, &model.ProjectAssignment{}, tenantID, id, userID, reason)
}

func (r *projectAssignmentRepository) Restore(ctx context.Context, tenantID, id uuid.UUID) error {
	return Restore(ctx, r.db, &model.ProjectAssignment{}, tenantID, id)
}

func (r *projectAssignmentRepository) HardDelete(ctx context.Context, tenantID, id, userID uuid.UUID) error {
	return HardDelete(ctx, r.db, &model.ProjectAssignment{}, model.EntityProjectAssignment, tenantID, id, userID)
}
