package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// AssignmentFilter narrows a WBS assignment listing
type AssignmentFilter struct {
	PersonID            *uuid.UUID
	WbsElementID        *uuid.UUID
	ProjectAssignmentID *uuid.UUID
	Status              string
}

type AssignmentRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter AssignmentFilter) ([]model.Assignment, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Assignment, error)
	FindWbs(ctx context.Context, tenantID, wbsID uuid.UUID) (*model.WbsElement, error)
	FindProjectAssignment(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error)
	HasActiveOverlap(ctx context.Context, tenantID, userID, wbsID uuid.UUID, start time.Time, end *time.Time, excludeID *uuid.UUID) (bool, error)
	CreateWithHistory(ctx context.Context, assignment *model.Assignment, history *model.AssignmentHistory) error
	UpdateWithHistory(ctx context.Context, assignment *model.Assignment, history *model.AssignmentHistory) error
	History(ctx context.Context, tenantID, assignmentID uuid.UUID) ([]model.AssignmentHistory, error)
	SoftDelete(ctx context.Context, tenantID, id, userID uuid.UUID, reason string) error
	Restore(ctx context.Context, tenantID, id uuid.UUID) error
	HardDelete(ctx context.Context, tenantID, id, userID uuid.UUID) error
}

type assignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) List(ctx context.Context, tenantID uuid.UUID, filter AssignmentFilter) ([]model.Assignment, error) {
	query := r.db.WithContext(ctx).Scopes(notDeleted).Where("tenant_id = ?", tenantID)
	if filter.PersonID != nil {
		query = query.Where("user_id = ?", *filter.PersonID)
	}
	if filter.WbsElementID != nil {
		query = query.Where("wbs_element_id = ?", *filter.WbsElementID)
	}
	if filter.ProjectAssignmentID != nil {
		query = query.Where("project_assignment_id = ?", *filter.ProjectAssignmentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assignments []model.Assignment
	if err := query.Preload("WbsElement").Order("start_date asc").Find(&assignments).Error; err != nil {
		return nil, errors.Wrap(err, "list assignments")
	}
	return assignments, nil
}

func (r *assignmentRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Assignment, error) {
	var assignment model.Assignment
	err := r.db.WithContext(ctx).
		Scopes(notDeleted).
		Preload("WbsElement").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&assignment).Error
	if err != nil {
		return nil, errors.Wrap(err, "get assignment")
	}
	return &assignment, nil
}

func (r *assignmentRepository) FindWbs(ctx context.Context, tenantID, wbsID uuid.UUID) (*model.WbsElement, error) {
	var wbs model.WbsElement
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", wbsID, tenantID).First(&wbs).Error; err != nil {
		return nil, errors.Wrap(err, "find wbs element")
	}
	return &wbs, nil
}

func (r *assignmentRepository) FindProjectAssignment(ctx context.Context, tenantID, id uuid.UUID) (*model.ProjectAssignment, error) {
	var pa model.ProjectAssignment
	err := r.db.WithContext(ctx).
		Scopes(notDeleted).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&pa).Error
	if err != nil {
		return nil, errors.Wrap(err, "find project assignment")
	}
	return &pa, nil
}

// HasActiveOverlap reports whether another Active assignment of the person on the WBS
// element intersects [start, end]
func (r *assignmentRepository) HasActiveOverlap(ctx context.Context, tenantID, userID, wbsID uuid.UUID, start time.Time, end *time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.Assignment{}).
		Scopes(notDeleted).
		Where("tenant_id = ? AND user_id = ? AND wbs_element_id = ? AND status = ?", tenantID, userID, wbsID, model.AssignmentActive).
		Where("end_date IS NULL OR end_date >= ?", start)
	if end != nil {
		query = query.Where("start_date <= ?", *end)
	}
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check assignment overlap")
	}
	return count > 0, nil
}

func (r *assignmentRepository) CreateWithHistory(ctx context.Context, assignment *model.Assignment, history *model.AssignmentHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("WbsElement").Create(assignment).Error; err != nil {
			return errors.Wrap(err, "create assignment")
		}
		history.AssignmentID = &assignment.ID
		return errors.Wrap(tx.Create(history).Error, "create assignment history")
	})
}

func (r *assignmentRepository) UpdateWithHistory(ctx context.Context, assignment *model.Assignment, history *model.AssignmentHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("WbsElement").Save(assignment).Error; err != nil {
			return errors.Wrap(err, "update assignment")
		}
		if history == nil {
			return nil
		}
		history.AssignmentID = &assignment.ID
		return errors.Wrap(tx.Create(history).Error, "create assignment history")
	})
}

func (r *assignmentRepository) History(ctx context.Context, tenantID, assignmentID uuid.UUID) ([]model.AssignmentHistory, error) {
	var history []model.AssignmentHistory
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND assignment_id = ?", tenantID, assignmentID).
		Order("changed_at desc").
		Find(&history).Error
	if err != nil {
		return nil, errors.Wrap(err, "list assignment history")
	}
	return history, nil
}

func (r *assignmentRepository) SoftDelete(ctx context.Context, tenantID, id, userID uuid.UUID, reason string) error {
	return SoftDelete(ctx, r.db, &model.Assignment{}, tenantID, id, userID, reason)
}

func (r *assignmentRepository) Restore(ctx context.Context, tenantID, id uuid.UUID) error {
	return Restore(ctx, r.db, &model.Assignment{}, tenantID, id)
}

// HardDelete removes the assignment and its history rows, archiving the assignment first
func (r *assignmentRepository) HardDelete(ctx context.Context, tenantID, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND assignment_id = ?", tenantID, id).Delete(&model.AssignmentHistory{}).Error; err != nil {
			return errors.Wrap(err, "delete assignment history")
		}
		return HardDelete(ctx, tx, &model.Assignment{}, model.EntityAssignment, tenantID, id, userID)
	})
}
