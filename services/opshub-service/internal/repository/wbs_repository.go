package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// WbsFilter narrows a WBS listing
type WbsFilter struct {
	ProjectID      *uuid.UUID
	OwnerID        *uuid.UUID
	Type           string
	ApprovalStatus string
	IncludeHistory bool
}

type WbsRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter WbsFilter) ([]model.WbsElement, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.WbsElement, error)
	ProjectExists(ctx context.Context, tenantID, projectID uuid.UUID) (bool, error)
	CodeExists(ctx context.Context, tenantID, projectID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error)
	CreateWithHistory(ctx context.Context, wbs *model.WbsElement, history *model.WbsChangeHistory) error
	UpdateWithHistory(ctx context.Context, wbs *model.WbsElement, history *model.WbsChangeHistory) error
	History(ctx context.Context, tenantID, wbsID uuid.UUID) ([]model.WbsChangeHistory, error)
	PendingApproval(ctx context.Context, tenantID uuid.UUID, approverID *uuid.UUID) ([]model.WbsElement, error)
}

type wbsRepository struct {
	db *gorm.DB
}

func NewWbsRepository(db *gorm.DB) WbsRepository {
	return &wbsRepository{db: db}
}

func (r *wbsRepository) List(ctx context.Context, tenantID uuid.UUID, filter WbsFilter) ([]model.WbsElement, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_user_id = ?", *filter.OwnerID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.ApprovalStatus != "" {
		query = query.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.IncludeHistory {
		query = query.Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at desc")
		})
	}

	var elements []model.WbsElement
	if err := query.Order("code asc").Find(&elements).Error; err != nil {
		return nil, errors.Wrap(err, "list wbs elements")
	}
	return elements, nil
}

func (r *wbsRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.WbsElement, error) {
	var wbs model.WbsElement
	err := r.db.WithContext(ctx).
		Preload("Project").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&wbs).Error
	if err != nil {
		return nil, errors.Wrap(err, "get wbs element")
	}
	return &wbs, nil
}

func (r *wbsRepository) ProjectExists(ctx context.Context, tenantID, projectID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND tenant_id = ?", projectID, tenantID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check project")
	}
	return count > 0, nil
}

func (r *wbsRepository) CodeExists(ctx context.Context, tenantID, projectID uuid.UUID, code string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.WbsElement{}).
		Where("tenant_id = ? AND project_id = ? AND code = ?", tenantID, projectID, code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check wbs code")
	}
	return count > 0, nil
}

func (r *wbsRepository) CreateWithHistory(ctx context.Context, wbs *model.WbsElement, history *model.WbsChangeHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Project", "History").Create(wbs).Error; err != nil {
			return errors.Wrap(err, "create wbs element")
		}
		history.WbsElementID = wbs.ID
		return errors.Wrap(tx.Create(history).Error, "create wbs history")
	})
}

func (r *wbsRepository) UpdateWithHistory(ctx context.Context, wbs *model.WbsElement, history *model.WbsChangeHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Project", "History").Save(wbs).Error; err != nil {
			return errors.Wrap(err, "update wbs element")
		}
		history.WbsElementID = wbs.ID
		return errors.Wrap(tx.Create(history).Error, "create wbs history")
	})
}

func (r *wbsRepository) History(ctx context.Context, tenantID, wbsID uuid.UUID) ([]model.WbsChangeHistory, error) {
	var history []model.WbsChangeHistory
	err := r.db.WithContext(ctx).
		Where("wbs_element_id = ? AND tenant_id = ?", wbsID, tenantID).
		Order("changed_at desc").
		Find(&history).Error
	if err != nil {
		return nil, errors.Wrap(err, "list wbs history")
	}
	return history, nil
}

func (r *wbsRepository) PendingApproval(ctx context.Context, tenantID uuid.UUID, approverID *uuid.UUID) ([]model.WbsElement, error) {
	query := r.db.WithContext(ctx).
		Preload("Project").
		Where("tenant_id = ? AND approval_status = ?", tenantID, model.WbsApprovalPendingApproval)
	if approverID != nil {
		query = query.Where("approver_user_id = ?", *approverID)
	}

	var elements []model.WbsElement
	if err := query.Order("submitted_at asc").Find(&elements).Error; err != nil {
		return nil, errors.Wrap(err, "list pending wbs elements")
	}
	return elements, nil
}
