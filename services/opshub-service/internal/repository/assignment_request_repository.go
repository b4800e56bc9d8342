package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// AssignmentRequestFilter narrows an assignment request listing
type AssignmentRequestFilter struct {
	Status             string
	ProjectID          *uuid.UUID
	RequestedForUserID *uuid.UUID
}

type AssignmentRequestRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter AssignmentRequestFilter) ([]model.AssignmentRequest, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.AssignmentRequest, error)
	FindProject(ctx context.Context, tenantID, projectID uuid.UUID) (*model.Project, error)
	FindWbs(ctx context.Context, tenantID, wbsID uuid.UUID) (*model.WbsElement, error)
	FindGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*model.Group, error)
	EnsureDefaultGroup(ctx context.Context, tenantID uuid.UUID) (*model.Group, error)
	GroupMemberUserIDs(ctx context.Context, tenantID, groupID uuid.UUID) ([]uuid.UUID, error)
	Create(ctx context.Context, request *model.AssignmentRequest) error
	// Approve resolves the request while it is still Pending, creates assignment when not nil
	// and links it to the request, and writes history when not nil, all in one transaction.
	// ErrNotPending means the request was resolved concurrently and nothing was written.
	Approve(ctx context.Context, request *model.AssignmentRequest, assignment *model.Assignment, history *model.AssignmentHistory) error
	Reject(ctx context.Context, request *model.AssignmentRequest, history *model.AssignmentHistory) error
	Cancel(ctx context.Context, request *model.AssignmentRequest) error
}

type assignmentRequestRepository struct {
	db *gorm.DB
}

func NewAssignmentRequestRepository(db *gorm.DB) AssignmentRequestRepository {
	return &assignmentRequestRepository{db: db}
}

func (r *assignmentRequestRepository) List(ctx context.Context, tenantID uuid.UUID, filter AssignmentRequestFilter) ([]model.AssignmentRequest, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.RequestedForUserID != nil {
		query = query.Where("requested_for_user_id = ?", *filter.RequestedForUserID)
	}

	var requests []model.AssignmentRequest
	if err := query.Preload("Project").Preload("WbsElement").Order("created_at desc").Find(&requests).Error; err != nil {
		return nil, errors.Wrap(err, "list assignment requests")
	}
	return requests, nil
}

func (r *assignmentRequestRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.AssignmentRequest, error) {
	var request model.AssignmentRequest
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("WbsElement").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&request).Error
	if err != nil {
		return nil, errors.Wrap(err, "get assignment request")
	}
	return &request, nil
}

func (r *assignmentRequestRepository) FindProject(ctx context.Context, tenantID, projectID uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", projectID, tenantID).First(&project).Error; err != nil {
		return nil, errors.Wrap(err, "find project")
	}
	return &project, nil
}

func (r *assignmentRequestRepository) FindWbs(ctx context.Context, tenantID, wbsID uuid.UUID) (*model.WbsElement, error) {
	var wbs model.WbsElement
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", wbsID, tenantID).First(&wbs).Error; err != nil {
		return nil, errors.Wrap(err, "find wbs element")
	}
	return &wbs, nil
}

func (r *assignmentRequestRepository) FindGroup(ctx context.Context, tenantID, groupID uuid.UUID) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", groupID, tenantID).First(&group).Error; err != nil {
		return nil, errors.Wrap(err, "find group")
	}
	return &group, nil
}

// EnsureDefaultGroup returns the tenant's System Administrators group, creating it when missing
func (r *assignmentRequestRepository) EnsureDefaultGroup(ctx context.Context, tenantID uuid.UUID) (*model.Group, error) {
	group := model.Group{
		Base:     model.Base{TenantID: tenantID},
		Name:     model.DefaultApproverGroupName,
		IsActive: true,
	}
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ?", tenantID, model.DefaultApproverGroupName).
		FirstOrCreate(&group).Error
	if err != nil {
		return nil, errors.Wrap(err, "ensure default approver group")
	}
	return &group, nil
}

func (r *assignmentRequestRepository) GroupMemberUserIDs(ctx context.Context, tenantID, groupID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&model.GroupMember{}).
		Where("tenant_id = ? AND group_id = ?", tenantID, groupID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "list group members")
	}
	return ids, nil
}

func (r *assignmentRequestRepository) Create(ctx context.Context, request *model.AssignmentRequest) error {
	return errors.Wrap(r.db.WithContext(ctx).Omit("Project", "WbsElement").Create(request).Error, "create assignment request")
}

func (r *assignmentRequestRepository) Approve(ctx context.Context, request *model.AssignmentRequest, assignment *model.Assignment, history *model.AssignmentHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolvePending(tx, request); err != nil {
			return err
		}
		if assignment != nil {
			if err := tx.Omit("WbsElement").Create(assignment).Error; err != nil {
				return errors.Wrap(err, "create assignment")
			}
			request.AssignmentID = &assignment.ID
			if err := tx.Model(&model.AssignmentRequest{}).
				Where("id = ? AND tenant_id = ?", request.ID, request.TenantID).
				Update("assignment_id", assignment.ID).Error; err != nil {
				return errors.Wrap(err, "link assignment")
			}
		}
		if history != nil {
			history.AssignmentID = request.AssignmentID
			history.AssignmentRequestID = &request.ID
			if err := tx.Create(history).Error; err != nil {
				return errors.Wrap(err, "create assignment history")
			}
		}
		return nil
	})
}

func (r *assignmentRequestRepository) Reject(ctx context.Context, request *model.AssignmentRequest, history *model.AssignmentHistory) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolvePending(tx, request); err != nil {
			return err
		}
		history.AssignmentRequestID = &request.ID
		return errors.Wrap(tx.Create(history).Error, "create assignment history")
	})
}

func (r *assignmentRequestRepository) Cancel(ctx context.Context, request *model.AssignmentRequest) error {
	return resolvePending(r.db.WithContext(ctx), request)
}

// resolvePending writes the request's resolution only while the stored row is still Pending
func resolvePending(tx *gorm.DB, request *model.AssignmentRequest) error {
	result := tx.Model(&model.AssignmentRequest{}).
		Where("id = ? AND tenant_id = ? AND status = ?", request.ID, request.TenantID, model.RequestPending).
		Updates(map[string]interface{}{
			"status":              request.Status,
			"approved_by_user_id": request.ApprovedByUserID,
			"resolved_at":         request.ResolvedAt,
			"notes":               request.Notes,
			"updated_by_user_id":  request.UpdatedByUserID,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "resolve assignment request")
	}
	if result.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}
