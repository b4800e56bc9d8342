package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

type PermissionRepository interface {
	// ForRoles returns the global and tenant-specific rows granted to any of roles
	ForRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]model.RolePermission, error)
	HasGrant(ctx context.Context, tenantID uuid.UUID, roles []string, resource, action string) (bool, error)
	CountGlobal(ctx context.Context) (int64, error)
	CreateAll(ctx context.Context, permissions []model.RolePermission) error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) scoped(ctx context.Context, tenantID uuid.UUID, roles []string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.RolePermission{}).
		Where("tenant_id IS NULL OR tenant_id = ?", tenantID).
		Where("role IN ?", roles)
}

func (r *permissionRepository) ForRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]model.RolePermission, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var permissions []model.RolePermission
	if err := r.scoped(ctx, tenantID, roles).Order("resource, action").Find(&permissions).Error; err != nil {
		return nil, errors.Wrap(err, "list role permissions")
	}
	return permissions, nil
}

func (r *permissionRepository) HasGrant(ctx context.Context, tenantID uuid.UUID, roles []string, resource, action string) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var count int64
	err := r.scoped(ctx, tenantID, roles).
		Where("resource = ? AND action = ?", resource, action).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check role permission")
	}
	return count > 0, nil
}

func (r *permissionRepository) CountGlobal(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RolePermission{}).Where("tenant_id IS NULL").Count(&count).Error
	return count, errors.Wrap(err, "count global permissions")
}

func (r *permissionRepository) CreateAll(ctx context.Context, permissions []model.RolePermission) error {
	return errors.Wrap(r.db.WithContext(ctx).CreateInBatches(permissions, 100).Error, "seed role permissions")
}
