package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/authen-service/prometheus"
	"gorm.io/gorm"
)

// TenantService manages tenants and their memberships
type TenantService struct {
	db    *gorm.DB
	store *identity.Store
}

func NewTenantService(db *gorm.DB, store *identity.Store) *TenantService {
	return &TenantService{db: db, store: store}
}

// Create makes the caller the tenant's admin and switches their default tenant to it
func (s *TenantService) Create(ctx context.Context, caller Caller, name, description string, settings map[string]interface{}) (*identity.Tenant, error) {
	prometheus.RecordTenantOperation("create")
	defer prometheus.TrackDBOperation("insert")(time.Now())

	tenant := &identity.Tenant{
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     caller.UserID,
		IsActive:    true,
		Settings:    settings,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return err
		}
		if err := clearDefault(tx, caller.UserID); err != nil {
			return err
		}
		return tx.Create(&identity.TenantMembership{
			UserID:    caller.UserID,
			TenantID:  tenant.ID,
			Roles:     []string{identity.RoleTenantAdmin},
			IsDefault: true,
			IsActive:  true,
		}).Error
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperror.Conflict("tenant name already exists")
		}
		return nil, errors.Wrap(err, "create tenant")
	}
	return tenant, nil
}

// List returns the caller's active memberships, default tenant first
func (s *TenantService) List(ctx context.Context, caller Caller) ([]TenantSummary, error) {
	prometheus.RecordTenantOperation("list")
	defer prometheus.TrackDBOperation("query")(time.Now())

	var memberships []identity.TenantMembership
	err := s.db.WithContext(ctx).
		Preload("Tenant").
		Where("user_id = ? AND is_active = ?", caller.UserID, true).
		Order("is_default desc, created_at asc").
		Find(&memberships).Error
	if err != nil {
		return nil, errors.Wrap(err, "list memberships")
	}

	out := make([]TenantSummary, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, summarize(m))
	}
	return out, nil
}

// Get returns the tenant to its owner, its members and system admins
func (s *TenantService) Get(ctx context.Context, caller Caller, tenantID uuid.UUID) (*identity.Tenant, error) {
	prometheus.RecordTenantOperation("access")
	tenant, err := s.tenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if caller.IsSystemAdmin || tenant.OwnerID == caller.UserID {
		return tenant, nil
	}
	if _, err := s.store.ActiveMembership(ctx, caller.UserID, tenantID); err != nil {
		if database.IsNotFound(err) {
			prometheus.RecordAuthError("tenant_access_denied")
			return nil, apperror.Forbidden("access denied")
		}
		return nil, err
	}
	return tenant, nil
}

// SetDefault marks tenantID as the caller's default tenant
func (s *TenantService) SetDefault(ctx context.Context, caller Caller, tenantID uuid.UUID) error {
	prometheus.RecordTenantOperation("set_default")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&identity.TenantMembership{}).
			Where("user_id = ? AND tenant_id = ? AND is_active = ?", caller.UserID, tenantID, true).
			Update("is_default", true)
		if res.Error != nil {
			return errors.Wrap(res.Error, "set default tenant")
		}
		if res.RowsAffected == 0 {
			prometheus.RecordAuthError("tenant_access_denied")
			return apperror.Forbidden("access denied to requested tenant")
		}
		return tx.Model(&identity.TenantMembership{}).
			Where("user_id = ? AND tenant_id <> ?", caller.UserID, tenantID).
			Update("is_default", false).Error
	})
}

// AddMember adds the user with email to the tenant. An existing membership is reactivated with
// the new roles. The bool result reports whether a membership was created.
func (s *TenantService) AddMember(ctx context.Context, caller Caller, tenantID uuid.UUID, email string, roles []string) (*identity.TenantMembership, bool, error) {
	prometheus.RecordTenantOperation("add_user")
	roles, err := normalizeRoles(roles)
	if err != nil {
		return nil, false, err
	}
	if err := s.authorizeAdmin(ctx, caller, tenantID); err != nil {
		return nil, false, err
	}
	if _, err := s.tenant(ctx, tenantID); err != nil {
		return nil, false, err
	}

	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, false, apperror.NotFound("user not found")
		}
		return nil, false, err
	}

	defer prometheus.TrackDBOperation("upsert")(time.Now())
	var membership identity.TenantMembership
	err = s.db.WithContext(ctx).Where("user_id = ? AND tenant_id = ?", user.ID, tenantID).First(&membership).Error
	switch {
	case err == nil:
		membership.Roles = roles
		membership.IsActive = true
		if err := s.db.WithContext(ctx).Save(&membership).Error; err != nil {
			return nil, false, errors.Wrap(err, "update membership")
		}
		return &membership, false, nil
	case !database.IsNotFound(err):
		return nil, false, errors.Wrap(err, "find membership")
	}

	membership = identity.TenantMembership{
		UserID:   user.ID,
		TenantID: tenantID,
		Roles:    roles,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&membership).Error; err != nil {
		return nil, false, errors.Wrap(err, "create membership")
	}
	return &membership, true, nil
}

// UpdateRoles replaces the roles of a member
func (s *TenantService) UpdateRoles(ctx context.Context, caller Caller, tenantID, userID uuid.UUID, roles []string) (*identity.TenantMembership, error) {
	prometheus.RecordTenantOperation("update_roles")
	roles, err := normalizeRoles(roles)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAdmin(ctx, caller, tenantID); err != nil {
		return nil, err
	}

	var membership identity.TenantMembership
	if err := s.db.WithContext(ctx).Where("user_id = ? AND tenant_id = ?", userID, tenantID).First(&membership).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("membership not found")
		}
		return nil, errors.Wrap(err, "find membership")
	}
	membership.Roles = roles
	if err := s.db.WithContext(ctx).Save(&membership).Error; err != nil {
		return nil, errors.Wrap(err, "update membership")
	}
	return &membership, nil
}

// RemoveMember deletes a membership. The tenant owner cannot be removed.
func (s *TenantService) RemoveMember(ctx context.Context, caller Caller, tenantID, userID uuid.UUID) error {
	prometheus.RecordTenantOperation("remove_user")
	if err := s.authorizeAdmin(ctx, caller, tenantID); err != nil {
		return err
	}
	tenant, err := s.tenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.OwnerID == userID {
		return apperror.BadRequest("the tenant owner cannot be removed")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID).
		Delete(&identity.TenantMembership{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete membership")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("membership not found")
	}
	return nil
}

func (s *TenantService) authorizeAdmin(ctx context.Context, caller Caller, tenantID uuid.UUID) error {
	if caller.IsSystemAdmin {
		return nil
	}
	if _, err := s.store.VerifyUserAccess(ctx, caller.UserID, tenantID, identity.RoleTenantAdmin); err != nil {
		prometheus.RecordAuthError("tenant_permission_denied")
		return err
	}
	return nil
}

func (s *TenantService) tenant(ctx context.Context, tenantID uuid.UUID) (*identity.Tenant, error) {
	var tenant identity.Tenant
	if err := s.db.WithContext(ctx).Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperror.NotFound("tenant not found")
		}
		return nil, errors.Wrap(err, "find tenant")
	}
	return &tenant, nil
}

func clearDefault(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&identity.TenantMembership{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

// normalizeRoles defaults to Employee and rejects unknown roles
func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return []string{identity.RoleEmployee}, nil
	}
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if !identity.IsValidRole(r) {
			return nil, apperror.BadRequest("Invalid role: %s", r)
		}
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out, nil
}
