package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"gorm.io/gorm"
)

// Access is the verified identity of a caller inside a tenant
type Access struct {
	User       User
	Membership *TenantMembership
}

// Roles returns the caller's roles in the tenant
func (a *Access) Roles() []string {
	if a.Membership == nil {
		return nil
	}
	return a.Membership.Roles
}

// HasAnyRole reports whether the caller is a system admin or holds one of roles
func (a *Access) HasAnyRole(roles ...string) bool {
	if a.User.IsSystemAdmin {
		return true
	}
	return a.Membership != nil && a.Membership.HasAnyRole(roles...)
}

// Store reads users and memberships
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindUser returns the user or gorm.ErrRecordNotFound
func (s *Store) FindUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return &user, nil
}

// FindUserByEmail returns the user with the email, case-insensitively
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, errors.Wrap(err, "find user by email")
	}
	return &user, nil
}

// FindMember returns the user when they hold an active membership in the tenant, and
// gorm.ErrRecordNotFound otherwise
func (s *Store) FindMember(ctx context.Context, tenantID, userID uuid.UUID) (*User, error) {
	var user User
	if err := s.members(ctx, tenantID).Where("users.id = ?", userID).First(&user).Error; err != nil {
		return nil, errors.Wrap(err, "find member")
	}
	return &user, nil
}

// FindMemberByEmail is FindMember keyed by a case-insensitive email
func (s *Store) FindMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error) {
	var user User
	if err := s.members(ctx, tenantID).Where("LOWER(users.email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, errors.Wrap(err, "find member by email")
	}
	return &user, nil
}

func (s *Store) members(ctx context.Context, tenantID uuid.UUID) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&User{}).
		Joins("JOIN tenant_memberships ON tenant_memberships.user_id = users.id").
		Where("tenant_memberships.tenant_id = ? AND tenant_memberships.is_active = ?", tenantID, true)
}

// UsersByID loads users keyed by id
func (s *Store) UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]User, error) {
	out := make(map[uuid.UUID]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "load users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ActiveMembership returns the user's active membership in the tenant
func (s *Store) ActiveMembership(ctx context.Context, userID, tenantID uuid.UUID) (*TenantMembership, error) {
	var m TenantMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND tenant_id = ? AND is_active = ?", userID, tenantID, true).
		First(&m).Error
	if err != nil {
		return nil, errors.Wrap(err, "find membership")
	}
	return &m, nil
}

// FirstActiveMembership returns any active membership of the user, default tenant first
func (s *Store) FirstActiveMembership(ctx context.Context, userID uuid.UUID) (*TenantMembership, error) {
	var m TenantMembership
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("is_default desc, created_at asc").
		First(&m).Error
	if err != nil {
		return nil, errors.Wrap(err, "find membership")
	}
	return &m, nil
}

// VerifyUserAccess checks that the user exists and is active, belongs to the tenant and holds
// one of requiredRoles when any are given. System admins skip the membership and role checks;
// their Access then carries no Membership.
func (s *Store) VerifyUserAccess(ctx context.Context, userID, tenantID uuid.UUID, requiredRoles ...string) (*Access, error) {
	user, err := s.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Forbidden("User not found or inactive")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("User not found or inactive")
	}

	access := &Access{User: *user}

	membership, err := s.ActiveMembership(ctx, userID, tenantID)
	switch {
	case err == nil:
		access.Membership = membership
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	case user.IsSystemAdmin:
		// system admins may act in any tenant
		return access, nil
	default:
		return nil, apperror.Forbidden("User does not have access to this tenant")
	}

	if user.IsSystemAdmin || len(requiredRoles) == 0 {
		return access, nil
	}

	if !membership.HasAnyRole(requiredRoles...) {
		return nil, apperror.Forbidden("User does not have the required role for this operation")
	}

	return access, nil
}
