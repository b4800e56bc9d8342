// Package service implements the opshub business rules on top of the repositories.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/identity"
)

// Actor is the authenticated caller of an operation inside its current tenant
type Actor struct {
	UserID        uuid.UUID
	TenantID      uuid.UUID
	Roles         []string
	IsSystemAdmin bool
}

// HasAnyRole reports whether the actor is a system admin or holds one of roles
func (a Actor) HasAnyRole(roles ...string) bool {
	if a.IsSystemAdmin {
		return true
	}
	for _, have := range a.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// AccessVerifier checks a user's membership and roles in a tenant
type AccessVerifier interface {
	VerifyUserAccess(ctx context.Context, userID, tenantID uuid.UUID, requiredRoles ...string) (*identity.Access, error)
}

// UserDirectory resolves users and memberships owned by the identity service
type UserDirectory interface {
	// FindMember and FindMemberByEmail only see users with an active membership in the tenant
	FindMember(ctx context.Context, tenantID, userID uuid.UUID) (*identity.User, error)
	FindMemberByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*identity.User, error)
	UsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]identity.User, error)
	FirstActiveMembership(ctx context.Context, userID uuid.UUID) (*identity.TenantMembership, error)
}

// Clock is replaced in tests
type Clock func() time.Time

// notFound turns a missing row into a 404 with msg and passes any other error through
func notFound(err error, msg string) error {
	if database.IsNotFound(err) {
		return apperror.NotFound("%s", msg)
	}
	return err
}

// badRequestIfMissing turns a missing referenced row into a 400 with msg
func badRequestIfMissing(err error, msg string) error {
	if database.IsNotFound(err) {
		return apperror.BadRequest("%s", msg)
	}
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
