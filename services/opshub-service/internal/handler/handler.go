// Package handler exposes the opshub service over HTTP.
package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/logger"
	gomiddleware "github.com/suteetoe/opshub/gomicro/middleware"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

const dateLayout = "2006-01-02"

// Date accepts either yyyy-mm-dd or RFC3339 in JSON bodies
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Ptr returns nil for an unset date
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}

// Router wraps route registration with the permission middleware
type Router struct {
	Group      *echo.Group
	Permission func(resource, action string) echo.MiddlewareFunc
}

func (r Router) route(method, path, resource, action string, h echo.HandlerFunc) {
	var mw []echo.MiddlewareFunc
	if r.Permission != nil && resource != "" {
		mw = append(mw, r.Permission(resource, action))
	}
	r.Group.Add(method, path, h, mw...)
}

// actorResolver builds the tenant actor of the current request
type actorResolver struct {
	access service.AccessVerifier
}

func (a actorResolver) actor(c echo.Context) (service.Actor, error) {
	userID, ok := gomiddleware.UserID(c)
	if !ok {
		return service.Actor{}, apperror.Unauthorized("authentication required")
	}
	tenantID, _ := gomiddleware.TenantID(c)
	if tenantID == uuid.Nil {
		return service.Actor{UserID: userID, IsSystemAdmin: gomiddleware.IsSystemAdmin(c)}, nil
	}
	access, err := a.access.VerifyUserAccess(logger.RequestContext(c), userID, tenantID)
	if err != nil {
		return service.Actor{}, err
	}
	return service.ActorFor(userID, tenantID, access), nil
}

// target resolves the actor and the :id path parameter
func (a actorResolver) target(c echo.Context) (service.Actor, uuid.UUID, error) {
	actor, err := a.actor(c)
	if err != nil {
		return service.Actor{}, uuid.Nil, err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return service.Actor{}, uuid.Nil, err
	}
	return actor, id, nil
}

// legacyIdentity reads the userId and tenantId query parameters used by the older booking and
// assignment endpoints. They default to the token's identity and userId must match the token
// unless the caller is a system admin.
func legacyIdentity(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	tokenUser, ok := gomiddleware.UserID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, apperror.Unauthorized("authentication required")
	}

	userID := tokenUser
	if raw := c.QueryParam("userId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, uuid.Nil, apperror.BadRequest("Invalid userId")
		}
		if parsed != tokenUser && !gomiddleware.IsSystemAdmin(c) {
			return uuid.Nil, uuid.Nil, apperror.Forbidden("userId does not match the authenticated user")
		}
		userID = parsed
	}

	tenantID, _ := gomiddleware.TenantID(c)
	if raw := c.QueryParam("tenantId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, uuid.Nil, apperror.BadRequest("Invalid tenantId")
		}
		claims, _ := gomiddleware.Claims(c)
		if tenantID != parsed && !gomiddleware.IsSystemAdmin(c) && (claims == nil || !claims.HasTenant(parsed)) {
			return uuid.Nil, uuid.Nil, apperror.Forbidden("User does not have access to this tenant")
		}
		tenantID = parsed
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, uuid.Nil, apperror.BadRequest("tenantId is required")
	}
	return userID, tenantID, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.BadRequest("Invalid %s", name)
	}
	return id, nil
}

func queryUUID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperror.BadRequest("Invalid %s", name)
	}
	return &id, nil
}

func queryDate(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, apperror.BadRequest("Invalid %s", name)
	}
	return &t, nil
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.BadRequest("Invalid %s", name)
	}
	return v, nil
}

// dbError maps gorm and postgres errors of the handlers that query the database directly
func dbError(err error, notFoundMsg string) error {
	switch {
	case database.IsNotFound(err):
		return apperror.NotFound("%s", notFoundMsg)
	case database.IsUniqueViolation(err):
		return apperror.Conflict("A record with the same key already exists")
	case database.IsForeignKeyViolation(err):
		return apperror.BadRequest("The record is still referenced by other data")
	}
	return err
}
