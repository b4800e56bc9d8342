package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/logger"
	gomiddleware "github.com/suteetoe/opshub/gomicro/middleware"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
)

// RequireTenantContext rejects requests that did not resolve a tenant
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := gomiddleware.TenantID(c); !ok {
			logger.FromEcho(c).Warn("Missing tenant context")
			prometheus.RecordTenantContextMissing()
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "tenant context required",
				"message": "Please select a tenant before accessing this resource",
			})
		}
		return next(c)
	}
}

// PermissionChecker decides whether a tenant member holds a grant
type PermissionChecker interface {
	Allowed(ctx context.Context, userID, tenantID uuid.UUID, resource, action string) (bool, error)
}

// RequirePermission allows the request when the caller's roles in the current tenant grant
// action on resource
func RequirePermission(checker PermissionChecker, resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if gomiddleware.IsSystemAdmin(c) {
				return next(c)
			}

			log := logger.FromEcho(c)
			userID, _ := gomiddleware.UserID(c)
			tenantID, _ := gomiddleware.TenantID(c)
			allowed, err := checker.Allowed(logger.RequestContext(c), userID, tenantID, resource, action)
			if err != nil {
				log.Error("Permission check failed",
					zap.String("resource", resource),
					zap.String("action", action),
					zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to check permissions"})
			}
			if !allowed {
				log.Warn("Permission denied",
					zap.String("resource", resource),
					zap.String("action", action))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "You do not have permission to perform this action"})
			}
			return next(c)
		}
	}
}
