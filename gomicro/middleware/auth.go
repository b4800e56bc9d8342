package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/jwtutil"
	"github.com/suteetoe/opshub/gomicro/logger"
	"go.uber.org/zap"
)

// TenantHeader selects the tenant for a request when the token grants several
const TenantHeader = "X-Tenant-Id"

// Context keys set by JWTAuthMiddleware
const (
	ClaimsKey        = "claims"
	UserIDKey        = "user_id"
	EmailKey         = "email"
	TenantIDKey      = "tenant_id"
	IsSystemAdminKey = "is_system_admin"
)

// AuthHooks lets a service count authentication outcomes. Nil hooks are skipped.
type AuthHooks struct {
	OnAttempt func()
	OnSuccess func()
	OnFailure func(reason string)
}

func (h AuthHooks) attempt() {
	if h.OnAttempt != nil {
		h.OnAttempt()
	}
}

func (h AuthHooks) success() {
	if h.OnSuccess != nil {
		h.OnSuccess()
	}
}

func (h AuthHooks) failure(reason string) {
	if h.OnFailure != nil {
		h.OnFailure(reason)
	}
}

// JWTAuthMiddleware validates the bearer token and resolves the tenant for the request.
// The X-Tenant-Id header wins when present and must be one of the token's tenants;
// otherwise the token's selected tenant is used.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil, hooks AuthHooks) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)
			hooks.attempt()

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				hooks.failure("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			tokenString := authHeader
			if len(tokenString) > 7 && strings.ToUpper(tokenString[0:7]) == "BEARER " {
				tokenString = tokenString[7:]
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				hooks.failure("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			var tenantID *uuid.UUID
			if header := c.Request().Header.Get(TenantHeader); header != "" {
				parsed, err := uuid.Parse(header)
				if err != nil {
					log.Warn("Malformed tenant header", zap.String("value", header))
					hooks.failure("invalid_tenant_header")
					return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid X-Tenant-Id header"})
				}
				if !claims.HasTenant(parsed) && !claims.IsSystemAdmin {
					log.Warn("Tenant header not granted by token",
						zap.String("tenant_id", parsed.String()),
						zap.String("user_id", claims.UserID.String()))
					hooks.failure("tenant_access_denied")
					return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied to the specified tenant"})
				}
				tenantID = &parsed
			} else if claims.TenantID != nil {
				tenantID = claims.TenantID
			}

			hooks.success()

			c.Set(ClaimsKey, claims)
			c.Set(UserIDKey, claims.UserID)
			c.Set(EmailKey, claims.Email)
			c.Set(IsSystemAdminKey, claims.IsSystemAdmin)

			log = log.With(
				zap.String("user_id", claims.UserID.String()),
				zap.String("email", claims.Email),
			)
			if tenantID != nil {
				c.Set(TenantIDKey, *tenantID)
				log = log.With(zap.String("tenant_id", tenantID.String()))
			}
			c.Set("logger", log)

			return next(c)
		}
	}
}

// UserID returns the authenticated user id
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(UserIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// TenantID returns the tenant resolved for the request
func TenantID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(TenantIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// IsSystemAdmin reports whether the token belongs to a system administrator
func IsSystemAdmin(c echo.Context) bool {
	admin, _ := c.Get(IsSystemAdminKey).(bool)
	return admin
}

// Claims returns the validated token claims
func Claims(c echo.Context) (*jwtutil.UserClaims, bool) {
	claims, ok := c.Get(ClaimsKey).(*jwtutil.UserClaims)
	return claims, ok
}
