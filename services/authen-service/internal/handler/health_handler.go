package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck reports 503 when ping fails
func HealthCheck(ping func(ctx context.Context) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status":   "unhealthy",
				"service":  "authen-service",
				"database": "unavailable",
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"status":   "healthy",
			"service":  "authen-service",
			"database": "ok",
		})
	}
}
