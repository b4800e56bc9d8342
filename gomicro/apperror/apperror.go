// Package apperror carries expected failures from services to HTTP handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/logger"
	"go.uber.org/zap"
)

// FieldError describes a single invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is an error with an HTTP status and a client-safe message
type Error struct {
	Status  int
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func newError(status int, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Status: status, Message: msg}
}

func BadRequest(format string, args ...any) *Error {
	return newError(http.StatusBadRequest, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(http.StatusNotFound, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(http.StatusConflict, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(http.StatusForbidden, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(http.StatusUnauthorized, format, args...)
}

// As returns the *Error in err's chain, if any
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Respond writes err as JSON. Expected failures keep their status and message,
// constraint violations become 409 and anything else is logged and reported as a
// 500 with the fallback message.
func Respond(c echo.Context, err error, fallback string) error {
	if database.IsUniqueViolation(err) {
		err = Conflict("Record already exists")
	} else if database.IsForeignKeyViolation(err) {
		err = Conflict("Record is referenced by other data")
	}

	if appErr, ok := As(err); ok {
		body := echo.Map{"error": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		return c.JSON(appErr.Status, body)
	}

	logger.FromEcho(c).Error(fallback,
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error": fallback,
	})
}
