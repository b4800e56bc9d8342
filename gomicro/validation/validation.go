package validation

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
)

var validate = validator.New()

// Validate checks struct tags and converts failures into a 400 *apperror.Error
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperror.BadRequest("Invalid request data")
	}

	fields := make([]apperror.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, apperror.FieldError{
			Field:   fe.Field(),
			Message: message(fe),
		})
	}

	return &apperror.Error{
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Fields:  fields,
	}
}

// BindAndValidate binds the request into v and validates it
func BindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperror.BadRequest("Invalid request data")
	}
	return Validate(v)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed on %s", fe.Tag())
	}
}
