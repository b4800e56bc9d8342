package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/apperror"
)

type sampleRequest struct {
	Name   string `json:"name" validate:"required"`
	Method string `json:"method" validate:"omitempty,oneof=web kiosk mobile"`
	Pct    int    `json:"pct" validate:"gte=0,lte=200"`
}

func TestValidateMessages(t *testing.T) {
	err := Validate(&sampleRequest{Method: "fax", Pct: 300})
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)

	byField := map[string]string{}
	for _, f := range appErr.Fields {
		byField[f.Field] = f.Message
	}
	assert.Equal(t, "is required", byField["Name"])
	assert.Equal(t, "must be one of: web, kiosk, mobile", byField["Method"])
	assert.Equal(t, "must be less than or equal to 200", byField["Pct"])
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, Validate(&sampleRequest{Name: "desk", Method: "kiosk", Pct: 50}))
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body sampleRequest
	err := BindAndValidate(c, &body)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid request data", appErr.Message)
}
