package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/services/authen-service/internal/service"
)

type loginAuditService interface {
	List(ctx context.Context, caller service.Caller, filter service.LoginAuditFilter) (*service.LoginAuditPage, error)
}

type LoginAuditHandler struct {
	audits loginAuditService
}

func NewLoginAuditHandler(audits loginAuditService) *LoginAuditHandler {
	return &LoginAuditHandler{audits: audits}
}

func (h *LoginAuditHandler) Register(g *echo.Group) {
	g.GET("/login-audits", h.List)
}

// List accepts email, userId, isSuccess, start, end (RFC 3339), page and pageSize
func (h *LoginAuditHandler) List(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	filter, err := auditFilter(c)
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	page, err := h.audits.List(logger.RequestContext(c), who, filter)
	if err != nil {
		return apperror.Respond(c, err, "failed to list login audits")
	}
	return c.JSON(http.StatusOK, page)
}

func auditFilter(c echo.Context) (service.LoginAuditFilter, error) {
	filter := service.LoginAuditFilter{Email: c.QueryParam("email")}
	if v := c.QueryParam("userId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, apperror.BadRequest("invalid userId")
		}
		filter.UserID = &id
	}
	if v := c.QueryParam("isSuccess"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperror.BadRequest("invalid isSuccess")
		}
		filter.IsSuccess = &ok
	}
	for name, dst := range map[string]**time.Time{"start": &filter.Start, "end": &filter.End} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, apperror.BadRequest("invalid %s", name)
		}
		*dst = &ts
	}
	for name, dst := range map[string]*int{"page": &filter.Page, "pageSize": &filter.PageSize} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, apperror.BadRequest("invalid %s", name)
		}
		*dst = n
	}
	return filter, nil
}
