package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

type HolidayRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	HolidayDate *Date  `json:"holiday_date" validate:"required"`
	// IsObserved defaults to true when omitted
	IsObserved *bool `json:"is_observed"`
}

type TimeOffRequest struct {
	UserID    *uuid.UUID `json:"user_id"`
	StartDate *Date      `json:"start_date" validate:"required"`
	EndDate   *Date      `json:"end_date" validate:"required"`
	Notes     string     `json:"notes"`
}

type TimeOffReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type CalendarHandler struct {
	actorResolver
	svc *service.CalendarService
}

func NewCalendarHandler(svc *service.CalendarService, access service.AccessVerifier) *CalendarHandler {
	return &CalendarHandler{actorResolver: actorResolver{access: access}, svc: svc}
}

func (h *CalendarHandler) Register(r Router) {
	r.route(http.MethodGet, "/holidays", model.ResourceHoliday, model.ActionRead, h.Holidays)
	r.route(http.MethodPost, "/holidays", model.ResourceHoliday, model.ActionCreate, h.CreateHoliday)
	r.route(http.MethodDelete, "/holidays/:id", model.ResourceHoliday, model.ActionDelete, h.DeleteHoliday)
	r.route(http.MethodGet, "/time-off", model.ResourceHoliday, model.ActionRead, h.TimeOff)
	r.route(http.MethodPost, "/time-off", "", "", h.CreateTimeOff)
	r.route(http.MethodPost, "/time-off/:id/approve", model.ResourceHoliday, model.ActionApprove, h.ApproveTimeOff)
	r.route(http.MethodPost, "/time-off/:id/reject", model.ResourceHoliday, model.ActionApprove, h.RejectTimeOff)
	r.route(http.MethodGet, "/working-days", model.ResourceHoliday, model.ActionRead, h.WorkingDays)
}

func (h *CalendarHandler) Holidays(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve holidays")
	}
	year, err := queryInt(c, "year", time.Now().UTC().Year())
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	holidays, err := h.svc.Holidays(logger.RequestContext(c), actor.TenantID, year)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve holidays")
	}
	return c.JSON(http.StatusOK, holidays)
}

func (h *CalendarHandler) CreateHoliday(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create holiday")
	}
	var req HolidayRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	observed := req.IsObserved == nil || *req.IsObserved
	holiday, err := h.svc.CreateHoliday(logger.RequestContext(c), actor, service.HolidayInput{
		Name:        req.Name,
		HolidayDate: req.HolidayDate.Time,
		IsObserved:  observed,
	})
	if err != nil {
		return apperror.Respond(c, err, "Failed to create holiday")
	}
	return c.JSON(http.StatusCreated, holiday)
}

func (h *CalendarHandler) DeleteHoliday(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete holiday")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	if err := h.svc.DeleteHoliday(logger.RequestContext(c), actor.TenantID, id); err != nil {
		return apperror.Respond(c, err, "Failed to delete holiday")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CalendarHandler) TimeOff(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve time off")
	}
	userID, err := queryUUID(c, "userId")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var from, to time.Time
	if d, err := queryDate(c, "from"); err != nil {
		return apperror.Respond(c, err, "")
	} else if d != nil {
		from = *d
	}
	if d, err := queryDate(c, "to"); err != nil {
		return apperror.Respond(c, err, "")
	} else if d != nil {
		to = *d
	}

	entries, err := h.svc.TimeOff(logger.RequestContext(c), actor.TenantID, userID, c.QueryParam("status"), from, to)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve time off")
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateTimeOff lets any member record their own leave. Managers may record it for others.
func (h *CalendarHandler) CreateTimeOff(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create time off")
	}
	var req TimeOffRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	in := service.TimeOffInput{
		UserID:    actor.UserID,
		StartDate: req.StartDate.Time,
		EndDate:   req.EndDate.Time,
		Notes:     req.Notes,
	}
	if req.UserID != nil && *req.UserID != actor.UserID {
		if !actor.HasAnyRole(identity.RoleTenantAdmin, identity.RoleResourceManager, identity.RoleOfficeManager) {
			return apperror.Respond(c, apperror.Forbidden("You can only record time off for yourself"), "")
		}
		in.UserID = *req.UserID
	}

	entry, err := h.svc.CreateTimeOff(logger.RequestContext(c), actor, in)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create time off")
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *CalendarHandler) ApproveTimeOff(c echo.Context) error {
	return h.reviewTimeOff(c, true, "Failed to approve time off")
}

func (h *CalendarHandler) RejectTimeOff(c echo.Context) error {
	return h.reviewTimeOff(c, false, "Failed to reject time off")
}

func (h *CalendarHandler) reviewTimeOff(c echo.Context, approve bool, failure string) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, failure)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	var req TimeOffReviewRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	entry, err := h.svc.ReviewTimeOff(logger.RequestContext(c), actor, id, approve, req.Notes)
	if err != nil {
		return apperror.Respond(c, err, failure)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *CalendarHandler) WorkingDays(c echo.Context) error {
	actor, err := h.actor(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to calculate working days")
	}

	userID := actor.UserID
	if id, err := queryUUID(c, "userId"); err != nil {
		return apperror.Respond(c, err, "")
	} else if id != nil {
		userID = *id
	}
	now := time.Now().UTC()
	year, err := queryInt(c, "year", now.Year())
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	month, err := queryInt(c, "month", int(now.Month()))
	if err != nil {
		return apperror.Respond(c, err, "")
	}
	hoursPerDay := 8.0
	if raw := c.QueryParam("hoursPerDay"); raw != "" {
		if hoursPerDay, err = strconv.ParseFloat(raw, 64); err != nil || hoursPerDay <= 0 {
			return apperror.Respond(c, apperror.BadRequest("Invalid hoursPerDay"), "")
		}
	}

	result, err := h.svc.WorkingDays(logger.RequestContext(c), actor.TenantID, userID, year, month, hoursPerDay)
	if err != nil {
		return apperror.Respond(c, err, "Failed to calculate working days")
	}
	return c.JSON(http.StatusOK, result)
}
