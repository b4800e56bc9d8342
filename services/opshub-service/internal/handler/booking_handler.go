package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/validation"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"go.uber.org/zap"
)

type bookingService interface {
	List(ctx context.Context, userID, tenantID uuid.UUID, filter repository.BookingFilter) ([]model.Booking, error)
	Get(ctx context.Context, userID, tenantID, id uuid.UUID) (*model.Booking, error)
	Create(ctx context.Context, userID, tenantID uuid.UUID, in service.BookingInput) (*model.Booking, error)
	Update(ctx context.Context, userID, tenantID, id uuid.UUID, in service.BookingInput) (*model.Booking, error)
	Delete(ctx context.Context, userID, tenantID, id uuid.UUID) error
	CheckIn(ctx context.Context, userID, tenantID, id uuid.UUID, method string) (*model.Booking, error)
}

// BookingRequest is the body of booking create and update
type BookingRequest struct {
	SpaceID       *uuid.UUID           `json:"space_id"`
	UserID        *uuid.UUID           `json:"user_id"`
	StartDatetime *Date                `json:"start_datetime"`
	EndDatetime   *Date                `json:"end_datetime"`
	Status        *model.BookingStatus `json:"status" validate:"omitempty,oneof=Reserved CheckedIn Completed Cancelled NoShow"`
	Notes         *string              `json:"notes"`
	Version       *int                 `json:"version"`
}

func (r BookingRequest) input() service.BookingInput {
	return service.BookingInput{
		SpaceID:       r.SpaceID,
		UserID:        r.UserID,
		StartDatetime: r.StartDatetime.Ptr(),
		EndDatetime:   r.EndDatetime.Ptr(),
		Status:        r.Status,
		Notes:         r.Notes,
		Version:       r.Version,
	}
}

type CheckInRequest struct {
	Method string `json:"method"`
}

type BookingHandler struct {
	svc bookingService
}

func NewBookingHandler(svc bookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// Register adds the booking routes. Authorization happens per operation through the
// userId and tenantId query parameters.
func (h *BookingHandler) Register(g *echo.Group) {
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.POST("/bookings", h.Create)
	g.PUT("/bookings/:id", h.Update)
	g.DELETE("/bookings/:id", h.Delete)
	g.POST("/bookings/:id/checkin", h.CheckIn)
}

func (h *BookingHandler) List(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve bookings")
	}

	var filter repository.BookingFilter
	if filter.PersonID, err = queryUUID(c, "personId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.SpaceID, err = queryUUID(c, "spaceId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.OfficeID, err = queryUUID(c, "officeId"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.StartDate, err = queryDate(c, "startDate"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if filter.EndDate, err = queryDate(c, "endDate"); err != nil {
		return apperror.Respond(c, err, "")
	}
	if status := c.QueryParam("status"); status != "" {
		s := model.BookingStatus(status)
		filter.Status = &s
	}

	bookings, err := h.svc.List(logger.RequestContext(c), userID, tenantID, filter)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve bookings")
	}
	return c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) Get(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve booking")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	booking, err := h.svc.Get(logger.RequestContext(c), userID, tenantID, id)
	if err != nil {
		return apperror.Respond(c, err, "Failed to retrieve booking")
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to create booking")
	}

	var req BookingRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	booking, err := h.svc.Create(logger.RequestContext(c), userID, tenantID, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to create booking")
	}

	log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("space_id", booking.SpaceID.String()))
	return c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) Update(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to update booking")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	var req BookingRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}

	booking, err := h.svc.Update(logger.RequestContext(c), userID, tenantID, id, req.input())
	if err != nil {
		return apperror.Respond(c, err, "Failed to update booking")
	}
	return c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) Delete(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to delete booking")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	if err := h.svc.Delete(logger.RequestContext(c), userID, tenantID, id); err != nil {
		return apperror.Respond(c, err, "Failed to delete booking")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BookingHandler) CheckIn(c echo.Context) error {
	userID, tenantID, err := legacyIdentity(c)
	if err != nil {
		return apperror.Respond(c, err, "Failed to check in")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return apperror.Respond(c, err, "")
	}

	var req CheckInRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return apperror.Respond(c, err, "")
	}
	if req.Method == "" {
		req.Method = c.QueryParam("method")
	}

	booking, err := h.svc.CheckIn(logger.RequestContext(c), userID, tenantID, id, req.Method)
	if err != nil {
		return apperror.Respond(c, err, "Failed to check in")
	}
	return c.JSON(http.StatusOK, booking)
}
