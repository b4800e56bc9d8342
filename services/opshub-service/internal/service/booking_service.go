package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
)

// bookingManagerRoles may act on bookings that belong to other users
var bookingManagerRoles = []string{identity.RoleOfficeManager, identity.RoleResourceManager, identity.RoleTenantAdmin}

// BookingInput carries the writable booking fields. Nil fields keep their current value on update.
type BookingInput struct {
	SpaceID       *uuid.UUID
	UserID        *uuid.UUID
	StartDatetime *time.Time
	EndDatetime   *time.Time
	Status        *model.BookingStatus
	Notes         *string
	Version       *int
}

type BookingService struct {
	repo   repository.BookingRepository
	access AccessVerifier
	now    Clock
}

func NewBookingService(repo repository.BookingRepository, access AccessVerifier) *BookingService {
	return &BookingService{repo: repo, access: access, now: time.Now}
}

func (s *BookingService) List(ctx context.Context, userID, tenantID uuid.UUID, filter repository.BookingFilter) ([]model.Booking, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, tenantID, filter)
}

func (s *BookingService) Get(ctx context.Context, userID, tenantID, id uuid.UUID) (*model.Booking, error) {
	if _, err := s.access.VerifyUserAccess(ctx, userID, tenantID); err != nil {
		return nil, err
	}
	booking, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	return booking, nil
}

func (s *BookingService) Create(ctx context.Context, userID, tenantID uuid.UUID, in BookingInput) (*model.Booking, error) {
	access, err := s.access.VerifyUserAccess(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if in.SpaceID == nil || in.StartDatetime == nil || in.EndDatetime == nil {
		return nil, apperror.BadRequest("Space, start and end are required")
	}

	booking := &model.Booking{
		Base:          model.Base{TenantID: tenantID},
		SpaceID:       *in.SpaceID,
		UserID:        userID,
		StartDatetime: *in.StartDatetime,
		EndDatetime:   *in.EndDatetime,
		Status:        model.BookingReserved,
	}
	if in.UserID != nil {
		booking.UserID = *in.UserID
	}
	if in.Status != nil {
		booking.Status = *in.Status
	}
	if in.Notes != nil {
		booking.Notes = *in.Notes
	}

	if err := s.checkOwnership(access, booking.UserID); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, booking, nil); err != nil {
		return nil, err
	}

	booking.Touch(userID)
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("bookings", "create")
	return booking, nil
}

func (s *BookingService) Update(ctx context.Context, userID, tenantID, id uuid.UUID, in BookingInput) (*model.Booking, error) {
	access, err := s.access.VerifyUserAccess(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	booking, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	if err := s.checkOwnership(access, booking.UserID); err != nil {
		return nil, err
	}

	expectedVersion := booking.Version
	if in.Version != nil {
		if *in.Version != booking.Version {
			return nil, apperror.Conflict("The booking was modified by another request")
		}
		expectedVersion = *in.Version
	}

	if in.SpaceID != nil {
		booking.SpaceID = *in.SpaceID
	}
	if in.UserID != nil {
		if err := s.checkOwnership(access, *in.UserID); err != nil {
			return nil, err
		}
		booking.UserID = *in.UserID
	}
	if in.StartDatetime != nil {
		booking.StartDatetime = *in.StartDatetime
	}
	if in.EndDatetime != nil {
		booking.EndDatetime = *in.EndDatetime
	}
	if in.Status != nil {
		booking.Status = *in.Status
	}
	if in.Notes != nil {
		booking.Notes = *in.Notes
	}

	if err := s.validate(ctx, booking, &booking.ID); err != nil {
		return nil, err
	}

	booking.Touch(userID)
	if err := s.repo.UpdateVersioned(ctx, booking, expectedVersion); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, apperror.Conflict("The booking was modified by another request")
		}
		return nil, err
	}
	prometheus.RecordOperation("bookings", "update")
	return booking, nil
}

func (s *BookingService) Delete(ctx context.Context, userID, tenantID, id uuid.UUID) error {
	access, err := s.access.VerifyUserAccess(ctx, userID, tenantID)
	if err != nil {
		return err
	}
	booking, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return notFound(err, "Booking not found")
	}
	if err := s.checkOwnership(access, booking.UserID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return notFound(err, "Booking not found")
	}
	prometheus.RecordOperation("bookings", "delete")
	return nil
}

// CheckIn marks a reserved booking as checked in and records how the user arrived
func (s *BookingService) CheckIn(ctx context.Context, userID, tenantID, id uuid.UUID, method string) (*model.Booking, error) {
	access, err := s.access.VerifyUserAccess(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if method == "" {
		method = model.CheckInWeb
	}
	switch method {
	case model.CheckInWeb, model.CheckInKiosk, model.CheckInMobile:
	default:
		return nil, apperror.BadRequest("Invalid check-in method. Use web, kiosk or mobile")
	}

	booking, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Booking not found")
	}
	if err := s.checkOwnership(access, booking.UserID); err != nil {
		return nil, err
	}
	if booking.Status != model.BookingReserved {
		return nil, apperror.BadRequest("Only reserved bookings can be checked in")
	}

	event := &model.CheckInEvent{
		TenantID:  tenantID,
		BookingID: booking.ID,
		UserID:    userID,
		Method:    method,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.CheckIn(ctx, booking, event); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, apperror.Conflict("The booking was modified by another request")
		}
		return nil, err
	}
	booking.CheckInEvents = append(booking.CheckInEvents, *event)
	prometheus.RecordOperation("bookings", "checkin")
	return booking, nil
}

// SweepNoShows marks reserved bookings that started more than grace ago as no-shows
func (s *BookingService) SweepNoShows(ctx context.Context, grace time.Duration) (int64, error) {
	marked, err := s.repo.MarkNoShows(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, err
	}
	prometheus.RecordNoShows(marked)
	return marked, nil
}

// RefreshActiveGauge publishes the number of bookings in progress per tenant
func (s *BookingService) RefreshActiveGauge(ctx context.Context) error {
	counts, err := s.repo.CountActiveByTenant(ctx, s.now())
	if err != nil {
		return err
	}
	labels := make(map[string]int64, len(counts))
	for tenantID, count := range counts {
		labels[tenantID.String()] = count
	}
	prometheus.SetActiveBookings(labels)
	return nil
}

func (s *BookingService) checkOwnership(access *identity.Access, ownerID uuid.UUID) error {
	if access.User.ID == ownerID || access.HasAnyRole(bookingManagerRoles...) {
		return nil
	}
	return apperror.Forbidden("You can only manage your own bookings")
}

func (s *BookingService) validate(ctx context.Context, booking *model.Booking, excludeID *uuid.UUID) error {
	if !booking.EndDatetime.After(booking.StartDatetime) {
		return apperror.BadRequest("End time must be after start time")
	}
	if _, err := s.repo.FindSpace(ctx, booking.TenantID, booking.SpaceID); err != nil {
		return badRequestIfMissing(err, "Space not found")
	}

	// cancelled and finished bookings never block the space
	blocking := false
	for _, st := range model.BlockingBookingStatuses {
		if booking.Status == st {
			blocking = true
		}
	}
	if !blocking {
		return nil
	}

	conflict, err := s.repo.HasConflict(ctx, booking.TenantID, booking.SpaceID, booking.StartDatetime, booking.EndDatetime, excludeID)
	if err != nil {
		return err
	}
	if conflict {
		prometheus.RecordBookingConflict()
		return apperror.Conflict("This space is already booked for the requested time period")
	}
	return nil
}
