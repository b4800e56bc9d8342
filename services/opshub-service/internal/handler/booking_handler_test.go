package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
)

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) List(ctx context.Context, userID, tenantID uuid.UUID, filter repository.BookingFilter) ([]model.Booking, error) {
	args := m.Called(ctx, userID, tenantID, filter)
	bookings, _ := args.Get(0).([]model.Booking)
	return bookings, args.Error(1)
}

func (m *mockBookingService) Get(ctx context.Context, userID, tenantID, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, userID, tenantID, id)
	booking, _ := args.Get(0).(*model.Booking)
	return booking, args.Error(1)
}

func (m *mockBookingService) Create(ctx context.Context, userID, tenantID uuid.UUID, in service.BookingInput) (*model.Booking, error) {
	args := m.Called(ctx, userID, tenantID, in)
	booking, _ := args.Get(0).(*model.Booking)
	return booking, args.Error(1)
}

func (m *mockBookingService) Update(ctx context.Context, userID, tenantID, id uuid.UUID, in service.BookingInput) (*model.Booking, error) {
	args := m.Called(ctx, userID, tenantID, id, in)
	booking, _ := args.Get(0).(*model.Booking)
	return booking, args.Error(1)
}

func (m *mockBookingService) Delete(ctx context.Context, userID, tenantID, id uuid.UUID) error {
	return m.Called(ctx, userID, tenantID, id).Error(0)
}

func (m *mockBookingService) CheckIn(ctx context.Context, userID, tenantID, id uuid.UUID, method string) (*model.Booking, error) {
	args := m.Called(ctx, userID, tenantID, id, method)
	booking, _ := args.Get(0).(*model.Booking)
	return booking, args.Error(1)
}

func TestBookingListRejectsForeignUser(t *testing.T) {
	svc := new(mockBookingService)
	h := NewBookingHandler(svc)
	userID, tenantID := uuid.New(), uuid.New()

	c, rec := newRequest(http.MethodGet, "/api/bookings?userId="+uuid.NewString(), nil)
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "userId does not match the authenticated user", errorBody(t, rec))
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingListPassesFilter(t *testing.T) {
	svc := new(mockBookingService)
	h := NewBookingHandler(svc)
	userID, tenantID, spaceID := uuid.New(), uuid.New(), uuid.New()

	svc.On("List", mock.Anything, userID, tenantID, mock.MatchedBy(func(f repository.BookingFilter) bool {
		return f.SpaceID != nil && *f.SpaceID == spaceID && f.Status != nil && *f.Status == model.BookingReserved
	})).Return([]model.Booking{{SpaceID: spaceID}}, nil)

	c, rec := newRequest(http.MethodGet, "/api/bookings?spaceId="+spaceID.String()+"&status=Reserved", nil)
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestBookingCreate(t *testing.T) {
	svc := new(mockBookingService)
	h := NewBookingHandler(svc)
	userID, tenantID, spaceID := uuid.New(), uuid.New(), uuid.New()

	svc.On("Create", mock.Anything, userID, tenantID, mock.MatchedBy(func(in service.BookingInput) bool {
		return in.SpaceID != nil && *in.SpaceID == spaceID && in.StartDatetime != nil && in.StartDatetime.Hour() == 9
	})).Return(&model.Booking{Base: model.Base{ID: uuid.New()}, SpaceID: spaceID}, nil)

	body := `{"space_id":"` + spaceID.String() + `","start_datetime":"2025-06-02T09:00:00Z","end_datetime":"2025-06-02T10:00:00Z"}`
	c, rec := newRequest(http.MethodPost, "/api/bookings", strings.NewReader(body))
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestBookingCreateConflict(t *testing.T) {
	svc := new(mockBookingService)
	h := NewBookingHandler(svc)
	userID, tenantID := uuid.New(), uuid.New()

	svc.On("Create", mock.Anything, userID, tenantID, mock.Anything).
		Return(nil, apperror.Conflict("Space is already booked for the requested time"))

	c, rec := newRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{"space_id":"`+uuid.NewString()+`"}`))
	authenticate(c, userID, tenantID, tenantID)

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Space is already booked for the requested time", errorBody(t, rec))
}
