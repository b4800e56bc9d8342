package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// BookingFilter narrows a booking listing
type BookingFilter struct {
	PersonID  *uuid.UUID
	SpaceID   *uuid.UUID
	OfficeID  *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Status    *model.BookingStatus
}

type BookingRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter BookingFilter) ([]model.Booking, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Booking, error)
	FindSpace(ctx context.Context, tenantID, spaceID uuid.UUID) (*model.Space, error)
	HasConflict(ctx context.Context, tenantID, spaceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, booking *model.Booking) error
	UpdateVersioned(ctx context.Context, booking *model.Booking, expectedVersion int) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CheckIn(ctx context.Context, booking *model.Booking, event *model.CheckInEvent) error
	MarkNoShows(ctx context.Context, startedBefore time.Time) (int64, error)
	CountActiveByTenant(ctx context.Context, at time.Time) (map[uuid.UUID]int64, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) List(ctx context.Context, tenantID uuid.UUID, filter BookingFilter) ([]model.Booking, error) {
	query := r.db.WithContext(ctx).Where("bookings.tenant_id = ?", tenantID)

	if filter.PersonID != nil {
		query = query.Where("bookings.user_id = ?", *filter.PersonID)
	}
	if filter.SpaceID != nil {
		query = query.Where("bookings.space_id = ?", *filter.SpaceID)
	}
	if filter.OfficeID != nil {
		query = query.Joins("JOIN spaces ON spaces.id = bookings.space_id").
			Where("spaces.office_id = ?", *filter.OfficeID)
	}
	if filter.StartDate != nil {
		query = query.Where("bookings.end_datetime >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("bookings.start_datetime <= ?", *filter.EndDate)
	}
	if filter.Status != nil {
		query = query.Where("bookings.status = ?", *filter.Status)
	}

	var bookings []model.Booking
	if err := query.Preload("Space").Order("bookings.start_datetime asc").Find(&bookings).Error; err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	return bookings, nil
}

func (r *bookingRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Preload("Space").
		Preload("CheckInEvents").
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&booking).Error
	if err != nil {
		return nil, errors.Wrap(err, "get booking")
	}
	return &booking, nil
}

func (r *bookingRepository) FindSpace(ctx context.Context, tenantID, spaceID uuid.UUID) (*model.Space, error) {
	var space model.Space
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", spaceID, tenantID).First(&space).Error; err != nil {
		return nil, errors.Wrap(err, "find space")
	}
	return &space, nil
}

// HasConflict reports whether another Reserved or CheckedIn booking on the space intersects
// [start, end]: the new start falls inside it, the new end falls inside it, or the new
// window contains it.
func (r *bookingRepository) HasConflict(ctx context.Context, tenantID, spaceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("tenant_id = ? AND space_id = ? AND status IN ?", tenantID, spaceID, model.BlockingBookingStatuses).
		Where("(start_datetime <= ? AND end_datetime > ?) OR (start_datetime < ? AND end_datetime >= ?) OR (start_datetime >= ? AND end_datetime <= ?)",
			start, start, end, end, start, end)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "check booking conflict")
	}
	return count > 0, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	booking.Version = 1
	return errors.Wrap(r.db.WithContext(ctx).Omit("Space", "CheckInEvents").Create(booking).Error, "create booking")
}

// UpdateVersioned saves the booking only if the stored version still equals expectedVersion
func (r *bookingRepository) UpdateVersioned(ctx context.Context, booking *model.Booking, expectedVersion int) error {
	result := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("id = ? AND tenant_id = ? AND version = ?", booking.ID, booking.TenantID, expectedVersion).
		Updates(map[string]interface{}{
			"space_id":           booking.SpaceID,
			"user_id":            booking.UserID,
			"start_datetime":     booking.StartDatetime,
			"end_datetime":       booking.EndDatetime,
			"status":             booking.Status,
			"notes":              booking.Notes,
			"updated_by_user_id": booking.UpdatedByUserID,
			"version":            expectedVersion + 1,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "update booking")
	}
	if result.RowsAffected == 0 {
		return ErrStaleVersion
	}
	booking.Version = expectedVersion + 1
	return nil
}

func (r *bookingRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("booking_id = ? AND tenant_id = ?", id, tenantID).Delete(&model.CheckInEvent{}).Error; err != nil {
			return errors.Wrap(err, "delete check-in events")
		}
		result := tx.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.Booking{})
		if result.Error != nil {
			return errors.Wrap(result.Error, "delete booking")
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *bookingRepository) CheckIn(ctx context.Context, booking *model.Booking, event *model.CheckInEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Booking{}).
			Where("id = ? AND tenant_id = ? AND version = ?", booking.ID, booking.TenantID, booking.Version).
			Updates(map[string]interface{}{
				"status":  model.BookingCheckedIn,
				"version": booking.Version + 1,
			})
		if result.Error != nil {
			return errors.Wrap(result.Error, "check in booking")
		}
		if result.RowsAffected == 0 {
			return ErrStaleVersion
		}
		if err := tx.Create(event).Error; err != nil {
			return errors.Wrap(err, "create check-in event")
		}
		booking.Status = model.BookingCheckedIn
		booking.Version++
		return nil
	})
}

// MarkNoShows flips Reserved bookings that started before the cutoff to NoShow
func (r *bookingRepository) MarkNoShows(ctx context.Context, startedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("status = ? AND start_datetime < ?", model.BookingReserved, startedBefore).
		Updates(map[string]interface{}{
			"status":  model.BookingNoShow,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "mark no-shows")
	}
	return result.RowsAffected, nil
}

// CountActiveByTenant counts bookings in progress at the given instant, per tenant
func (r *bookingRepository) CountActiveByTenant(ctx context.Context, at time.Time) (map[uuid.UUID]int64, error) {
	var rows []struct {
		TenantID uuid.UUID
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&model.Booking{}).
		Select("tenant_id, COUNT(*) AS count").
		Where("status IN ? AND start_datetime <= ? AND end_datetime > ?", model.BlockingBookingStatuses, at, at).
		Group("tenant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count active bookings")
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.TenantID] = row.Count
	}
	return counts, nil
}
