package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

type CalendarRepository interface {
	Holidays(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.CompanyHoliday, error)
	CreateHoliday(ctx context.Context, holiday *model.CompanyHoliday) error
	DeleteHoliday(ctx context.Context, tenantID, id uuid.UUID) error
	// TimeOff returns entries of the user intersecting [from, to]. An empty status matches all.
	TimeOff(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, status string, from, to time.Time) ([]model.TimeOffEntry, error)
	CreateTimeOff(ctx context.Context, entry *model.TimeOffEntry) error
	GetTimeOff(ctx context.Context, tenantID, id uuid.UUID) (*model.TimeOffEntry, error)
	// ReviewTimeOff writes the entry's review only while the stored row is Pending
	ReviewTimeOff(ctx context.Context, entry *model.TimeOffEntry) error
}

type calendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) CalendarRepository {
	return &calendarRepository{db: db}
}

func (r *calendarRepository) Holidays(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]model.CompanyHoliday, error) {
	var holidays []model.CompanyHoliday
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND holiday_date BETWEEN ? AND ?", tenantID, from, to).
		Order("holiday_date").
		Find(&holidays).Error
	if err != nil {
		return nil, errors.Wrap(err, "list holidays")
	}
	return holidays, nil
}

func (r *calendarRepository) CreateHoliday(ctx context.Context, holiday *model.CompanyHoliday) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(holiday).Error, "create holiday")
}

func (r *calendarRepository) DeleteHoliday(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.CompanyHoliday{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete holiday")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *calendarRepository) TimeOff(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID, status string, from, to time.Time) ([]model.TimeOffEntry, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, to, from)
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var entries []model.TimeOffEntry
	if err := query.Order("start_date").Find(&entries).Error; err != nil {
		return nil, errors.Wrap(err, "list time off")
	}
	return entries, nil
}

func (r *calendarRepository) CreateTimeOff(ctx context.Context, entry *model.TimeOffEntry) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(entry).Error, "create time off")
}

func (r *calendarRepository) GetTimeOff(ctx context.Context, tenantID, id uuid.UUID) (*model.TimeOffEntry, error) {
	var entry model.TimeOffEntry
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *calendarRepository) ReviewTimeOff(ctx context.Context, entry *model.TimeOffEntry) error {
	result := r.db.WithContext(ctx).Model(&model.TimeOffEntry{}).
		Where("id = ? AND tenant_id = ? AND status = ?", entry.ID, entry.TenantID, model.TimeOffPending).
		Updates(map[string]interface{}{
			"status":              entry.Status,
			"notes":               entry.Notes,
			"reviewed_by_user_id": entry.ReviewedByUserID,
			"reviewed_at":         entry.ReviewedAt,
			"updated_by_user_id":  entry.UpdatedByUserID,
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "review time off")
	}
	if result.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}
