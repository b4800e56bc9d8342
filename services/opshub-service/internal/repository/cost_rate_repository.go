package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
)

// importHistoryLimit caps the import history listing
const importHistoryLimit = 50

// CostRateFilter narrows a cost rate listing. Without IncludeInactive only rates active on AsOf are returned.
type CostRateFilter struct {
	UserID          *uuid.UUID
	IncludeInactive bool
	AsOf            time.Time
}

type CostRateRepository interface {
	List(ctx context.Context, tenantID uuid.UUID, filter CostRateFilter) ([]model.EmployeeCostRate, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*model.EmployeeCostRate, error)
	Effective(ctx context.Context, tenantID, userID uuid.UUID, asOf time.Time) (*model.EmployeeCostRate, error)
	History(ctx context.Context, tenantID, userID uuid.UUID) ([]model.EmployeeCostRate, error)
	// CreateClosingPrevious inserts rate and ends the latest open earlier rate of the same user
	// the day before rate becomes effective
	CreateClosingPrevious(ctx context.Context, rate *model.EmployeeCostRate) error
	Update(ctx context.Context, rate *model.EmployeeCostRate) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CreateBatch(ctx context.Context, batch *model.CostRateImportBatch) error
	// ImportRates saves rates in order with the auto-close rule and then the batch totals, all in
	// one transaction
	ImportRates(ctx context.Context, batch *model.CostRateImportBatch, rates []*model.EmployeeCostRate) error
	UpdateBatch(ctx context.Context, batch *model.CostRateImportBatch) error
	ImportHistory(ctx context.Context, tenantID uuid.UUID) ([]model.CostRateImportBatch, error)
}

type costRateRepository struct {
	db *gorm.DB
}

func NewCostRateRepository(db *gorm.DB) CostRateRepository {
	return &costRateRepository{db: db}
}

func (r *costRateRepository) List(ctx context.Context, tenantID uuid.UUID, filter CostRateFilter) ([]model.EmployeeCostRate, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if !filter.IncludeInactive {
		query = query.Scopes(activeOn(filter.AsOf))
	}

	var rates []model.EmployeeCostRate
	if err := query.Order("user_id, effective_date desc").Find(&rates).Error; err != nil {
		return nil, errors.Wrap(err, "list cost rates")
	}
	return rates, nil
}

func (r *costRateRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*model.EmployeeCostRate, error) {
	var rate model.EmployeeCostRate
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&rate).Error; err != nil {
		return nil, errors.Wrap(err, "get cost rate")
	}
	return &rate, nil
}

func (r *costRateRepository) Effective(ctx context.Context, tenantID, userID uuid.UUID, asOf time.Time) (*model.EmployeeCostRate, error) {
	var rate model.EmployeeCostRate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Scopes(activeOn(asOf)).
		Order("effective_date desc").
		First(&rate).Error
	if err != nil {
		return nil, errors.Wrap(err, "find effective cost rate")
	}
	return &rate, nil
}

func (r *costRateRepository) History(ctx context.Context, tenantID, userID uuid.UUID) ([]model.EmployeeCostRate, error) {
	var rates []model.EmployeeCostRate
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Order("effective_date desc").
		Find(&rates).Error
	if err != nil {
		return nil, errors.Wrap(err, "list cost rate history")
	}
	return rates, nil
}

func (r *costRateRepository) CreateClosingPrevious(ctx context.Context, rate *model.EmployeeCostRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createClosingPrevious(tx, rate)
	})
}

func (r *costRateRepository) ImportRates(ctx context.Context, batch *model.CostRateImportBatch, rates []*model.EmployeeCostRate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rate := range rates {
			if err := createClosingPrevious(tx, rate); err != nil {
				return err
			}
		}
		return errors.Wrap(tx.Save(batch).Error, "update import batch")
	})
}

func createClosingPrevious(tx *gorm.DB, rate *model.EmployeeCostRate) error {
	var previous model.EmployeeCostRate
	err := tx.Where("tenant_id = ? AND user_id = ? AND end_date IS NULL AND effective_date < ?",
		rate.TenantID, rate.UserID, rate.EffectiveDate).
		Order("effective_date desc").
		First(&previous).Error
	switch {
	case err == nil:
		endDate := rate.EffectiveDate.AddDate(0, 0, -1)
		if err := tx.Model(&previous).Updates(map[string]interface{}{
			"end_date":           endDate,
			"updated_by_user_id": rate.CreatedByUserID,
		}).Error; err != nil {
			return errors.Wrap(err, "close previous cost rate")
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(err, "find previous cost rate")
	}

	return errors.Wrap(tx.Create(rate).Error, "create cost rate")
}

func (r *costRateRepository) Update(ctx context.Context, rate *model.EmployeeCostRate) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(rate).Error, "update cost rate")
}

func (r *costRateRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.EmployeeCostRate{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete cost rate")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *costRateRepository) CreateBatch(ctx context.Context, batch *model.CostRateImportBatch) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(batch).Error, "create import batch")
}

func (r *costRateRepository) UpdateBatch(ctx context.Context, batch *model.CostRateImportBatch) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(batch).Error, "update import batch")
}

func (r *costRateRepository) ImportHistory(ctx context.Context, tenantID uuid.UUID) ([]model.CostRateImportBatch, error) {
	var batches []model.CostRateImportBatch
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("imported_at desc").
		Limit(importHistoryLimit).
		Find(&batches).Error
	if err != nil {
		return nil, errors.Wrap(err, "list import history")
	}
	return batches, nil
}

func activeOn(day time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("effective_date <= ? AND (end_date IS NULL OR end_date >= ?)", day, day)
	}
}
