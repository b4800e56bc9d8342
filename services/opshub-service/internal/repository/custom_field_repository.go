package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomFieldRepository interface {
	ListDefinitions(ctx context.Context, tenantID uuid.UUID, entityType string, includeInactive bool) ([]model.CustomFieldDefinition, error)
	GetDefinition(ctx context.Context, tenantID, id uuid.UUID) (*model.CustomFieldDefinition, error)
	FieldNameExists(ctx context.Context, tenantID uuid.UUID, entityType, fieldName string) (bool, error)
	MaxSortOrder(ctx context.Context, tenantID uuid.UUID, entityType string) (int, error)
	CreateDefinition(ctx context.Context, def *model.CustomFieldDefinition) error
	UpdateDefinition(ctx context.Context, def *model.CustomFieldDefinition) error
	// Reorder sets sort_order to the position of each id in ids, in one transaction
	Reorder(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error
	Values(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]model.CustomFieldValue, error)
	// UpsertValues writes values keyed on (definition, entity) in one transaction
	UpsertValues(ctx context.Context, values []model.CustomFieldValue) error
	DeleteValue(ctx context.Context, tenantID, id uuid.UUID) error
}

type customFieldRepository struct {
	db *gorm.DB
}

func NewCustomFieldRepository(db *gorm.DB) CustomFieldRepository {
	return &customFieldRepository{db: db}
}

func (r *customFieldRepository) ListDefinitions(ctx context.Context, tenantID uuid.UUID, entityType string, includeInactive bool) ([]model.CustomFieldDefinition, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var defs []model.CustomFieldDefinition
	if err := query.Order("entity_type, sort_order").Find(&defs).Error; err != nil {
		return nil, errors.Wrap(err, "list custom field definitions")
	}
	return defs, nil
}

func (r *customFieldRepository) GetDefinition(ctx context.Context, tenantID, id uuid.UUID) (*model.CustomFieldDefinition, error) {
	var def model.CustomFieldDefinition
	if err := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).First(&def).Error; err != nil {
		return nil, errors.Wrap(err, "get custom field definition")
	}
	return &def, nil
}

func (r *customFieldRepository) FieldNameExists(ctx context.Context, tenantID uuid.UUID, entityType, fieldName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.CustomFieldDefinition{}).
		Where("tenant_id = ? AND entity_type = ? AND field_name = ?", tenantID, entityType, fieldName).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check custom field name")
	}
	return count > 0, nil
}

func (r *customFieldRepository) MaxSortOrder(ctx context.Context, tenantID uuid.UUID, entityType string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&model.CustomFieldDefinition{}).
		Where("tenant_id = ? AND entity_type = ?", tenantID, entityType).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, errors.Wrap(err, "max custom field sort order")
	}
	return max, nil
}

func (r *customFieldRepository) CreateDefinition(ctx context.Context, def *model.CustomFieldDefinition) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(def).Error, "create custom field definition")
}

func (r *customFieldRepository) UpdateDefinition(ctx context.Context, def *model.CustomFieldDefinition) error {
	return errors.Wrap(r.db.WithContext(ctx).Save(def).Error, "update custom field definition")
}

func (r *customFieldRepository) Reorder(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			err := tx.Model(&model.CustomFieldDefinition{}).
				Where("id = ? AND tenant_id = ?", id, tenantID).
				Update("sort_order", i+1).Error
			if err != nil {
				return errors.Wrap(err, "reorder custom field definitions")
			}
		}
		return nil
	})
}

func (r *customFieldRepository) Values(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]model.CustomFieldValue, error) {
	var values []model.CustomFieldValue
	err := r.db.WithContext(ctx).
		Preload("FieldDefinition").
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Find(&values).Error
	if err != nil {
		return nil, errors.Wrap(err, "list custom field values")
	}
	return values, nil
}

func (r *customFieldRepository) UpsertValues(ctx context.Context, values []model.CustomFieldValue) error {
	if len(values) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range values {
			err := tx.Omit("FieldDefinition").Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "field_definition_id"}, {Name: "entity_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"text_value", "number_value", "date_value", "bool_value",
					"picklist_value", "lookup_value", "updated_at", "updated_by_user_id",
				}),
			}).Create(&values[i]).Error
			if err != nil {
				return errors.Wrap(err, "upsert custom field value")
			}
		}
		return nil
	})
}

func (r *customFieldRepository) DeleteValue(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&model.CustomFieldValue{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "delete custom field value")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
