package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/suteetoe/opshub/gomicro/apperror"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"gorm.io/datatypes"
)

// CustomFieldInput carries definition fields. Nil fields keep their current value on update.
type CustomFieldInput struct {
	EntityType       string
	FieldName        string
	DisplayLabel     *string
	FieldType        string
	PicklistOptions  []string
	DefaultValue     *string
	IsRequired       *bool
	IsSearchable     *bool
	IsVisibleInList  *bool
	Section          *string
	HelpText         *string
	SortOrder        *int
	IsActive         *bool
	LookupEntityType *string
}

type CustomFieldService struct {
	repo repository.CustomFieldRepository
}

func NewCustomFieldService(repo repository.CustomFieldRepository) *CustomFieldService {
	return &CustomFieldService{repo: repo}
}

func (s *CustomFieldService) ListDefinitions(ctx context.Context, tenantID uuid.UUID, entityType string, includeInactive bool) ([]model.CustomFieldDefinition, error) {
	return s.repo.ListDefinitions(ctx, tenantID, entityType, includeInactive)
}

func (s *CustomFieldService) GetDefinition(ctx context.Context, tenantID, id uuid.UUID) (*model.CustomFieldDefinition, error) {
	def, err := s.repo.GetDefinition(ctx, tenantID, id)
	if err != nil {
		return nil, notFound(err, "Custom field definition not found")
	}
	return def, nil
}

func (s *CustomFieldService) CreateDefinition(ctx context.Context, actor Actor, in CustomFieldInput) (*model.CustomFieldDefinition, error) {
	name := strings.TrimSpace(in.FieldName)
	if name == "" || in.EntityType == "" || in.FieldType == "" {
		return nil, apperror.BadRequest("Entity type, field name and field type are required")
	}

	exists, err := s.repo.FieldNameExists(ctx, actor.TenantID, in.EntityType, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.BadRequest("A field named '%s' already exists for %s", name, in.EntityType)
	}

	def := &model.CustomFieldDefinition{
		Base:         model.Base{TenantID: actor.TenantID},
		EntityType:   in.EntityType,
		FieldName:    name,
		DisplayLabel: name,
		FieldType:    in.FieldType,
		IsActive:     true,
	}
	applyDefinition(def, in)

	if in.SortOrder == nil {
		max, err := s.repo.MaxSortOrder(ctx, actor.TenantID, in.EntityType)
		if err != nil {
			return nil, err
		}
		def.SortOrder = max + 1
	}

	def.Touch(actor.UserID)
	if err := s.repo.CreateDefinition(ctx, def); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("custom_fields", "create")
	return def, nil
}

func (s *CustomFieldService) UpdateDefinition(ctx context.Context, actor Actor, id uuid.UUID, in CustomFieldInput) (*model.CustomFieldDefinition, error) {
	def, err := s.repo.GetDefinition(ctx, actor.TenantID, id)
	if err != nil {
		return nil, notFound(err, "Custom field definition not found")
	}
	applyDefinition(def, in)
	def.Touch(actor.UserID)
	if err := s.repo.UpdateDefinition(ctx, def); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("custom_fields", "update")
	return def, nil
}

// DeactivateDefinition hides the field from forms while keeping stored values
func (s *CustomFieldService) DeactivateDefinition(ctx context.Context, actor Actor, id uuid.UUID) error {
	def, err := s.repo.GetDefinition(ctx, actor.TenantID, id)
	if err != nil {
		return notFound(err, "Custom field definition not found")
	}
	def.IsActive = false
	def.Touch(actor.UserID)
	if err := s.repo.UpdateDefinition(ctx, def); err != nil {
		return err
	}
	prometheus.RecordOperation("custom_fields", "deactivate")
	return nil
}

func (s *CustomFieldService) Reorder(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.BadRequest("At least one field id is required")
	}
	return s.repo.Reorder(ctx, tenantID, ids)
}

func (s *CustomFieldService) Values(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]model.CustomFieldValue, error) {
	return s.repo.Values(ctx, tenantID, entityType, entityID)
}

// SetValues upserts values keyed by field name. Unknown and inactive fields are skipped.
func (s *CustomFieldService) SetValues(ctx context.Context, actor Actor, entityType string, entityID uuid.UUID, values map[string]interface{}) ([]model.CustomFieldValue, error) {
	defs, err := s.repo.ListDefinitions(ctx, actor.TenantID, entityType, false)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.CustomFieldDefinition, len(defs))
	for _, d := range defs {
		byName[d.FieldName] = d
	}

	var rows []model.CustomFieldValue
	for name, raw := range values {
		def, ok := byName[name]
		if !ok {
			continue
		}
		row := model.CustomFieldValue{
			Base:              model.Base{TenantID: actor.TenantID},
			FieldDefinitionID: def.ID,
			EntityType:        entityType,
			EntityID:          entityID,
		}
		if err := setTypedValue(&row, def, raw); err != nil {
			return nil, err
		}
		row.Touch(actor.UserID)
		rows = append(rows, row)
	}

	if err := s.repo.UpsertValues(ctx, rows); err != nil {
		return nil, err
	}
	prometheus.RecordOperation("custom_fields", "set_values")
	return s.repo.Values(ctx, actor.TenantID, entityType, entityID)
}

func (s *CustomFieldService) DeleteValue(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.DeleteValue(ctx, tenantID, id); err != nil {
		return notFound(err, "Custom field value not found")
	}
	return nil
}

func applyDefinition(def *model.CustomFieldDefinition, in CustomFieldInput) {
	if in.DisplayLabel != nil {
		def.DisplayLabel = *in.DisplayLabel
	}
	if in.PicklistOptions != nil {
		def.PicklistOptions = datatypes.JSON(mustJSON(in.PicklistOptions))
	}
	if in.DefaultValue != nil {
		def.DefaultValue = *in.DefaultValue
	}
	if in.IsRequired != nil {
		def.IsRequired = *in.IsRequired
	}
	if in.IsSearchable != nil {
		def.IsSearchable = *in.IsSearchable
	}
	if in.IsVisibleInList != nil {
		def.IsVisibleInList = *in.IsVisibleInList
	}
	if in.Section != nil {
		def.Section = *in.Section
	}
	if in.HelpText != nil {
		def.HelpText = *in.HelpText
	}
	if in.SortOrder != nil {
		def.SortOrder = *in.SortOrder
	}
	if in.IsActive != nil {
		def.IsActive = *in.IsActive
	}
	if in.LookupEntityType != nil {
		def.LookupEntityType = *in.LookupEntityType
	}
}

// setTypedValue stores raw in the column matching the field type. A nil raw clears the value.
func setTypedValue(row *model.CustomFieldValue, def model.CustomFieldDefinition, raw interface{}) error {
	if raw == nil {
		return nil
	}
	invalid := func(kind string) error {
		return apperror.BadRequest("Invalid %s value for field '%s'", kind, def.FieldName)
	}

	switch def.FieldType {
	case model.FieldTypeNumber, model.FieldTypeCurrency, model.FieldTypePercent:
		var n float64
		switch v := raw.(type) {
		case float64:
			n = v
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return invalid("number")
			}
			n = parsed
		default:
			return invalid("number")
		}
		row.NumberValue = &n

	case model.FieldTypeDate, model.FieldTypeDateTime:
		str, ok := raw.(string)
		if !ok {
			return invalid("date")
		}
		t, err := parseDateValue(str)
		if err != nil {
			return invalid("date")
		}
		row.DateValue = &t

	case model.FieldTypeCheckbox:
		var b bool
		switch v := raw.(type) {
		case bool:
			b = v
		case string:
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return invalid("checkbox")
			}
			b = parsed
		default:
			return invalid("checkbox")
		}
		row.BoolValue = &b

	case model.FieldTypePicklist:
		str := fmt.Sprint(raw)
		row.PicklistValue = &str

	case model.FieldTypeMultiPicklist:
		var items []string
		switch v := raw.(type) {
		case []interface{}:
			for _, item := range v {
				items = append(items, fmt.Sprint(item))
			}
		case string:
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
		default:
			return invalid("picklist")
		}
		encoded, _ := json.Marshal(items)
		str := string(encoded)
		row.PicklistValue = &str

	case model.FieldTypeLookup:
		str, ok := raw.(string)
		if !ok {
			return invalid("lookup")
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return invalid("lookup")
		}
		row.LookupValue = &id

	default:
		str := fmt.Sprint(raw)
		row.TextValue = &str
	}
	return nil
}

func parseDateValue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, s)
}
