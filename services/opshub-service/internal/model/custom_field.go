package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entity types that accept custom fields
const (
	CustomEntityOpportunity = "Opportunity"
	CustomEntityAccount     = "Account"
	CustomEntityContact     = "Contact"
)

// Custom field types
const (
	FieldTypeText          = "Text"
	FieldTypeTextArea      = "TextArea"
	FieldTypeNumber        = "Number"
	FieldTypeCurrency      = "Currency"
	FieldTypePercent       = "Percent"
	FieldTypeDate          = "Date"
	FieldTypeDateTime      = "DateTime"
	FieldTypeCheckbox      = "Checkbox"
	FieldTypePicklist      = "Picklist"
	FieldTypeMultiPicklist = "MultiPicklist"
	FieldTypeLookup        = "Lookup"
	FieldTypeURL           = "Url"
	FieldTypeEmail         = "Email"
	FieldTypePhone         = "Phone"
)

// CustomFieldDefinition describes a tenant-defined field on a sales entity
type CustomFieldDefinition struct {
	Base
	EntityType       string         `json:"entity_type" gorm:"type:varchar(30);index;not null"`
	FieldName        string         `json:"field_name" gorm:"type:varchar(100);not null"`
	DisplayLabel     string         `json:"display_label" gorm:"type:varchar(200);not null"`
	FieldType        string         `json:"field_type" gorm:"type:varchar(30);not null"`
	PicklistOptions  datatypes.JSON `json:"picklist_options,omitempty" gorm:"type:jsonb"`
	DefaultValue     string         `json:"default_value"`
	IsRequired       bool           `json:"is_required"`
	IsSearchable     bool           `json:"is_searchable"`
	IsVisibleInList  bool           `json:"is_visible_in_list"`
	Section          string         `json:"section" gorm:"type:varchar(100)"`
	HelpText         string         `json:"help_text" gorm:"type:text"`
	SortOrder        int            `json:"sort_order" gorm:"not null"`
	IsActive         bool           `json:"is_active" gorm:"not null"`
	LookupEntityType string         `json:"lookup_entity_type,omitempty" gorm:"type:varchar(30)"`
}

// CustomFieldValue stores one field value for one entity in the column matching its type
type CustomFieldValue struct {
	Base
	FieldDefinitionID uuid.UUID  `json:"field_definition_id" gorm:"type:uuid;not null;uniqueIndex:idx_custom_value_entity"`
	EntityType        string     `json:"entity_type" gorm:"type:varchar(30);not null;index:idx_custom_value_lookup"`
	EntityID          uuid.UUID  `json:"entity_id" gorm:"type:uuid;not null;uniqueIndex:idx_custom_value_entity;index:idx_custom_value_lookup"`
	TextValue         *string    `json:"text_value,omitempty" gorm:"type:text"`
	NumberValue       *float64   `json:"number_value,omitempty"`
	DateValue         *time.Time `json:"date_value,omitempty"`
	BoolValue         *bool      `json:"bool_value,omitempty"`
	PicklistValue     *string    `json:"picklist_value,omitempty" gorm:"type:text"`
	LookupValue       *uuid.UUID `json:"lookup_value,omitempty" gorm:"type:uuid"`

	FieldDefinition *CustomFieldDefinition `json:"field_definition,omitempty" gorm:"foreignKey:FieldDefinitionID"`
}
