package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesAccount is a customer organization in the sales pipeline
type SalesAccount struct {
	Base
	SoftDelete
	Name     string `json:"name" gorm:"type:varchar(200);index;not null"`
	Industry string `json:"industry" gorm:"type:varchar(100)"`
	Website  string `json:"website" gorm:"type:varchar(255)"`
	Phone    string `json:"phone" gorm:"type:varchar(50)"`
	Address  string `json:"address" gorm:"type:text"`
	Notes    string `json:"notes" gorm:"type:text"`
}

// SalesContact is a person at a sales account
type SalesContact struct {
	Base
	SoftDelete
	AccountID *uuid.UUID `json:"account_id,omitempty" gorm:"type:uuid;index"`
	FirstName string     `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string     `json:"last_name" gorm:"type:varchar(100);not null"`
	Email     string     `json:"email" gorm:"type:varchar(255)"`
	Phone     string     `json:"phone" gorm:"type:varchar(50)"`
	Title     string     `json:"title" gorm:"type:varchar(100)"`
}

// SalesStage is a step of the tenant's pipeline
type SalesStage struct {
	Base
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	SortOrder   int    `json:"sort_order" gorm:"not null"`
	Probability int    `json:"probability" gorm:"not null"`
	IsClosed    bool   `json:"is_closed"`
	IsWon       bool   `json:"is_won"`
	IsActive    bool   `json:"is_active" gorm:"not null"`
}

// SalesOpportunity is a potential deal moving through stages
type SalesOpportunity struct {
	Base
	SoftDelete
	OpportunityNumber  string          `json:"opportunity_number" gorm:"type:varchar(20);index;not null"`
	Name               string          `json:"name" gorm:"type:varchar(200);not null"`
	AccountID          *uuid.UUID      `json:"account_id,omitempty" gorm:"type:uuid;index"`
	PrimaryContactID   *uuid.UUID      `json:"primary_contact_id,omitempty" gorm:"type:uuid"`
	StageID            uuid.UUID       `json:"stage_id" gorm:"type:uuid;index;not null"`
	OwnerUserID        uuid.UUID       `json:"owner_user_id" gorm:"type:uuid;index;not null"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric(18,2);not null"`
	Probability        int             `json:"probability" gorm:"not null"`
	TotalContractValue decimal.Decimal `json:"total_contract_value" gorm:"type:numeric(18,2);not null"`
	CloseDate          *time.Time      `json:"close_date,omitempty" gorm:"type:date"`
	Description        string          `json:"description" gorm:"type:text"`
	Source             string          `json:"source" gorm:"type:varchar(50)"`

	Stage       *SalesStage             `json:"stage,omitempty" gorm:"foreignKey:StageID"`
	Account     *SalesAccount           `json:"account,omitempty" gorm:"foreignKey:AccountID"`
	TeamMembers []OpportunityTeamMember `json:"team_members,omitempty" gorm:"foreignKey:OpportunityID"`
}

// WeightedAmount is the amount scaled by the win probability
func (o *SalesOpportunity) WeightedAmount() decimal.Decimal {
	return o.Amount.Mul(decimal.NewFromInt(int64(o.Probability))).Div(decimal.NewFromInt(100))
}

// OpportunityTeamMember links a user to an opportunity with a role
type OpportunityTeamMember struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	OpportunityID uuid.UUID `json:"opportunity_id" gorm:"type:uuid;uniqueIndex:idx_opportunity_member;not null"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_opportunity_member;not null"`
	Role          string    `json:"role" gorm:"type:varchar(50)"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *OpportunityTeamMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ContractVehicle is a contracting vehicle (GWAC, IDIQ, BPA...) opportunities are bid through.
// Deleting one only deactivates it.
type ContractVehicle struct {
	Base
	Name             string           `json:"name" gorm:"type:varchar(200);index;not null"`
	ContractNumber   string           `json:"contract_number" gorm:"type:varchar(100)"`
	Description      string           `json:"description" gorm:"type:text"`
	VehicleType      string           `json:"vehicle_type" gorm:"type:varchar(50);index"`
	IssuingAgency    string           `json:"issuing_agency" gorm:"type:varchar(200)"`
	AwardDate        *time.Time       `json:"award_date,omitempty" gorm:"type:date"`
	StartDate        *time.Time       `json:"start_date,omitempty" gorm:"type:date"`
	EndDate          *time.Time       `json:"end_date,omitempty" gorm:"type:date"`
	ExpirationDate   *time.Time       `json:"expiration_date,omitempty" gorm:"type:date"`
	CeilingValue     *decimal.Decimal `json:"ceiling_value,omitempty" gorm:"type:numeric(18,2)"`
	AwardedValue     *decimal.Decimal `json:"awarded_value,omitempty" gorm:"type:numeric(18,2)"`
	EligibilityNotes string           `json:"eligibility_notes" gorm:"type:text"`
	IsActive         bool             `json:"is_active" gorm:"not null"`
}

// RemainingValue is the unawarded part of the ceiling, nil unless both are known
func (v *ContractVehicle) RemainingValue() *decimal.Decimal {
	if v.CeilingValue == nil || v.AwardedValue == nil {
		return nil
	}
	remaining := v.CeilingValue.Sub(*v.AwardedValue)
	return &remaining
}

// SalesPicklistDefinition is a tenant-managed list of choices for a sales field.
// System picklists keep their definition; only their values change.
type SalesPicklistDefinition struct {
	Base
	PicklistName     string `json:"picklist_name" gorm:"type:varchar(100);index;not null"`
	DisplayLabel     string `json:"display_label" gorm:"type:varchar(200);not null"`
	Description      string `json:"description" gorm:"type:text"`
	IsSystemPicklist bool   `json:"is_system_picklist"`
	AllowMultiple    bool   `json:"allow_multiple"`
	EntityType       string `json:"entity_type" gorm:"type:varchar(50)"`
	FieldName        string `json:"field_name" gorm:"type:varchar(100)"`
	SortOrder        int    `json:"sort_order"`
	IsActive         bool   `json:"is_active" gorm:"not null"`

	Values []SalesPicklistValue `json:"values,omitempty" gorm:"foreignKey:PicklistDefinitionID"`
}

// SalesPicklistValue is one choice of a picklist. Inactive values stay for history.
type SalesPicklistValue struct {
	Base
	PicklistDefinitionID uuid.UUID `json:"picklist_definition_id" gorm:"type:uuid;uniqueIndex:idx_picklist_value;not null"`
	Value                string    `json:"value" gorm:"type:varchar(100);uniqueIndex:idx_picklist_value;not null"`
	Label                string    `json:"label" gorm:"type:varchar(200);not null"`
	SortOrder            int       `json:"sort_order"`
	IsDefault            bool      `json:"is_default"`
	IsActive             bool      `json:"is_active" gorm:"not null"`
	Color                string    `json:"color" gorm:"type:varchar(20)"`
	Description          string    `json:"description" gorm:"type:text"`
}
