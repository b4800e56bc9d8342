package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ArchiveStatusPermanentlyDeleted = "PermanentlyDeleted"
	HardDeleteReason                = "Hard delete operation"
)

// Archived entity types
const (
	EntityProjectAssignment = "ProjectAssignment"
	EntityAssignment        = "Assignment"
	EntityResumeProfile     = "ResumeProfile"
	EntityOffice            = "Office"
	EntitySalesOpportunity  = "SalesOpportunity"
	EntitySalesAccount      = "SalesAccount"
	EntitySalesContact      = "SalesContact"
)

// DataArchive keeps a JSON snapshot of a row removed by a hard delete
type DataArchive struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID         uuid.UUID      `json:"tenant_id" gorm:"type:uuid;index;not null"`
	EntityType       string         `json:"entity_type" gorm:"type:varchar(50);index;not null"`
	EntityID         uuid.UUID      `json:"entity_id" gorm:"type:uuid;index;not null"`
	EntitySnapshot   datatypes.JSON `json:"entity_snapshot" gorm:"type:jsonb;not null"`
	ArchivedAt       time.Time      `json:"archived_at" gorm:"not null"`
	ArchivedByUserID uuid.UUID      `json:"archived_by_user_id" gorm:"type:uuid;not null"`
	ArchivalReason   string         `json:"archival_reason" gorm:"type:text"`
	Status           string         `json:"status" gorm:"type:varchar(30);not null"`
}

func (a *DataArchive) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
