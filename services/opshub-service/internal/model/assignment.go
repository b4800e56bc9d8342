package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssignmentStatus string

// Statuses shared by project assignments and WBS assignments
const (
	AssignmentDraft           AssignmentStatus = "Draft"
	AssignmentPendingApproval AssignmentStatus = "PendingApproval"
	AssignmentActive          AssignmentStatus = "Active"
	AssignmentCompleted       AssignmentStatus = "Completed"
	AssignmentCancelled       AssignmentStatus = "Cancelled"
	// AssignmentRejected only appears in assignment history
	AssignmentRejected AssignmentStatus = "Rejected"
)

// ProjectAssignment is the project-level approval gate for a person's work
type ProjectAssignment struct {
	Base
	SoftDelete
	UserID            uuid.UUID        `json:"user_id" gorm:"type:uuid;index;not null"`
	ProjectID         uuid.UUID        `json:"project_id" gorm:"type:uuid;index;not null"`
	StartDate         time.Time        `json:"start_date" gorm:"type:date;not null"`
	EndDate           *time.Time       `json:"end_date,omitempty" gorm:"type:date"`
	Status            AssignmentStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	Notes             string           `json:"notes" gorm:"type:text"`
	RequestedByUserID *uuid.UUID       `json:"requested_by_user_id,omitempty" gorm:"type:uuid"`
	ApprovedByUserID  *uuid.UUID       `json:"approved_by_user_id,omitempty" gorm:"type:uuid"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`

	Project        *Project     `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	WbsAssignments []Assignment `json:"wbs_assignments,omitempty" gorm:"foreignKey:ProjectAssignmentID"`
}

// Assignment allocates a person to a WBS element
type Assignment struct {
	Base
	SoftDelete
	UserID              uuid.UUID        `json:"user_id" gorm:"type:uuid;index;not null"`
	WbsElementID        uuid.UUID        `json:"wbs_element_id" gorm:"type:uuid;index;not null"`
	ProjectAssignmentID *uuid.UUID       `json:"project_assignment_id,omitempty" gorm:"type:uuid;index"`
	StartDate           time.Time        `json:"start_date" gorm:"type:date;not null"`
	EndDate             *time.Time       `json:"end_date,omitempty" gorm:"type:date"`
	AllocationPct       int              `json:"allocation_pct" gorm:"not null"`
	Status              AssignmentStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	Notes               string           `json:"notes" gorm:"type:text"`
	ApprovedByUserID    *uuid.UUID       `json:"approved_by_user_id,omitempty" gorm:"type:uuid"`
	ApprovedAt          *time.Time       `json:"approved_at,omitempty"`

	WbsElement *WbsElement `json:"wbs_element,omitempty" gorm:"foreignKey:WbsElementID"`
}

// AssignmentHistory records status changes of assignments and assignment requests
type AssignmentHistory struct {
	ID                  uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID            uuid.UUID        `json:"tenant_id" gorm:"type:uuid;index;not null"`
	AssignmentID        *uuid.UUID       `json:"assignment_id,omitempty" gorm:"type:uuid;index"`
	AssignmentRequestID *uuid.UUID       `json:"assignment_request_id,omitempty" gorm:"type:uuid;index"`
	ChangedByUserID     uuid.UUID        `json:"changed_by_user_id" gorm:"type:uuid;not null"`
	ChangedAt           time.Time        `json:"changed_at" gorm:"not null"`
	Status              AssignmentStatus `json:"status" gorm:"type:varchar(20);not null"`
	Notes               string           `json:"notes" gorm:"type:text"`
	Snapshot            datatypes.JSON   `json:"snapshot,omitempty" gorm:"type:jsonb"`
}

func (h *AssignmentHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
