package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentRequestStatus string

const (
	RequestPending   AssignmentRequestStatus = "Pending"
	RequestApproved  AssignmentRequestStatus = "Approved"
	RequestRejected  AssignmentRequestStatus = "Rejected"
	RequestCancelled AssignmentRequestStatus = "Cancelled"
)

// DefaultApproverGroupName is used when a request names no approver group
const DefaultApproverGroupName = "System Administrators"

// AssignmentRequest asks for a person to be staffed on a project
type AssignmentRequest struct {
	Base
	RequestedByUserID  uuid.UUID               `json:"requested_by_user_id" gorm:"type:uuid;index;not null"`
	RequestedForUserID uuid.UUID               `json:"requested_for_user_id" gorm:"type:uuid;index;not null"`
	ProjectID          uuid.UUID               `json:"project_id" gorm:"type:uuid;index;not null"`
	WbsElementID       *uuid.UUID              `json:"wbs_element_id,omitempty" gorm:"type:uuid"`
	StartDate          *time.Time              `json:"start_date,omitempty" gorm:"type:date"`
	EndDate            *time.Time              `json:"end_date,omitempty" gorm:"type:date"`
	AllocationPct      int                     `json:"allocation_pct" gorm:"not null"`
	Notes              string                  `json:"notes" gorm:"type:text"`
	Status             AssignmentRequestStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	ApproverGroupID    *uuid.UUID              `json:"approver_group_id,omitempty" gorm:"type:uuid"`
	ApprovedByUserID   *uuid.UUID              `json:"approved_by_user_id,omitempty" gorm:"type:uuid"`
	ResolvedAt         *time.Time              `json:"resolved_at,omitempty"`
	AssignmentID       *uuid.UUID              `json:"assignment_id,omitempty" gorm:"type:uuid"`

	Project    *Project    `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	WbsElement *WbsElement `json:"wbs_element,omitempty" gorm:"foreignKey:WbsElementID"`
}

// Group is a named set of users, used to route approvals
type Group struct {
	Base
	Name        string `json:"name" gorm:"type:varchar(200);not null"`
	Description string `json:"description" gorm:"type:text"`
	IsActive    bool   `json:"is_active" gorm:"not null"`

	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
}

// GroupMember links a user to a group
type GroupMember struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	GroupID  uuid.UUID `json:"group_id" gorm:"type:uuid;uniqueIndex:idx_group_member;not null"`
	UserID   uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex:idx_group_member;not null"`
	Role     string    `json:"role" gorm:"type:varchar(50)"`
}

func (m *GroupMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
