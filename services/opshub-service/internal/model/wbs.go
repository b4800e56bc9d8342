package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WBS element types
const (
	WbsTypeBillable    = "Billable"
	WbsTypeNonBillable = "NonBillable"
	WbsTypeOverhead    = "Overhead"
	WbsTypeBidProposal = "BidAndProposal"
)

func ValidWbsType(t string) bool {
	switch t {
	case WbsTypeBillable, WbsTypeNonBillable, WbsTypeOverhead, WbsTypeBidProposal:
		return true
	}
	return false
}

// WBS operational status
const (
	WbsStatusDraft  = "Draft"
	WbsStatusActive = "Active"
	WbsStatusClosed = "Closed"
)

type WbsApprovalStatus string

const (
	WbsApprovalDraft           WbsApprovalStatus = "Draft"
	WbsApprovalPendingApproval WbsApprovalStatus = "PendingApproval"
	WbsApprovalApproved        WbsApprovalStatus = "Approved"
	WbsApprovalRejected        WbsApprovalStatus = "Rejected"
	WbsApprovalSuspended       WbsApprovalStatus = "Suspended"
	WbsApprovalClosed          WbsApprovalStatus = "Closed"
)

// Editable reports whether the element may be changed or submitted in this state
func (s WbsApprovalStatus) Editable() bool {
	return s == WbsApprovalDraft || s == WbsApprovalRejected
}

// WBS history change types
const (
	WbsChangeCreated       = "Created"
	WbsChangeUpdated       = "Updated"
	WbsChangeStatusChanged = "StatusChanged"
)

// WbsElement is a cost-tracking unit under a project
type WbsElement struct {
	Base
	ProjectID        uuid.UUID         `json:"project_id" gorm:"type:uuid;index;not null"`
	Code             string            `json:"code" gorm:"type:varchar(50);not null"`
	Description      string            `json:"description" gorm:"type:text"`
	Type             string            `json:"type" gorm:"type:varchar(30);not null"`
	Status           string            `json:"status" gorm:"type:varchar(20);not null"`
	ApprovalStatus   WbsApprovalStatus `json:"approval_status" gorm:"type:varchar(20);index;not null"`
	StartDate        time.Time         `json:"start_date" gorm:"type:date;not null"`
	EndDate          *time.Time        `json:"end_date,omitempty" gorm:"type:date"`
	OwnerUserID      *uuid.UUID        `json:"owner_user_id,omitempty" gorm:"type:uuid;index"`
	ApproverUserID   *uuid.UUID        `json:"approver_user_id,omitempty" gorm:"type:uuid;index"`
	ApprovedByUserID *uuid.UUID        `json:"approved_by_user_id,omitempty" gorm:"type:uuid"`
	ApprovedAt       *time.Time        `json:"approved_at,omitempty"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty"`
	ApprovalNotes    string            `json:"approval_notes" gorm:"type:text"`

	Project *Project           `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	History []WbsChangeHistory `json:"history,omitempty" gorm:"foreignKey:WbsElementID"`
}

// WbsChangeHistory is an append-only record of changes to a WBS element
type WbsChangeHistory struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID      `json:"tenant_id" gorm:"type:uuid;index;not null"`
	WbsElementID    uuid.UUID      `json:"wbs_element_id" gorm:"type:uuid;index;not null"`
	ChangedByUserID uuid.UUID      `json:"changed_by_user_id" gorm:"type:uuid;not null"`
	ChangedAt       time.Time      `json:"changed_at" gorm:"index;not null"`
	ChangeType      string         `json:"change_type" gorm:"type:varchar(20);not null"`
	OldValues       datatypes.JSON `json:"old_values,omitempty" gorm:"type:jsonb"`
	NewValues       datatypes.JSON `json:"new_values,omitempty" gorm:"type:jsonb"`
	Notes           string         `json:"notes" gorm:"type:text"`
}

func (h *WbsChangeHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// WbsSnapshot is the subset of a WBS element recorded in change history
type WbsSnapshot struct {
	Code           string            `json:"code"`
	Description    string            `json:"description"`
	Type           string            `json:"type"`
	Status         string            `json:"status"`
	ApprovalStatus WbsApprovalStatus `json:"approval_status"`
	StartDate      time.Time         `json:"start_date"`
	EndDate        *time.Time        `json:"end_date,omitempty"`
	OwnerUserID    *uuid.UUID        `json:"owner_user_id,omitempty"`
	ApproverUserID *uuid.UUID        `json:"approver_user_id,omitempty"`
}

// Snapshot captures the fields tracked by change history
func (w *WbsElement) Snapshot() WbsSnapshot {
	return WbsSnapshot{
		Code:           w.Code,
		Description:    w.Description,
		Type:           w.Type,
		Status:         w.Status,
		ApprovalStatus: w.ApprovalStatus,
		StartDate:      w.StartDate,
		EndDate:        w.EndDate,
		OwnerUserID:    w.OwnerUserID,
		ApproverUserID: w.ApproverUserID,
	}
}
