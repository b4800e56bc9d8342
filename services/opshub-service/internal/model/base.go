package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base holds the identity, tenant and audit columns shared by tenant-owned records
type Base struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID  `json:"tenant_id" gorm:"type:uuid;index;not null"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CreatedByUserID *uuid.UUID `json:"created_by_user_id,omitempty" gorm:"type:uuid"`
	UpdatedByUserID *uuid.UUID `json:"updated_by_user_id,omitempty" gorm:"type:uuid"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Touch records who changed the row last
func (b *Base) Touch(userID uuid.UUID) {
	b.UpdatedByUserID = &userID
	if b.CreatedByUserID == nil {
		b.CreatedByUserID = &userID
	}
}

// SoftDelete marks a row hidden without removing it
type SoftDelete struct {
	IsDeleted       bool       `json:"is_deleted" gorm:"index;not null"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	DeletedByUserID *uuid.UUID `json:"deleted_by_user_id,omitempty" gorm:"type:uuid"`
	DeletionReason  string     `json:"deletion_reason,omitempty" gorm:"type:text"`
}

// SoftDeleteColumns returns the column updates for a soft delete
func SoftDeleteColumns(userID uuid.UUID, reason string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"is_deleted":         true,
		"deleted_at":         at,
		"deleted_by_user_id": userID,
		"deletion_reason":    reason,
	}
}

// RestoreColumns returns the column updates that undo a soft delete
func RestoreColumns() map[string]interface{} {
	return map[string]interface{}{
		"is_deleted":         false,
		"deleted_at":         nil,
		"deleted_by_user_id": nil,
		"deletion_reason":    "",
	}
}

// Overlaps reports whether [aStart, aEnd] and [bStart, bEnd] intersect.
// A nil end is open-ended.
func Overlaps(aStart time.Time, aEnd *time.Time, bStart time.Time, bEnd *time.Time) bool {
	if aEnd != nil && aEnd.Before(bStart) {
		return false
	}
	if bEnd != nil && bEnd.Before(aStart) {
		return false
	}
	return true
}

// Within reports whether [start, end] lies inside [outerStart, outerEnd]. A nil end is open-ended.
func Within(start time.Time, end *time.Time, outerStart time.Time, outerEnd *time.Time) bool {
	if start.Before(outerStart) {
		return false
	}
	if outerEnd == nil {
		return true
	}
	if start.After(*outerEnd) {
		return false
	}
	return end != nil && !end.After(*outerEnd)
}
