package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TimeOffPending  = "Pending"
	TimeOffApproved = "Approved"
	TimeOffRejected = "Rejected"
)

// CompanyHoliday is a tenant-wide non-working day
type CompanyHoliday struct {
	Base
	Name        string    `json:"name" gorm:"type:varchar(200);not null"`
	HolidayDate time.Time `json:"holiday_date" gorm:"type:date;index;not null"`
	IsObserved  bool      `json:"is_observed"`
}

// TimeOffEntry is a person's leave over an inclusive date range
type TimeOffEntry struct {
	Base
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	StartDate time.Time `json:"start_date" gorm:"type:date;not null"`
	EndDate   time.Time `json:"end_date" gorm:"type:date;not null"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null"`
	Notes     string    `json:"notes" gorm:"type:text"`

	ReviewedByUserID *uuid.UUID `json:"reviewed_by_user_id,omitempty" gorm:"type:uuid"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
}
