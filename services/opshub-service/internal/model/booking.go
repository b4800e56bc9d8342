package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingReserved  BookingStatus = "Reserved"
	BookingCheckedIn BookingStatus = "CheckedIn"
	BookingCompleted BookingStatus = "Completed"
	BookingCancelled BookingStatus = "Cancelled"
	BookingNoShow    BookingStatus = "NoShow"
)

// BlockingBookingStatuses hold a space and conflict with new bookings
var BlockingBookingStatuses = []BookingStatus{BookingReserved, BookingCheckedIn}

// Check-in methods
const (
	CheckInWeb    = "web"
	CheckInKiosk  = "kiosk"
	CheckInMobile = "mobile"
)

// Booking reserves a space for a user over a time window
type Booking struct {
	Base
	SpaceID       uuid.UUID     `json:"space_id" gorm:"type:uuid;index;not null"`
	UserID        uuid.UUID     `json:"user_id" gorm:"type:uuid;index;not null"`
	StartDatetime time.Time     `json:"start_datetime" gorm:"index;not null"`
	EndDatetime   time.Time     `json:"end_datetime" gorm:"not null"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	Notes         string        `json:"notes" gorm:"type:text"`
	// Version is incremented on every update and checked for optimistic concurrency
	Version int `json:"version" gorm:"not null"`

	Space         *Space         `json:"space,omitempty" gorm:"foreignKey:SpaceID"`
	CheckInEvents []CheckInEvent `json:"check_in_events,omitempty" gorm:"foreignKey:BookingID"`
}

// CheckInEvent records a user arriving for a booking
type CheckInEvent struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID `json:"tenant_id" gorm:"type:uuid;index;not null"`
	BookingID uuid.UUID `json:"booking_id" gorm:"type:uuid;index;not null"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Method    string    `json:"method" gorm:"type:varchar(20);not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
}

func (e *CheckInEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
