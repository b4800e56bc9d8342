package model

import "github.com/google/uuid"

// Space types
const (
	SpaceTypeDesk       = "Desk"
	SpaceTypeRoom       = "Room"
	SpaceTypePhoneBooth = "PhoneBooth"
	SpaceTypeParking    = "Parking"
)

// Office is a physical location that holds bookable spaces
type Office struct {
	Base
	SoftDelete
	Name     string `json:"name" gorm:"type:varchar(200);not null"`
	Address  string `json:"address" gorm:"type:text"`
	City     string `json:"city" gorm:"type:varchar(100)"`
	Timezone string `json:"timezone" gorm:"type:varchar(64)"`
	IsActive bool   `json:"is_active" gorm:"not null"`

	Spaces []Space `json:"spaces,omitempty" gorm:"foreignKey:OfficeID"`
}

// Space is a bookable desk, room or parking spot inside an office
type Space struct {
	Base
	OfficeID uuid.UUID `json:"office_id" gorm:"type:uuid;index;not null"`
	Name     string    `json:"name" gorm:"type:varchar(200);not null"`
	Type     string    `json:"type" gorm:"type:varchar(50);not null"`
	Capacity int       `json:"capacity" gorm:"not null"`
	IsActive bool      `json:"is_active" gorm:"not null"`

	Office *Office `json:"office,omitempty" gorm:"foreignKey:OfficeID"`
}
