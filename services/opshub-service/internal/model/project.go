package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectActive = "Active"
	ProjectOnHold = "OnHold"
	ProjectClosed = "Closed"
)

// Project groups WBS elements and project assignments
type Project struct {
	Base
	Name          string     `json:"name" gorm:"type:varchar(200);not null"`
	ProgramCode   string     `json:"program_code" gorm:"type:varchar(50);index"`
	Description   string     `json:"description" gorm:"type:text"`
	StartDate     time.Time  `json:"start_date" gorm:"type:date;not null"`
	EndDate       *time.Time `json:"end_date,omitempty" gorm:"type:date"`
	Status        string     `json:"status" gorm:"type:varchar(20);not null"`
	ManagerUserID *uuid.UUID `json:"manager_user_id,omitempty" gorm:"type:uuid"`
}
