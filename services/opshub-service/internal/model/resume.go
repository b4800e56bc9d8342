package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ResumeDraft         = "Draft"
	ResumePendingReview = "PendingReview"
	ResumeApproved      = "Approved"
	ResumeArchived      = "Archived"
)

// ResumeProfile is a person's curated resume for proposals
type ResumeProfile struct {
	Base
	SoftDelete
	UserID           uuid.UUID                   `json:"user_id" gorm:"type:uuid;index;not null"`
	Title            string                      `json:"title" gorm:"type:varchar(200)"`
	Summary          string                      `json:"summary" gorm:"type:text"`
	Skills           datatypes.JSONSlice[string] `json:"skills" gorm:"type:jsonb"`
	Certifications   datatypes.JSONSlice[string] `json:"certifications" gorm:"type:jsonb"`
	Status           string                      `json:"status" gorm:"type:varchar(20);not null"`
	LastReviewedAt   *time.Time                  `json:"last_reviewed_at,omitempty"`
	ReviewedByUserID *uuid.UUID                  `json:"reviewed_by_user_id,omitempty" gorm:"type:uuid"`
}
