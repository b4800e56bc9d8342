package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	FeedbackNew      = "New"
	FeedbackInReview = "InReview"
	FeedbackResolved = "Resolved"
	FeedbackClosed   = "Closed"
)

// Feedback is a bug report, feature request or question from a user
type Feedback struct {
	Base
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	Type        string    `json:"type" gorm:"type:varchar(20);not null"`
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text"`
	PageURL     string    `json:"page_url" gorm:"type:varchar(500)"`
	Status      string    `json:"status" gorm:"type:varchar(20);index;not null"`
	AdminNotes  string    `json:"admin_notes" gorm:"type:text"`
}

// HelpArticle is in-app documentation. A nil TenantID marks a global article.
type HelpArticle struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    *uuid.UUID `json:"tenant_id,omitempty" gorm:"type:uuid;index"`
	Title       string     `json:"title" gorm:"type:varchar(200);not null"`
	Slug        string     `json:"slug" gorm:"type:varchar(200);index;not null"`
	Content     string     `json:"content" gorm:"type:text"`
	Category    string     `json:"category" gorm:"type:varchar(100);index"`
	IsPublished bool       `json:"is_published"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (a *HelpArticle) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
