package model

import (
	"time"

	"gorm.io/gorm"
)

type CaseStatus string

const (
	CaseStatusOpen       CaseStatus = "open"
	CaseStatusInProgress CaseStatus = "in_progress"
	CaseStatusClosed     CaseStatus = "closed"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusOpen, CaseStatusInProgress, CaseStatusClosed:
		return true
	}
	return false
}

// Case groups the chats and files of one legal matter.
type Case struct {
	ID          string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string         `gorm:"size:256;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      CaseStatus     `gorm:"size:16;not null;default:open" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Status == "" {
		c.Status = CaseStatusOpen
	}
	return nil
}
