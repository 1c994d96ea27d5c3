package model

import (
	"time"

	"gorm.io/gorm"
)

type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

type Chat struct {
	ID         string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string     `gorm:"type:uuid;not null;index" json:"user_id"`
	CaseID     *string    `gorm:"type:uuid;index" json:"case_id,omitempty"`
	Title      string     `gorm:"size:256;not null" json:"title"`
	Visibility Visibility `gorm:"size:16;not null;default:private" json:"visibility"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Visibility == "" {
		c.Visibility = VisibilityPrivate
	}
	return nil
}

// Stream marks a resumable assistant response stream for a chat.
type Stream struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID    string    `gorm:"type:uuid;not null;index" json:"chat_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Stream) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}
