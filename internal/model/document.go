package model

import (
	"time"

	"gorm.io/gorm"
)

type DocumentKind string

const (
	DocumentKindText  DocumentKind = "text"
	DocumentKindCode  DocumentKind = "code"
	DocumentKindImage DocumentKind = "image"
	DocumentKindSheet DocumentKind = "sheet"
)

func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentKindText, DocumentKindCode, DocumentKindImage, DocumentKindSheet:
		return true
	}
	return false
}

// Document is versioned: every save inserts a row with the same ID and a new
// CreatedAt.
type Document struct {
	ID        string       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time    `gorm:"primaryKey" json:"created_at"`
	Title     string       `gorm:"size:256;not null" json:"title"`
	Content   string       `gorm:"type:text" json:"content"`
	Kind      DocumentKind `gorm:"size:16;not null;default:text" json:"kind"`
	UserID    string       `gorm:"type:uuid;not null;index" json:"user_id"`
}

type Suggestion struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID        string    `gorm:"type:uuid;not null;index" json:"document_id"`
	DocumentCreatedAt time.Time `gorm:"not null" json:"document_created_at"`
	OriginalText      string    `gorm:"type:text;not null" json:"original_text"`
	SuggestedText     string    `gorm:"type:text;not null" json:"suggested_text"`
	Description       string    `gorm:"type:text" json:"description"`
	IsResolved        bool      `gorm:"not null;default:false" json:"is_resolved"`
	UserID            string    `gorm:"type:uuid;not null" json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s *Suggestion) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}
