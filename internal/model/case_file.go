package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type VectorStatus string

const (
	VectorStatusPending    VectorStatus = "pending"
	VectorStatusProcessing VectorStatus = "processing"
	VectorStatusDone       VectorStatus = "done"
	VectorStatusFailed     VectorStatus = "failed"
)

type CaseFile struct {
	ID            string         `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID        string         `gorm:"type:uuid;not null;index" json:"case_id"`
	UserID        string         `gorm:"type:uuid;not null;index" json:"user_id"`
	FileName      string         `gorm:"size:256;not null" json:"file_name"`
	MimeType      string         `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes     int64          `gorm:"not null" json:"size_bytes"`
	StorageKey    string         `gorm:"size:512;not null" json:"-"`
	URL           string         `gorm:"size:1024" json:"url,omitempty"`
	ExtractedText string         `gorm:"type:text" json:"-"`
	VectorData    string         `gorm:"type:text" json:"-"` // JSON array of float32
	VectorStatus  VectorStatus   `gorm:"size:16;not null;default:pending;index" json:"vector_status"`
	VectorError   string         `gorm:"size:512" json:"vector_error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (f *CaseFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.VectorStatus == "" {
		f.VectorStatus = VectorStatusPending
	}
	return nil
}

// Vector returns the parsed vector; nil when absent or malformed.
func (f *CaseFile) Vector() []float32 {
	if f.VectorData == "" {
		return nil
	}
	var v []float32
	if err := json.Unmarshal([]byte(f.VectorData), &v); err != nil {
		return nil
	}
	return v
}

func (f *CaseFile) SetVector(vec []float32) {
	if len(vec) == 0 {
		f.VectorData = ""
		return
	}
	b, _ := json.Marshal(vec)
	f.VectorData = string(b)
}
