package model

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleLawyer Role = "lawyer"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleLawyer, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string `gorm:"size:128;not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Name         string `gorm:"size:64;not null" json:"name"`
	LastName     string `gorm:"size:64" json:"last_name"`
	Phone        string `gorm:"size:32" json:"phone,omitempty"`
	Role         Role   `gorm:"size:16;not null;default:user;index" json:"role"`

	CountryID *uint `gorm:"index" json:"country_id,omitempty"`
	StateID   *uint `gorm:"index" json:"state_id,omitempty"`
	CityID    *uint `gorm:"index" json:"city_id,omitempty"`

	// Lawyer credentials. ProfessionalCardNumber is nil for non-lawyers so the
	// unique index only applies to lawyers.
	ProfessionalCardNumber *string    `gorm:"size:64;uniqueIndex" json:"professional_card_number,omitempty"`
	BarAssociation         string     `gorm:"size:128" json:"bar_association,omitempty"`
	Specialty              string     `gorm:"size:128;index" json:"specialty,omitempty"`
	YearsExperience        int        `json:"years_experience,omitempty"`
	CredentialsVerified    bool       `gorm:"not null;default:false" json:"credentials_verified"`
	CredentialsVerifiedAt  *time.Time `json:"credentials_verified_at,omitempty"`

	StripeCustomerID string `gorm:"size:64;index" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsLawyer() bool {
	return u.Role == RoleLawyer
}
