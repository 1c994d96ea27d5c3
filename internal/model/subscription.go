package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanType string

const (
	PlanBasic PlanType = "basic"
	PlanPro   PlanType = "pro"
)

func (p PlanType) Valid() bool {
	return p == PlanBasic || p == PlanPro
}

// Subscription mirrors a Stripe subscription. Rows are upserted on
// StripeSubscriptionID; LastEventAt holds the Stripe creation time of the
// event that last wrote the row so older events never overwrite newer state.
type Subscription struct {
	ID                   string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               string     `gorm:"type:uuid;not null;index" json:"user_id"`
	StripeCustomerID     string     `gorm:"size:64;not null;index" json:"stripe_customer_id"`
	StripeSubscriptionID string     `gorm:"size:64;not null;uniqueIndex" json:"stripe_subscription_id"`
	StripePriceID        string     `gorm:"size:64" json:"stripe_price_id"`
	PlanType             PlanType   `gorm:"size:16;not null" json:"plan_type"`
	Status               string     `gorm:"size:32;not null;index" json:"status"`
	CurrentPeriodStart   *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `gorm:"not null;default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time `json:"canceled_at,omitempty"`
	LastEventAt          time.Time  `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

// Active reports whether the subscription currently grants its plan.
func (s *Subscription) Active(now time.Time) bool {
	if s.Status != "active" && s.Status != "trialing" {
		return false
	}
	if s.CurrentPeriodEnd != nil && !now.Before(*s.CurrentPeriodEnd) {
		return false
	}
	return true
}

type SubscriptionEvent struct {
	ID                   string         `gorm:"type:uuid;primaryKey" json:"id"`
	StripeEventID        string         `gorm:"size:64;not null;uniqueIndex" json:"stripe_event_id"`
	Type                 string         `gorm:"size:64;not null;index" json:"type"`
	StripeSubscriptionID string         `gorm:"size:64;index" json:"stripe_subscription_id,omitempty"`
	Payload              datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	ProcessedAt          *time.Time     `json:"processed_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

func (e *SubscriptionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = newID()
	}
	return nil
}

type Invoice struct {
	ID                   string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               string     `gorm:"type:uuid;not null;index" json:"user_id"`
	StripeInvoiceID      string     `gorm:"size:64;not null;uniqueIndex" json:"stripe_invoice_id"`
	StripeSubscriptionID string     `gorm:"size:64;index" json:"stripe_subscription_id"`
	AmountDue            int64      `json:"amount_due"`
	AmountPaid           int64      `json:"amount_paid"`
	Currency             string     `gorm:"size:8" json:"currency"`
	Status               string     `gorm:"size:32;index" json:"status"`
	HostedInvoiceURL     string     `gorm:"size:1024" json:"hosted_invoice_url,omitempty"`
	InvoicePDF           string     `gorm:"size:1024" json:"invoice_pdf,omitempty"`
	PeriodStart          *time.Time `json:"period_start,omitempty"`
	PeriodEnd            *time.Time `json:"period_end,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = newID()
	}
	return nil
}
