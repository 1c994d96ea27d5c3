package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lexdesk/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert writes the subscription keyed on its Stripe id. The update branch
// only applies when the incoming LastEventAt is not older than the stored
// one, so out-of-order webhook deliveries cannot roll state back. It reports
// whether the row was written.
func (r *SubscriptionRepository) Upsert(sub *model.Subscription) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_customer_id",
			"stripe_price_id",
			"plan_type",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"last_event_at",
			"updated_at",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "subscriptions.last_event_at <= excluded.last_event_at"},
		}},
	}).Create(sub)
	if res.Error != nil {
		return false, fmt.Errorf("upsert subscription failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SubscriptionRepository) GetByStripeID(stripeSubscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := r.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription failed: %w", err)
	}
	return &sub, nil
}

// GetCurrentByUserID returns the user's active subscription if any,
// otherwise the most recently updated one, otherwise nil.
func (r *SubscriptionRepository) GetCurrentByUserID(userID string, now time.Time) (*model.Subscription, error) {
	var list []model.Subscription
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list subscriptions failed: %w", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	for i := range list {
		if list[i].Active(now) {
			return &list[i], nil
		}
	}
	return &list[0], nil
}

// RecordEvent stores a webhook event once. It returns false when the event
// id was already recorded.
func (r *SubscriptionRepository) RecordEvent(event *model.SubscriptionEvent) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, fmt.Errorf("record subscription event failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SubscriptionRepository) MarkEventProcessed(stripeEventID string, at time.Time) error {
	if err := r.db.Model(&model.SubscriptionEvent{}).Where("stripe_event_id = ?", stripeEventID).Update("processed_at", at).Error; err != nil {
		return fmt.Errorf("mark event processed failed: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetEvent(stripeEventID string) (*model.SubscriptionEvent, error) {
	var ev model.SubscriptionEvent
	if err := r.db.Where("stripe_event_id = ?", stripeEventID).First(&ev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscription event failed: %w", err)
	}
	return &ev, nil
}

func (r *SubscriptionRepository) UpsertInvoice(inv *model.Invoice) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_subscription_id",
			"amount_due",
			"amount_paid",
			"currency",
			"status",
			"hosted_invoice_url",
			"invoice_pdf",
			"period_start",
			"period_end",
			"updated_at",
		}),
	}).Create(inv).Error
	if err != nil {
		return fmt.Errorf("upsert invoice failed: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) ListInvoicesByUserID(userID string, limit int) ([]model.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	var list []model.Invoice
	if err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list invoices failed: %w", err)
	}
	return list, nil
}
