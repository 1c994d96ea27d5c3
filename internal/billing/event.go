package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
)

// Event is a verified webhook delivery. Object holds the raw data.object.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
	Payload []byte
}

type SubscriptionObject struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	Metadata           map[string]string
}

type CheckoutObject struct {
	ID                string
	Mode              string
	CustomerID        string
	SubscriptionID    string
	ClientReferenceID string
	Metadata          map[string]string
}

type InvoiceObject struct {
	ID               string
	CustomerID       string
	SubscriptionID   string
	AmountDue        int64
	AmountPaid       int64
	Currency         string
	Status           string
	HostedInvoiceURL string
	InvoicePDF       string
	PeriodStart      *time.Time
	PeriodEnd        *time.Time
}

func (e Event) Subscription() (*SubscriptionObject, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(e.Object, &sub); err != nil {
		return nil, fmt.Errorf("decode stripe subscription failed: %w", err)
	}
	out := &SubscriptionObject{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: Unix(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   Unix(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         Unix(sub.CanceledAt),
		Metadata:           sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out, nil
}

func (e Event) CheckoutSession() (*CheckoutObject, error) {
	var s stripe.CheckoutSession
	if err := json.Unmarshal(e.Object, &s); err != nil {
		return nil, fmt.Errorf("decode stripe checkout session failed: %w", err)
	}
	out := &CheckoutObject{
		ID:                s.ID,
		Mode:              string(s.Mode),
		ClientReferenceID: s.ClientReferenceID,
		Metadata:          s.Metadata,
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}
	return out, nil
}

func (e Event) Invoice() (*InvoiceObject, error) {
	var inv stripe.Invoice
	if err := json.Unmarshal(e.Object, &inv); err != nil {
		return nil, fmt.Errorf("decode stripe invoice failed: %w", err)
	}
	out := &InvoiceObject{
		ID:               inv.ID,
		AmountDue:        inv.AmountDue,
		AmountPaid:       inv.AmountPaid,
		Currency:         string(inv.Currency),
		Status:           string(inv.Status),
		HostedInvoiceURL: inv.HostedInvoiceURL,
		InvoicePDF:       inv.InvoicePDF,
		PeriodStart:      Unix(inv.PeriodStart),
		PeriodEnd:        Unix(inv.PeriodEnd),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out, nil
}
