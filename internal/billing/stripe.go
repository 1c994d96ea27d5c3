// Package billing wraps the Stripe API calls the application makes.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"

	"lexdesk/internal/model"
)

// Webhook event types handled by the application.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventSubscriptionCreated    = "customer.subscription.created"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
	EventInvoicePaid            = "invoice.paid"
	EventInvoicePaymentSucceded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed   = "invoice.payment_failed"
)

var ErrInvalidSignature = errors.New("invalid stripe signature")

type Config struct {
	SecretKey     string
	WebhookSecret string
	PriceBasic    string
	PricePro      string
}

type CheckoutRequest struct {
	CustomerID string
	UserID     string
	PlanType   model.PlanType
	SuccessURL string
	CancelURL  string
}

type StripeGateway struct {
	cfg Config
}

// NewStripeGateway sets the global stripe key, the same way the stripe-go
// package-level clients expect.
func NewStripeGateway(cfg Config) *StripeGateway {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &StripeGateway{cfg: cfg}
}

// PriceFor maps a plan to its configured Stripe price id.
func (g *StripeGateway) PriceFor(plan model.PlanType) (string, bool) {
	switch plan {
	case model.PlanBasic:
		return g.cfg.PriceBasic, g.cfg.PriceBasic != ""
	case model.PlanPro:
		return g.cfg.PricePro, g.cfg.PricePro != ""
	}
	return "", false
}

// PlanFor is the inverse of PriceFor. Unknown prices yield "".
func (g *StripeGateway) PlanFor(priceID string) model.PlanType {
	switch {
	case priceID == "":
		return ""
	case priceID == g.cfg.PricePro:
		return model.PlanPro
	case priceID == g.cfg.PriceBasic:
		return model.PlanBasic
	}
	return ""
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer failed: %w", err)
	}
	return c.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	price, ok := g.PriceFor(req.PlanType)
	if !ok {
		return "", fmt.Errorf("no stripe price configured for plan %q", req.PlanType)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(req.CustomerID),
		ClientReferenceID: stripe.String(req.UserID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(price), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id":   req.UserID,
				"plan_type": string(req.PlanType),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("plan_type", string(req.PlanType))

	s, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session failed: %w", err)
	}
	return s.URL, nil
}

func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create billing portal session failed: %w", err)
	}
	return s.URL, nil
}

// ConstructEvent verifies the Stripe-Signature header against the webhook
// secret and decodes the event envelope.
func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (Event, error) {
	if g.cfg.WebhookSecret == "" {
		return Event{}, fmt.Errorf("stripe webhook secret not configured")
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	out := Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
		Payload: payload,
	}
	if ev.Data != nil {
		out.Object = ev.Data.Raw
	}
	return out, nil
}

// Unix converts a Stripe timestamp, treating zero as unset.
func Unix(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
