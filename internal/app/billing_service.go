package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"lexdesk/internal/billing"
	"lexdesk/internal/model"
	"lexdesk/internal/repository"
)

var (
	ErrLawyerOnly         = errors.New("only lawyers can subscribe")
	ErrInvalidPlan        = errors.New("invalid plan type")
	ErrPlanUnavailable    = errors.New("plan not available")
	ErrAlreadySubscribed  = errors.New("already subscribed")
	ErrNoBillingAccount   = errors.New("no billing account")
	ErrWebhookSignature   = errors.New("invalid webhook signature")
	ErrWebhookUnprocessed = errors.New("webhook event could not be processed")
)

// PaymentGateway is the subset of the Stripe integration the billing flow
// needs. *billing.StripeGateway satisfies it.
type PaymentGateway interface {
	PriceFor(plan model.PlanType) (string, bool)
	PlanFor(priceID string) model.PlanType
	CreateCustomer(ctx context.Context, email, name, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	ConstructEvent(payload []byte, signature string) (billing.Event, error)
}

type BillingService struct {
	userRepo       *repository.UserRepository
	subRepo        *repository.SubscriptionRepository
	gateway        PaymentGateway
	publicURL      string
	publishableKey string
	log            *zap.Logger
	now            Clock
}

type SubscriptionView struct {
	Subscription   *model.Subscription `json:"subscription"`
	Active         bool                `json:"active"`
	PublishableKey string              `json:"publishable_key"`
}

func NewBillingService(
	userRepo *repository.UserRepository,
	subRepo *repository.SubscriptionRepository,
	gateway PaymentGateway,
	publicURL string,
	publishableKey string,
	log *zap.Logger,
) *BillingService {
	return &BillingService{
		userRepo:       userRepo,
		subRepo:        subRepo,
		gateway:        gateway,
		publicURL:      strings.TrimRight(publicURL, "/"),
		publishableKey: publishableKey,
		log:            log,
		now:            systemClock,
	}
}

// CreateCheckoutSession starts a subscription checkout for a lawyer and
// returns the hosted checkout URL.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, actor Actor, plan model.PlanType) (string, error) {
	if actor.Role != model.RoleLawyer {
		return "", ErrLawyerOnly
	}
	if !plan.Valid() {
		return "", ErrInvalidPlan
	}
	if _, ok := s.gateway.PriceFor(plan); !ok {
		return "", ErrPlanUnavailable
	}

	user, err := s.userRepo.GetByID(actor.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}

	current, err := s.subRepo.GetCurrentByUserID(user.ID, s.now())
	if err != nil {
		return "", err
	}
	if current != nil && current.Active(s.now()) {
		return "", ErrAlreadySubscribed
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	return s.gateway.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		CustomerID: customerID,
		UserID:     user.ID,
		PlanType:   plan,
		SuccessURL: s.publicURL + "/billing?status=success&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.publicURL + "/billing?status=cancel",
	})
}

func (s *BillingService) ensureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}
	name := strings.TrimSpace(user.Name + " " + user.LastName)
	customerID, err := s.gateway.CreateCustomer(ctx, user.Email, name, user.ID)
	if err != nil {
		return "", err
	}
	if err := s.userRepo.SetStripeCustomerID(user.ID, customerID); err != nil {
		return "", err
	}
	user.StripeCustomerID = customerID
	return customerID, nil
}

func (s *BillingService) CreatePortalSession(ctx context.Context, actor Actor) (string, error) {
	user, err := s.userRepo.GetByID(actor.UserID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}
	return s.gateway.CreatePortalSession(ctx, user.StripeCustomerID, s.publicURL+"/billing")
}

func (s *BillingService) GetSubscription(actor Actor) (*SubscriptionView, error) {
	sub, err := s.subRepo.GetCurrentByUserID(actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	view := &SubscriptionView{Subscription: sub, PublishableKey: s.publishableKey}
	if sub != nil {
		view.Active = sub.Active(s.now())
	}
	return view, nil
}

func (s *BillingService) ListInvoices(actor Actor, limit int) ([]model.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	return s.subRepo.ListInvoicesByUserID(actor.UserID, limit)
}

// HandleWebhook verifies and applies one Stripe delivery. Events are recorded
// before they are applied; a redelivery of an event that was already applied
// is a no-op, while one whose earlier attempt failed is applied again.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return ErrWebhookSignature
		}
		return err
	}

	record := &model.SubscriptionEvent{
		StripeEventID: ev.ID,
		Type:          ev.Type,
		Payload:       datatypes.JSON(ev.Payload),
	}
	if strings.HasPrefix(ev.Type, "customer.subscription.") {
		if obj, err := ev.Subscription(); err == nil {
			record.StripeSubscriptionID = obj.ID
		}
	}
	inserted, err := s.subRepo.RecordEvent(record)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.subRepo.GetEvent(ev.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.ProcessedAt != nil {
			s.log.Info("stripe event already processed", zap.String("event_id", ev.ID), zap.String("type", ev.Type))
			return nil
		}
	}

	if err := s.apply(ctx, ev); err != nil {
		s.log.Error("apply stripe event failed", zap.String("event_id", ev.ID), zap.String("type", ev.Type), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrWebhookUnprocessed, err)
	}
	return s.subRepo.MarkEventProcessed(ev.ID, s.now())
}

func (s *BillingService) apply(ctx context.Context, ev billing.Event) error {
	switch ev.Type {
	case billing.EventCheckoutCompleted:
		return s.applyCheckout(ev)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		return s.applySubscription(ev)
	case billing.EventInvoicePaid, billing.EventInvoicePaymentSucceded, billing.EventInvoicePaymentFailed:
		return s.applyInvoice(ev)
	default:
		s.log.Debug("ignoring stripe event", zap.String("type", ev.Type))
		return nil
	}
}

// applyCheckout links the Stripe customer to the user and, when no
// subscription event has arrived yet, writes a placeholder row. The
// placeholder carries a zero LastEventAt so any subscription event replaces
// it regardless of delivery order.
func (s *BillingService) applyCheckout(ev billing.Event) error {
	cs, err := ev.CheckoutSession()
	if err != nil {
		return err
	}
	if cs.Mode != "subscription" {
		return nil
	}

	userID := cs.ClientReferenceID
	if userID == "" {
		userID = cs.Metadata["user_id"]
	}
	user, err := s.lookupUser(userID, cs.CustomerID)
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Warn("checkout completed for unknown user", zap.String("session_id", cs.ID), zap.String("customer_id", cs.CustomerID))
		return nil
	}
	if cs.CustomerID != "" && user.StripeCustomerID != cs.CustomerID {
		if err := s.userRepo.SetStripeCustomerID(user.ID, cs.CustomerID); err != nil {
			return err
		}
	}
	if cs.SubscriptionID == "" {
		return nil
	}

	existing, err := s.subRepo.GetByStripeID(cs.SubscriptionID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	plan := model.PlanType(cs.Metadata["plan_type"])
	if !plan.Valid() {
		plan = model.PlanBasic
	}
	price, _ := s.gateway.PriceFor(plan)
	_, err = s.subRepo.Upsert(&model.Subscription{
		UserID:               user.ID,
		StripeCustomerID:     cs.CustomerID,
		StripeSubscriptionID: cs.SubscriptionID,
		StripePriceID:        price,
		PlanType:             plan,
		Status:               "active",
		LastEventAt:          time.Unix(0, 0).UTC(),
	})
	return err
}

func (s *BillingService) applySubscription(ev billing.Event) error {
	obj, err := ev.Subscription()
	if err != nil {
		return err
	}

	existing, err := s.subRepo.GetByStripeID(obj.ID)
	if err != nil {
		return err
	}
	user, err := s.lookupUser(obj.Metadata["user_id"], obj.CustomerID)
	if err != nil {
		return err
	}
	userID := ""
	switch {
	case user != nil:
		userID = user.ID
	case existing != nil:
		userID = existing.UserID
	default:
		s.log.Warn("subscription event for unknown customer", zap.String("subscription_id", obj.ID), zap.String("customer_id", obj.CustomerID))
		return nil
	}

	plan := s.gateway.PlanFor(obj.PriceID)
	if plan == "" {
		plan = model.PlanType(obj.Metadata["plan_type"])
	}
	if !plan.Valid() && existing != nil {
		plan = existing.PlanType
	}
	if !plan.Valid() {
		plan = model.PlanBasic
	}

	status := obj.Status
	if ev.Type == billing.EventSubscriptionDeleted && status == "" {
		status = "canceled"
	}

	written, err := s.subRepo.Upsert(&model.Subscription{
		UserID:               userID,
		StripeCustomerID:     obj.CustomerID,
		StripeSubscriptionID: obj.ID,
		StripePriceID:        obj.PriceID,
		PlanType:             plan,
		Status:               status,
		CurrentPeriodStart:   obj.CurrentPeriodStart,
		CurrentPeriodEnd:     obj.CurrentPeriodEnd,
		CancelAtPeriodEnd:    obj.CancelAtPeriodEnd,
		CanceledAt:           obj.CanceledAt,
		LastEventAt:          ev.Created,
	})
	if err != nil {
		return err
	}
	if !written {
		s.log.Info("stale subscription event ignored", zap.String("event_id", ev.ID), zap.String("subscription_id", obj.ID))
	}
	return nil
}

func (s *BillingService) applyInvoice(ev billing.Event) error {
	obj, err := ev.Invoice()
	if err != nil {
		return err
	}

	user, err := s.lookupUser("", obj.CustomerID)
	if err != nil {
		return err
	}
	userID := ""
	if user != nil {
		userID = user.ID
	} else if obj.SubscriptionID != "" {
		sub, err := s.subRepo.GetByStripeID(obj.SubscriptionID)
		if err != nil {
			return err
		}
		if sub != nil {
			userID = sub.UserID
		}
	}
	if userID == "" {
		s.log.Warn("invoice event for unknown customer", zap.String("invoice_id", obj.ID), zap.String("customer_id", obj.CustomerID))
		return nil
	}

	if ev.Type == billing.EventInvoicePaymentFailed {
		s.log.Warn("invoice payment failed", zap.String("invoice_id", obj.ID), zap.String("user_id", userID))
	}

	return s.subRepo.UpsertInvoice(&model.Invoice{
		UserID:               userID,
		StripeInvoiceID:      obj.ID,
		StripeSubscriptionID: obj.SubscriptionID,
		AmountDue:            obj.AmountDue,
		AmountPaid:           obj.AmountPaid,
		Currency:             obj.Currency,
		Status:               obj.Status,
		HostedInvoiceURL:     obj.HostedInvoiceURL,
		InvoicePDF:           obj.InvoicePDF,
		PeriodStart:          obj.PeriodStart,
		PeriodEnd:            obj.PeriodEnd,
	})
}

// lookupUser resolves a user by id first and by Stripe customer second.
func (s *BillingService) lookupUser(userID, customerID string) (*model.User, error) {
	if userID != "" && validID(userID) {
		user, err := s.userRepo.GetByID(userID)
		if err != nil || user != nil {
			return user, err
		}
	}
	if customerID != "" {
		return s.userRepo.GetByStripeCustomerID(customerID)
	}
	return nil, nil
}
