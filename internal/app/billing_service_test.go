package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/billing"
	"lexdesk/internal/model"
	"lexdesk/internal/repository"
)

type billingFixture struct {
	svc      *BillingService
	gateway  *fakeGateway
	userRepo *repository.UserRepository
	subRepo  *repository.SubscriptionRepository
	lawyer   *model.User
	client   *model.User
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	db := testDB(t)
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	gateway := &fakeGateway{}
	return &billingFixture{
		svc:      NewBillingService(userRepo, subRepo, gateway, "https://lexdesk.test/", "pk_test", nopLog),
		gateway:  gateway,
		userRepo: userRepo,
		subRepo:  subRepo,
		lawyer:   createUser(t, db, "lawyer@example.com", model.RoleLawyer),
		client:   createUser(t, db, "client@example.com", model.RoleUser),
	}
}

// deliver runs one webhook delivery through the service.
func (f *billingFixture) deliver(id, typ string, created time.Time, object string) error {
	f.gateway.event = billing.Event{ID: id, Type: typ, Created: created, Object: []byte(object)}
	return f.svc.HandleWebhook(context.Background(), []byte(`{"id":"`+id+`"}`), "sig")
}

func subscriptionJSON(status, price string, periodEnd time.Time, userID string) string {
	return fmt.Sprintf(`{"id":"sub_1","object":"subscription","customer":"cus_1","status":%q,
		"current_period_start":%d,"current_period_end":%d,"cancel_at_period_end":false,
		"metadata":{"user_id":%q},
		"items":{"object":"list","data":[{"id":"si_1","price":{"id":%q}}]}}`,
		status, periodEnd.Add(-30*24*time.Hour).Unix(), periodEnd.Unix(), userID, price)
}

func TestBillingService_CreateCheckoutSession(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCheckoutSession(ctx, actorFor(f.client), model.PlanPro)
	assert.ErrorIs(t, err, ErrLawyerOnly)
	_, err = f.svc.CreateCheckoutSession(ctx, actorFor(f.lawyer), "gold")
	assert.ErrorIs(t, err, ErrInvalidPlan)

	url, err := f.svc.CreateCheckoutSession(ctx, actorFor(f.lawyer), model.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/session", url)
	require.Len(t, f.gateway.checkouts, 1)
	req := f.gateway.checkouts[0]
	assert.Equal(t, "cus_test", req.CustomerID)
	assert.Equal(t, f.lawyer.ID, req.UserID)
	assert.Equal(t, model.PlanPro, req.PlanType)
	assert.Equal(t, "https://lexdesk.test/billing?status=cancel", req.CancelURL)

	// the customer is created once and reused
	_, err = f.svc.CreateCheckoutSession(ctx, actorFor(f.lawyer), model.PlanBasic)
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.customers)

	portal, err := f.svc.CreatePortalSession(ctx, actorFor(f.lawyer))
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.test/cus_test", portal)

	_, err = f.svc.CreatePortalSession(ctx, actorFor(f.client))
	assert.ErrorIs(t, err, ErrNoBillingAccount)
}

func TestBillingService_WebhookSubscriptionLifecycle(t *testing.T) {
	f := newBillingFixture(t)
	require.NoError(t, f.userRepo.SetStripeCustomerID(f.lawyer.ID, "cus_1"))
	t0 := time.Now().UTC().Truncate(time.Second)
	periodEnd := t0.Add(30 * 24 * time.Hour)

	checkout := fmt.Sprintf(`{"id":"cs_1","object":"checkout.session","mode":"subscription","customer":"cus_1",
		"subscription":"sub_1","client_reference_id":%q,"metadata":{"plan_type":"pro"}}`, f.lawyer.ID)
	require.NoError(t, f.deliver("evt_checkout", billing.EventCheckoutCompleted, t0.Add(2*time.Second), checkout))

	sub, err := f.subRepo.GetByStripeID("sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, model.PlanPro, sub.PlanType)
	assert.Equal(t, "active", sub.Status)

	// created arrives after checkout but carries an older timestamp; it
	// still replaces the placeholder
	require.NoError(t, f.deliver("evt_created", billing.EventSubscriptionCreated, t0.Add(time.Second),
		subscriptionJSON("active", "price_pro", periodEnd, f.lawyer.ID)))
	sub, err = f.subRepo.GetByStripeID("sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.True(t, sub.CurrentPeriodEnd.Equal(periodEnd))

	require.NoError(t, f.deliver("evt_past_due", billing.EventSubscriptionUpdated, t0.Add(10*time.Second),
		subscriptionJSON("past_due", "price_pro", periodEnd, f.lawyer.ID)))

	// an older update delivered late does not roll the status back
	require.NoError(t, f.deliver("evt_stale", billing.EventSubscriptionUpdated, t0.Add(5*time.Second),
		subscriptionJSON("active", "price_basic", periodEnd, f.lawyer.ID)))
	sub, err = f.subRepo.GetByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, model.PlanPro, sub.PlanType)

	event, err := f.subRepo.GetEvent("evt_stale")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.NotNil(t, event.ProcessedAt)
	assert.Equal(t, "sub_1", event.StripeSubscriptionID)

	require.NoError(t, f.deliver("evt_deleted", billing.EventSubscriptionDeleted, t0.Add(20*time.Second),
		subscriptionJSON("canceled", "price_pro", periodEnd, f.lawyer.ID)))
	view, err := f.svc.GetSubscription(actorFor(f.lawyer))
	require.NoError(t, err)
	assert.False(t, view.Active)
	assert.Equal(t, "pk_test", view.PublishableKey)
}

func TestBillingService_WebhookDuplicateIsNoop(t *testing.T) {
	f := newBillingFixture(t)
	t0 := time.Now().UTC().Truncate(time.Second)
	periodEnd := t0.Add(30 * 24 * time.Hour)

	require.NoError(t, f.deliver("evt_1", billing.EventSubscriptionUpdated, t0,
		subscriptionJSON("active", "price_basic", periodEnd, f.lawyer.ID)))
	require.NoError(t, f.deliver("evt_2", billing.EventSubscriptionUpdated, t0.Add(time.Second),
		subscriptionJSON("past_due", "price_basic", periodEnd, f.lawyer.ID)))

	// redelivery of evt_1 with a forged newer timestamp must not apply
	require.NoError(t, f.deliver("evt_1", billing.EventSubscriptionUpdated, t0.Add(time.Minute),
		subscriptionJSON("active", "price_basic", periodEnd, f.lawyer.ID)))

	sub, err := f.subRepo.GetByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, model.PlanBasic, sub.PlanType)
}

func TestBillingService_WebhookInvoices(t *testing.T) {
	f := newBillingFixture(t)
	require.NoError(t, f.userRepo.SetStripeCustomerID(f.lawyer.ID, "cus_1"))
	t0 := time.Now().UTC()

	invoice := `{"id":"in_1","object":"invoice","customer":"cus_1","subscription":"sub_1",
		"amount_due":4900,"amount_paid":%d,"currency":"usd","status":%q}`
	require.NoError(t, f.deliver("evt_failed", billing.EventInvoicePaymentFailed, t0, fmt.Sprintf(invoice, 0, "open")))
	require.NoError(t, f.deliver("evt_paid", billing.EventInvoicePaid, t0.Add(time.Second), fmt.Sprintf(invoice, 4900, "paid")))

	list, err := f.svc.ListInvoices(actorFor(f.lawyer), 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "paid", list[0].Status)
	assert.EqualValues(t, 4900, list[0].AmountPaid)

	// unknown customers are acknowledged and skipped
	require.NoError(t, f.deliver("evt_orphan", billing.EventInvoicePaid, t0,
		`{"id":"in_2","object":"invoice","customer":"cus_unknown","status":"paid"}`))
}

func TestBillingService_WebhookRejectsBadSignature(t *testing.T) {
	f := newBillingFixture(t)
	f.gateway.eventErr = fmt.Errorf("%w: bad header", billing.ErrInvalidSignature)

	err := f.svc.HandleWebhook(context.Background(), []byte(`{}`), "bogus")
	assert.ErrorIs(t, err, ErrWebhookSignature)
}

func TestLawyerService_ListVisibleLawyers(t *testing.T) {
	f := newBillingFixture(t)
	svc := NewLawyerService(f.userRepo)

	list, err := svc.ListVisibleLawyers(repository.LawyerFilter{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	require.NoError(t, f.userRepo.MarkCredentialsVerified(f.lawyer.ID, time.Now().UTC()))
	require.NoError(t, f.deliver("evt_1", billing.EventSubscriptionCreated, time.Now().UTC(),
		subscriptionJSON("active", "price_pro", time.Now().UTC().Add(24*time.Hour), f.lawyer.ID)))

	list, err = svc.ListVisibleLawyers(repository.LawyerFilter{Specialty: " CIVIL "})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.lawyer.ID, list[0].ID)
	assert.Equal(t, model.PlanPro, list[0].PlanType)
}
