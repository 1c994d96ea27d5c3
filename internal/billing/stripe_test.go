package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"lexdesk/internal/model"
)

const testSecret = "whsec_test"

func sign(payload string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testSecret,
		Timestamp: time.Now(),
	}).Header
}

func TestConstructEvent_VerifiesSignature(t *testing.T) {
	g := NewStripeGateway(Config{WebhookSecret: testSecret})
	payload := `{"id":"evt_1","object":"event","type":"customer.subscription.updated","created":1735732800,
"data":{"object":{"id":"sub_1","object":"subscription","customer":"cus_1","status":"active",
"current_period_start":1735732800,"current_period_end":1738411200,"cancel_at_period_end":false,
"metadata":{"user_id":"u1","plan_type":"pro"},
"items":{"object":"list","data":[{"id":"si_1","object":"subscription_item","price":{"id":"price_pro","object":"price"}}]}}}}`

	ev, err := g.ConstructEvent([]byte(payload), sign(payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventSubscriptionUpdated, ev.Type)
	assert.Equal(t, time.Unix(1735732800, 0).UTC(), ev.Created)

	sub, err := ev.Subscription()
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, "price_pro", sub.PriceID)
	assert.Equal(t, "active", sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Nil(t, sub.CanceledAt)
	assert.Equal(t, "u1", sub.Metadata["user_id"])

	_, err = g.ConstructEvent([]byte(payload), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructEvent_RequiresSecret(t *testing.T) {
	_, err := NewStripeGateway(Config{}).ConstructEvent([]byte(`{}`), "sig")
	assert.Error(t, err)
}

func TestPlanMapping(t *testing.T) {
	g := NewStripeGateway(Config{PriceBasic: "price_basic", PricePro: "price_pro"})

	price, ok := g.PriceFor(model.PlanPro)
	assert.True(t, ok)
	assert.Equal(t, "price_pro", price)
	_, ok = g.PriceFor("gold")
	assert.False(t, ok)

	assert.Equal(t, model.PlanBasic, g.PlanFor("price_basic"))
	assert.Equal(t, model.PlanType(""), g.PlanFor("price_other"))
	assert.Equal(t, model.PlanType(""), g.PlanFor(""))
}
