package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
	"lexdesk/internal/testutil"
)

func TestSubscriptionRepository_UpsertIgnoresOlderEvents(t *testing.T) {
	repo := NewSubscriptionRepository(testutil.NewDB(t))
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	created, err := repo.Upsert(&model.Subscription{
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		PlanType:             model.PlanBasic,
		Status:               "active",
		LastEventAt:          t0.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, created)

	written, err := repo.Upsert(&model.Subscription{
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		PlanType:             model.PlanBasic,
		Status:               "incomplete",
		LastEventAt:          t0,
	})
	require.NoError(t, err)
	assert.False(t, written)

	sub, err := repo.GetByStripeID("sub_1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "active", sub.Status)

	written, err = repo.Upsert(&model.Subscription{
		UserID:               "11111111-1111-1111-1111-111111111111",
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		PlanType:             model.PlanPro,
		Status:               "active",
		LastEventAt:          t0.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, written)

	sub, err = repo.GetByStripeID("sub_1")
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, sub.PlanType)
}

func TestSubscriptionRepository_RecordEventOnce(t *testing.T) {
	repo := NewSubscriptionRepository(testutil.NewDB(t))

	first, err := repo.RecordEvent(&model.SubscriptionEvent{StripeEventID: "evt_1", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.RecordEvent(&model.SubscriptionEvent{StripeEventID: "evt_1", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, repo.MarkEventProcessed("evt_1", time.Now().UTC()))
	ev, err := repo.GetEvent("evt_1")
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.NotNil(t, ev.ProcessedAt)
}

func TestSubscriptionRepository_GetCurrentPrefersActive(t *testing.T) {
	repo := NewSubscriptionRepository(testutil.NewDB(t))
	userID := "11111111-1111-1111-1111-111111111111"
	now := time.Now().UTC()
	end := now.Add(24 * time.Hour)

	_, err := repo.Upsert(&model.Subscription{UserID: userID, StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_a", PlanType: model.PlanPro, Status: "active", CurrentPeriodEnd: &end, LastEventAt: now})
	require.NoError(t, err)
	_, err = repo.Upsert(&model.Subscription{UserID: userID, StripeCustomerID: "cus_1", StripeSubscriptionID: "sub_b", PlanType: model.PlanBasic, Status: "canceled", LastEventAt: now})
	require.NoError(t, err)

	sub, err := repo.GetCurrentByUserID(userID, now)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "sub_a", sub.StripeSubscriptionID)

	none, err := repo.GetCurrentByUserID("99999999-9999-9999-9999-999999999999", now)
	require.NoError(t, err)
	assert.Nil(t, none)
}
