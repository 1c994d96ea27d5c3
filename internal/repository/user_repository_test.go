package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
	"lexdesk/internal/testutil"
)

func TestUserRepository_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))

	require.NoError(t, repo.Create(&model.User{Email: "ana@example.com", PasswordHash: "x", Name: "Ana"}))
	err := repo.Create(&model.User{Email: "ana@example.com", PasswordHash: "y", Name: "Ana"})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
}

func TestUserRepository_UpdatePasswordUnknownEmail(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))

	err := repo.UpdatePasswordHashByEmail("nobody@example.com", "hash")
	assert.Error(t, err)
}

func TestUserRepository_ListVisibleLawyers(t *testing.T) {
	db := testutil.NewDB(t)
	users := NewUserRepository(db)
	subs := NewSubscriptionRepository(db)
	now := time.Now().UTC()
	future := now.Add(30 * 24 * time.Hour)
	past := now.Add(-time.Hour)
	city := uint(7)

	lawyer := func(email, card, specialty string, verified bool) *model.User {
		c := card
		u := &model.User{
			Email:                  email,
			PasswordHash:           "x",
			Name:                   "L",
			Role:                   model.RoleLawyer,
			ProfessionalCardNumber: &c,
			Specialty:              specialty,
			CityID:                 &city,
		}
		require.NoError(t, users.Create(u))
		if verified {
			require.NoError(t, users.MarkCredentialsVerified(u.ID, now))
		}
		return u
	}
	basic := lawyer("basic@example.com", "TP-1", "Derecho Laboral", true)
	pro := lawyer("pro@example.com", "TP-2", "Derecho Penal", true)
	unverified := lawyer("new@example.com", "TP-3", "Derecho Penal", false)
	lapsed := lawyer("lapsed@example.com", "TP-4", "Derecho Civil", true)

	for i, s := range []struct {
		user *model.User
		plan model.PlanType
		end  time.Time
	}{
		{basic, model.PlanBasic, future},
		{pro, model.PlanPro, future},
		{unverified, model.PlanPro, future},
		{lapsed, model.PlanPro, past},
	} {
		end := s.end
		_, err := subs.Upsert(&model.Subscription{
			UserID:               s.user.ID,
			StripeCustomerID:     "cus",
			StripeSubscriptionID: "sub_" + string(rune('a'+i)),
			PlanType:             s.plan,
			Status:               "active",
			CurrentPeriodEnd:     &end,
			LastEventAt:          now,
		})
		require.NoError(t, err)
	}

	list, err := users.ListVisibleLawyers(LawyerFilter{CityID: &city}, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, pro.ID, list[0].ID)
	assert.Equal(t, model.PlanPro, list[0].PlanType)
	assert.Equal(t, basic.ID, list[1].ID)

	list, err = users.ListVisibleLawyers(LawyerFilter{Specialty: "laboral"}, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, basic.ID, list[0].ID)
}

func TestUserRepository_MarkCredentialsVerifiedRejectsNonLawyer(t *testing.T) {
	repo := NewUserRepository(testutil.NewDB(t))
	u := &model.User{Email: "client@example.com", PasswordHash: "x", Name: "C"}
	require.NoError(t, repo.Create(u))

	assert.Error(t, repo.MarkCredentialsVerified(u.ID, time.Now().UTC()))
}
