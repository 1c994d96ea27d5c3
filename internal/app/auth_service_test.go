package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
	"lexdesk/internal/pkg/jwtutil"
	"lexdesk/internal/repository"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) (*AuthService, *fakeMailer, *repository.SubscriptionRepository) {
	t.Helper()
	db := testDB(t)
	mailer := &fakeMailer{}
	subRepo := repository.NewSubscriptionRepository(db)
	svc := NewAuthService(
		repository.NewUserRepository(db),
		subRepo,
		repository.NewGeoRepository(db),
		mailer,
		testSecret,
		time.Hour,
		nopLog,
	)
	return svc, mailer, subRepo
}

func TestAuthService_RegisterUserAndLogin(t *testing.T) {
	svc, mailer, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.RegisterUser(ctx, RegisterInput{Name: " Ana ", Email: " Ana@Example.COM ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.Equal(t, "Ana", res.User.Name)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.Equal(t, []string{"ana@example.com"}, mailer.welcome)

	claims, err := jwtutil.ParseToken(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = svc.RegisterUser(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrEmailExists)

	login, err := svc.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.Empty(t, login.Plan)

	_, err = svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	cases := []RegisterInput{
		{Name: "", Email: "a@example.com", Password: "password1"},
		{Name: "A", Email: "not-an-email", Password: "password1"},
		{Name: "A", Email: "a@example.com", Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.RegisterUser(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", in)
	}

	unknown := uint(999)
	_, err := svc.RegisterUser(ctx, RegisterInput{Name: "A", Email: "a@example.com", Password: "password1", CountryID: &unknown})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_RegisterLawyer(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	in := RegisterLawyerInput{
		RegisterInput:          RegisterInput{Name: "Luis", Email: "luis@example.com", Password: "password1"},
		ProfessionalCardNumber: " tp-123 ",
		Specialty:              "laboral",
		YearsExperience:        7,
	}
	res, err := svc.RegisterLawyer(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.RoleLawyer, res.User.Role)
	require.NotNil(t, res.User.ProfessionalCardNumber)
	assert.Equal(t, "TP-123", *res.User.ProfessionalCardNumber)
	assert.False(t, res.User.CredentialsVerified)

	in.Email = "other@example.com"
	in.ProfessionalCardNumber = "TP-123"
	_, err = svc.RegisterLawyer(ctx, in)
	assert.ErrorIs(t, err, ErrCardExists)

	in.ProfessionalCardNumber = ""
	_, err = svc.RegisterLawyer(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAuthService_WelcomeFailureDoesNotBlockRegistration(t *testing.T) {
	svc, mailer, _ := newAuthService(t)
	mailer.err = errors.New("smtp down")

	_, err := svc.RegisterUser(context.Background(), RegisterInput{Name: "A", Email: "a@example.com", Password: "password1"})
	assert.NoError(t, err)
}

func TestAuthService_LoginCarriesActivePlan(t *testing.T) {
	svc, _, subRepo := newAuthService(t)
	ctx := context.Background()

	res, err := svc.RegisterLawyer(ctx, RegisterLawyerInput{
		RegisterInput:          RegisterInput{Name: "L", Email: "l@example.com", Password: "password1"},
		ProfessionalCardNumber: "C1",
		Specialty:              "penal",
	})
	require.NoError(t, err)

	end := time.Now().UTC().Add(24 * time.Hour)
	_, err = subRepo.Upsert(&model.Subscription{
		UserID:               res.User.ID,
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		PlanType:             model.PlanPro,
		Status:               "active",
		CurrentPeriodEnd:     &end,
		LastEventAt:          time.Now().UTC(),
	})
	require.NoError(t, err)

	login, err := svc.Login(ctx, LoginInput{Email: "l@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, login.Plan)

	profile, err := svc.Me(res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, profile.Plan)
}

func TestAuthService_VerifyLawyer(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.RegisterLawyer(ctx, RegisterLawyerInput{
		RegisterInput:          RegisterInput{Name: "L", Email: "l@example.com", Password: "password1"},
		ProfessionalCardNumber: "C1",
		Specialty:              "penal",
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.VerifyLawyer(Actor{UserID: "x", Role: model.RoleUser}, res.User.ID), ErrForbidden)

	admin := Actor{UserID: "admin", Role: model.RoleAdmin}
	require.NoError(t, svc.VerifyLawyer(admin, res.User.ID))
	profile, err := svc.Me(res.User.ID)
	require.NoError(t, err)
	assert.True(t, profile.CredentialsVerified)

	assert.ErrorIs(t, svc.VerifyLawyer(admin, "7d1a3f0e-0000-4000-8000-000000000000"), ErrUserNotFound)
}
