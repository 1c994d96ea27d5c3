package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lexdesk/internal/model"
	"lexdesk/internal/repository"
)

func newResetService(t *testing.T) (*PasswordResetService, *fakeMailer, *repository.UserRepository) {
	t.Helper()
	db := testDB(t)
	userRepo := repository.NewUserRepository(db)
	mailer := &fakeMailer{}
	svc := NewPasswordResetService(repository.NewPasswordResetRepository(db), userRepo, mailer, nopLog)
	svc.generate = func() (string, error) { return "12345678", nil }
	createUser(t, db, "ana@example.com", model.RoleUser)
	return svc, mailer, userRepo
}

func TestPasswordReset_FullFlow(t *testing.T) {
	svc, mailer, userRepo := newResetService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestReset(ctx, "ANA@example.com"))
	require.Len(t, mailer.resets, 1)
	assert.Equal(t, "12345678", mailer.resets[0].Code)

	require.NoError(t, svc.VerifyToken("ana@example.com", "12345678"))
	require.NoError(t, svc.ResetPassword("ana@example.com", "12345678", "new-password"))

	user, err := userRepo.GetByEmail("ana@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")))

	// the code is single use
	assert.ErrorIs(t, svc.ResetPassword("ana@example.com", "12345678", "another-pass"), ErrResetTokenInvalid)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	svc, mailer, _ := newResetService(t)

	require.NoError(t, svc.RequestReset(context.Background(), "ghost@example.com"))
	assert.Empty(t, mailer.resets)
	assert.ErrorIs(t, svc.RequestReset(context.Background(), "bad email"), ErrInvalidInput)
}

func TestPasswordReset_AttemptsExhausted(t *testing.T) {
	svc, _, _ := newResetService(t)
	require.NoError(t, svc.RequestReset(context.Background(), "ana@example.com"))

	for i := 0; i < maxResetAttempts; i++ {
		assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "00000000"), ErrResetTokenInvalid)
	}
	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "12345678"), ErrResetTooMany)

	// a new code resets the counter
	require.NoError(t, svc.RequestReset(context.Background(), "ana@example.com"))
	assert.NoError(t, svc.VerifyToken("ana@example.com", "12345678"))
}

func TestPasswordReset_Expired(t *testing.T) {
	svc, _, _ := newResetService(t)
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = fixedClock(issued)
	require.NoError(t, svc.RequestReset(context.Background(), "ana@example.com"))

	svc.now = fixedClock(issued.Add(resetTokenTTL + time.Second))
	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "12345678"), ErrResetTokenExpired)

	purged, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

func TestPasswordReset_Validation(t *testing.T) {
	svc, mailer, _ := newResetService(t)

	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "1234"), ErrInvalidInput)
	assert.ErrorIs(t, svc.ResetPassword("ana@example.com", "12345678", "short"), ErrInvalidInput)
	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "12345678"), ErrResetTokenInvalid)

	mailer.err = errors.New("provider down")
	assert.ErrorIs(t, svc.RequestReset(context.Background(), "ana@example.com"), ErrResetDelivery)
}

func TestPasswordReset_ConcurrentGuessesAreCapped(t *testing.T) {
	svc, _, _ := newResetService(t)
	require.NoError(t, svc.RequestReset(context.Background(), "ana@example.com"))

	const guesses = 12
	results := make(chan error, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.VerifyToken("ana@example.com", "00000000")
		}()
	}
	wg.Wait()
	close(results)

	invalid, tooMany := 0, 0
	for err := range results {
		switch {
		case errors.Is(err, ErrResetTokenInvalid):
			invalid++
		case errors.Is(err, ErrResetTooMany):
			tooMany++
		default:
			t.Fatalf("unexpected result: %v", err)
		}
	}
	assert.Equal(t, maxResetAttempts, invalid)
	assert.Equal(t, guesses-maxResetAttempts, tooMany)
	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "12345678"), ErrResetTooMany)
}

func TestPasswordReset_MatchDoesNotSpendAttempts(t *testing.T) {
	svc, _, _ := newResetService(t)
	require.NoError(t, svc.RequestReset(context.Background(), "ana@example.com"))

	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "00000000"), ErrResetTokenInvalid)
	assert.ErrorIs(t, svc.VerifyToken("ana@example.com", "00000001"), ErrResetTokenInvalid)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.VerifyToken("ana@example.com", "12345678"))
	}
	assert.NoError(t, svc.ResetPassword("ana@example.com", "12345678", "new-password"))
}

func TestPasswordReset_WithoutMailer(t *testing.T) {
	db := testDB(t)
	userRepo := repository.NewUserRepository(db)
	resetRepo := repository.NewPasswordResetRepository(db)
	svc := NewPasswordResetService(resetRepo, userRepo, nil, nopLog)
	createUser(t, db, "ana@example.com", model.RoleUser)

	require.NoError(t, svc.RequestReset(context.Background(), "ana@example.com"))
	token, err := resetRepo.GetLatest("ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, token)
}
