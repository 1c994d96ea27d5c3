package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lexdesk/internal/model"
	"lexdesk/internal/pkg/otp"
	"lexdesk/internal/repository"
)

var (
	ErrResetTokenInvalid = errors.New("invalid reset token")
	ErrResetTokenExpired = errors.New("reset token expired")
	ErrResetTooMany      = errors.New("too many reset attempts")
	ErrResetDelivery     = errors.New("reset email could not be sent")
)

const (
	resetTokenTTL      = 15 * time.Minute
	maxResetAttempts   = 3
	resetEmailValidMin = int(resetTokenTTL / time.Minute)
)

type PasswordResetService struct {
	resetRepo *repository.PasswordResetRepository
	userRepo  *repository.UserRepository
	mailer    Mailer
	log       *zap.Logger
	now       Clock
	generate  func() (string, error)
}

func NewPasswordResetService(
	resetRepo *repository.PasswordResetRepository,
	userRepo *repository.UserRepository,
	mailer Mailer,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		resetRepo: resetRepo,
		userRepo:  userRepo,
		mailer:    mailer,
		log:       log,
		now:       systemClock,
		generate:  otp.Generate,
	}
}

// RequestReset issues a fresh code for a registered email. Unknown emails
// succeed silently so the endpoint cannot be used to probe accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, rawEmail string) error {
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return ErrInvalidInput
	}
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		s.log.Debug("password reset requested for unknown email")
		return nil
	}

	code, err := s.generate()
	if err != nil {
		return err
	}
	token := &model.PasswordResetToken{
		Email:     email,
		Token:     code,
		ExpiresAt: s.now().Add(resetTokenTTL),
		CreatedAt: s.now(),
	}
	if err := s.resetRepo.Replace(token); err != nil {
		return err
	}
	if s.mailer == nil {
		s.log.Warn("no mailer configured, reset code not delivered", zap.String("user_id", user.ID))
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, email, code, resetEmailValidMin); err != nil {
		s.log.Error("send password reset email failed", zap.String("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrResetDelivery, err)
	}
	return nil
}

// VerifyToken checks a code without consuming it. A wrong code counts as an
// attempt; once maxResetAttempts is reached every call is rejected until a
// new code is requested.
func (s *PasswordResetService) VerifyToken(rawEmail, code string) error {
	_, err := s.verify(rawEmail, code)
	return err
}

func (s *PasswordResetService) verify(rawEmail, code string) (string, error) {
	email, ok := normalizeEmail(rawEmail)
	if !ok || !otp.Valid(code) {
		return "", ErrInvalidInput
	}
	token, err := s.resetRepo.GetLatest(email)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", ErrResetTokenInvalid
	}
	if token.Expired(s.now()) {
		return "", ErrResetTokenExpired
	}
	// every comparison holds an attempt slot; a match gives it back
	reserved, err := s.resetRepo.ReserveAttempt(token.ID, maxResetAttempts)
	if err != nil {
		return "", err
	}
	if !reserved {
		return "", ErrResetTooMany
	}
	if !otp.Equal(token.Token, code) {
		return "", ErrResetTokenInvalid
	}
	if err := s.resetRepo.ReleaseAttempt(token.ID); err != nil {
		return "", err
	}
	return email, nil
}

func (s *PasswordResetService) ResetPassword(rawEmail, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrInvalidInput
	}
	email, err := s.verify(rawEmail, code)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password failed: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHashByEmail(email, string(hash)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		return err
	}
	return s.resetRepo.DeleteByEmail(email)
}

// PurgeExpired removes expired codes; run from the scheduler.
func (s *PasswordResetService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.resetRepo.DeleteExpired(s.now())
}
