package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lexdesk/internal/model"
)

type PasswordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Replace deletes any outstanding tokens for the email and stores token.
func (r *PasswordResetRepository) Replace(token *model.PasswordResetToken) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", token.Email).Delete(&model.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("delete previous reset tokens failed: %w", err)
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("create reset token failed: %w", err)
		}
		return nil
	})
}

// GetLatest returns the newest token for the email, or nil.
func (r *PasswordResetRepository) GetLatest(email string) (*model.PasswordResetToken, error) {
	var token model.PasswordResetToken
	if err := r.db.Where("email = ?", email).Order("created_at DESC").First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reset token failed: %w", err)
	}
	return &token, nil
}

// ReserveAttempt counts one verification attempt against the token. The
// check and the increment are a single statement, so concurrent callers
// cannot get past max between them. It reports false once max is reached.
func (r *PasswordResetRepository) ReserveAttempt(id string, max int) (bool, error) {
	res := r.db.Model(&model.PasswordResetToken{}).
		Where("id = ? AND attempts < ?", id, max).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if res.Error != nil {
		return false, fmt.Errorf("reserve reset attempt failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReleaseAttempt gives back an attempt taken by ReserveAttempt.
func (r *PasswordResetRepository) ReleaseAttempt(id string) error {
	if err := r.db.Model(&model.PasswordResetToken{}).
		Where("id = ? AND attempts > 0", id).
		UpdateColumn("attempts", gorm.Expr("attempts - 1")).Error; err != nil {
		return fmt.Errorf("release reset attempt failed: %w", err)
	}
	return nil
}

func (r *PasswordResetRepository) DeleteByEmail(email string) error {
	if err := r.db.Where("email = ?", email).Delete(&model.PasswordResetToken{}).Error; err != nil {
		return fmt.Errorf("delete reset tokens failed: %w", err)
	}
	return nil
}

// DeleteExpired purges tokens that expired before now and reports how many.
func (r *PasswordResetRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", now).Delete(&model.PasswordResetToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge expired reset tokens failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
