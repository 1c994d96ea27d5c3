package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"lexdesk/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by email failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(id string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by id failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) ExistsByProfessionalCard(card string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.User{}).Where("professional_card_number = ?", card).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count users by professional card failed: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) UpdatePasswordHashByEmail(email, hash string) error {
	res := r.db.Model(&model.User{}).Where("email = ?", email).Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("update password failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) SetStripeCustomerID(userID, customerID string) error {
	if err := r.db.Model(&model.User{}).Where("id = ?", userID).Update("stripe_customer_id", customerID).Error; err != nil {
		return fmt.Errorf("update stripe customer failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByStripeCustomerID(customerID string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by stripe customer failed: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) MarkCredentialsVerified(userID string, at time.Time) error {
	res := r.db.Model(&model.User{}).
		Where("id = ? AND role = ?", userID, model.RoleLawyer).
		Updates(map[string]interface{}{
			"credentials_verified":    true,
			"credentials_verified_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("verify lawyer credentials failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type LawyerFilter struct {
	CountryID *uint
	StateID   *uint
	CityID    *uint
	Specialty string
	Limit     int
	Offset    int
}

// VisibleLawyer is a verified lawyer joined with the plan of an active
// subscription.
type VisibleLawyer struct {
	model.User
	PlanType model.PlanType `json:"plan_type"`
}

// ListVisibleLawyers returns verified lawyers holding an active or trialing
// subscription whose period has not ended, pro plans first.
func (r *UserRepository) ListVisibleLawyers(filter LawyerFilter, now time.Time) ([]VisibleLawyer, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	q := r.db.Table("users").
		Select("users.*, subscriptions.plan_type AS plan_type").
		Joins("JOIN subscriptions ON subscriptions.user_id = users.id").
		Where("users.role = ? AND users.credentials_verified = ?", model.RoleLawyer, true).
		Where("subscriptions.status IN ?", []string{"active", "trialing"}).
		Where("subscriptions.current_period_end IS NULL OR subscriptions.current_period_end > ?", now)
	if filter.CountryID != nil {
		q = q.Where("users.country_id = ?", *filter.CountryID)
	}
	if filter.StateID != nil {
		q = q.Where("users.state_id = ?", *filter.StateID)
	}
	if filter.CityID != nil {
		q = q.Where("users.city_id = ?", *filter.CityID)
	}
	if filter.Specialty != "" {
		q = q.Where("LOWER(users.specialty) LIKE ?", "%"+strings.ToLower(filter.Specialty)+"%")
	}

	var rows []VisibleLawyer
	err := q.Order(fmt.Sprintf("CASE WHEN subscriptions.plan_type = '%s' THEN 0 ELSE 1 END", model.PlanPro)).
		Order("users.years_experience DESC").
		Order("users.created_at ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list visible lawyers failed: %w", err)
	}
	return rows, nil
}
