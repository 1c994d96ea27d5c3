package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"lexdesk/internal/model"
)

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) Create(c *model.Case) error {
	if err := r.db.Create(c).Error; err != nil {
		return fmt.Errorf("create case failed: %w", err)
	}
	return nil
}

func (r *CaseRepository) ListByUserID(userID string) ([]model.Case, error) {
	var list []model.Case
	if err := r.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list cases failed: %w", err)
	}
	return list, nil
}

func (r *CaseRepository) GetByIDAndUserID(id, userID string) (*model.Case, error) {
	var c model.Case
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get case failed: %w", err)
	}
	return &c, nil
}

func (r *CaseRepository) Update(c *model.Case, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.Model(c).Updates(fields).Error; err != nil {
		return fmt.Errorf("update case failed: %w", err)
	}
	return nil
}

// SoftDelete marks the case deleted; its rows stay for audit.
func (r *CaseRepository) SoftDelete(id, userID string) error {
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Case{}).Error; err != nil {
		return fmt.Errorf("delete case failed: %w", err)
	}
	return nil
}
