package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"lexdesk/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// ListVersions returns every version of a document, oldest first.
func (r *DocumentRepository) ListVersions(id string) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.Where("id = ?", id).Order("created_at ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list document versions failed: %w", err)
	}
	return docs, nil
}

// DeleteVersionsAfter removes versions created strictly after ts together
// with their suggestions and returns the removed rows.
func (r *DocumentRepository) DeleteVersionsAfter(id string, ts time.Time) ([]model.Document, error) {
	var removed []model.Document
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND created_at > ?", id, ts).Find(&removed).Error; err != nil {
			return fmt.Errorf("list document versions failed: %w", err)
		}
		if len(removed) == 0 {
			return nil
		}
		if err := tx.Where("document_id = ? AND document_created_at > ?", id, ts).Delete(&model.Suggestion{}).Error; err != nil {
			return fmt.Errorf("delete suggestions failed: %w", err)
		}
		if err := tx.Where("id = ? AND created_at > ?", id, ts).Delete(&model.Document{}).Error; err != nil {
			return fmt.Errorf("delete document versions failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *DocumentRepository) CreateSuggestions(list []model.Suggestion) error {
	if len(list) == 0 {
		return nil
	}
	if err := r.db.Create(&list).Error; err != nil {
		return fmt.Errorf("create suggestions failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListSuggestions(documentID string) ([]model.Suggestion, error) {
	var list []model.Suggestion
	if err := r.db.Where("document_id = ?", documentID).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list suggestions failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) ResolveSuggestion(id, userID string) (bool, error) {
	res := r.db.Model(&model.Suggestion{}).Where("id = ? AND user_id = ?", id, userID).Update("is_resolved", true)
	if res.Error != nil {
		return false, fmt.Errorf("resolve suggestion failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
