package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"lexdesk/internal/model"
)

type CaseFileRepository struct {
	db *gorm.DB
}

func NewCaseFileRepository(db *gorm.DB) *CaseFileRepository {
	return &CaseFileRepository{db: db}
}

func (r *CaseFileRepository) Create(file *model.CaseFile) error {
	if err := r.db.Create(file).Error; err != nil {
		return fmt.Errorf("create case file failed: %w", err)
	}
	return nil
}

func (r *CaseFileRepository) GetByID(id string) (*model.CaseFile, error) {
	var file model.CaseFile
	if err := r.db.Where("id = ?", id).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get case file failed: %w", err)
	}
	return &file, nil
}

func (r *CaseFileRepository) GetByIDAndCaseID(id, caseID string) (*model.CaseFile, error) {
	var file model.CaseFile
	if err := r.db.Where("id = ? AND case_id = ?", id, caseID).First(&file).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get case file failed: %w", err)
	}
	return &file, nil
}

func (r *CaseFileRepository) ListByCaseID(caseID string) ([]model.CaseFile, error) {
	var list []model.CaseFile
	if err := r.db.Where("case_id = ?", caseID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list case files failed: %w", err)
	}
	return list, nil
}

// ListVectorizedByCaseID loads files with a finished vector, including the
// vector column.
func (r *CaseFileRepository) ListVectorizedByCaseID(caseID string) ([]model.CaseFile, error) {
	var list []model.CaseFile
	if err := r.db.Where("case_id = ? AND vector_status = ?", caseID, model.VectorStatusDone).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list vectorized case files failed: %w", err)
	}
	return list, nil
}

// ClaimForProcessing moves a pending or failed file to processing. It
// returns false when another worker holds it or it is already done.
func (r *CaseFileRepository) ClaimForProcessing(id string) (bool, error) {
	res := r.db.Model(&model.CaseFile{}).
		Where("id = ? AND vector_status IN ?", id, []model.VectorStatus{model.VectorStatusPending, model.VectorStatusFailed}).
		Updates(map[string]interface{}{
			"vector_status": model.VectorStatusProcessing,
			"vector_error":  "",
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim case file failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *CaseFileRepository) SaveVectorResult(id, text, vector string) error {
	err := r.db.Model(&model.CaseFile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"extracted_text": text,
		"vector_data":    vector,
		"vector_status":  model.VectorStatusDone,
		"vector_error":   "",
	}).Error
	if err != nil {
		return fmt.Errorf("save vector result failed: %w", err)
	}
	return nil
}

func (r *CaseFileRepository) MarkFailed(id, reason string) error {
	reason = truncateRunes(strings.ToValidUTF8(strings.ReplaceAll(reason, "\x00", ""), "\uFFFD"), 500)
	err := r.db.Model(&model.CaseFile{}).Where("id = ?", id).Updates(map[string]interface{}{
		"vector_status": model.VectorStatusFailed,
		"vector_error":  reason,
	}).Error
	if err != nil {
		return fmt.Errorf("mark case file failed: %w", err)
	}
	return nil
}

// ListStale returns files left pending or processing since before cutoff.
func (r *CaseFileRepository) ListStale(cutoff time.Time, limit int) ([]model.CaseFile, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []model.CaseFile
	err := r.db.Where("vector_status IN ? AND updated_at < ?",
		[]model.VectorStatus{model.VectorStatusPending, model.VectorStatusProcessing}, cutoff).
		Order("updated_at ASC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list stale case files failed: %w", err)
	}
	return list, nil
}

// ResetToPending puts a stale file back in the queue state.
func (r *CaseFileRepository) ResetToPending(id string) error {
	if err := r.db.Model(&model.CaseFile{}).Where("id = ?", id).Update("vector_status", model.VectorStatusPending).Error; err != nil {
		return fmt.Errorf("reset case file failed: %w", err)
	}
	return nil
}

func (r *CaseFileRepository) SoftDelete(id string) error {
	if err := r.db.Where("id = ?", id).Delete(&model.CaseFile{}).Error; err != nil {
		return fmt.Errorf("delete case file failed: %w", err)
	}
	return nil
}

func (r *CaseFileRepository) SoftDeleteByCaseID(caseID string) ([]model.CaseFile, error) {
	var files []model.CaseFile
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", caseID).Find(&files).Error; err != nil {
			return fmt.Errorf("list case files failed: %w", err)
		}
		if err := tx.Where("case_id = ?", caseID).Delete(&model.CaseFile{}).Error; err != nil {
			return fmt.Errorf("delete case files failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// truncateRunes keeps at most n runes of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
