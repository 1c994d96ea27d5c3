package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lexdesk/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	if err := r.db.Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(id string) (*model.Chat, error) {
	var chat model.Chat
	if err := r.db.Where("id = ?", id).First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

type ChatPage struct {
	Chats   []model.Chat `json:"chats"`
	HasMore bool         `json:"has_more"`
}

// ListByUserID pages a user's chats newest first. startingAfter returns chats
// older than the given chat, endingBefore returns chats newer than it; at most
// one of them is honoured, startingAfter first.
func (r *ChatRepository) ListByUserID(userID string, limit int, startingAfter, endingBefore string) (*ChatPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	q := r.db.Where("user_id = ?", userID)
	switch {
	case startingAfter != "":
		anchor, err := r.GetByID(startingAfter)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, fmt.Errorf("chat %s not found: %w", startingAfter, gorm.ErrRecordNotFound)
		}
		q = q.Where("created_at < ?", anchor.CreatedAt)
	case endingBefore != "":
		anchor, err := r.GetByID(endingBefore)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			return nil, fmt.Errorf("chat %s not found: %w", endingBefore, gorm.ErrRecordNotFound)
		}
		q = q.Where("created_at > ?", anchor.CreatedAt)
	}

	var chats []model.Chat
	if err := q.Order("created_at DESC").Limit(limit + 1).Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	page := &ChatPage{Chats: chats}
	if len(chats) > limit {
		page.Chats = chats[:limit]
		page.HasMore = true
	}
	return page, nil
}

func (r *ChatRepository) ListByCaseID(caseID string) ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.Where("case_id = ?", caseID).Order("created_at DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats by case failed: %w", err)
	}
	return chats, nil
}

// CountByCaseIDs returns the number of chats per case id.
func (r *ChatRepository) CountByCaseIDs(caseIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		CaseID string
		Count  int64
	}
	err := r.db.Model(&model.Chat{}).
		Select("case_id, COUNT(*) AS count").
		Where("case_id IN ?", caseIDs).
		Group("case_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count chats by case failed: %w", err)
	}
	for _, row := range rows {
		out[row.CaseID] = row.Count
	}
	return out, nil
}

func (r *ChatRepository) UpdateVisibility(id string, visibility model.Visibility) error {
	if err := r.db.Model(&model.Chat{}).Where("id = ?", id).Update("visibility", visibility).Error; err != nil {
		return fmt.Errorf("update chat visibility failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) SetCase(id string, caseID *string) error {
	if err := r.db.Model(&model.Chat{}).Where("id = ?", id).Update("case_id", caseID).Error; err != nil {
		return fmt.Errorf("update chat case failed: %w", err)
	}
	return nil
}

// DetachCase clears case_id on every chat of the case.
func (r *ChatRepository) DetachCase(caseID string) error {
	if err := r.db.Model(&model.Chat{}).Where("case_id = ?", caseID).Update("case_id", nil).Error; err != nil {
		return fmt.Errorf("detach chats from case failed: %w", err)
	}
	return nil
}

// DeleteByID removes a chat with its votes, messages and streams.
func (r *ChatRepository) DeleteByID(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return fmt.Errorf("delete chat votes failed: %w", err)
		}
		if err := tx.Where("chat_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete chat messages failed: %w", err)
		}
		if err := tx.Where("chat_id = ?", id).Delete(&model.Stream{}).Error; err != nil {
			return fmt.Errorf("delete chat streams failed: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&model.Chat{}).Error; err != nil {
			return fmt.Errorf("delete chat failed: %w", err)
		}
		return nil
	})
}

func (r *ChatRepository) CreateStream(chatID string) (*model.Stream, error) {
	stream := &model.Stream{ChatID: chatID, CreatedAt: time.Now().UTC()}
	if err := r.db.Create(stream).Error; err != nil {
		return nil, fmt.Errorf("create stream failed: %w", err)
	}
	return stream, nil
}

func (r *ChatRepository) ListStreamIDs(chatID string) ([]string, error) {
	var ids []string
	if err := r.db.Model(&model.Stream{}).Where("chat_id = ?", chatID).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list stream ids failed: %w", err)
	}
	return ids, nil
}
