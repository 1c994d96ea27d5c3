package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lexdesk/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts the message; a redelivered message with an existing id is a
// no-op.
func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(id string) (*model.Message, error) {
	var msg model.Message
	if err := r.db.Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message failed: %w", err)
	}
	return &msg, nil
}

func (r *MessageRepository) ListByChatID(chatID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var messages []model.Message
	if err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

// ListRecentByChatID returns the newest limit messages in chronological order.
func (r *MessageRepository) ListRecentByChatID(chatID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var messages []model.Message
	if err := r.db.Where("chat_id = ?", chatID).Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list recent messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// CountUserMessagesSince counts messages a user authored after since.
func (r *MessageRepository) CountUserMessagesSince(userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("user_id = ? AND role = ? AND created_at >= ?", userID, model.MessageRoleUser, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count user messages failed: %w", err)
	}
	return count, nil
}

// DeleteByChatIDAfter deletes messages (and their votes) created at or after ts.
func (r *MessageRepository) DeleteByChatIDAfter(chatID string, ts time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&model.Message{}).Where("chat_id = ? AND created_at >= ?", chatID, ts).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("list trailing messages failed: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("chat_id = ? AND message_id IN ?", chatID, ids).Delete(&model.Vote{}).Error; err != nil {
			return fmt.Errorf("delete trailing votes failed: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("delete trailing messages failed: %w", err)
		}
		return nil
	})
}

func (r *MessageRepository) UpsertVote(vote *model.Vote) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_upvoted"}),
	}).Create(vote).Error
	if err != nil {
		return fmt.Errorf("upsert vote failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListVotesByChatID(chatID string) ([]model.Vote, error) {
	var votes []model.Vote
	if err := r.db.Where("chat_id = ?", chatID).Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("list votes failed: %w", err)
	}
	return votes, nil
}
