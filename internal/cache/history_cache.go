package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"lexdesk/internal/model"
)

// HistoryCache keeps the recent messages of a chat. A short-lived dirty
// marker is set while a write is in flight on the persistence queue so
// readers fall back to the database instead of a stale snapshot.
type HistoryCache struct {
	client         redisv9.UniversalClient
	historyTTL     time.Duration
	dirtyMarkerTTL time.Duration
}

func NewHistoryCache(client redisv9.UniversalClient, historyTTL, dirtyMarkerTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 60 * time.Second
	}
	if dirtyMarkerTTL <= 0 {
		dirtyMarkerTTL = 5 * time.Second
	}
	return &HistoryCache{
		client:         client,
		historyTTL:     historyTTL,
		dirtyMarkerTTL: dirtyMarkerTTL,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error) {
	raw, err := c.client.Get(ctx, historyKey(chatID)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var messages []model.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return messages, true, nil
}

func (c *HistoryCache) SetHistory(ctx context.Context, chatID string, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(chatID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// DeleteHistory removes the cached window and the dirty marker together.
// Callers drop the cache whenever the stored messages change outside it, so
// the next read rebuilds from the database either way and a leftover marker
// would only outlive the chat it describes.
func (c *HistoryCache) DeleteHistory(ctx context.Context, chatID string) error {
	if err := c.client.Del(ctx, historyKey(chatID), dirtyKey(chatID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) MarkDirty(ctx context.Context, chatID string) error {
	if err := c.client.Set(ctx, dirtyKey(chatID), "1", c.dirtyMarkerTTL).Err(); err != nil {
		return fmt.Errorf("redis set dirty marker failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) IsDirty(ctx context.Context, chatID string) (bool, error) {
	exists, err := c.client.Exists(ctx, dirtyKey(chatID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check dirty marker failed: %w", err)
	}
	return exists > 0, nil
}

func historyKey(chatID string) string {
	return "chat:history:" + chatID
}

func dirtyKey(chatID string) string {
	return "chat:history:dirty:" + chatID
}
