package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// LookupCache stores JSON snapshots of the static geo tables.
type LookupCache struct {
	client redisv9.UniversalClient
	ttl    time.Duration
}

func NewLookupCache(client redisv9.UniversalClient, ttl time.Duration) *LookupCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LookupCache{client: client, ttl: ttl}
}

// Get decodes the cached value into dst and reports whether it was present.
func (c *LookupCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, lookupKey(key)).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get lookup failed: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("unmarshal cached lookup failed: %w", err)
	}
	return true, nil
}

func (c *LookupCache) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal lookup cache failed: %w", err)
	}
	if err := c.client.Set(ctx, lookupKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set lookup failed: %w", err)
	}
	return nil
}

// Flush drops every lookup entry, used after reseeding.
func (c *LookupCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, lookupKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan lookup keys failed: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete lookup keys failed: %w", err)
	}
	return nil
}

func lookupKey(key string) string {
	return "lookup:" + key
}
