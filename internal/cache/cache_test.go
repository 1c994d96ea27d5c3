package cache

import (
	"context"
	"os"
	"testing"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
)

// newTestClient connects to REDIS_TEST_ADDR or skips.
func newTestClient(t *testing.T) *redisv9.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redisv9.NewClient(&redisv9.Options{Addr: addr, DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestHistoryCache_RoundTrip(t *testing.T) {
	c := NewHistoryCache(newTestClient(t), time.Minute, time.Second)
	ctx := context.Background()

	_, ok, err := c.GetHistory(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, ok)

	msg := model.NewTextMessage("chat-1", "user-1", model.MessageRoleUser, "hola")
	require.NoError(t, c.SetHistory(ctx, "chat-1", []model.Message{msg}))
	got, ok, err := c.GetHistory(ctx, "chat-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "hola", got[0].Text())

	require.NoError(t, c.MarkDirty(ctx, "chat-1"))
	dirty, err := c.IsDirty(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, dirty)

	require.NoError(t, c.DeleteHistory(ctx, "chat-1"))
	dirty, err = c.IsDirty(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, dirty)
}

func TestLookupCache_SetGetFlush(t *testing.T) {
	c := NewLookupCache(newTestClient(t), time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "countries", []model.Country{{ID: 1, Code: "CO", Name: "Colombia"}}))
	var out []model.Country
	ok, err := c.Get(ctx, "countries", &out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Colombia", out[0].Name)

	require.NoError(t, c.Flush(ctx))
	ok, err = c.Get(ctx, "countries", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "chat:history:abc", historyKey("abc"))
	assert.Equal(t, "chat:history:dirty:abc", dirtyKey("abc"))
	assert.Equal(t, "lookup:states:1", lookupKey("states:1"))
}
