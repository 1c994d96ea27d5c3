package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexdesk/internal/model"
	"lexdesk/internal/testutil"
)

func seedChats(t *testing.T, repo *ChatRepository, userID string, n int) []model.Chat {
	t.Helper()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	chats := make([]model.Chat, 0, n)
	for i := 0; i < n; i++ {
		chat := model.Chat{UserID: userID, Title: "chat", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(&chat))
		chats = append(chats, chat)
	}
	return chats
}

func TestChatRepository_ListByUserIDPages(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	userID := "11111111-1111-1111-1111-111111111111"
	chats := seedChats(t, repo, userID, 5)
	seedChats(t, repo, "22222222-2222-2222-2222-222222222222", 2)

	page, err := repo.ListByUserID(userID, 2, "", "")
	require.NoError(t, err)
	require.Len(t, page.Chats, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, chats[4].ID, page.Chats[0].ID)
	assert.Equal(t, chats[3].ID, page.Chats[1].ID)

	page, err = repo.ListByUserID(userID, 2, page.Chats[1].ID, "")
	require.NoError(t, err)
	require.Len(t, page.Chats, 2)
	assert.Equal(t, chats[2].ID, page.Chats[0].ID)
	assert.True(t, page.HasMore)

	page, err = repo.ListByUserID(userID, 10, chats[1].ID, "")
	require.NoError(t, err)
	require.Len(t, page.Chats, 1)
	assert.False(t, page.HasMore)

	page, err = repo.ListByUserID(userID, 10, "", chats[2].ID)
	require.NoError(t, err)
	assert.Len(t, page.Chats, 2)
}

func TestChatRepository_ListByUserIDUnknownCursor(t *testing.T) {
	repo := NewChatRepository(testutil.NewDB(t))

	_, err := repo.ListByUserID("11111111-1111-1111-1111-111111111111", 10, "33333333-3333-3333-3333-333333333333", "")
	assert.Error(t, err)
}

func TestChatRepository_DeleteByIDRemovesChildren(t *testing.T) {
	db := testutil.NewDB(t)
	chats := NewChatRepository(db)
	messages := NewMessageRepository(db)

	chat := model.Chat{UserID: "11111111-1111-1111-1111-111111111111", Title: "t"}
	require.NoError(t, chats.Create(&chat))
	msg := model.NewTextMessage(chat.ID, chat.UserID, model.MessageRoleUser, "hola")
	require.NoError(t, messages.Create(&msg))
	require.NoError(t, messages.UpsertVote(&model.Vote{ChatID: chat.ID, MessageID: msg.ID, IsUpvoted: true}))
	_, err := chats.CreateStream(chat.ID)
	require.NoError(t, err)

	require.NoError(t, chats.DeleteByID(chat.ID))

	got, err := chats.GetByID(chat.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	left, err := messages.ListByChatID(chat.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, left)
	votes, err := messages.ListVotesByChatID(chat.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)
	streams, err := chats.ListStreamIDs(chat.ID)
	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestChatRepository_CaseLinks(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	caseID := "44444444-4444-4444-4444-444444444444"

	chats := seedChats(t, repo, "11111111-1111-1111-1111-111111111111", 3)
	require.NoError(t, repo.SetCase(chats[0].ID, &caseID))
	require.NoError(t, repo.SetCase(chats[1].ID, &caseID))

	counts, err := repo.CountByCaseIDs([]string{caseID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[caseID])

	require.NoError(t, repo.DetachCase(caseID))
	linked, err := repo.ListByCaseID(caseID)
	require.NoError(t, err)
	assert.Empty(t, linked)
}
