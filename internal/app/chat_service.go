package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"lexdesk/internal/ai"
	"lexdesk/internal/model"
	"lexdesk/internal/repository"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrMessageEnqueue  = errors.New("message enqueue failed")
	ErrRateLimited     = errors.New("daily message limit reached")
	ErrInvalidCursor   = errors.New("only one of starting_after or ending_before may be set")
)

const (
	emptyAnswer       = "The model returned an empty response."
	entitlementWindow = 24 * time.Hour
	maxHistoryLimit   = 100
)

type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

type HistoryCache interface {
	GetHistory(ctx context.Context, chatID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, chatID string, messages []model.Message) error
	DeleteHistory(ctx context.Context, chatID string) error
	MarkDirty(ctx context.Context, chatID string) error
	IsDirty(ctx context.Context, chatID string) (bool, error)
}

type LLMClient interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

// CaseContextProvider returns excerpts of a case's files relevant to a query.
type CaseContextProvider interface {
	CaseContext(ctx context.Context, caseID, query string, k int) ([]string, error)
}

// Entitlements caps the user-authored messages per rolling 24 hours.
// Admins are unlimited.
type Entitlements struct {
	User      int
	Lawyer    int
	LawyerPro int
}

func (e Entitlements) Limit(actor Actor) int {
	switch actor.Role {
	case model.RoleAdmin:
		return -1
	case model.RoleLawyer:
		if actor.Plan == model.PlanPro {
			return e.LawyerPro
		}
		return e.Lawyer
	default:
		return e.User
	}
}

type ChatService struct {
	chatRepo     *repository.ChatRepository
	messageRepo  *repository.MessageRepository
	caseRepo     *repository.CaseRepository
	publisher    AsyncMessagePublisher
	historyCache HistoryCache
	llm          LLMClient
	caseContext  CaseContextProvider
	entitlements Entitlements
	maxContext   int
	log          *zap.Logger
	now          Clock
}

type SendMessageInput struct {
	Actor       Actor
	ChatID      string
	Content     string
	Attachments []model.Attachment
	Visibility  model.Visibility
	CaseID      *string
}

type SendMessageResult struct {
	Chat     *model.Chat     `json:"chat"`
	Messages []model.Message `json:"messages"`
}

func NewChatService(
	chatRepo *repository.ChatRepository,
	messageRepo *repository.MessageRepository,
	caseRepo *repository.CaseRepository,
	publisher AsyncMessagePublisher,
	historyCache HistoryCache,
	llm LLMClient,
	caseContext CaseContextProvider,
	entitlements Entitlements,
	maxContext int,
	log *zap.Logger,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 20
	}
	return &ChatService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		caseRepo:     caseRepo,
		publisher:    publisher,
		historyCache: historyCache,
		llm:          llm,
		caseContext:  caseContext,
		entitlements: entitlements,
		maxContext:   maxContext,
		log:          log,
		now:          systemClock,
	}
}

// RemainingMessages reports how many messages the actor may still send in
// the current window; -1 means unlimited.
func (s *ChatService) RemainingMessages(actor Actor) (int, error) {
	limit := s.entitlements.Limit(actor)
	if limit < 0 {
		return -1, nil
	}
	used, err := s.messageRepo.CountUserMessagesSince(actor.UserID, s.now().Add(-entitlementWindow))
	if err != nil {
		return 0, err
	}
	if left := limit - int(used); left > 0 {
		return left, nil
	}
	return 0, nil
}

// prepare runs the checks shared by SendMessage and StreamMessage and returns
// the chat (created on first message), the user message and the prompt.
func (s *ChatService) prepare(ctx context.Context, input SendMessageInput) (*model.Chat, model.Message, []ai.ChatMessage, error) {
	content := strings.TrimSpace(input.Content)
	if input.Actor.UserID == "" {
		return nil, model.Message{}, nil, ErrInvalidInput
	}
	if content == "" {
		return nil, model.Message{}, nil, ErrMessageEmpty
	}
	if s.publisher == nil {
		return nil, model.Message{}, nil, ErrMessageEnqueue
	}

	left, err := s.RemainingMessages(input.Actor)
	if err != nil {
		return nil, model.Message{}, nil, err
	}
	if left == 0 {
		return nil, model.Message{}, nil, ErrRateLimited
	}

	chat, err := s.resolveChat(ctx, input, content)
	if err != nil {
		return nil, model.Message{}, nil, err
	}

	prompt, err := s.buildPrompt(ctx, chat, content)
	if err != nil {
		return nil, model.Message{}, nil, err
	}

	userMessage := model.NewTextMessage(chat.ID, input.Actor.UserID, model.MessageRoleUser, content)
	userMessage.CreatedAt = s.now()
	userMessage.SetAttachments(input.Attachments)
	if err := s.publish(ctx, userMessage); err != nil {
		return nil, model.Message{}, nil, err
	}
	return chat, userMessage, prompt, nil
}

func (s *ChatService) resolveChat(ctx context.Context, input SendMessageInput, content string) (*model.Chat, error) {
	if input.ChatID != "" {
		if !validID(input.ChatID) {
			return nil, ErrInvalidInput
		}
		chat, err := s.chatRepo.GetByID(input.ChatID)
		if err != nil {
			return nil, err
		}
		if chat != nil {
			if chat.UserID != input.Actor.UserID {
				return nil, ErrForbidden
			}
			return chat, nil
		}
	}

	if input.CaseID != nil {
		if err := s.requireCase(input.Actor, *input.CaseID); err != nil {
			return nil, err
		}
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}
	if visibility != model.VisibilityPrivate && visibility != model.VisibilityPublic {
		return nil, ErrInvalidInput
	}

	chat := &model.Chat{
		ID:         input.ChatID,
		UserID:     input.Actor.UserID,
		CaseID:     input.CaseID,
		Title:      s.generateTitle(ctx, content),
		Visibility: visibility,
		CreatedAt:  s.now(),
	}
	if err := s.chatRepo.Create(chat); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) generateTitle(ctx context.Context, firstMessage string) string {
	if s.llm == nil {
		return ai.CleanTitle("", firstMessage)
	}
	titleCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	raw, err := s.llm.Complete(titleCtx, ai.TitleMessages(firstMessage))
	if err != nil {
		s.log.Warn("generate chat title failed", zap.Error(err))
	}
	return ai.CleanTitle(raw, firstMessage)
}

func (s *ChatService) requireCase(actor Actor, caseID string) error {
	if !validID(caseID) {
		return ErrCaseNotFound
	}
	c, err := s.caseRepo.GetByIDAndUserID(caseID, actor.UserID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCaseNotFound
	}
	return nil
}

func (s *ChatService) publish(ctx context.Context, msg model.Message) error {
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, msg.ChatID)
		_ = s.historyCache.MarkDirty(ctx, msg.ChatID)
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error("enqueue chat message failed", zap.String("chat_id", msg.ChatID), zap.Error(err))
		return ErrMessageEnqueue
	}
	return nil
}

func (s *ChatService) buildPrompt(ctx context.Context, chat *model.Chat, current string) ([]ai.ChatMessage, error) {
	recent, err := s.messageRepo.ListRecentByChatID(chat.ID, s.maxContext)
	if err != nil {
		return nil, err
	}

	var excerpts []string
	if chat.CaseID != nil && s.caseContext != nil {
		excerpts, err = s.caseContext.CaseContext(ctx, *chat.CaseID, current, 3)
		if err != nil {
			s.log.Warn("load case context failed", zap.String("case_id", *chat.CaseID), zap.Error(err))
			excerpts = nil
		}
	}

	messages := make([]ai.ChatMessage, 0, len(recent)+2)
	messages = append(messages, ai.ChatMessage{Role: model.MessageRoleSystem, Content: ai.SystemPrompt(excerpts)})
	for _, item := range recent {
		text := item.Text()
		if text == "" || item.Role == model.MessageRoleSystem {
			continue
		}
		messages = append(messages, ai.ChatMessage{Role: item.Role, Content: text})
	}
	messages = append(messages, ai.ChatMessage{Role: model.MessageRoleUser, Content: current})
	return messages, nil
}

func (s *ChatService) finish(ctx context.Context, chat *model.Chat, actor Actor, answer string) (model.Message, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyAnswer
	}
	msg := model.NewTextMessage(chat.ID, actor.UserID, model.MessageRoleAssistant, answer)
	msg.CreatedAt = s.now()
	if err := s.publish(ctx, msg); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageResult, error) {
	chat, userMessage, prompt, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	answer, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	assistant, err := s.finish(ctx, chat, input.Actor, answer)
	if err != nil {
		return nil, err
	}
	return &SendMessageResult{
		Chat:     chat,
		Messages: []model.Message{userMessage, assistant},
	}, nil
}

// StreamMessage is SendMessage over a token stream. onStart runs once the
// chat and stream rows exist, before the first chunk.
func (s *ChatService) StreamMessage(
	ctx context.Context,
	input SendMessageInput,
	onStart func(chat *model.Chat, stream *model.Stream, userMessage model.Message) error,
	onChunk func(string) error,
) (*model.Message, error) {
	chat, userMessage, prompt, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}
	stream, err := s.chatRepo.CreateStream(chat.ID)
	if err != nil {
		return nil, err
	}
	if err := onStart(chat, stream, userMessage); err != nil {
		return nil, err
	}

	full, streamErr := s.llm.StreamComplete(ctx, prompt, onChunk)
	if streamErr != nil && strings.TrimSpace(full) == "" {
		return nil, streamErr
	}
	if streamErr != nil {
		// keep the partial answer so the transcript matches what the client saw
		s.log.Warn("assistant stream interrupted", zap.String("chat_id", chat.ID), zap.Error(streamErr))
		ctx = context.WithoutCancel(ctx)
	}
	assistant, err := s.finish(ctx, chat, input.Actor, full)
	if err != nil {
		return nil, err
	}
	return &assistant, nil
}

type ListHistoryInput struct {
	Limit         int
	StartingAfter string
	EndingBefore  string
}

func (s *ChatService) ListHistory(actor Actor, input ListHistoryInput) (*repository.ChatPage, error) {
	if actor.UserID == "" {
		return nil, ErrInvalidInput
	}
	if input.StartingAfter != "" && input.EndingBefore != "" {
		return nil, ErrInvalidCursor
	}
	if input.Limit <= 0 {
		input.Limit = 10
	}
	if input.Limit > maxHistoryLimit {
		input.Limit = maxHistoryLimit
	}
	page, err := s.chatRepo.ListByUserID(actor.UserID, input.Limit, input.StartingAfter, input.EndingBefore)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return page, nil
}

// readableChat returns the chat when the actor owns it or it is public.
func (s *ChatService) readableChat(actor Actor, chatID string) (*model.Chat, error) {
	if !validID(chatID) {
		return nil, ErrChatNotFound
	}
	chat, err := s.chatRepo.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if chat.Visibility != model.VisibilityPublic && chat.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return chat, nil
}

func (s *ChatService) ownedChat(actor Actor, chatID string) (*model.Chat, error) {
	chat, err := s.readableChat(actor, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return chat, nil
}

func (s *ChatService) GetChat(actor Actor, chatID string) (*model.Chat, error) {
	return s.readableChat(actor, chatID)
}

func (s *ChatService) GetMessages(ctx context.Context, actor Actor, chatID string, limit int) ([]model.Message, error) {
	if _, err := s.readableChat(actor, chatID); err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, chatID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, chatID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messageRepo.ListByChatID(chatID, 0)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, chatID); dirtyErr == nil && !dirty {
			_ = s.historyCache.SetHistory(ctx, chatID, messages)
		}
	}
	return trimMessages(messages, limit), nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func (s *ChatService) DeleteChat(ctx context.Context, actor Actor, chatID string) error {
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return err
	}
	if err := s.chatRepo.DeleteByID(chatID); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, chatID)
	}
	return nil
}

func (s *ChatService) UpdateVisibility(actor Actor, chatID string, visibility model.Visibility) error {
	if visibility != model.VisibilityPrivate && visibility != model.VisibilityPublic {
		return ErrInvalidInput
	}
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return err
	}
	return s.chatRepo.UpdateVisibility(chatID, visibility)
}

// AttachToCase links a chat to one of the actor's cases; nil detaches it.
func (s *ChatService) AttachToCase(actor Actor, chatID string, caseID *string) error {
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return err
	}
	if caseID != nil {
		if err := s.requireCase(actor, *caseID); err != nil {
			return err
		}
	}
	return s.chatRepo.SetCase(chatID, caseID)
}

func (s *ChatService) Vote(actor Actor, chatID, messageID string, upvote bool) error {
	if !validID(messageID) {
		return ErrMessageNotFound
	}
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return err
	}
	msg, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.ChatID != chatID {
		return ErrMessageNotFound
	}
	return s.messageRepo.UpsertVote(&model.Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: upvote})
}

func (s *ChatService) ListVotes(actor Actor, chatID string) ([]model.Vote, error) {
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListVotesByChatID(chatID)
}

// DeleteTrailingMessages removes a message and everything after it, used when
// the user edits an earlier message.
func (s *ChatService) DeleteTrailingMessages(ctx context.Context, actor Actor, messageID string) error {
	if !validID(messageID) {
		return ErrMessageNotFound
	}
	msg, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}
	if _, err := s.ownedChat(actor, msg.ChatID); err != nil {
		return err
	}
	if err := s.messageRepo.DeleteByChatIDAfter(msg.ChatID, msg.CreatedAt); err != nil {
		return err
	}
	if s.historyCache != nil {
		_ = s.historyCache.DeleteHistory(ctx, msg.ChatID)
	}
	return nil
}

func (s *ChatService) ListStreams(actor Actor, chatID string) ([]string, error) {
	if _, err := s.ownedChat(actor, chatID); err != nil {
		return nil, err
	}
	return s.chatRepo.ListStreamIDs(chatID)
}
