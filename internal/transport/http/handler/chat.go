package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/model"
	"lexdesk/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	ChatID      string             `json:"chat_id"`
	Content     string             `json:"content" binding:"required"`
	Attachments []model.Attachment `json:"attachments"`
	Visibility  model.Visibility   `json:"visibility"`
	CaseID      *string            `json:"case_id"`
}

type VisibilityRequest struct {
	Visibility model.Visibility `json:"visibility" binding:"required"`
}

type AttachCaseRequest struct {
	CaseID *string `json:"case_id"`
}

type VoteRequest struct {
	ChatID    string `json:"chat_id" binding:"required"`
	MessageID string `json:"message_id" binding:"required"`
	Type      string `json:"type" binding:"required,oneof=up down"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func chatError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageEmpty):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCursor):
		response.Error(c, http.StatusBadRequest, response.CodeInvalidCursor, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrChatNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChatNotFound, err.Error())
	case errors.Is(err, app.ErrMessageNotFound):
		response.Error(c, http.StatusNotFound, response.CodeMessageNotFound, err.Error())
	case errors.Is(err, app.ErrCaseNotFound):
		response.Error(c, http.StatusNotFound, response.CodeCaseNotFound, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, response.CodeMessageLimit, err.Error())
	case errors.Is(err, app.ErrMessageEnqueue):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func (r SendMessageRequest) input(actor app.Actor) app.SendMessageInput {
	return app.SendMessageInput{
		Actor:       actor,
		ChatID:      r.ChatID,
		Content:     r.Content,
		Attachments: r.Attachments,
		Visibility:  r.Visibility,
		CaseID:      r.CaseID,
	}
}

func (h *ChatHandler) ListHistory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	page, err := h.chatService.ListHistory(actor, app.ListHistoryInput{
		Limit:         queryInt(c, "limit", 10),
		StartingAfter: c.Query("starting_after"),
		EndingBefore:  c.Query("ending_before"),
	})
	if err != nil {
		chatError(c, err, "list history failed")
		return
	}
	response.OK(c, page)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), req.input(actor))
	if err != nil {
		chatError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}

// StreamMessage answers over server-sent events. Validation failures are
// returned as JSON because the event stream only opens in onStart.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	started := false
	writeEvent := func(event, data string) error {
		frame := "data: " + data + "\n\n"
		if event != "" {
			frame = "event: " + event + "\n" + frame
		}
		if _, err := c.Writer.Write([]byte(frame)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	assistant, err := h.chatService.StreamMessage(c.Request.Context(), req.input(actor),
		func(chat *model.Chat, stream *model.Stream, userMessage model.Message) error {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			started = true

			payload, err := json.Marshal(gin.H{"chat": chat, "stream_id": stream.ID, "message": userMessage})
			if err != nil {
				return err
			}
			return writeEvent("start", string(payload))
		},
		func(chunk string) error {
			return writeEvent("", sanitizeSSE(chunk))
		},
	)
	if err != nil {
		if !started {
			chatError(c, err, "stream message failed")
			return
		}
		_ = c.Error(err)
		_ = writeEvent("error", sanitizeSSE(err.Error()))
		return
	}

	payload, err := json.Marshal(assistant)
	if err != nil {
		_ = writeEvent("error", "encode response failed")
		return
	}
	_ = writeEvent("done", string(payload))
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	chat, err := h.chatService.GetChat(actor, c.Param("id"))
	if err != nil {
		chatError(c, err, "get chat failed")
		return
	}
	response.OK(c, chat)
}

func (h *ChatHandler) DeleteChat(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	chatID := c.Param("id")
	if err := h.chatService.DeleteChat(c.Request.Context(), actor, chatID); err != nil {
		chatError(c, err, "delete chat failed")
		return
	}
	response.OK(c, gin.H{"deleted_chat_id": chatID})
}

func (h *ChatHandler) UpdateVisibility(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req VisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.chatService.UpdateVisibility(actor, c.Param("id"), req.Visibility); err != nil {
		chatError(c, err, "update visibility failed")
		return
	}
	response.OK(c, gin.H{"visibility": req.Visibility})
}

func (h *ChatHandler) AttachCase(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req AttachCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.chatService.AttachToCase(actor, c.Param("id"), req.CaseID); err != nil {
		chatError(c, err, "attach case failed")
		return
	}
	response.OK(c, gin.H{"case_id": req.CaseID})
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	messages, err := h.chatService.GetMessages(c.Request.Context(), actor, c.Param("id"), queryInt(c, "limit", 0))
	if err != nil {
		chatError(c, err, "get messages failed")
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) ListStreams(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ids, err := h.chatService.ListStreams(actor, c.Param("id"))
	if err != nil {
		chatError(c, err, "list streams failed")
		return
	}
	response.OK(c, ids)
}

func (h *ChatHandler) DeleteTrailing(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	messageID := c.Param("id")
	if err := h.chatService.DeleteTrailingMessages(c.Request.Context(), actor, messageID); err != nil {
		chatError(c, err, "delete trailing messages failed")
		return
	}
	response.OK(c, gin.H{"deleted_from": messageID})
}

func (h *ChatHandler) Remaining(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	left, err := h.chatService.RemainingMessages(actor)
	if err != nil {
		chatError(c, err, "entitlement check failed")
		return
	}
	response.OK(c, gin.H{"remaining": left})
}

func (h *ChatHandler) ListVotes(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	chatID := c.Query("chatId")
	if chatID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "chatId is required")
		return
	}
	votes, err := h.chatService.ListVotes(actor, chatID)
	if err != nil {
		chatError(c, err, "list votes failed")
		return
	}
	response.OK(c, votes)
}

func (h *ChatHandler) Vote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if err := h.chatService.Vote(actor, req.ChatID, req.MessageID, req.Type == "up"); err != nil {
		chatError(c, err, "vote failed")
		return
	}
	response.OK(c, gin.H{"message_id": req.MessageID, "type": req.Type})
}
