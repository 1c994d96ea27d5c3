package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"lexdesk/internal/model"
)

type MessageStore interface {
	Create(message *model.Message) error
}

// MessagePersistWorker writes queued chat messages to the database. Create
// is idempotent on the message id so redeliveries are harmless.
type MessagePersistWorker struct {
	*Consumer
	repo MessageStore
}

func NewMessagePersistWorker(conn *amqp.Connection, repo MessageStore, queueName string, log *zap.Logger) *MessagePersistWorker {
	w := &MessagePersistWorker{repo: repo}
	w.Consumer = NewConsumer(conn, queueName, 16, w.handle, log)
	return w
}

func (w *MessagePersistWorker) handle(_ context.Context, body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode message failed: %w", err)
	}
	if msg.ID == "" || msg.ChatID == "" {
		return fmt.Errorf("message without id or chat id")
	}
	return w.repo.Create(&msg)
}
