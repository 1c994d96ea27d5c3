package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"lexdesk/internal/model"
)

// JSONPublisher publishes JSON payloads to one durable queue.
type JSONPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewJSONPublisher(conn *amqp.Connection, queueName string) *JSONPublisher {
	return &JSONPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *JSONPublisher) PublishJSON(ctx context.Context, v interface{}) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish to %s failed: %w", p.queueName, err)
	}
	return nil
}

// MessagePublisher queues chat messages for the persistence worker.
type MessagePublisher struct {
	*JSONPublisher
}

func NewMessagePublisher(conn *amqp.Connection, queueName string) *MessagePublisher {
	return &MessagePublisher{JSONPublisher: NewJSONPublisher(conn, queueName)}
}

func (p *MessagePublisher) Publish(ctx context.Context, msg model.Message) error {
	return p.PublishJSON(ctx, msg)
}

// VectorizeJob is the payload of the file vectorization queue.
type VectorizeJob struct {
	FileID string `json:"file_id"`
}

// VectorizePublisher queues case files for text extraction and embedding.
type VectorizePublisher struct {
	*JSONPublisher
}

func NewVectorizePublisher(conn *amqp.Connection, queueName string) *VectorizePublisher {
	return &VectorizePublisher{JSONPublisher: NewJSONPublisher(conn, queueName)}
}

func (p *VectorizePublisher) EnqueueVectorize(ctx context.Context, fileID string) error {
	return p.PublishJSON(ctx, VectorizeJob{FileID: fileID})
}

func DeclareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s failed: %w", name, err)
	}
	return nil
}
