package worker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"lexdesk/internal/platform/rabbitmq"
)

// HandlerFunc processes one delivery body. A returned error nacks the
// delivery without requeue.
type HandlerFunc func(ctx context.Context, body []byte) error

// Consumer drains one durable queue with manual acks.
type Consumer struct {
	conn      *amqp.Connection
	queueName string
	prefetch  int
	handle    HandlerFunc
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConsumer(conn *amqp.Connection, queueName string, prefetch int, handle HandlerFunc, log *zap.Logger) *Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Consumer{
		conn:      conn,
		queueName: queueName,
		prefetch:  prefetch,
		handle:    handle,
		log:       log.With(zap.String("queue", queueName)),
	}
}

func (w *Consumer) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("worker delivery channel closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.log.Error("worker handle delivery failed", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("worker started")
	return nil
}

func (w *Consumer) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
