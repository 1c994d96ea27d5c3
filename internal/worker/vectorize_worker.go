package worker

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"lexdesk/internal/platform/rabbitmq"
)

type FileProcessor interface {
	Process(ctx context.Context, fileID string) error
}

// VectorizeWorker runs text extraction and embedding for uploaded case
// files. Failures are recorded on the file row by the processor, so the
// delivery is dropped rather than requeued.
type VectorizeWorker struct {
	*Consumer
	processor FileProcessor
}

func NewVectorizeWorker(conn *amqp.Connection, processor FileProcessor, queueName string, log *zap.Logger) *VectorizeWorker {
	w := &VectorizeWorker{processor: processor}
	w.Consumer = NewConsumer(conn, queueName, 2, w.handle, log)
	return w
}

func (w *VectorizeWorker) handle(ctx context.Context, body []byte) error {
	var job rabbitmq.VectorizeJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("decode vectorize job failed: %w", err)
	}
	if job.FileID == "" {
		return fmt.Errorf("vectorize job without file id")
	}
	return w.processor.Process(ctx, job.FileID)
}
