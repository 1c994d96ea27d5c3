package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"lexdesk/internal/pkg/pdfextract"
	"lexdesk/internal/pkg/vector"
	"lexdesk/internal/repository"
	"lexdesk/internal/storage"
)

const (
	chunkSize          = 1000
	chunkOverlap       = 200
	maxChunksPerFile   = 64
	embeddingBatchSize = 10
	staleAfter         = 30 * time.Minute
)

var ErrNoExtractableText = errors.New("no extractable text")

// VectorizeService turns an uploaded file into extracted text plus one mean
// embedding. Files are chunked first so long documents still fit the
// embedding model's input limit.
type VectorizeService struct {
	fileRepo *repository.CaseFileRepository
	store    storage.Store
	embedder Embedder
	queue    VectorizeEnqueuer
	maxBytes int64
	log      *zap.Logger
	now      Clock
}

func NewVectorizeService(
	fileRepo *repository.CaseFileRepository,
	store storage.Store,
	embedder Embedder,
	queue VectorizeEnqueuer,
	maxBytes int64,
	log *zap.Logger,
) *VectorizeService {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &VectorizeService{
		fileRepo: fileRepo,
		store:    store,
		embedder: embedder,
		queue:    queue,
		maxBytes: maxBytes,
		log:      log,
		now:      systemClock,
	}
}

// Process vectorizes one file. It is a no-op when the file is gone or
// another worker already claimed it. Processing failures are recorded on the
// row and also returned.
func (s *VectorizeService) Process(ctx context.Context, fileID string) error {
	file, err := s.fileRepo.GetByID(fileID)
	if err != nil {
		return err
	}
	if file == nil {
		s.log.Info("vectorize skipped, file not found", zap.String("file_id", fileID))
		return nil
	}
	claimed, err := s.fileRepo.ClaimForProcessing(file.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	text, vec, err := s.vectorize(ctx, file.StorageKey, file.URL, file.MimeType)
	if err != nil {
		if markErr := s.fileRepo.MarkFailed(file.ID, err.Error()); markErr != nil {
			s.log.Error("mark vectorize failure failed", zap.String("file_id", file.ID), zap.Error(markErr))
		}
		return fmt.Errorf("vectorize file %s: %w", file.ID, err)
	}

	raw, err := json.Marshal(vec)
	if err == nil {
		err = s.fileRepo.SaveVectorResult(file.ID, text, string(raw))
	}
	if err != nil {
		if markErr := s.fileRepo.MarkFailed(file.ID, err.Error()); markErr != nil {
			s.log.Error("mark vectorize failure failed", zap.String("file_id", file.ID), zap.Error(markErr))
		}
		return fmt.Errorf("store vector for file %s: %w", file.ID, err)
	}
	s.log.Info("case file vectorized", zap.String("file_id", file.ID), zap.Int("dims", len(vec)))
	return nil
}

func (s *VectorizeService) vectorize(ctx context.Context, key, url, mimeType string) (string, []float32, error) {
	rc, err := s.store.Open(ctx, storage.Object{Key: key, URL: url})
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes))
	if err != nil {
		return "", nil, fmt.Errorf("read blob failed: %w", err)
	}

	text, err := pdfextract.FromContent(mimeType, data)
	if err != nil {
		return "", nil, err
	}
	if text == "" {
		return "", nil, ErrNoExtractableText
	}

	var chunks []string
	for _, c := range vector.ChunkText(text, chunkSize, chunkOverlap) {
		if strings.TrimSpace(c) != "" {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) > maxChunksPerFile {
		chunks = chunks[:maxChunksPerFile]
	}

	embeddings := make([][]float32, 0, len(chunks))
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch, err := s.embedder.EmbedBatch(ctx, chunks[i:end])
		if err != nil {
			return "", nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	mean := vector.Mean(embeddings)
	if len(mean) == 0 {
		return "", nil, fmt.Errorf("embedding produced no vector")
	}
	return text, mean, nil
}

// RequeueStale puts files stuck in pending or processing back on the queue.
func (s *VectorizeService) RequeueStale(ctx context.Context) (int, error) {
	stale, err := s.fileRepo.ListStale(s.now().Add(-staleAfter), 100)
	if err != nil {
		return 0, err
	}
	requeued := 0
	for _, f := range stale {
		if err := s.fileRepo.ResetToPending(f.ID); err != nil {
			return requeued, err
		}
		if err := s.queue.EnqueueVectorize(ctx, f.ID); err != nil {
			return requeued, err
		}
		requeued++
	}
	if requeued > 0 {
		s.log.Info("requeued stale case files", zap.Int("count", requeued))
	}
	return requeued, nil
}
