package app

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lexdesk/internal/model"
	"lexdesk/internal/pkg/vector"
	"lexdesk/internal/repository"
	"lexdesk/internal/storage"
)

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrFileTooLarge        = errors.New("file exceeds the upload limit")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrSearchUnavailable   = errors.New("no vectorized files to search")
)

const excerptLength = 1500

var allowedFileTypes = map[string]string{
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"text/markdown":   ".md",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
}

type VectorizeEnqueuer interface {
	EnqueueVectorize(ctx context.Context, fileID string) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type CaseFileService struct {
	caseRepo *repository.CaseRepository
	fileRepo *repository.CaseFileRepository
	store    storage.Store
	queue    VectorizeEnqueuer
	embedder Embedder
	maxBytes int64
	log      *zap.Logger
}

func NewCaseFileService(
	caseRepo *repository.CaseRepository,
	fileRepo *repository.CaseFileRepository,
	store storage.Store,
	queue VectorizeEnqueuer,
	embedder Embedder,
	maxBytes int64,
	log *zap.Logger,
) *CaseFileService {
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &CaseFileService{
		caseRepo: caseRepo,
		fileRepo: fileRepo,
		store:    store,
		queue:    queue,
		embedder: embedder,
		maxBytes: maxBytes,
		log:      log,
	}
}

func (s *CaseFileService) MaxBytes() int64 { return s.maxBytes }

type UploadInput struct {
	CaseID   string
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

func (s *CaseFileService) ownedCase(actor Actor, caseID string) (*model.Case, error) {
	if !validID(caseID) {
		return nil, ErrCaseNotFound
	}
	c, err := s.caseRepo.GetByIDAndUserID(caseID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

// NormalizeMimeType strips parameters and falls back to the file extension
// when the client sent a generic type.
func NormalizeMimeType(fileName, declared string) string {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil || mt == "" || mt == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(fileName)) {
		case ".pdf":
			return "application/pdf"
		case ".txt":
			return "text/plain"
		case ".md", ".markdown":
			return "text/markdown"
		case ".docx":
			return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		}
		return mt
	}
	return mt
}

func safeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0 || r < 0x20:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." {
		return "file"
	}
	for len(base) > 200 {
		// drop leading runes so the extension survives
		_, size := utf8.DecodeRuneInString(base)
		base = base[size:]
	}
	return base
}

func (s *CaseFileService) Upload(ctx context.Context, actor Actor, input UploadInput) (*model.CaseFile, error) {
	if input.Body == nil || strings.TrimSpace(input.FileName) == "" {
		return nil, ErrInvalidInput
	}
	if input.Size > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	mimeType := NormalizeMimeType(input.FileName, input.MimeType)
	if _, ok := allowedFileTypes[mimeType]; !ok {
		return nil, ErrUnsupportedFileType
	}
	c, err := s.ownedCase(actor, input.CaseID)
	if err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	name := safeFileName(input.FileName)
	key := path.Join("cases", c.ID, fileID, name)

	counter := &countingReader{r: io.LimitReader(input.Body, s.maxBytes+1)}
	obj, err := s.store.Put(ctx, key, mimeType, counter)
	if err != nil {
		return nil, err
	}
	if counter.n > s.maxBytes {
		_ = s.store.Delete(ctx, obj)
		return nil, ErrFileTooLarge
	}

	file := &model.CaseFile{
		ID:           fileID,
		CaseID:       c.ID,
		UserID:       actor.UserID,
		FileName:     name,
		MimeType:     mimeType,
		SizeBytes:    counter.n,
		StorageKey:   obj.Key,
		URL:          obj.URL,
		VectorStatus: model.VectorStatusPending,
	}
	if err := s.fileRepo.Create(file); err != nil {
		_ = s.store.Delete(ctx, obj)
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.EnqueueVectorize(ctx, file.ID); err != nil {
			// the stale-file sweep picks it up later
			s.log.Warn("enqueue vectorize failed", zap.String("file_id", file.ID), zap.Error(err))
		}
	}
	return file, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (s *CaseFileService) List(actor Actor, caseID string) ([]model.CaseFile, error) {
	c, err := s.ownedCase(actor, caseID)
	if err != nil {
		return nil, err
	}
	return s.fileRepo.ListByCaseID(c.ID)
}

func (s *CaseFileService) Get(actor Actor, caseID, fileID string) (*model.CaseFile, error) {
	c, err := s.ownedCase(actor, caseID)
	if err != nil {
		return nil, err
	}
	if !validID(fileID) {
		return nil, ErrFileNotFound
	}
	f, err := s.fileRepo.GetByIDAndCaseID(fileID, c.ID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrFileNotFound
	}
	return f, nil
}

// Open returns the file row and a reader over its content.
func (s *CaseFileService) Open(ctx context.Context, actor Actor, caseID, fileID string) (*model.CaseFile, io.ReadCloser, error) {
	f, err := s.Get(actor, caseID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, storage.Object{Key: f.StorageKey, URL: f.URL})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}
	return f, rc, nil
}

func (s *CaseFileService) Delete(ctx context.Context, actor Actor, caseID, fileID string) error {
	f, err := s.Get(actor, caseID, fileID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.SoftDelete(f.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storage.Object{Key: f.StorageKey, URL: f.URL}); err != nil {
		s.log.Warn("delete case file blob failed", zap.String("file_id", f.ID), zap.Error(err))
	}
	return nil
}

type SearchHit struct {
	File    model.CaseFile `json:"file"`
	Score   float32        `json:"score"`
	Excerpt string         `json:"excerpt"`
}

// Search ranks the case's vectorized files by cosine similarity to query.
func (s *CaseFileService) Search(ctx context.Context, actor Actor, caseID, query string, topK int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	c, err := s.ownedCase(actor, caseID)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, c.ID, query, topK)
}

func (s *CaseFileService) search(ctx context.Context, caseID, query string, topK int) ([]SearchHit, error) {
	if topK <= 0 || topK > 20 {
		topK = 5
	}
	files, err := s.fileRepo.ListVectorizedByCaseID(caseID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrSearchUnavailable
	}
	if s.embedder == nil {
		return nil, ErrSearchUnavailable
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored := make([]vector.Scored[model.CaseFile], 0, len(files))
	for _, f := range files {
		vec := f.Vector()
		if len(vec) == 0 {
			continue
		}
		scored = append(scored, vector.Scored[model.CaseFile]{Item: f, Score: vector.CosineSimilarity(queryVec, vec)})
	}
	top := vector.TopK(scored, topK)

	hits := make([]SearchHit, len(top))
	for i, t := range top {
		hits[i] = SearchHit{File: t.Item, Score: t.Score, Excerpt: excerpt(t.Item.ExtractedText)}
	}
	return hits, nil
}

// CaseContext feeds the chat prompt. Missing vectors are not an error.
func (s *CaseFileService) CaseContext(ctx context.Context, caseID, query string, k int) ([]string, error) {
	hits, err := s.search(ctx, caseID, query, k)
	if errors.Is(err, ErrSearchUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Excerpt != "" {
			out = append(out, h.File.FileName+": "+h.Excerpt)
		}
	}
	return out, nil
}

func excerpt(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= excerptLength {
		return string(runes)
	}
	return string(runes[:excerptLength]) + "…"
}
