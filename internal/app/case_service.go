package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"lexdesk/internal/model"
	"lexdesk/internal/repository"
	"lexdesk/internal/storage"
)

var ErrCaseNotFound = errors.New("case not found")

type CaseService struct {
	caseRepo *repository.CaseRepository
	fileRepo *repository.CaseFileRepository
	chatRepo *repository.ChatRepository
	store    storage.Store
	log      *zap.Logger
}

func NewCaseService(
	caseRepo *repository.CaseRepository,
	fileRepo *repository.CaseFileRepository,
	chatRepo *repository.ChatRepository,
	store storage.Store,
	log *zap.Logger,
) *CaseService {
	return &CaseService{
		caseRepo: caseRepo,
		fileRepo: fileRepo,
		chatRepo: chatRepo,
		store:    store,
		log:      log,
	}
}

type CreateCaseInput struct {
	Title       string
	Description string
}

type UpdateCaseInput struct {
	Title       *string
	Description *string
	Status      *model.CaseStatus
}

type CaseSummary struct {
	model.Case
	ChatCount int64 `json:"chat_count"`
}

func (s *CaseService) get(actor Actor, id string) (*model.Case, error) {
	if !validID(id) {
		return nil, ErrCaseNotFound
	}
	c, err := s.caseRepo.GetByIDAndUserID(id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

func (s *CaseService) Create(actor Actor, input CreateCaseInput) (*model.Case, error) {
	title := strings.TrimSpace(input.Title)
	if actor.UserID == "" || title == "" || len(title) > 256 {
		return nil, ErrInvalidInput
	}
	c := &model.Case{
		UserID:      actor.UserID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      model.CaseStatusOpen,
	}
	if err := s.caseRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CaseService) List(actor Actor) ([]CaseSummary, error) {
	cases, err := s.caseRepo.ListByUserID(actor.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(cases))
	for i := range cases {
		ids[i] = cases[i].ID
	}
	counts, err := s.chatRepo.CountByCaseIDs(ids)
	if err != nil {
		return nil, err
	}
	out := make([]CaseSummary, len(cases))
	for i := range cases {
		out[i] = CaseSummary{Case: cases[i], ChatCount: counts[cases[i].ID]}
	}
	return out, nil
}

func (s *CaseService) Get(actor Actor, id string) (*model.Case, error) {
	return s.get(actor, id)
}

func (s *CaseService) Update(actor Actor, id string, input UpdateCaseInput) (*model.Case, error) {
	c, err := s.get(actor, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > 256 {
			return nil, ErrInvalidInput
		}
		fields["title"] = title
		c.Title = title
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
		c.Description = fields["description"].(string)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidInput
		}
		fields["status"] = *input.Status
		c.Status = *input.Status
	}
	if err := s.caseRepo.Update(c, fields); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete soft-deletes the case and its files, detaches its chats and removes
// the stored blobs. Blob removal is best effort.
func (s *CaseService) Delete(ctx context.Context, actor Actor, id string) error {
	c, err := s.get(actor, id)
	if err != nil {
		return err
	}
	files, err := s.fileRepo.SoftDeleteByCaseID(c.ID)
	if err != nil {
		return err
	}
	if err := s.chatRepo.DetachCase(c.ID); err != nil {
		return err
	}
	if err := s.caseRepo.SoftDelete(c.ID, actor.UserID); err != nil {
		return err
	}
	for _, f := range files {
		if err := s.store.Delete(ctx, storage.Object{Key: f.StorageKey, URL: f.URL}); err != nil {
			s.log.Warn("delete case file blob failed", zap.String("file_id", f.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *CaseService) ListChats(actor Actor, id string) ([]model.Chat, error) {
	c, err := s.get(actor, id)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.ListByCaseID(c.ID)
}
