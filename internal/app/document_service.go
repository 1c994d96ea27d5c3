package app

import (
	"errors"
	"strings"
	"time"

	"lexdesk/internal/model"
	"lexdesk/internal/repository"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentService struct {
	docRepo *repository.DocumentRepository
	now     Clock
}

func NewDocumentService(docRepo *repository.DocumentRepository) *DocumentService {
	return &DocumentService{docRepo: docRepo, now: systemClock}
}

type SaveDocumentInput struct {
	ID      string
	Title   string
	Content string
	Kind    model.DocumentKind
}

// owned loads every version and checks the actor owns the document.
func (s *DocumentService) owned(actor Actor, id string) ([]model.Document, error) {
	if !validID(id) {
		return nil, ErrInvalidInput
	}
	versions, err := s.docRepo.ListVersions(id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrDocumentNotFound
	}
	if versions[0].UserID != actor.UserID {
		return nil, ErrForbidden
	}
	return versions, nil
}

// SaveDocument stores a new version. The first save creates the document.
func (s *DocumentService) SaveDocument(actor Actor, input SaveDocumentInput) (*model.Document, error) {
	title := strings.TrimSpace(input.Title)
	if !validID(input.ID) || title == "" {
		return nil, ErrInvalidInput
	}
	if input.Kind == "" {
		input.Kind = model.DocumentKindText
	}
	if !input.Kind.Valid() {
		return nil, ErrInvalidInput
	}
	if _, err := s.owned(actor, input.ID); err != nil && !errors.Is(err, ErrDocumentNotFound) {
		return nil, err
	}

	doc := &model.Document{
		ID:        input.ID,
		CreatedAt: s.now(),
		Title:     title,
		Content:   input.Content,
		Kind:      input.Kind,
		UserID:    actor.UserID,
	}
	if err := s.docRepo.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) GetDocuments(actor Actor, id string) ([]model.Document, error) {
	return s.owned(actor, id)
}

// DeleteDocumentsAfter drops the versions saved after ts.
func (s *DocumentService) DeleteDocumentsAfter(actor Actor, id string, ts time.Time) ([]model.Document, error) {
	if ts.IsZero() {
		return nil, ErrInvalidInput
	}
	if _, err := s.owned(actor, id); err != nil {
		return nil, err
	}
	return s.docRepo.DeleteVersionsAfter(id, ts.UTC())
}

type SuggestionInput struct {
	OriginalText  string
	SuggestedText string
	Description   string
}

// AddSuggestions attaches edit suggestions to the latest version.
func (s *DocumentService) AddSuggestions(actor Actor, documentID string, inputs []SuggestionInput) ([]model.Suggestion, error) {
	if len(inputs) == 0 {
		return nil, ErrInvalidInput
	}
	versions, err := s.owned(actor, documentID)
	if err != nil {
		return nil, err
	}
	latest := versions[len(versions)-1]

	list := make([]model.Suggestion, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in.OriginalText) == "" || strings.TrimSpace(in.SuggestedText) == "" {
			return nil, ErrInvalidInput
		}
		list = append(list, model.Suggestion{
			DocumentID:        documentID,
			DocumentCreatedAt: latest.CreatedAt,
			OriginalText:      in.OriginalText,
			SuggestedText:     in.SuggestedText,
			Description:       strings.TrimSpace(in.Description),
			UserID:            actor.UserID,
			CreatedAt:         s.now(),
		})
	}
	if err := s.docRepo.CreateSuggestions(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *DocumentService) GetSuggestions(actor Actor, documentID string) ([]model.Suggestion, error) {
	if _, err := s.owned(actor, documentID); err != nil {
		return nil, err
	}
	return s.docRepo.ListSuggestions(documentID)
}

func (s *DocumentService) ResolveSuggestion(actor Actor, suggestionID string) error {
	if !validID(suggestionID) {
		return ErrInvalidInput
	}
	ok, err := s.docRepo.ResolveSuggestion(suggestionID, actor.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDocumentNotFound
	}
	return nil
}
