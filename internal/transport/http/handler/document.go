package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/model"
	"lexdesk/internal/transport/http/response"
)

type DocumentHandler struct {
	docService *app.DocumentService
}

type SaveDocumentRequest struct {
	Title   string             `json:"title" binding:"required,max=256"`
	Content string             `json:"content"`
	Kind    model.DocumentKind `json:"kind"`
}

type SuggestionRequest struct {
	OriginalText  string `json:"original_text" binding:"required"`
	SuggestedText string `json:"suggested_text" binding:"required"`
	Description   string `json:"description"`
}

type AddSuggestionsRequest struct {
	DocumentID  string              `json:"document_id" binding:"required"`
	Suggestions []SuggestionRequest `json:"suggestions" binding:"required,min=1,dive"`
}

func NewDocumentHandler(docService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

func documentError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	versions, err := h.docService.GetDocuments(actor, c.Query("id"))
	if err != nil {
		documentError(c, err, "get document failed")
		return
	}
	response.OK(c, versions)
}

func (h *DocumentHandler) Save(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SaveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	doc, err := h.docService.SaveDocument(actor, app.SaveDocumentInput{
		ID:      c.Query("id"),
		Title:   req.Title,
		Content: req.Content,
		Kind:    req.Kind,
	})
	if err != nil {
		documentError(c, err, "save document failed")
		return
	}
	response.OK(c, doc)
}

// DeleteAfter takes an RFC 3339 timestamp.
func (h *DocumentHandler) DeleteAfter(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ts, err := time.Parse(time.RFC3339Nano, c.Query("timestamp"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid timestamp")
		return
	}
	deleted, err := h.docService.DeleteDocumentsAfter(actor, c.Query("id"), ts)
	if err != nil {
		documentError(c, err, "delete document versions failed")
		return
	}
	response.OK(c, deleted)
}

func (h *DocumentHandler) GetSuggestions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	suggestions, err := h.docService.GetSuggestions(actor, c.Query("documentId"))
	if err != nil {
		documentError(c, err, "get suggestions failed")
		return
	}
	response.OK(c, suggestions)
}

func (h *DocumentHandler) AddSuggestions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req AddSuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	inputs := make([]app.SuggestionInput, len(req.Suggestions))
	for i, s := range req.Suggestions {
		inputs[i] = app.SuggestionInput{
			OriginalText:  s.OriginalText,
			SuggestedText: s.SuggestedText,
			Description:   s.Description,
		}
	}
	created, err := h.docService.AddSuggestions(actor, req.DocumentID, inputs)
	if err != nil {
		documentError(c, err, "add suggestions failed")
		return
	}
	response.Created(c, created)
}

func (h *DocumentHandler) ResolveSuggestion(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if err := h.docService.ResolveSuggestion(actor, id); err != nil {
		documentError(c, err, "resolve suggestion failed")
		return
	}
	response.OK(c, gin.H{"resolved_suggestion_id": id})
}
