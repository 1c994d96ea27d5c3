package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/model"
	"lexdesk/internal/transport/http/response"
)

type CaseHandler struct {
	caseService *app.CaseService
	fileService *app.CaseFileService
}

type CreateCaseRequest struct {
	Title       string `json:"title" binding:"required,max=256"`
	Description string `json:"description"`
}

type UpdateCaseRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Status      *model.CaseStatus `json:"status"`
}

func NewCaseHandler(caseService *app.CaseService, fileService *app.CaseFileService) *CaseHandler {
	return &CaseHandler{caseService: caseService, fileService: fileService}
}

func caseError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrForbidden):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrCaseNotFound):
		response.Error(c, http.StatusNotFound, response.CodeCaseNotFound, err.Error())
	case errors.Is(err, app.ErrFileNotFound):
		response.Error(c, http.StatusNotFound, response.CodeFileNotFound, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeTooLarge, err.Error())
	case errors.Is(err, app.ErrUnsupportedFileType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupported, err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func (h *CaseHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	created, err := h.caseService.Create(actor, app.CreateCaseInput{Title: req.Title, Description: req.Description})
	if err != nil {
		caseError(c, err, "create case failed")
		return
	}
	response.Created(c, created)
}

func (h *CaseHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	cases, err := h.caseService.List(actor)
	if err != nil {
		caseError(c, err, "list cases failed")
		return
	}
	response.OK(c, cases)
}

func (h *CaseHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	found, err := h.caseService.Get(actor, c.Param("id"))
	if err != nil {
		caseError(c, err, "get case failed")
		return
	}
	response.OK(c, found)
}

func (h *CaseHandler) Update(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	updated, err := h.caseService.Update(actor, c.Param("id"), app.UpdateCaseInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		caseError(c, err, "update case failed")
		return
	}
	response.OK(c, updated)
}

func (h *CaseHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	caseID := c.Param("id")
	if err := h.caseService.Delete(c.Request.Context(), actor, caseID); err != nil {
		caseError(c, err, "delete case failed")
		return
	}
	response.OK(c, gin.H{"deleted_case_id": caseID})
}

func (h *CaseHandler) ListChats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	chats, err := h.caseService.ListChats(actor, c.Param("id"))
	if err != nil {
		caseError(c, err, "list case chats failed")
		return
	}
	response.OK(c, chats)
}

// UploadFile expects a multipart form with the content in field "file".
func (h *CaseHandler) UploadFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	// leave room for the multipart envelope
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.fileService.MaxBytes()+1<<20)
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			caseError(c, app.ErrFileTooLarge, "")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	body, err := header.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
		return
	}
	defer body.Close()

	file, err := h.fileService.Upload(c.Request.Context(), actor, app.UploadInput{
		CaseID:   c.Param("id"),
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     body,
	})
	if err != nil {
		caseError(c, err, "upload file failed")
		return
	}
	response.Created(c, file)
}

func (h *CaseHandler) ListFiles(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	files, err := h.fileService.List(actor, c.Param("id"))
	if err != nil {
		caseError(c, err, "list files failed")
		return
	}
	response.OK(c, files)
}

// GetFile returns the file row, or the content itself with ?download=1.
func (h *CaseHandler) GetFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if c.Query("download") == "" {
		file, err := h.fileService.Get(actor, c.Param("id"), c.Param("fileId"))
		if err != nil {
			caseError(c, err, "get file failed")
			return
		}
		response.OK(c, file)
		return
	}

	file, rc, err := h.fileService.Open(c.Request.Context(), actor, c.Param("id"), c.Param("fileId"))
	if err != nil {
		caseError(c, err, "download file failed")
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, file.SizeBytes, file.MimeType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.FileName),
	})
}

func (h *CaseHandler) DeleteFile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	fileID := c.Param("fileId")
	if err := h.fileService.Delete(c.Request.Context(), actor, c.Param("id"), fileID); err != nil {
		caseError(c, err, "delete file failed")
		return
	}
	response.OK(c, gin.H{"deleted_file_id": fileID})
}

func (h *CaseHandler) Search(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	hits, err := h.fileService.Search(c.Request.Context(), actor, c.Param("id"), c.Query("q"), queryInt(c, "k", 5))
	if err != nil {
		if errors.Is(err, app.ErrSearchUnavailable) {
			response.OK(c, []app.SearchHit{})
			return
		}
		caseError(c, err, "search case files failed")
		return
	}
	response.OK(c, hits)
}
