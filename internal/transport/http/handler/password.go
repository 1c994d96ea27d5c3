package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/transport/http/response"
)

type PasswordHandler struct {
	resetService *app.PasswordResetService
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,max=254"`
}

type VerifyTokenRequest struct {
	Email string `json:"email" binding:"required,max=254"`
	Token string `json:"token" binding:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,max=254"`
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,max=128"`
}

func NewPasswordHandler(resetService *app.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resetService: resetService}
}

func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		formError(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload", StatusInvalidData)
		return
	}

	if err := h.resetService.RequestReset(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			formError(c, http.StatusBadRequest, response.CodeBadRequest, err.Error(), StatusInvalidData)
		case errors.Is(err, app.ErrResetDelivery):
			formError(c, http.StatusServiceUnavailable, response.CodeUnavailable, app.ErrResetDelivery.Error(), StatusFailed)
		default:
			_ = c.Error(err)
			formError(c, http.StatusInternalServerError, response.CodeInternalServer, "password reset request failed", StatusFailed)
		}
		return
	}
	formOK(c)
}

func (h *PasswordHandler) Verify(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		formError(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload", StatusInvalidData)
		return
	}

	if err := h.resetService.VerifyToken(req.Email, req.Token); err != nil {
		resetError(c, err)
		return
	}
	formOK(c)
}

func (h *PasswordHandler) Reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		formError(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload", StatusInvalidData)
		return
	}

	if err := h.resetService.ResetPassword(req.Email, req.Token, req.NewPassword); err != nil {
		resetError(c, err)
		return
	}
	formOK(c)
}

func resetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		formError(c, http.StatusBadRequest, response.CodeBadRequest, err.Error(), StatusInvalidData)
	case errors.Is(err, app.ErrResetTokenInvalid):
		formError(c, http.StatusBadRequest, response.CodeResetTokenInvalid, err.Error(), StatusInvalidToken)
	case errors.Is(err, app.ErrResetTokenExpired):
		formError(c, http.StatusBadRequest, response.CodeResetTokenExpired, err.Error(), StatusExpiredToken)
	case errors.Is(err, app.ErrResetTooMany):
		formError(c, http.StatusTooManyRequests, response.CodeResetTooMany, err.Error(), StatusTooManyAttempts)
	default:
		_ = c.Error(err)
		formError(c, http.StatusInternalServerError, response.CodeInternalServer, "password reset failed", StatusFailed)
	}
}
