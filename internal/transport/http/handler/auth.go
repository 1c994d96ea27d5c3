package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/transport/http/response"
)

type AuthHandler struct {
	authService  *app.AuthService
	cookieName   string
	cookieSecure bool
}

type RegisterRequest struct {
	Name      string `json:"name" binding:"required,max=128"`
	LastName  string `json:"last_name" binding:"required,max=128"`
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	Phone     string `json:"phone" binding:"max=32"`
	CountryID *uint  `json:"country_id"`
	StateID   *uint  `json:"state_id"`
	CityID    *uint  `json:"city_id"`
}

type RegisterLawyerRequest struct {
	RegisterRequest
	ProfessionalCardNumber string `json:"professional_card_number" binding:"required,max=64"`
	BarAssociation         string `json:"bar_association" binding:"max=128"`
	Specialty              string `json:"specialty" binding:"required,max=128"`
	YearsExperience        int    `json:"years_experience" binding:"min=0,max=80"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

func NewAuthHandler(authService *app.AuthService, cookieName string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieName: cookieName, cookieSecure: cookieSecure}
}

func (r RegisterRequest) input() app.RegisterInput {
	return app.RegisterInput{
		Name:      r.Name,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
		Phone:     r.Phone,
		CountryID: r.CountryID,
		StateID:   r.StateID,
		CityID:    r.CityID,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		formError(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload", StatusInvalidData)
		return
	}

	result, err := h.authService.RegisterUser(c.Request.Context(), req.input())
	if err != nil {
		h.registerError(c, err)
		return
	}
	h.setSession(c, result)
	response.Created(c, authPayload{Status: StatusSuccess, AuthResult: result})
}

func (h *AuthHandler) RegisterLawyer(c *gin.Context) {
	var req RegisterLawyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		formError(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload", StatusInvalidData)
		return
	}

	result, err := h.authService.RegisterLawyer(c.Request.Context(), app.RegisterLawyerInput{
		RegisterInput:          req.RegisterRequest.input(),
		ProfessionalCardNumber: req.ProfessionalCardNumber,
		BarAssociation:         req.BarAssociation,
		Specialty:              req.Specialty,
		YearsExperience:        req.YearsExperience,
	})
	if err != nil {
		h.registerError(c, err)
		return
	}
	h.setSession(c, result)
	response.Created(c, authPayload{Status: StatusSuccess, AuthResult: result})
}

func (h *AuthHandler) registerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		formError(c, http.StatusBadRequest, response.CodeBadRequest, err.Error(), StatusInvalidData)
	case errors.Is(err, app.ErrEmailExists):
		formError(c, http.StatusConflict, response.CodeEmailExists, err.Error(), StatusUserExists)
	case errors.Is(err, app.ErrCardExists):
		formError(c, http.StatusConflict, response.CodeCardExists, err.Error(), StatusCardExists)
	default:
		_ = c.Error(err)
		formError(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed", StatusFailed)
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		formError(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload", StatusInvalidData)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			formError(c, http.StatusBadRequest, response.CodeBadRequest, err.Error(), StatusInvalidData)
		case errors.Is(err, app.ErrInvalidCredential):
			formError(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error(), StatusFailed)
		default:
			_ = c.Error(err)
			formError(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed", StatusFailed)
		}
		return
	}
	h.setSession(c, result)
	response.OK(c, authPayload{Status: StatusSuccess, AuthResult: result})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
	response.OK(c, nil)
}

func (h *AuthHandler) setSession(c *gin.Context, result *app.AuthResult) {
	if h.cookieName == "" {
		return
	}
	maxAge := int(time.Until(result.ExpiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookieName, result.Token, maxAge, "/", "", h.cookieSecure, true)
}

func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profile, err := h.authService.Me(actor.UserID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch current user failed")
		}
		return
	}
	response.OK(c, profile)
}

func (h *AuthHandler) VerifyLawyer(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	lawyerID := c.Param("id")
	if err := h.authService.VerifyLawyer(actor, lawyerID); err != nil {
		switch {
		case errors.Is(err, app.ErrForbidden):
			response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "verify lawyer failed")
		}
		return
	}
	response.OK(c, gin.H{"lawyer_id": lawyerID, "verified": true})
}
