package handler

import (
	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/transport/http/response"
)

// FormStatus is the outcome of a form action, returned in data.status so
// clients can pick a message without parsing numeric codes.
type FormStatus string

const (
	StatusSuccess         FormStatus = "success"
	StatusFailed          FormStatus = "failed"
	StatusInvalidData     FormStatus = "invalid_data"
	StatusUserExists      FormStatus = "user_exists"
	StatusCardExists      FormStatus = "card_exists"
	StatusInvalidToken    FormStatus = "invalid_token"
	StatusExpiredToken    FormStatus = "expired_token"
	StatusTooManyAttempts FormStatus = "too_many_attempts"
)

type statusData struct {
	Status FormStatus `json:"status"`
}

// authPayload flattens the session fields next to the status.
type authPayload struct {
	Status FormStatus `json:"status"`
	*app.AuthResult
}

func formOK(c *gin.Context) {
	response.OK(c, statusData{Status: StatusSuccess})
}

func formError(c *gin.Context, httpStatus, code int, message string, status FormStatus) {
	response.ErrorWithData(c, httpStatus, code, message, statusData{Status: status})
}
