package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"lexdesk/internal/model"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
)

// Actor is the authenticated caller as carried by the session token.
type Actor struct {
	UserID string
	Email  string
	Role   model.Role
	Plan   model.PlanType
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Mailer sends the transactional emails the services trigger.
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string, lawyer bool) error
	SendPasswordReset(ctx context.Context, to, code string, validMinutes int) error
}

// Clock is swapped in tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func orClock(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

// validID reports whether id can be stored in a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
