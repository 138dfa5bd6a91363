package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID    uuid.UUID `json:"id"`
	Login string    `json:"login"`
}

// Session is owned by the session authority; the gateway only reads it for the
// duration of a request.
type Session struct {
	ID          uuid.UUID `json:"id"`
	User        User      `json:"user"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (s *Session) IsPermitted(permission string) bool {
	return slices.Contains(s.Permissions, permission)
}

// Expired reports whether the session has passed its expiry. A zero expiry
// never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
