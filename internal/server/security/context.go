// Package security carries the session bound to a request. The binding lives
// in a slot installed into the request's context.Context, so it can never leak
// into another request.
package security

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophrelay/internal/server/models"
)

type slotKey struct{}

type slot struct {
	mu      sync.RWMutex
	session *models.Session
}

// NewContext returns a child of ctx with an empty slot. Middleware calls it
// once per request, before any Bind.
func NewContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, slotKey{}, &slot{})
}

func slotFrom(ctx context.Context) *slot {
	s, _ := ctx.Value(slotKey{}).(*slot)
	return s
}

// Bind attaches session to the slot in ctx. It reports false when ctx carries
// no slot.
func Bind(ctx context.Context, session *models.Session) bool {
	s := slotFrom(ctx)
	if s == nil {
		return false
	}
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
	return true
}

// Clear empties the slot. It is safe to call on a context without one.
func Clear(ctx context.Context) {
	if s := slotFrom(ctx); s != nil {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
	}
}

// Current returns the bound session, or nil.
func Current(ctx context.Context) *models.Session {
	s := slotFrom(ctx)
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// CurrentLogin returns the login of the bound user or an empty string.
func CurrentLogin(ctx context.Context) string {
	if sess := Current(ctx); sess != nil {
		return sess.User.Login
	}
	return ""
}
