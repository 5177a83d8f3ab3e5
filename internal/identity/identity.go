// Package identity answers "who is the current owner" for the domain store.
// It does not implement sign-up or credential checks.
package identity

import (
	"context"
	"strings"
	"sync"

	"smartspend/internal/core"
)

// Provider supplies the owner that persistence calls are scoped to.
type Provider interface {
	// Current returns the signed-in owner or core.ErrAuthRequired.
	Current(ctx context.Context) (string, error)
}

// Session is a single signed-in identity that can sign in and out.
type Session struct {
	mu    sync.RWMutex
	owner string
}

var _ Provider = (*Session)(nil)

// NewSession starts a session, already signed in when owner is non-empty.
func NewSession(owner string) *Session {
	return &Session{owner: strings.TrimSpace(owner)}
}

func (s *Session) Current(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.owner == "" {
		return "", core.ErrAuthRequired
	}
	return s.owner, nil
}

// SignIn replaces the current owner.
func (s *Session) SignIn(owner string) error {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return &core.ValidationError{Field: "owner", Message: "is required"}
	}
	s.mu.Lock()
	s.owner = owner
	s.mu.Unlock()
	return nil
}

// SignOut clears the owner; later calls to Current fail with core.ErrAuthRequired.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.owner = ""
	s.mu.Unlock()
}

type ownerKey struct{}

// WithOwner returns a context carrying owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext returns the owner stored by WithOwner.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerKey{}).(string)
	return owner, ok && owner != ""
}

// ContextProvider reads the owner placed in the request context by the auth middleware.
type ContextProvider struct{}

func (ContextProvider) Current(ctx context.Context) (string, error) {
	if owner, ok := OwnerFromContext(ctx); ok {
		return owner, nil
	}
	return "", core.ErrAuthRequired
}

// Fixed always reports the same owner. Used for per-owner stores built by a registry.
type Fixed string

func (f Fixed) Current(context.Context) (string, error) {
	if f == "" {
		return "", core.ErrAuthRequired
	}
	return string(f), nil
}
