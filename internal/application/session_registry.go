package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SessionRegistry maps opaque tokens to authenticated principals. Sessions
// live for the process lifetime only; they carry no TTL and are never
// persisted.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Principal
	newToken func() string
}

// NewSessionRegistry returns an empty registry issuing UUID tokens.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]Principal),
		newToken: uuid.NewString,
	}
}

// Issue binds a fresh token to the principal and returns it.
func (r *SessionRegistry) Issue(principal Principal) string {
	token := r.newToken()
	r.mu.Lock()
	r.sessions[token] = principal
	r.mu.Unlock()
	return token
}

// Resolve returns the principal bound to the token.
func (r *SessionRegistry) Resolve(token string) (Principal, error) {
	r.mu.RLock()
	principal, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok {
		return Principal{}, ErrAuthenticationRequired
	}
	return principal, nil
}

// ValidateSession adapts Resolve to the transport middleware contract.
func (r *SessionRegistry) ValidateSession(ctx context.Context, token string) (Principal, error) {
	return r.Resolve(token)
}
