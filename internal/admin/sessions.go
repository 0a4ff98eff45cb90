package admin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sessions holds active admin session tokens. Sessions live only in memory;
// a restart logs every admin out, which is acceptable for a convenience
// gate.
type Sessions struct {
	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewSessions returns an empty session set.
func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]time.Time)}
}

// Create mints a new session token.
func (s *Sessions) Create() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = time.Now()
	s.mu.Unlock()
	return token
}

// Valid reports whether the token belongs to an active session.
func (s *Sessions) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

// Delete ends the session. Deleting an unknown token is a no-op.
func (s *Sessions) Delete(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}
