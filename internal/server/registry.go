package server

import (
	"log"
	"sync"

	apperrors "github.com/nowspinning/host/internal/errors"
)

// Registry tracks live sessions by identifier.
//
// It is constructed once at server startup and shared by every session
// lifecycle, so all access is guarded by a mutex. There are no ambient
// globals; the Server owns the registry and hands it to sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register adds a session under its identifier. Identifier collisions are
// rejected rather than silently overwriting a live session; with random
// 8-char identifiers the caller can simply regenerate and retry.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.id]; exists {
		return apperrors.DuplicateSession(s.id)
	}
	r.sessions[s.id] = s
	return nil
}

// Unregister removes a session by identifier. Removing an absent identifier
// is a no-op: both the read loop and shutdown may race to clean up the same
// session, and double removal must not fail hard.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every live session and clears the registry. Called exactly
// once, at process shutdown. Sessions that are already closed are tolerated:
// closeSend is idempotent and the write pump handles dead connections.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		log.Printf("Closing session %s", id)
		s.closeSend()
	}
	r.sessions = make(map[string]*Session)
}
