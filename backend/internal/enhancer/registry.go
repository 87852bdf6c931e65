package enhancer

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Registry holds the sessions of one process
type Registry struct {
	enhancer *Enhancer

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry whose sessions share e
func NewRegistry(e *Enhancer) *Registry {
	return &Registry{
		enhancer: e,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with a fresh id
func (r *Registry) Create() *Session {
	s := newSession(uuid.New().String(), r.enhancer)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.enhancer.logger.Debug("Session created", zap.String("session_id", s.ID))
	return s
}

// Get looks up a session by id
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ForKey returns the session bound to an external key such as a chat
// channel, creating it on first use.
func (r *Registry) ForKey(key string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s = newSession(key, r.enhancer)
	r.sessions[key] = s
	return s
}

// Len returns the number of sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
