/*
Package chat contains the real-time session layer: the connection registry, the
per-connection protocol dispatcher, and the wire frame definitions.

This file defines the Registry, which maps each registered username to at most
one live session and fans events out to them.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"messenger/internal/app/user"
	"messenger/internal/pkg/logx"
)

// Registry maps logical user identity to the single live session owning it.
// The reserved assistant identity never occupies an entry.
type Registry struct {
	// mu protects concurrent access to the sessions map.
	mu sync.RWMutex

	// sessions stores the live session per username.
	sessions map[string]*Session

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logx.Logger().With().Str("component", "registry").Logger(),
	}
}

// Register binds username to session, silently replacing any existing session
// for that username. The evicted session is not notified; its unicasts simply
// stop resolving.
func (r *Registry) Register(username string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[username]; ok {
		r.logger.Warn().Str("username", username).Msg("Session replaced by new connection.")
	}
	r.sessions[username] = s
}

// Lookup returns the live session for username, if any.
func (r *Registry) Lookup(username string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[username]
	return s, ok
}

// Remove deletes the mapping for username, but only while s still owns it. A
// stale connection that was replaced must not evict its successor.
func (r *Registry) Remove(username string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[username]; ok && current == s {
		delete(r.sessions, username)
	}
}

// Unicast delivers event to the session registered for username, reporting
// whether delivery was attempted successfully. Sends are non-blocking; a full
// queue or missing session is logged and reported as not delivered, never
// retried. Unicast to the reserved assistant identity is a guaranteed no-op.
func (r *Registry) Unicast(username string, event any) bool {
	if user.IsAssistant(username) {
		return false
	}

	s, ok := r.Lookup(username)
	if !ok {
		r.logger.Debug().Str("username", username).Msg("Unicast target has no live session")
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("Error marshaling event for unicast")
		return false
	}

	if err := s.enqueue(payload); err != nil {
		r.logger.Warn().Err(err).Str("username", username).Msg("Failed to queue unicast event")
		return false
	}

	return true
}
