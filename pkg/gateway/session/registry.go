package session

import (
	"context"
	"sync"
)

// Registry is the single-slot table naming the currently active session.
// A newly accepted connection silently replaces the previous occupant as
// the delivery target for asynchronously produced events.
type Registry struct {
	mu     sync.Mutex
	active *Session
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Activate makes s the active session, reporting whether another session
// was displaced.
func (r *Registry) Activate(s *Session) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced = r.active != nil && r.active != s
	r.active = s
	return replaced
}

// Clear removes s from the slot only if it is still the occupant, so a
// replaced session tearing down cannot evict its successor.
func (r *Registry) Clear(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == s {
		r.active = nil
	}
}

func (r *Registry) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// DeliverSpeech sends a recognized speech command to the active session,
// blocking until the write completes or ctx expires.
func (r *Registry) DeliverSpeech(ctx context.Context, text string) error {
	s := r.Active()
	if s == nil {
		return ErrNoActiveSession
	}
	return s.Send(ctx, map[string]any{
		"type":    "speech_command",
		"command": text,
	})
}
