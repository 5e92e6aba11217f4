// Package registry holds the pending challenge sessions, at most one per
// (group, user). Every operation is atomic with respect to the others; the
// lock is never held while calling out of the package.
package registry

import (
	"sort"
	"sync"

	"github.com/me/joinguard/pkg/model"
)

// Registry is a concurrency-safe map of pending sessions keyed by SessionKey.
type Registry struct {
	mu       sync.Mutex
	sessions map[model.SessionKey]*model.Session
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{sessions: make(map[model.SessionKey]*model.Session)}
}

// TryCreate inserts s iff no session exists for its key and reports whether
// the insert happened.
func (r *Registry) TryCreate(s *model.Session) bool {
	key := s.Key()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[key]; exists {
		return false
	}
	r.sessions[key] = s
	return true
}

// TakeIfPending removes and returns the session for key iff it is still
// pending and was issued with challengeID. Of any number of concurrent
// callers for the same session, exactly one gets ok == true.
func (r *Registry) TakeIfPending(key model.SessionKey, challengeID string) (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok || !s.IsPending() || s.ChallengeID != challengeID {
		return nil, false
	}
	delete(r.sessions, key)
	return s, true
}

// ForceTake removes and returns the session for key whatever its state.
func (r *Registry) ForceTake(key model.SessionKey) (*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	return s, ok
}

// Attach runs fn on the live session for key while holding the registry lock,
// iff the session is still pending with challengeID. fn must not block.
// It reports whether fn ran.
func (r *Registry) Attach(key model.SessionKey, challengeID string, fn func(*model.Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok || !s.IsPending() || s.ChallengeID != challengeID {
		return false
	}
	fn(s)
	return true
}

// Len returns the number of pending sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot returns copies of all pending sessions, oldest first. The copies
// carry no timer so callers cannot cancel anything through them.
func (r *Registry) Snapshot() []model.Session {
	r.mu.Lock()
	out := make([]model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		c := *s
		c.Timer = nil
		out = append(out, c)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
