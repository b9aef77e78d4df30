package httpapi

import (
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/algohackers/saarthi-vault/internal/service"
)

// sessionRegistry maps bearer-token session IDs to their identity managers.
// One manager per session keeps key custody scoped to the caller; removal
// always logs the manager out so the KEK is zeroized.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

type session struct {
	manager   *service.IdentityManager
	expiresAt time.Time
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: map[uuid.UUID]*session{}}
}

func (r *sessionRegistry) put(id uuid.UUID, m *service.IdentityManager, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &session{manager: m, expiresAt: expiresAt}
	activeSessions.Set(float64(len(r.sessions)))
}

// get returns the live manager for a session, removing and logging out
// sessions that are past their token expiry.
func (r *sessionRegistry) get(id uuid.UUID) (*service.IdentityManager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(s.expiresAt) {
		delete(r.sessions, id)
		activeSessions.Set(float64(len(r.sessions)))
		s.manager.Logout()
		return nil, false
	}
	return s.manager, true
}

// sweepExpired drops every session past its token expiry and logs the
// managers out, so abandoned KEKs do not linger in memory until the next
// request happens to touch them. Returns the number of sessions reaped.
func (r *sessionRegistry) sweepExpired(now time.Time) int {
	r.mu.Lock()
	var reaped []*session
	for id, s := range r.sessions {
		if now.After(s.expiresAt) {
			delete(r.sessions, id)
			reaped = append(reaped, s)
		}
	}
	activeSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()

	// Logout takes the manager's own lock; keep it outside the registry lock.
	for _, s := range reaped {
		s.manager.Logout()
	}
	return len(reaped)
}

func (r *sessionRegistry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	activeSessions.Set(float64(len(r.sessions)))
	s.manager.Logout()
}
