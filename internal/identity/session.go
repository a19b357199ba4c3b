package identity

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session binds an issued session id to the Principal that logged in
// and when it was issued. Session lifetime enforcement is left to the
// adapter layer (spec §4.8: "session lifetime is opaque here").
type Session struct {
	SessionID string
	Principal Principal
	IssuedAt  time.Time
}

// SessionManager is the process-wide session table, grounded on
// internal/kvstore/registry.go's RWMutex-guarded map[string]*T shape.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: map[string]*Session{}}
}

// Issue mints a new session for principal.
func (sm *SessionManager) Issue(principal Principal) *Session {
	s := &Session{SessionID: uuid.NewString(), Principal: principal, IssuedAt: time.Now()}
	sm.mu.Lock()
	sm.sessions[s.SessionID] = s
	sm.mu.Unlock()
	return s
}

// Lookup returns the session for id, if still held.
func (sm *SessionManager) Lookup(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	return s, ok
}

// Revoke drops a session, e.g. on logout.
func (sm *SessionManager) Revoke(id string) {
	sm.mu.Lock()
	delete(sm.sessions, id)
	sm.mu.Unlock()
}
