package memory

import (
	"sync"

	"act-academy/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[app.DraftKey]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[app.DraftKey]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(key app.DraftKey, create func() *app.Session) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session, false
	}
	session := create()
	s.sessions[key] = session
	return session, true
}

func (s *SessionStore) Get(key app.DraftKey) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

// DeleteIfFinished forgets the session once it reached a terminal state.
func (s *SessionStore) DeleteIfFinished(key app.DraftKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return
	}
	if session.State().Terminal() {
		delete(s.sessions, key)
	}
}
