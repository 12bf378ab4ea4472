package redis

import (
	"context"
	"sync"
	"time"

	"act-academy/internal/app"
	"act-academy/internal/logging"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions run in this process; Redis only carries a liveness marker per user and quiz
// so other tooling can see which attempts are open.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[app.DraftKey]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(key), "1", s.ttl).Err(); err != nil {
		logging.Store("mark session %s/%s live: %v", key.QuizID, key.UserID, err)
	}
	return session, true
}

func (s *SessionStore) Get(key app.DraftKey) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) DeleteIfFinished(key app.DraftKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		return
	}
	if session.State().Terminal() {
		delete(s.sessions, key)
		_ = s.client.Del(context.Background(), s.key(key)).Err()
	}
}

// Live reports whether any process marked the attempt as open.
func (s *SessionStore) Live(ctx context.Context, key app.DraftKey) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	return n > 0, err
}

func (s *SessionStore) key(key app.DraftKey) string {
	return "quiz:session:" + key.QuizID + ":" + key.UserID
}
