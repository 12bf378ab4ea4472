package memory

import (
	"context"
	"sync"
	"time"

	"act-academy/internal/app"
)

// DraftStore keeps preserved answers in process memory until they expire.
type DraftStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.Mutex
	drafts map[app.DraftKey]draft
}

type draft struct {
	answers   map[string]int
	expiresAt time.Time
}

// NewDraftStore creates a store; a non-positive ttl keeps drafts until deleted.
func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{
		ttl:    ttl,
		clock:  time.Now,
		drafts: make(map[app.DraftKey]draft),
	}
}

func (s *DraftStore) SaveDraft(_ context.Context, key app.DraftKey, answers map[string]int) error {
	d := draft{answers: copyAnswers(answers)}
	if s.ttl > 0 {
		d.expiresAt = s.clock().Add(s.ttl)
	}
	s.mu.Lock()
	s.drafts[key] = d
	s.mu.Unlock()
	return nil
}

func (s *DraftStore) LoadDraft(_ context.Context, key app.DraftKey) (map[string]int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[key]
	if !ok {
		return nil, false, nil
	}
	if !d.expiresAt.IsZero() && !d.expiresAt.After(s.clock()) {
		delete(s.drafts, key)
		return nil, false, nil
	}
	return copyAnswers(d.answers), true, nil
}

func (s *DraftStore) DeleteDraft(_ context.Context, key app.DraftKey) error {
	s.mu.Lock()
	delete(s.drafts, key)
	s.mu.Unlock()
	return nil
}

func copyAnswers(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
