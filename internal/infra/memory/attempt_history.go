package memory

import (
	"context"
	"sort"
	"sync"

	"act-academy/internal/domain"
)

// AttemptHistory records attempts for the lifetime of the process.
type AttemptHistory struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
}

func NewAttemptHistory() *AttemptHistory {
	return &AttemptHistory{}
}

func (h *AttemptHistory) RecordAttempt(_ context.Context, attempt domain.Attempt) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.attempts {
		if existing.ID == attempt.ID {
			h.attempts[i] = attempt
			return nil
		}
	}
	h.attempts = append(h.attempts, attempt)
	return nil
}

// ListAttempts returns attempts of userID, newest first. Empty quizID matches every quiz;
// a non-positive limit returns everything.
func (h *AttemptHistory) ListAttempts(_ context.Context, userID, quizID string, limit int) ([]domain.Attempt, error) {
	h.mu.RLock()
	out := make([]domain.Attempt, 0, len(h.attempts))
	for _, attempt := range h.attempts {
		if attempt.UserID != userID || (quizID != "" && attempt.QuizID != quizID) {
			continue
		}
		out = append(out, attempt)
	}
	h.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
