package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"act-academy/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// maxListedAttempts bounds a history listing that asked for no limit.
const maxListedAttempts = 1000

func listLimit(limit int) int {
	if limit <= 0 || limit > maxListedAttempts {
		return maxListedAttempts
	}
	return limit
}

// AttemptStore keeps attempt history in Postgres; answers are stored as JSONB.
type AttemptStore struct {
	pool *pgxpool.Pool
}

func NewAttemptStore(pool *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{pool: pool}
}

func (s *AttemptStore) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (id, quiz_id, user_id, user_name, answers, correct_count, total, percent, passed, submitted_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			answers = EXCLUDED.answers,
			correct_count = EXCLUDED.correct_count,
			total = EXCLUDED.total,
			percent = EXCLUDED.percent,
			passed = EXCLUDED.passed,
			submitted_at = EXCLUDED.submitted_at`,
		attempt.ID, attempt.QuizID, attempt.UserID, attempt.UserName, string(answers),
		attempt.CorrectCount, attempt.Total, attempt.Percent, attempt.Passed, attempt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns attempts of userID, newest first. Empty quizID matches every quiz.
func (s *AttemptStore) ListAttempts(ctx context.Context, userID, quizID string, limit int) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quiz_id, user_id, user_name, answers, correct_count, total, percent, passed, submitted_at
		FROM attempts
		WHERE user_id = $1 AND ($2::text = '' OR quiz_id = $2)
		ORDER BY submitted_at DESC
		LIMIT $3`, userID, quizID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		var (
			attempt domain.Attempt
			raw     []byte
		)
		if err := rows.Scan(
			&attempt.ID, &attempt.QuizID, &attempt.UserID, &attempt.UserName, &raw,
			&attempt.CorrectCount, &attempt.Total, &attempt.Percent, &attempt.Passed, &attempt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(raw, &attempt.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}
