package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"act-academy/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// AttemptStore keeps the local attempt history in a SQLite file.
type AttemptStore struct {
	db *sql.DB
}

func NewAttemptStore(path string) (*AttemptStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "academy.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// a single writer avoids SQLITE_BUSY between the session hooks and the CLI
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &AttemptStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *AttemptStore) Close() error {
	return s.db.Close()
}

func (s *AttemptStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			attempt_id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			answers_json TEXT NOT NULL,
			correct_count INTEGER NOT NULL,
			total INTEGER NOT NULL,
			percent INTEGER NOT NULL,
			passed INTEGER NOT NULL,
			submitted_at_unix_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_submitted_at ON attempts(user_id, submitted_at_unix_ms DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user_quiz ON attempts(user_id, quiz_id);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordAttempt stores attempt; recording the same id twice keeps the latest copy.
func (s *AttemptStore) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO attempts (
			attempt_id, quiz_id, user_id, user_name, answers_json,
			correct_count, total, percent, passed, submitted_at_unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.QuizID,
		attempt.UserID,
		attempt.UserName,
		string(answers),
		attempt.CorrectCount,
		attempt.Total,
		attempt.Percent,
		boolToInt(attempt.Passed),
		attempt.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record attempt %s: %w", attempt.ID, err)
	}
	return nil
}

// ListAttempts returns attempts of userID newest first; empty quizID lists every quiz.
func (s *AttemptStore) ListAttempts(ctx context.Context, userID, quizID string, limit int) ([]domain.Attempt, error) {
	query := `SELECT attempt_id, quiz_id, user_id, user_name, answers_json,
			correct_count, total, percent, passed, submitted_at_unix_ms
		FROM attempts WHERE user_id = ?`
	args := []interface{}{userID}
	if quizID != "" {
		query += ` AND quiz_id = ?`
		args = append(args, quizID)
	}
	query += ` ORDER BY submitted_at_unix_ms DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0)
	for rows.Next() {
		var (
			attempt     domain.Attempt
			answersJSON string
			passed      int
			submittedMs int64
		)
		if err := rows.Scan(
			&attempt.ID,
			&attempt.QuizID,
			&attempt.UserID,
			&attempt.UserName,
			&answersJSON,
			&attempt.CorrectCount,
			&attempt.Total,
			&attempt.Percent,
			&passed,
			&submittedMs,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answersJSON), &attempt.Answers); err != nil {
			return nil, fmt.Errorf("decode answers for attempt %s: %w", attempt.ID, err)
		}
		attempt.Passed = passed != 0
		attempt.Timestamp = time.UnixMilli(submittedMs).UTC()
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
