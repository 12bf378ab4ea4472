package redis

import (
	"context"
	"strconv"
	"time"

	"act-academy/internal/app"
	"github.com/redis/go-redis/v9"
)

// DraftStore keeps preserved answers in a hash per user and quiz:
// HSET quiz:draft:{quizID}:{userID} {questionID} {optionIndex}
type DraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDraftStore(client *redis.Client, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

// SaveDraft replaces any earlier draft for key.
func (s *DraftStore) SaveDraft(ctx context.Context, key app.DraftKey, answers map[string]int) error {
	k := s.key(key)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, k)
	if len(answers) > 0 {
		values := make(map[string]interface{}, len(answers))
		for questionID, index := range answers {
			values[questionID] = index
		}
		pipe.HSet(ctx, k, values)
		if s.ttl > 0 {
			pipe.Expire(ctx, k, s.ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *DraftStore) LoadDraft(ctx context.Context, key app.DraftKey) (map[string]int, bool, error) {
	raw, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	answers := make(map[string]int, len(raw))
	for questionID, value := range raw {
		index, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		answers[questionID] = index
	}
	return answers, true, nil
}

func (s *DraftStore) DeleteDraft(ctx context.Context, key app.DraftKey) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *DraftStore) key(key app.DraftKey) string {
	return "quiz:draft:" + key.QuizID + ":" + key.UserID
}
