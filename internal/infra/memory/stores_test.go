package memory

import (
	"context"
	"testing"
	"time"

	"act-academy/internal/app"
	"act-academy/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	key := app.DraftKey{QuizID: "quiz-1", UserID: "u1"}
	create := func() *app.Session { return app.NewSession(app.SessionConfig{QuizID: "quiz-1"}) }

	session, created := store.GetOrCreate(key, create)
	if session == nil || !created {
		t.Fatalf("expected new session")
	}
	if again, created := store.GetOrCreate(key, create); again != session || created {
		t.Fatalf("expected the live session to be reused")
	}

	store.DeleteIfFinished(key)
	if _, ok := store.Get(key); !ok {
		t.Fatalf("a running session must not be removed")
	}
}

func TestSessionStoreDropsFinishedSession(t *testing.T) {
	store := NewSessionStore()
	key := app.DraftKey{QuizID: "quiz-1", UserID: "u1"}
	quizzes := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	session, _ := store.GetOrCreate(key, func() *app.Session {
		return app.NewSession(app.SessionConfig{QuizID: "quiz-1", Quizzes: quizzes})
	})
	_ = session.Load(context.Background())

	store.DeleteIfFinished(key)
	if _, ok := store.Get(key); ok {
		t.Fatalf("expected session removed once not found")
	}
}

func TestDraftStoreExpires(t *testing.T) {
	store := NewDraftStore(time.Hour)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	ctx := context.Background()
	key := app.DraftKey{QuizID: "quiz-1", UserID: "u1"}

	answers := map[string]int{"q1": 2}
	if err := store.SaveDraft(ctx, key, answers); err != nil {
		t.Fatalf("save: %v", err)
	}
	answers["q1"] = 0

	got, ok, _ := store.LoadDraft(ctx, key)
	if !ok || got["q1"] != 2 {
		t.Fatalf("expected stored copy, got %+v ok=%v", got, ok)
	}
	if _, ok, _ := store.LoadDraft(ctx, app.DraftKey{QuizID: "quiz-1", UserID: "u2"}); ok {
		t.Fatalf("drafts must be scoped per user")
	}

	now = now.Add(2 * time.Hour)
	if _, ok, _ := store.LoadDraft(ctx, key); ok {
		t.Fatalf("expected draft to expire")
	}
}

func TestAttemptHistoryNewestFirst(t *testing.T) {
	history := NewAttemptHistory()
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i, quizID := range []string{"quiz-1", "quiz-2", "quiz-1"} {
		_ = history.RecordAttempt(ctx, domain.Attempt{ID: string(rune('a' + i)), QuizID: quizID, UserID: "u1", Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}
	_ = history.RecordAttempt(ctx, domain.Attempt{ID: "other", QuizID: "quiz-1", UserID: "u2", Timestamp: base})

	all, _ := history.ListAttempts(ctx, "u1", "", 0)
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order %+v", all)
	}
	quiz1, _ := history.ListAttempts(ctx, "u1", "quiz-1", 1)
	if len(quiz1) != 1 || quiz1[0].ID != "c" {
		t.Fatalf("unexpected filtered list %+v", quiz1)
	}
}
