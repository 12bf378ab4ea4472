package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"act-academy/internal/app"
	"act-academy/internal/domain"
)

func TestTimerIsMonotonicAndFiresOnce(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{})

	previous := session.Snapshot().Remaining
	if previous != 60 {
		t.Fatalf("expected countdown from 60s, got %d", previous)
	}
	fired := 0
	for i := 0; i < 100; i++ {
		if session.Tick() {
			fired++
		}
		remaining := session.Snapshot().Remaining
		if remaining > previous || remaining < 0 {
			t.Fatalf("tick %d: remaining went from %d to %d", i, previous, remaining)
		}
		previous = remaining
	}
	if fired != 1 {
		t.Fatalf("expected exactly one expiry signal, got %d", fired)
	}
	if previous != 0 {
		t.Fatalf("expected countdown to stop at 0, got %d", previous)
	}
}

func TestRunAutoSubmitsOnExpiry(t *testing.T) {
	submitter := &fakeSubmitter{}
	quiz := sampleQuiz()
	quiz.TimeLimitMinutes = 1
	session := app.NewSession(app.SessionConfig{
		QuizID:       "quiz-1",
		User:         alice,
		Quizzes:      staticQuizzes{quiz: quiz},
		Submitter:    submitter,
		TickInterval: time.Millisecond,
	})
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	session.Run(ctx)

	if session.State() != app.StateSubmitted {
		t.Fatalf("expected Submitted after expiry, got %s", session.State())
	}
	if submitter.callCount() != 1 {
		t.Fatalf("expected one submission, got %d", submitter.callCount())
	}
}

func TestNoDoubleSubmission(t *testing.T) {
	submitter := &fakeSubmitter{started: make(chan struct{}, 1), release: make(chan struct{})}
	session := loadedSession(t, submitter)

	done := make(chan error, 1)
	go func() {
		_, err := session.Submit(context.Background())
		done <- err
	}()
	<-submitter.started

	if _, err := session.Submit(context.Background()); !errors.Is(err, domain.ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	before := session.Snapshot().Remaining
	for i := 0; i < 120; i++ {
		if session.Tick() {
			t.Fatalf("timer must not fire while submitting")
		}
	}
	if session.Snapshot().Remaining != before {
		t.Fatalf("timer must be frozen while submitting")
	}

	close(submitter.release)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitter.callCount() != 1 {
		t.Fatalf("expected exactly one backend submission, got %d", submitter.callCount())
	}
}

func TestAnswerOverwrite(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{})

	if err := session.Select(1); err != nil {
		t.Fatalf("select B: %v", err)
	}
	if err := session.Select(0); err != nil {
		t.Fatalf("select A: %v", err)
	}
	answers := session.Snapshot().Answers
	if len(answers) != 1 || answers["q1"] != 0 {
		t.Fatalf("expected single answer q1=0, got %+v", answers)
	}
	if err := session.Select(9); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for out-of-range option, got %v", err)
	}
}

func TestFallbackScoringIsDeterministic(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{})
	_ = session.SelectFor("q1", 0)
	_ = session.SelectFor("q2", 2)
	_ = session.SelectFor("q3", 2)

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	attempt := result.Attempt
	if result.Source != app.SourceClient {
		t.Fatalf("expected client-side fallback, got %s", result.Source)
	}
	if attempt.CorrectCount != 2 || attempt.Total != 3 || attempt.Percent != 67 {
		t.Fatalf("expected 2/3 = 67%%, got %+v", attempt)
	}
	if attempt.Passed != (67 >= sampleQuiz().PassingScorePercent) {
		t.Fatalf("passed flag wrong: %+v", attempt)
	}
	if len(result.Review) != 3 || result.Review[1].Correct || !result.Review[2].Correct {
		t.Fatalf("unexpected review %+v", result.Review)
	}
}

func TestServerScoreUsedVerbatim(t *testing.T) {
	percent, correct, total, passed := 40, 1, 3, false
	submitter := &fakeSubmitter{score: domain.AttemptScore{AttemptID: "a-9", Percent: &percent, Correct: &correct, Total: &total, Passed: &passed}}
	session := loadedSession(t, submitter)
	_ = session.SelectFor("q1", 0)
	_ = session.SelectFor("q2", 1)

	result, err := session.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Source != app.SourceServer || result.Attempt.Percent != 40 || result.Attempt.ID != "a-9" {
		t.Fatalf("expected server score verbatim, got %+v", result)
	}
}

func TestSubmitFailureRevertsToInProgress(t *testing.T) {
	submitter := &fakeSubmitter{err: domain.ErrTransient}
	session := loadedSession(t, submitter)
	_ = session.Select(2)

	if _, err := session.Submit(context.Background()); !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	snap := session.Snapshot()
	if snap.State != app.StateInProgress || snap.Error == "" {
		t.Fatalf("expected InProgress with surfaced error, got %+v", snap)
	}
	if snap.Answers["q1"] != 2 {
		t.Fatalf("answers lost after failure: %+v", snap.Answers)
	}

	submitter.setErr(nil)
	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if submitter.callCount() != 2 {
		t.Fatalf("expected two backend calls, got %d", submitter.callCount())
	}
}

func TestAuthExpiryPreservesAnswers(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{err: domain.ErrAuthExpired})
	_ = session.SelectFor("q3", 2)

	if _, err := session.Submit(context.Background()); !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("expected auth expiry, got %v", err)
	}
	if session.State() != app.StateAuthExpired {
		t.Fatalf("expected AuthExpired, got %s", session.State())
	}
	if session.PendingAnswers()["q3"] != 2 {
		t.Fatalf("expected preserved answers, got %+v", session.PendingAnswers())
	}
	if _, err := session.Submit(context.Background()); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed session, got %v", err)
	}
}

func TestLeaveConfirmationKeepsAnswers(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{})
	_ = session.SelectFor("q2", 3)

	if !session.NeedsLeaveConfirmation() {
		t.Fatalf("expected navigation guard while in progress")
	}
	if !session.RequestLeave() {
		t.Fatalf("expected confirmation to be required")
	}
	if session.State() != app.StateConfirmingLeave {
		t.Fatalf("expected ConfirmingLeave, got %s", session.State())
	}
	if err := session.ResolveLeave(true); err != nil {
		t.Fatalf("resolve stay: %v", err)
	}
	if session.State() != app.StateInProgress || session.PendingAnswers()["q2"] != 3 {
		t.Fatalf("expected InProgress with answers intact, got %s %+v", session.State(), session.PendingAnswers())
	}

	session.RequestLeave()
	if err := session.ResolveLeave(false); err != nil {
		t.Fatalf("resolve leave: %v", err)
	}
	if session.State() != app.StateAbandoned || session.NeedsLeaveConfirmation() {
		t.Fatalf("expected Abandoned without guard, got %s", session.State())
	}
}

func TestNavigationIsBounded(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{})

	if got := session.Prev(); got != 0 {
		t.Fatalf("prev at start = %d", got)
	}
	session.Next()
	session.Next()
	if got := session.Next(); got != 2 {
		t.Fatalf("next past end = %d", got)
	}
	if err := session.GoTo(5); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if q := session.Snapshot().Question; q == nil || q.ID != "q3" {
		t.Fatalf("expected current question q3, got %+v", q)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	session := loadedSession(t, &fakeSubmitter{})
	ch, cancel := session.Subscribe()
	defer cancel()

	initial := <-ch
	if initial.State != app.StateInProgress {
		t.Fatalf("expected initial in-progress snapshot, got %s", initial.State)
	}
	session.Tick()
	update := <-ch
	if update.Remaining != initial.Remaining-1 {
		t.Fatalf("expected tick update, got %d", update.Remaining)
	}
}

func TestRunStopsAfterFailedAutoSubmit(t *testing.T) {
	submitter := &fakeSubmitter{err: domain.ErrTransient}
	session := app.NewSession(app.SessionConfig{
		QuizID:       "quiz-1",
		User:         alice,
		Quizzes:      staticQuizzes{quiz: sampleQuiz()},
		Submitter:    submitter,
		TickInterval: time.Millisecond,
	})
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	done := make(chan struct{})
	go func() {
		session.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run kept going after the expiry submission failed")
	}

	if session.State() != app.StateInProgress || submitter.callCount() != 1 {
		t.Fatalf("expected one failed submission back in InProgress, got %s after %d calls", session.State(), submitter.callCount())
	}
	submitter.setErr(nil)
	if _, err := session.Submit(context.Background()); err != nil {
		t.Fatalf("manual retry: %v", err)
	}
}

func TestSubscribeRacingSubmitIsSafe(t *testing.T) {
	for round := 0; round < 200; round++ {
		session := loadedSession(t, &fakeSubmitter{})

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				updates, cancel := session.Subscribe()
				first, ok := <-updates
				if !ok || first.QuizID != "quiz-1" {
					t.Errorf("expected an initial snapshot, got %+v (open=%v)", first, ok)
				}
				cancel()
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _ = session.Submit(context.Background())
		}()
		close(start)
		wg.Wait()

		// a late subscriber sees the final state and a closed channel
		updates, cancel := session.Subscribe()
		last := <-updates
		if _, open := <-updates; open || last.State != app.StateSubmitted {
			t.Fatalf("round %d: expected closed channel after Submitted, got %s (open=%v)", round, last.State, open)
		}
		cancel()
	}
}

func loadedSession(t *testing.T, submitter *fakeSubmitter) *app.Session {
	t.Helper()
	session := app.NewSession(app.SessionConfig{
		QuizID:    "quiz-1",
		User:      alice,
		Quizzes:   staticQuizzes{quiz: sampleQuiz()},
		Submitter: submitter,
	})
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return session
}

type staticQuizzes struct {
	quiz domain.Quiz
}

func (s staticQuizzes) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID != s.quiz.ID {
		return domain.Quiz{}, domain.ErrNotFound
	}
	return s.quiz, nil
}
