package app

import (
	"context"
	"time"

	"act-academy/internal/domain"
	"act-academy/internal/logging"
)

// AttemptHistory keeps submitted attempts for result and history views.
type AttemptHistory interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) error
	ListAttempts(ctx context.Context, userID, quizID string, limit int) ([]domain.Attempt, error)
}

// SessionRepository keeps live sessions so a host can reattach to an attempt in progress.
type SessionRepository interface {
	GetOrCreate(key DraftKey, create func() *Session) (*Session, bool)
	Get(key DraftKey) (*Session, bool)
	DeleteIfFinished(key DraftKey)
}

// LivenessChecker is implemented by registries that can see attempts opened by other processes.
type LivenessChecker interface {
	Live(ctx context.Context, key DraftKey) (bool, error)
}

// QuizService contains the quiz-taking use cases.
type QuizService struct {
	quizzes   QuizRepository
	submitter AttemptSubmitter
	drafts    DraftStore
	history   AttemptHistory
	sessions  SessionRepository
	interval  time.Duration
	now       func() time.Time
}

// NewQuizService wires the service. drafts and history may be nil.
func NewQuizService(quizzes QuizRepository, submitter AttemptSubmitter, drafts DraftStore, history AttemptHistory) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		submitter: submitter,
		drafts:    drafts,
		history:   history,
		interval:  defaultTickInterval,
		now:       time.Now,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps and fast ticks.
func NewQuizServiceWithClock(quizzes QuizRepository, submitter AttemptSubmitter, drafts DraftStore, history AttemptHistory, interval time.Duration, now func() time.Time) *QuizService {
	s := NewQuizService(quizzes, submitter, drafts, history)
	if interval > 0 {
		s.interval = interval
	}
	s.now = now
	return s
}

// SetTickInterval overrides the countdown interval for new sessions.
func (s *QuizService) SetTickInterval(interval time.Duration) {
	if interval > 0 {
		s.interval = interval
	}
}

// UseSessions enables Attach.
func (s *QuizService) UseSessions(sessions SessionRepository) {
	s.sessions = sessions
}

// NewSession prepares a session for user without loading it.
func (s *QuizService) NewSession(quizID string, user domain.User) *Session {
	return NewSession(SessionConfig{
		QuizID:       quizID,
		User:         user,
		Quizzes:      s.quizzes,
		Submitter:    s.submitter,
		Drafts:       s.drafts,
		TickInterval: s.interval,
		Now:          s.now,
		OnSubmitted:  s.record,
	})
}

// Start creates and loads a session. On load failure the session is returned in NotFound.
func (s *QuizService) Start(ctx context.Context, quizID string, user domain.User) (*Session, error) {
	session := s.NewSession(quizID, user)
	if err := session.Load(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// Attach returns the live session for user and quiz, starting one if none is running.
// The boolean reports whether a new session was created.
func (s *QuizService) Attach(ctx context.Context, quizID string, user domain.User) (*Session, bool, error) {
	if s.sessions == nil {
		session, err := s.Start(ctx, quizID, user)
		return session, true, err
	}
	key := DraftKey{QuizID: quizID, UserID: user.ID}
	session, created := s.sessions.GetOrCreate(key, func() *Session {
		return s.NewSession(quizID, user)
	})
	if !created {
		if session.State().Terminal() {
			s.sessions.DeleteIfFinished(key)
			return s.Attach(ctx, quizID, user)
		}
		return session, false, nil
	}
	if err := session.Load(ctx); err != nil {
		s.sessions.DeleteIfFinished(key)
		return session, true, err
	}
	return session, true, nil
}

// Release drops the live session once it has ended.
func (s *QuizService) Release(quizID string, user domain.User) {
	if s.sessions != nil {
		s.sessions.DeleteIfFinished(DraftKey{QuizID: quizID, UserID: user.ID})
	}
}

// OpenElsewhere reports whether the user's attempt at quizID is open in another process.
// Answers are not shared between processes, so hosts warn before starting a second one.
func (s *QuizService) OpenElsewhere(ctx context.Context, quizID string, user domain.User) bool {
	if s.sessions == nil {
		return false
	}
	key := DraftKey{QuizID: quizID, UserID: user.ID}
	if _, local := s.sessions.Get(key); local {
		return false
	}
	checker, ok := s.sessions.(LivenessChecker)
	if !ok {
		return false
	}
	live, err := checker.Live(ctx, key)
	if err != nil {
		logging.Store("check live attempt %s/%s: %v", quizID, user.ID, err)
		return false
	}
	return live
}

// History lists earlier attempts, newest first.
func (s *QuizService) History(ctx context.Context, userID, quizID string, limit int) ([]domain.Attempt, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListAttempts(ctx, userID, quizID, limit)
}

func (s *QuizService) record(result Result) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.RecordAttempt(ctx, result.Attempt); err != nil {
		logging.Error("record attempt %s for quiz %s: %v", result.Attempt.ID, result.Attempt.QuizID, err)
	}
}
