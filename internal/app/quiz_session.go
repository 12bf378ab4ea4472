package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"act-academy/internal/domain"
	"act-academy/internal/logging"
)

const defaultTickInterval = time.Second

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptSubmitter records an attempt with the backend.
type AttemptSubmitter interface {
	SubmitAttempt(ctx context.Context, quizID string, answers map[string]int) (domain.AttemptScore, error)
}

// DraftKey scopes preserved answers to one user and quiz.
type DraftKey struct {
	QuizID string
	UserID string
}

// DraftStore keeps in-progress answers for a bounded time so an attempt interrupted by
// session expiry can be retried from a fresh session.
type DraftStore interface {
	SaveDraft(ctx context.Context, key DraftKey, answers map[string]int) error
	LoadDraft(ctx context.Context, key DraftKey) (map[string]int, bool, error)
	DeleteDraft(ctx context.Context, key DraftKey) error
}

// SessionConfig wires a Session. Drafts, Now, TickInterval and OnSubmitted are optional.
type SessionConfig struct {
	QuizID       string
	User         domain.User
	Quizzes      QuizRepository
	Submitter    AttemptSubmitter
	Drafts       DraftStore
	TickInterval time.Duration
	Now          func() time.Time
	OnSubmitted  func(Result)
}

// QuestionView is the current question without its answer key.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Snapshot is an immutable view of a session for hosts and tests.
type Snapshot struct {
	QuizID    string         `json:"quizId"`
	Title     string         `json:"title"`
	State     State          `json:"state"`
	Current   int            `json:"current"`
	Total     int            `json:"total"`
	Remaining int            `json:"remaining"`
	Answers   map[string]int `json:"answers"`
	Question  *QuestionView  `json:"question,omitempty"`
	Error     string         `json:"error,omitempty"`
	Result    *Result        `json:"result,omitempty"`
}

// Session runs one timed attempt of one quiz.
type Session struct {
	quizID      string
	user        domain.User
	quizzes     QuizRepository
	submitter   AttemptSubmitter
	drafts      DraftStore
	interval    time.Duration
	now         func() time.Time
	onSubmitted func(Result)

	mu          sync.Mutex
	state       State
	quiz        domain.Quiz
	current     int
	answers     map[string]int
	remaining   int
	result      *Result
	lastErr     error
	subscribers map[chan Snapshot]struct{}
}

func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		quizID:      cfg.QuizID,
		user:        cfg.User,
		quizzes:     cfg.Quizzes,
		submitter:   cfg.Submitter,
		drafts:      cfg.Drafts,
		interval:    cfg.TickInterval,
		now:         cfg.Now,
		onSubmitted: cfg.OnSubmitted,
		state:       StateLoading,
		answers:     make(map[string]int),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	if s.interval <= 0 {
		s.interval = defaultTickInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Load fetches the quiz and starts the countdown. Any fetch failure is terminal (NotFound).
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateLoading {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: load from %s", domain.ErrInvalidTransition, state)
	}
	s.mu.Unlock()

	quiz, err := s.quizzes.GetQuiz(ctx, s.quizID)
	if err == nil {
		err = quiz.Validate()
	}
	var draft map[string]int
	if err == nil {
		draft = s.restoreDraft(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateLoading {
		return fmt.Errorf("%w: concurrent load", domain.ErrInvalidTransition)
	}
	if err != nil {
		s.state, _ = transition(s.state, evLoadFailed)
		s.lastErr = err
		s.broadcastLocked()
		return err
	}

	s.quiz = quiz
	s.remaining = quiz.TimeLimitMinutes * 60
	for questionID, index := range draft {
		if question, ok := quiz.Question(questionID); ok && index >= 0 && index < len(question.Options) {
			s.answers[questionID] = index
		}
	}
	s.state, _ = transition(s.state, evLoaded)
	s.broadcastLocked()
	return nil
}

// Select records an answer for the current question.
func (s *Session) Select(optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return fmt.Errorf("%w: select in %s", domain.ErrInvalidTransition, s.state)
	}
	if len(s.quiz.Questions) == 0 {
		return fmt.Errorf("%w: quiz has no questions", domain.ErrValidation)
	}
	return s.selectLocked(s.quiz.Questions[s.current], optionIndex)
}

// SelectFor records an answer for a specific question, overwriting any earlier choice.
func (s *Session) SelectFor(questionID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return fmt.Errorf("%w: select in %s", domain.ErrInvalidTransition, s.state)
	}
	question, ok := s.quiz.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: question %s", domain.ErrNotFound, questionID)
	}
	return s.selectLocked(question, optionIndex)
}

func (s *Session) selectLocked(question domain.Question, optionIndex int) error {
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return fmt.Errorf("%w: option %d out of range for question %s", domain.ErrValidation, optionIndex, question.ID)
	}
	s.answers[question.ID] = optionIndex
	s.broadcastLocked()
	return nil
}

// Next moves forward one question, stopping at the last one.
func (s *Session) Next() int {
	return s.move(1)
}

// Prev moves back one question, stopping at the first one.
func (s *Session) Prev() int {
	return s.move(-1)
}

func (s *Session) move(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return s.current
	}
	next := s.current + delta
	if next >= 0 && next < len(s.quiz.Questions) {
		s.current = next
		s.broadcastLocked()
	}
	return s.current
}

// GoTo jumps to question i.
func (s *Session) GoTo(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInProgress {
		return fmt.Errorf("%w: navigate in %s", domain.ErrInvalidTransition, s.state)
	}
	if i < 0 || i >= len(s.quiz.Questions) {
		return fmt.Errorf("%w: question index %d", domain.ErrValidation, i)
	}
	s.current = i
	s.broadcastLocked()
	return nil
}

// Tick advances the countdown by one second. It returns true exactly once: when the
// countdown first reaches zero. The countdown is frozen outside InProgress/ConfirmingLeave.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.timerRunning() || s.remaining <= 0 {
		return false
	}
	s.remaining--
	s.broadcastLocked()
	return s.remaining == 0
}

// Run drives the countdown until the session ends, ctx is cancelled or the automatic
// submission at expiry has been attempted.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Tick() {
				logging.Info("quiz %s: time is up, submitting", s.quizID)
				if _, err := s.Submit(ctx); err != nil && !errors.Is(err, domain.ErrSubmitInFlight) {
					logging.Error("quiz %s: auto-submit failed: %v", s.quizID, err)
				}
				// the countdown is spent; a retry has to come through Submit
				return
			}
			if s.State().Terminal() {
				return
			}
		}
	}
}

// Submit sends the recorded answers. Only one submission can be in flight; a second call
// returns domain.ErrSubmitInFlight without contacting the backend.
func (s *Session) Submit(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return Result{}, domain.ErrSubmitInFlight
	}
	next, ok := transition(s.state, evSubmit)
	if !ok {
		state := s.state
		s.mu.Unlock()
		if state.Terminal() {
			return Result{}, fmt.Errorf("%w: %s", domain.ErrSessionClosed, state)
		}
		return Result{}, fmt.Errorf("%w: submit in %s", domain.ErrInvalidTransition, state)
	}
	s.state = next
	s.lastErr = nil
	answers := copyAnswers(s.answers)
	quiz := s.quiz
	s.broadcastLocked()
	s.mu.Unlock()

	score, err := s.submitter.SubmitAttempt(ctx, s.quizID, answers)

	s.mu.Lock()
	if err != nil {
		authExpired := errors.Is(err, domain.ErrAuthExpired)
		if authExpired {
			s.state, _ = transition(s.state, evAuthExpired)
		} else {
			s.state, _ = transition(s.state, evSubmitFailed)
		}
		s.lastErr = err
		s.broadcastLocked()
		if authExpired {
			s.closeSubscribersLocked()
		}
		s.mu.Unlock()

		if authExpired {
			s.saveDraft(answers)
		}
		return Result{}, err
	}

	result := reconcile(quiz, answers, score, s.user, s.now())
	s.state, _ = transition(s.state, evSubmitted)
	s.result = &result
	s.broadcastLocked()
	s.closeSubscribersLocked()
	s.mu.Unlock()

	s.clearDraft()
	if s.onSubmitted != nil {
		s.onSubmitted(result)
	}
	return result, nil
}

// RequestLeave is the navigation guard. It returns true when the caller must confirm,
// which moves the session into ConfirmingLeave.
func (s *Session) RequestLeave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConfirmingLeave {
		return true
	}
	next, ok := transition(s.state, evLeave)
	if !ok {
		return false
	}
	s.state = next
	s.broadcastLocked()
	return true
}

// ResolveLeave answers the confirmation: stay resumes the attempt, otherwise it is abandoned.
func (s *Session) ResolveLeave(stay bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := evAbandon
	if stay {
		ev = evStay
	}
	next, ok := transition(s.state, ev)
	if !ok {
		return fmt.Errorf("%w: resolve leave in %s", domain.ErrInvalidTransition, s.state)
	}
	s.state = next
	s.broadcastLocked()
	if next == StateAbandoned {
		s.closeSubscribersLocked()
	}
	return nil
}

// NeedsLeaveConfirmation reports whether leaving now would lose unsubmitted progress.
func (s *Session) NeedsLeaveConfirmation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.timerRunning()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the submitted result, if any.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	return *s.result, true
}

// PendingAnswers returns the answers kept in memory after an auth expiry.
func (s *Session) PendingAnswers() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.answers)
}

func (s *Session) Quiz() domain.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel of snapshots; the first value is the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	// the initial snapshot and registration happen under one lock hold so no
	// broadcast or close can interleave with them
	s.mu.Lock()
	defer s.mu.Unlock()
	ch <- s.snapshotLocked()
	if s.state.Terminal() {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest pending snapshot so a slow host never blocks the session
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (s *Session) closeSubscribersLocked() {
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		QuizID:    s.quizID,
		Title:     s.quiz.Title,
		State:     s.state,
		Current:   s.current,
		Total:     len(s.quiz.Questions),
		Remaining: s.remaining,
		Answers:   copyAnswers(s.answers),
		Result:    s.result,
	}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if s.current < len(s.quiz.Questions) {
		question := s.quiz.Questions[s.current]
		snap.Question = &QuestionView{ID: question.ID, Prompt: question.Prompt, Options: question.Options}
	}
	return snap
}

func (s *Session) draftKey() DraftKey {
	return DraftKey{QuizID: s.quizID, UserID: s.user.ID}
}

func (s *Session) restoreDraft(ctx context.Context) map[string]int {
	if s.drafts == nil {
		return nil
	}
	draft, ok, err := s.drafts.LoadDraft(ctx, s.draftKey())
	if err != nil {
		logging.Error("quiz %s: load draft: %v", s.quizID, err)
		return nil
	}
	if ok {
		logging.Info("quiz %s: restored %d preserved answers", s.quizID, len(draft))
	}
	return draft
}

// saveDraft is best-effort; the answers also stay in memory.
func (s *Session) saveDraft(answers map[string]int) {
	if s.drafts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.drafts.SaveDraft(ctx, s.draftKey(), answers); err != nil {
		logging.Error("quiz %s: save draft: %v", s.quizID, err)
	}
}

func (s *Session) clearDraft() {
	if s.drafts == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.drafts.DeleteDraft(ctx, s.draftKey()); err != nil {
		logging.Error("quiz %s: clear draft: %v", s.quizID, err)
	}
}

func copyAnswers(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
