package domain

import "time"

// QuestionTypeMultipleChoice is the only question type the engine renders.
const QuestionTypeMultipleChoice = "multiple-choice"

// User identifies the viewer on whose behalf the client acts.
type User struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID           string   `json:"id" validate:"required"`
	Prompt       string   `json:"prompt"`
	Type         string   `json:"type"`
	Options      []string `json:"options" validate:"min=1"`
	CorrectIndex int      `json:"correctIndex" validate:"min=0"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Validate checks that CorrectIndex points into Options.
func (q Question) Validate() error {
	return check("question "+q.ID, q)
}

// Quiz is an immutable quiz definition, loaded once per session.
type Quiz struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	TimeLimitMinutes    int        `json:"timeLimitMinutes" validate:"gt=0"`
	PassingScorePercent int        `json:"passingScorePercent" validate:"min=0,max=100"`
	Questions           []Question `json:"questions" validate:"unique=ID,dive"`
}

// Validate checks the quiz invariants; question ids must be unique.
func (q Quiz) Validate() error {
	return check("quiz "+q.ID, q)
}

// Question returns the question with the given id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Attempt is one scored submission. It is never mutated after creation.
type Attempt struct {
	ID           string         `json:"id,omitempty"`
	QuizID       string         `json:"quizId"`
	Answers      map[string]int `json:"answers"`
	CorrectCount int            `json:"correctCount"`
	Total        int            `json:"total"`
	Percent      int            `json:"percent"`
	Passed       bool           `json:"passed"`
	UserID       string         `json:"userId"`
	UserName     string         `json:"userName"`
	Timestamp    time.Time      `json:"timestamp"`
}

// AttemptScore is the scoring part of a backend submission response. Nil fields were absent.
type AttemptScore struct {
	AttemptID string
	Percent   *int
	Correct   *int
	Total     *int
	Passed    *bool
}

// Complete reports whether the backend returned enough to use the score verbatim.
func (s AttemptScore) Complete() bool {
	return s.Percent != nil && s.Correct != nil && s.Total != nil && s.Passed != nil
}
