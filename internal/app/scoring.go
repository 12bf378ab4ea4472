package app

import (
	"time"

	"act-academy/internal/domain"
	"github.com/google/uuid"
)

// ScoreSource tells whether a result came from the backend or from local fallback scoring.
type ScoreSource string

const (
	SourceServer ScoreSource = "server"
	SourceClient ScoreSource = "client"
)

// QuestionReview is the per-question line of a result view. Chosen is -1 when unanswered.
type QuestionReview struct {
	QuestionID   string   `json:"questionId"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	Chosen       int      `json:"chosen"`
	CorrectIndex int      `json:"correctIndex"`
	Correct      bool     `json:"correct"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Result is what a session hands to the result view.
type Result struct {
	Attempt domain.Attempt   `json:"attempt"`
	Source  ScoreSource      `json:"source"`
	Review  []QuestionReview `json:"review"`
}

// ScoreAnswers counts answers that equal the question's correct index. Total is the question count.
func ScoreAnswers(quiz domain.Quiz, answers map[string]int) (correct, total int) {
	for _, question := range quiz.Questions {
		if chosen, ok := answers[question.ID]; ok && chosen == question.CorrectIndex {
			correct++
		}
	}
	return correct, len(quiz.Questions)
}

// Percent rounds 100*correct/total half-up. An empty quiz scores 0.
func Percent(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// ReviewAnswers builds per-question correctness in quiz order.
func ReviewAnswers(quiz domain.Quiz, answers map[string]int) []QuestionReview {
	review := make([]QuestionReview, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		chosen, ok := answers[question.ID]
		if !ok {
			chosen = -1
		}
		review = append(review, QuestionReview{
			QuestionID:   question.ID,
			Prompt:       question.Prompt,
			Options:      question.Options,
			Chosen:       chosen,
			CorrectIndex: question.CorrectIndex,
			Correct:      ok && chosen == question.CorrectIndex,
			Explanation:  question.Explanation,
		})
	}
	return review
}

// reconcile prefers a complete backend score and falls back to strict-equality scoring.
func reconcile(quiz domain.Quiz, answers map[string]int, score domain.AttemptScore, user domain.User, now time.Time) Result {
	attempt := domain.Attempt{
		ID:        score.AttemptID,
		QuizID:    quiz.ID,
		Answers:   answers,
		UserID:    user.ID,
		UserName:  user.Name,
		Timestamp: now,
	}
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}

	source := SourceServer
	if score.Complete() {
		attempt.CorrectCount = *score.Correct
		attempt.Total = *score.Total
		attempt.Percent = *score.Percent
		attempt.Passed = *score.Passed
	} else {
		source = SourceClient
		attempt.CorrectCount, attempt.Total = ScoreAnswers(quiz, answers)
		attempt.Percent = Percent(attempt.CorrectCount, attempt.Total)
		attempt.Passed = attempt.Percent >= quiz.PassingScorePercent
	}

	return Result{
		Attempt: attempt,
		Source:  source,
		Review:  ReviewAnswers(quiz, answers),
	}
}
