package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"act-academy/internal/domain"
)

// flexID accepts ids sent as JSON strings or numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// wireOption is either a plain string or {content, is_correct}.
type wireOption struct {
	Content   string
	IsCorrect bool
}

func (o *wireOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Content)
	}
	var obj struct {
		Content   string `json:"content"`
		Text      string `json:"text"`
		IsCorrect bool   `json:"is_correct"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("option: %w", err)
	}
	o.Content = obj.Content
	if o.Content == "" {
		o.Content = obj.Text
	}
	o.IsCorrect = obj.IsCorrect
	return nil
}

type wireQuestion struct {
	ID           flexID       `json:"id"`
	Question     string       `json:"question"`
	Prompt       string       `json:"prompt"`
	Type         string       `json:"type"`
	Options      []wireOption `json:"options"`
	CorrectIndex *int         `json:"correct_index"`
	Correct      *int         `json:"correctIndex"`
	Explanation  string       `json:"explanation"`
}

type wireQuiz struct {
	ID               flexID         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	TimeLimit        *int           `json:"time_limit"`
	TimeLimitMinutes *int           `json:"timeLimitMinutes"`
	PassingScore     *int           `json:"passing_score"`
	PassingPercent   *int           `json:"passingScorePercent"`
	Questions        []wireQuestion `json:"questions"`
}

// quizEnvelope tolerates both a bare quiz and {"data": quiz}.
type quizEnvelope struct {
	wireQuiz
	Data *wireQuiz `json:"data"`
}

func (q wireQuiz) normalize() (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:                  string(q.ID),
		Title:               q.Title,
		Description:         q.Description,
		TimeLimitMinutes:    firstInt(q.TimeLimitMinutes, q.TimeLimit),
		PassingScorePercent: firstInt(q.PassingPercent, q.PassingScore),
		Questions:           make([]domain.Question, 0, len(q.Questions)),
	}
	for _, wq := range q.Questions {
		quiz.Questions = append(quiz.Questions, wq.normalize())
	}
	if err := quiz.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (q wireQuestion) normalize() domain.Question {
	question := domain.Question{
		ID:           string(q.ID),
		Prompt:       q.Question,
		Type:         q.Type,
		Options:      make([]string, 0, len(q.Options)),
		CorrectIndex: -1,
		Explanation:  q.Explanation,
	}
	if question.Prompt == "" {
		question.Prompt = q.Prompt
	}
	if question.Type == "" {
		question.Type = domain.QuestionTypeMultipleChoice
	}
	for i, opt := range q.Options {
		question.Options = append(question.Options, opt.Content)
		if opt.IsCorrect && question.CorrectIndex < 0 {
			question.CorrectIndex = i
		}
	}
	if idx := q.CorrectIndex; idx != nil {
		question.CorrectIndex = *idx
	} else if idx := q.Correct; idx != nil {
		question.CorrectIndex = *idx
	}
	return question
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

type attemptRequest struct {
	Answers map[string]int `json:"answers"`
}

type wireAttempt struct {
	ID      flexID   `json:"id"`
	Percent *float64 `json:"percent"`
	Correct *int     `json:"correct"`
	Total   *int     `json:"total"`
	Passed  *bool    `json:"passed"`
}

func (a wireAttempt) score() domain.AttemptScore {
	score := domain.AttemptScore{AttemptID: string(a.ID), Correct: a.Correct, Total: a.Total, Passed: a.Passed}
	if a.Percent != nil {
		p := int(*a.Percent + 0.5)
		score.Percent = &p
	}
	return score
}

type wireUser struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type wireComment struct {
	ID          flexID        `json:"id"`
	Content     string        `json:"content"`
	UserID      flexID        `json:"user_id"`
	User        *wireUser     `json:"user"`
	LikesCount  int           `json:"likes_count"`
	IsLikedByMe bool          `json:"is_liked_by_me"`
	CreatedAt   string        `json:"created_at"`
	Replies     []wireComment `json:"replies"`
}

func (w wireComment) normalize() domain.Comment {
	comment := domain.Comment{
		ID:      string(w.ID),
		UserID:  string(w.UserID),
		Text:    w.Content,
		Likes:   w.LikesCount,
		IsLiked: w.IsLikedByMe,
		Replies: normalizeComments(w.Replies),
	}
	if w.User != nil {
		comment.Author = w.User.Name
		if comment.UserID == "" {
			comment.UserID = string(w.User.ID)
		}
	}
	if comment.Likes < 0 {
		comment.Likes = 0
	}
	comment.CreatedAt, _ = parseTime(w.CreatedAt)
	return comment
}

func normalizeComments(items []wireComment) []domain.Comment {
	out := make([]domain.Comment, 0, len(items))
	for _, item := range items {
		out = append(out, item.normalize())
	}
	return out
}

type commentsEnvelope struct {
	Data []wireComment
}

// UnmarshalJSON accepts a bare array or {"data": [...]}.
func (e *commentsEnvelope) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &e.Data)
	}
	var wrapped struct {
		Data []wireComment `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	e.Data = wrapped.Data
	return nil
}

type commentEnvelope struct {
	wireComment
	Data *wireComment `json:"data"`
}

func (e commentEnvelope) comment() domain.Comment {
	if e.Data != nil {
		return e.Data.normalize()
	}
	return e.wireComment.normalize()
}

type createCommentRequest struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000000Z",
	"2006-01-02 15:04:05",
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
