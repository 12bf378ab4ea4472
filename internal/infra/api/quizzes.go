package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"act-academy/internal/domain"
)

// GetQuiz fetches and normalizes a quiz definition.
func (c *Client) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Quiz{}, fmt.Errorf("%w: quiz id is required", domain.ErrValidation)
	}

	var payload quizEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/quizzes/"+url.PathEscape(quizID), nil, &payload); err != nil {
		return domain.Quiz{}, err
	}
	wq := payload.wireQuiz
	if payload.Data != nil {
		wq = *payload.Data
	}
	if wq.ID == "" {
		wq.ID = flexID(quizID)
	}
	return wq.normalize()
}

// LoadQuiz lets the client act as a quiz loader behind the caching repositories.
func (c *Client) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return c.GetQuiz(ctx, quizID)
}

// SubmitAttempt posts the recorded answers and returns whatever score the backend computed.
func (c *Client) SubmitAttempt(ctx context.Context, quizID string, answers map[string]int) (domain.AttemptScore, error) {
	request := attemptRequest{Answers: answers}
	if request.Answers == nil {
		request.Answers = map[string]int{}
	}

	var payload struct {
		wireAttempt
		Data *wireAttempt `json:"data"`
	}
	path := "/api/quizzes/" + url.PathEscape(quizID) + "/attempt"
	if err := c.doJSON(ctx, http.MethodPost, path, request, &payload); err != nil {
		return domain.AttemptScore{}, err
	}
	if payload.Data != nil {
		return payload.Data.score(), nil
	}
	return payload.wireAttempt.score(), nil
}
