package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"act-academy/internal/domain"
)

// ListComments returns the normalized thread for a context.
func (c *Client) ListComments(ctx context.Context, target domain.CommentContext) ([]domain.Comment, error) {
	query := url.Values{}
	query.Set("type", target.Type)
	query.Set("id", target.ID)

	var payload commentsEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/comments?"+query.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	return normalizeComments(payload.Data), nil
}

// CreateComment posts a root comment (parentID == "") or a reply.
func (c *Client) CreateComment(ctx context.Context, target domain.CommentContext, parentID, text string) (domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Comment{}, fmt.Errorf("%w: comment text is required", domain.ErrValidation)
	}
	request := createCommentRequest{
		Type:     target.Type,
		ID:       target.ID,
		Content:  text,
		ParentID: parentID,
	}

	var payload commentEnvelope
	if err := c.doJSON(ctx, http.MethodPost, "/api/comments", request, &payload); err != nil {
		return domain.Comment{}, err
	}
	comment := payload.comment()
	comment.Replies = []domain.Comment{}
	return comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, id, text string) error {
	return c.doJSON(ctx, http.MethodPut, "/api/comments/"+url.PathEscape(id), updateCommentRequest{Content: text}, nil)
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/comments/"+url.PathEscape(id), nil, nil)
}

// ToggleLike flips the viewer's like; the returned counts are authoritative.
func (c *Client) ToggleLike(ctx context.Context, id string) (domain.LikeState, error) {
	var payload domain.LikeState
	if err := c.doJSON(ctx, http.MethodPost, "/api/comments/"+url.PathEscape(id)+"/like", nil, &payload); err != nil {
		return domain.LikeState{}, err
	}
	return payload, nil
}
