package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"act-academy/internal/domain"
	"act-academy/internal/logging"
	"github.com/google/uuid"
)

// CommentAPI is the backend surface a thread consults.
type CommentAPI interface {
	ListComments(ctx context.Context, target domain.CommentContext) ([]domain.Comment, error)
	CreateComment(ctx context.Context, target domain.CommentContext, parentID, text string) (domain.Comment, error)
	UpdateComment(ctx context.Context, id, text string) error
	DeleteComment(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id string) (domain.LikeState, error)
	Report(ctx context.Context, report domain.Report) error
}

// Thread owns the comment tree shown for one context. Without a backend or context it
// works purely locally, synthesizing ids and timestamps.
type Thread struct {
	target domain.CommentContext
	api    CommentAPI
	viewer domain.User
	now    func() time.Time
	newID  func() string

	loads latest

	mu       sync.Mutex
	comments []domain.Comment
}

func NewThread(target domain.CommentContext, api CommentAPI, viewer domain.User) *Thread {
	return &Thread{
		target:   target,
		api:      api,
		viewer:   viewer,
		now:      time.Now,
		newID:    uuid.NewString,
		comments: []domain.Comment{},
	}
}

// NewLocalThread builds a thread with no backend, seeded with initial.
func NewLocalThread(viewer domain.User, initial []domain.Comment) *Thread {
	t := NewThread(domain.CommentContext{}, nil, viewer)
	if initial != nil {
		t.comments = cloneTree(initial)
	}
	return t
}

// NewThreadWithClock is test-only for deterministic timestamps and ids.
func NewThreadWithClock(target domain.CommentContext, api CommentAPI, viewer domain.User, now func() time.Time, newID func() string) *Thread {
	t := NewThread(target, api, viewer)
	t.now = now
	t.newID = newID
	return t
}

func (t *Thread) backed() bool {
	return t.api != nil && !t.target.IsZero()
}

// Load replaces the tree with the backend's. A newer Load cancels an older one, and a
// response that arrives after a newer Load started is dropped without error.
func (t *Thread) Load(ctx context.Context) error {
	if !t.backed() {
		return nil
	}
	ctx, gen := t.loads.begin(ctx)
	comments, err := t.api.ListComments(ctx, t.target)
	if !t.loads.finish(gen) {
		return nil
	}
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.comments = comments
	t.mu.Unlock()
	return nil
}

// Close aborts an in-flight Load.
func (t *Thread) Close() {
	t.loads.abort()
}

// Post adds a root comment.
func (t *Thread) Post(ctx context.Context, text string) (domain.Comment, error) {
	comment, err := t.compose(ctx, "", text)
	if err != nil {
		return domain.Comment{}, err
	}
	t.mu.Lock()
	t.comments, _ = AddRoot(t.comments, comment)
	t.mu.Unlock()
	return comment, nil
}

// Reply adds a reply under parentID. An unknown parent is a no-op (false, nil).
func (t *Thread) Reply(ctx context.Context, parentID, text string) (domain.Comment, bool, error) {
	if !t.has(parentID) {
		return domain.Comment{}, false, nil
	}
	comment, err := t.compose(ctx, parentID, text)
	if err != nil {
		return domain.Comment{}, false, err
	}
	t.mu.Lock()
	var applied bool
	t.comments, applied = AddReply(t.comments, parentID, comment)
	t.mu.Unlock()
	return comment, applied, nil
}

// Edit replaces the text of id. An unknown id is a no-op.
func (t *Thread) Edit(ctx context.Context, id, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("%w: comment text is required", domain.ErrValidation)
	}
	if !t.has(id) {
		return false, nil
	}
	if t.backed() {
		if err := t.api.UpdateComment(ctx, id, text); err != nil {
			return false, err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var applied bool
	t.comments, applied = EditComment(t.comments, id, text)
	return applied, nil
}

// Delete removes id and its replies. A backend 404 still removes the local copy.
func (t *Thread) Delete(ctx context.Context, id string) (bool, error) {
	if !t.has(id) {
		return false, nil
	}
	if t.backed() {
		if err := t.api.DeleteComment(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var applied bool
	t.comments, applied = DeleteComment(t.comments, id)
	return applied, nil
}

// ToggleLike flips the viewer's like. With a backend the returned counts replace the
// local ones; on failure the tree is left as it was.
func (t *Thread) ToggleLike(ctx context.Context, id string) (domain.Comment, bool, error) {
	if !t.has(id) {
		return domain.Comment{}, false, nil
	}

	t.mu.Lock()
	if !t.backed() {
		var applied bool
		t.comments, applied = ToggleLikeLocal(t.comments, id)
		updated, _ := FindComment(t.comments, id)
		t.mu.Unlock()
		return updated, applied, nil
	}
	t.mu.Unlock()

	state, err := t.api.ToggleLike(ctx, id)
	if err != nil {
		logging.Error("toggle like on comment %s: %v", id, err)
		return domain.Comment{}, false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	var applied bool
	t.comments, applied = SetLike(t.comments, id, state.Liked, state.Likes)
	updated, _ := FindComment(t.comments, id)
	return updated, applied, nil
}

// Report files a moderation report for id. The tree is never touched.
func (t *Thread) Report(ctx context.Context, id string, reason domain.ReportReason) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: unknown report reason %q", domain.ErrValidation, reason)
	}
	if t.api == nil {
		return fmt.Errorf("%w: reporting needs a backend", domain.ErrInvalidTransition)
	}
	return t.api.Report(ctx, domain.Report{
		Reason:         reason,
		ReportableID:   id,
		ReportableType: domain.ReportableComment,
	})
}

// Comments returns a deep copy of the tree with roots ordered by mode.
func (t *Thread) Comments(mode domain.SortMode) []domain.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneTree(SortComments(t.comments, mode))
}

// Tree returns a deep copy of the tree in stored order.
func (t *Thread) Tree() []domain.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneTree(t.comments)
}

func (t *Thread) has(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := FindComment(t.comments, id)
	return ok
}

func (t *Thread) compose(ctx context.Context, parentID, text string) (domain.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Comment{}, fmt.Errorf("%w: comment text is required", domain.ErrValidation)
	}
	if !t.backed() {
		return domain.Comment{
			ID:        t.newID(),
			Author:    t.viewer.Name,
			UserID:    t.viewer.ID,
			Text:      text,
			CreatedAt: t.now(),
			Replies:   []domain.Comment{},
		}, nil
	}

	comment, err := t.api.CreateComment(ctx, t.target, parentID, text)
	if err != nil {
		return domain.Comment{}, err
	}
	if comment.Author == "" {
		comment.Author = t.viewer.Name
	}
	if comment.UserID == "" {
		comment.UserID = t.viewer.ID
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = t.now()
	}
	if comment.ID == "" {
		comment.ID = t.newID()
	}
	return comment, nil
}
