package domain

import "time"

// Comment is a node in a comment thread; Replies nest to any depth.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	IsLiked   bool      `json:"isLiked"`
	CreatedAt time.Time `json:"createdAt"`
	Replies   []Comment `json:"replies"`
}

// CommentContext identifies what a thread is attached to, e.g. {"course", "42"}.
type CommentContext struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// IsZero reports whether no context was provided (local-only thread).
func (c CommentContext) IsZero() bool {
	return c.Type == "" && c.ID == ""
}

// SortMode selects the root ordering of a thread.
type SortMode string

const (
	SortRecent SortMode = "recent"
	SortTop    SortMode = "top"
)

// LikeState is the server's answer to a like toggle.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes_count"`
}

// ReportReason is a moderation reason code.
type ReportReason string

const (
	ReasonSpam           ReportReason = "spam"
	ReasonHarassment     ReportReason = "harassment"
	ReasonInappropriate  ReportReason = "inappropriate"
	ReasonMisinformation ReportReason = "misinformation"
	ReasonOther          ReportReason = "other"
)

// Valid reports whether r is a known reason code.
func (r ReportReason) Valid() bool {
	return validate.Var(string(r), "required,oneof=spam harassment inappropriate misinformation other") == nil
}

// Reportable types accepted by the moderation endpoint.
const (
	ReportableComment = "comment"
	ReportableMessage = "message"
)

// Report is a moderation request for one comment or message.
type Report struct {
	Reason         ReportReason `json:"reason" validate:"required,oneof=spam harassment inappropriate misinformation other"`
	ReportableID   string       `json:"reportable_id" validate:"required"`
	ReportableType string       `json:"reportable_type" validate:"required,oneof=comment message"`
}

// Validate checks the reason code and the reported target.
func (r Report) Validate() error {
	return check("report", r)
}
