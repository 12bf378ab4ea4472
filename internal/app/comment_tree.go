package app

import (
	"sort"

	"act-academy/internal/domain"
)

// The functions below never mutate their input. Each rebuilds only the path from the
// root to the touched node and shares every other subtree. An unknown id returns the
// input slice unchanged and false.

// AddRoot prepends c to the root level (newest first). A duplicate id is rejected.
func AddRoot(tree []domain.Comment, c domain.Comment) ([]domain.Comment, bool) {
	if _, exists := FindComment(tree, c.ID); exists {
		return tree, false
	}
	if c.Replies == nil {
		c.Replies = []domain.Comment{}
	}
	out := make([]domain.Comment, 0, len(tree)+1)
	out = append(out, c)
	return append(out, tree...), true
}

// AddReply prepends reply to the replies of parentID, at any depth.
func AddReply(tree []domain.Comment, parentID string, reply domain.Comment) ([]domain.Comment, bool) {
	if _, exists := FindComment(tree, reply.ID); exists {
		return tree, false
	}
	if reply.Replies == nil {
		reply.Replies = []domain.Comment{}
	}
	return UpdateComment(tree, parentID, func(parent domain.Comment) domain.Comment {
		replies := make([]domain.Comment, 0, len(parent.Replies)+1)
		replies = append(replies, reply)
		parent.Replies = append(replies, parent.Replies...)
		return parent
	})
}

// EditComment replaces the text of id; every other field and the subtree are kept.
func EditComment(tree []domain.Comment, id, text string) ([]domain.Comment, bool) {
	return UpdateComment(tree, id, func(c domain.Comment) domain.Comment {
		c.Text = text
		return c
	})
}

// SetLike applies the server's like state to id.
func SetLike(tree []domain.Comment, id string, liked bool, likes int) ([]domain.Comment, bool) {
	if likes < 0 {
		likes = 0
	}
	return UpdateComment(tree, id, func(c domain.Comment) domain.Comment {
		c.IsLiked = liked
		c.Likes = likes
		return c
	})
}

// ToggleLikeLocal flips IsLiked and adjusts Likes by one, for threads without a backend.
func ToggleLikeLocal(tree []domain.Comment, id string) ([]domain.Comment, bool) {
	return UpdateComment(tree, id, func(c domain.Comment) domain.Comment {
		c.IsLiked = !c.IsLiked
		if c.IsLiked {
			c.Likes++
		} else if c.Likes > 0 {
			c.Likes--
		}
		return c
	})
}

// UpdateComment replaces the node with the given id by fn(node).
func UpdateComment(tree []domain.Comment, id string, fn func(domain.Comment) domain.Comment) ([]domain.Comment, bool) {
	for i, node := range tree {
		if node.ID == id {
			out := cloneLevel(tree)
			out[i] = fn(node)
			return out, true
		}
		if replies, ok := UpdateComment(node.Replies, id, fn); ok {
			out := cloneLevel(tree)
			out[i].Replies = replies
			return out, true
		}
	}
	return tree, false
}

// DeleteComment removes id and its whole subtree.
func DeleteComment(tree []domain.Comment, id string) ([]domain.Comment, bool) {
	for i, node := range tree {
		if node.ID == id {
			out := make([]domain.Comment, 0, len(tree)-1)
			out = append(out, tree[:i]...)
			return append(out, tree[i+1:]...), true
		}
		if replies, ok := DeleteComment(node.Replies, id); ok {
			out := cloneLevel(tree)
			out[i].Replies = replies
			return out, true
		}
	}
	return tree, false
}

// FindComment locates id at any depth.
func FindComment(tree []domain.Comment, id string) (domain.Comment, bool) {
	for _, node := range tree {
		if node.ID == id {
			return node, true
		}
		if found, ok := FindComment(node.Replies, id); ok {
			return found, true
		}
	}
	return domain.Comment{}, false
}

// CountComments counts every node in the tree.
func CountComments(tree []domain.Comment) int {
	n := len(tree)
	for _, node := range tree {
		n += CountComments(node.Replies)
	}
	return n
}

// SortComments returns the root level ordered by mode; replies keep their order.
// Ties keep their original relative order. Unknown modes return a copy unchanged.
func SortComments(tree []domain.Comment, mode domain.SortMode) []domain.Comment {
	out := cloneLevel(tree)
	switch mode {
	case domain.SortRecent:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case domain.SortTop:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Likes > out[j].Likes
		})
	}
	return out
}

func cloneLevel(tree []domain.Comment) []domain.Comment {
	out := make([]domain.Comment, len(tree))
	copy(out, tree)
	return out
}

// cloneTree deep-copies the tree so callers can never alias internal state.
func cloneTree(tree []domain.Comment) []domain.Comment {
	if tree == nil {
		return nil
	}
	out := make([]domain.Comment, len(tree))
	for i, node := range tree {
		out[i] = node
		out[i].Replies = cloneTree(node.Replies)
	}
	return out
}
