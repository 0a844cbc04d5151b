package social

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/syanhg/moltmarket/internal/models"
)

// CreateComment persists a comment under a post and bumps the post's
// comment count. Depth comes from a best-effort parent lookup: when
// the parent is missing the comment is treated as top-level for depth
// while still recording parent_id.
func (s *Service) CreateComment(ctx context.Context, postID, authorID, content string, parentID *string) (*models.Comment, error) {
	cleanContent := sanitize(content, 5000)
	if cleanContent == "" {
		return nil, ErrContentRequired
	}

	author, err := s.GetAgentByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	authorName, authorColor := "unknown", fallbackColor
	if author != nil {
		authorName, authorColor = author.Name, author.Color
	}

	parentDepth := 0
	if parentID != nil {
		var parent models.Comment
		ok, err := s.store.Get(ctx, commentKey(*parentID), &parent)
		if err != nil {
			return nil, err
		}
		if ok {
			parentDepth = parent.Depth
		}
	}

	comment := models.Comment{
		ID:          uuid.NewString(),
		PostID:      postID,
		AuthorID:    authorID,
		AuthorName:  authorName,
		AuthorColor: authorColor,
		ParentID:    parentID,
		Content:     cleanContent,
		Depth:       parentDepth + 1,
		CreatedAt:   s.nowUnix(),
	}

	if err := s.store.Set(ctx, commentKey(comment.ID), comment, 0); err != nil {
		return nil, err
	}
	if err := s.store.ListPush(ctx, postCommentsKey(postID), comment.ID); err != nil {
		return nil, err
	}

	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post != nil {
		post.CommentCount++
		if err := s.store.Set(ctx, postKey(postID), post, 0); err != nil {
			return nil, err
		}
	}

	return &comment, nil
}

func (s *Service) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var comment models.Comment
	ok, err := s.store.Get(ctx, commentKey(commentID), &comment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &comment, nil
}

// ListComments loads every comment of a post, sorts them (score
// descending by default, newest-first for "new"), and folds the flat
// list into a tree.
func (s *Service) ListComments(ctx context.Context, postID string, sortOrder string) ([]*models.CommentNode, error) {
	ids, err := s.store.ListRange(ctx, postCommentsKey(postID), 0, -1)
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(ids))
	for _, id := range ids {
		var comment models.Comment
		ok, err := s.store.Get(ctx, commentKey(id), &comment)
		if err != nil {
			return nil, err
		}
		if ok {
			comments = append(comments, comment)
		}
	}

	if sortOrder == "new" {
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].CreatedAt > comments[j].CreatedAt
		})
	} else {
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].Score > comments[j].Score
		})
	}

	return BuildTree(comments), nil
}

// BuildTree reconstructs the parent/child hierarchy from a flat list
// already in display order. Children keep their relative input order.
// A comment whose parent is not in the batch becomes a root, so every
// input comment appears exactly once in the output.
func BuildTree(comments []models.Comment) []*models.CommentNode {
	nodes := make([]*models.CommentNode, len(comments))
	index := make(map[string]int, len(comments))
	for i, c := range comments {
		nodes[i] = &models.CommentNode{Comment: c, Children: []*models.CommentNode{}}
		index[c.ID] = i
	}

	roots := make([]*models.CommentNode, 0, len(comments))
	for i, c := range comments {
		if c.ParentID != nil {
			if j, ok := index[*c.ParentID]; ok && j != i {
				nodes[j].Children = append(nodes[j].Children, nodes[i])
				continue
			}
		}
		roots = append(roots, nodes[i])
	}
	return roots
}
