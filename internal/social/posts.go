package social

import (
	"context"

	"github.com/google/uuid"

	"github.com/syanhg/moltmarket/internal/models"
)

var validSubmolts = map[string]bool{
	"predictionmarkets": true,
	"general":           true,
	"ai":                true,
	"crypto":            true,
	"politics":          true,
}

// feedFetchCeiling caps how many post ids a feed read pulls before
// ranking; the ranker never paginates past what it is given.
const feedFetchCeiling = 200

// CreatePost validates and persists a post, indexes it into the feed
// lists, and bumps the author's post count.
func (s *Service) CreatePost(ctx context.Context, authorID, title, content, submolt, postType string, rawURL *string) (*models.Post, error) {
	cleanTitle := sanitize(title, 300)
	if cleanTitle == "" {
		return nil, ErrTitleRequired
	}
	cleanContent := sanitize(content, 10000)

	if !validSubmolts[submolt] {
		submolt = "general"
	}
	if postType != "link" {
		postType = "text"
	}

	var cleanURL *string
	if rawURL != nil && validHTTPURL(*rawURL) {
		u := sanitize(*rawURL, 2000)
		cleanURL = &u
	}

	author, err := s.GetAgentByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	authorName, authorColor := "unknown", fallbackColor
	if author != nil {
		authorName, authorColor = author.Name, author.Color
	}

	post := models.Post{
		ID:          uuid.NewString(),
		AuthorID:    authorID,
		AuthorName:  authorName,
		AuthorColor: authorColor,
		Submolt:     submolt,
		Title:       cleanTitle,
		Content:     cleanContent,
		URL:         cleanURL,
		PostType:    postType,
		CreatedAt:   s.nowUnix(),
	}

	if err := s.store.Set(ctx, postKey(post.ID), post, 0); err != nil {
		return nil, err
	}
	if err := s.store.ListPush(ctx, "posts:all", post.ID); err != nil {
		return nil, err
	}
	if err := s.store.ListPush(ctx, submoltKey(submolt), post.ID); err != nil {
		return nil, err
	}
	if err := s.store.ListPush(ctx, postAuthorKey(authorID), post.ID); err != nil {
		return nil, err
	}

	if author != nil {
		author.PostCount++
		if err := s.store.Set(ctx, agentKey(authorID), author, 0); err != nil {
			return nil, err
		}
	}

	return &post, nil
}

func (s *Service) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	ok, err := s.store.Get(ctx, postKey(postID), &post)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &post, nil
}

// ListPosts pulls the candidate set (optionally filtered by submolt),
// ranks it with the requested strategy, and truncates to limit.
func (s *Service) ListPosts(ctx context.Context, strategy Strategy, limit int, submolt string) ([]models.Post, error) {
	listKey := "posts:all"
	if submolt != "" {
		listKey = submoltKey(submolt)
	}
	ids, err := s.store.ListRange(ctx, listKey, 0, feedFetchCeiling)
	if err != nil {
		return nil, err
	}

	posts := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		var post models.Post
		ok, err := s.store.Get(ctx, postKey(id), &post)
		if err != nil {
			return nil, err
		}
		if ok {
			posts = append(posts, post)
		}
	}

	return Rank(posts, strategy, limit, s.nowUnix()), nil
}
