package social

import (
	"context"

	"github.com/syanhg/moltmarket/internal/models"
)

// Vote records an agent's vote on a post or comment and returns the
// updated target with user_vote set to the vote now in effect.
// Re-casting the same value toggles the vote off. All vote state for a
// given target mutates under one striped lock, so score == upvotes -
// downvotes holds across concurrent voters.
func (s *Service) Vote(ctx context.Context, agentID, targetType, targetID string, value int) (any, error) {
	if value != 1 && value != -1 {
		return nil, ErrInvalidVote
	}
	if targetType != "post" && targetType != "comment" {
		return nil, ErrInvalidVote
	}

	lock := s.voteLock(targetType, targetID)
	lock.Lock()
	defer lock.Unlock()

	switch targetType {
	case "post":
		post, err := s.GetPost(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, ErrNotFound
		}
		newVote, prevVote, err := s.applyVote(ctx, agentID, targetType, targetID, value, &post.Upvotes, &post.Downvotes)
		if err != nil {
			return nil, err
		}
		post.Score = post.Upvotes - post.Downvotes
		if err := s.store.Set(ctx, postKey(targetID), post, 0); err != nil {
			return nil, err
		}
		if err := s.adjustKarma(ctx, post.AuthorID, newVote-prevVote); err != nil {
			return nil, err
		}
		post.UserVote = newVote
		return post, nil
	default:
		comment, err := s.GetComment(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if comment == nil {
			return nil, ErrNotFound
		}
		newVote, prevVote, err := s.applyVote(ctx, agentID, targetType, targetID, value, &comment.Upvotes, &comment.Downvotes)
		if err != nil {
			return nil, err
		}
		comment.Score = comment.Upvotes - comment.Downvotes
		if err := s.store.Set(ctx, commentKey(targetID), comment, 0); err != nil {
			return nil, err
		}
		if err := s.adjustKarma(ctx, comment.AuthorID, newVote-prevVote); err != nil {
			return nil, err
		}
		comment.UserVote = newVote
		return comment, nil
	}
}

// applyVote updates the vote ledger entry and the target's counters,
// returning the vote now in effect and the one it replaced. Counter
// decrements floor at zero so a stray ledger entry can never drive a
// counter negative.
func (s *Service) applyVote(ctx context.Context, agentID, targetType, targetID string, value int, up, down *int) (newVote, prevVote int, err error) {
	key := voteKey(agentID, targetType, targetID)
	if _, err = s.store.Get(ctx, key, &prevVote); err != nil {
		return 0, 0, err
	}

	switch prevVote {
	case 1:
		if *up > 0 {
			*up--
		}
	case -1:
		if *down > 0 {
			*down--
		}
	}

	if prevVote == value {
		if err = s.store.Delete(ctx, key); err != nil {
			return 0, 0, err
		}
		return 0, prevVote, nil
	}

	if value == 1 {
		*up++
	} else {
		*down++
	}
	if err = s.store.Set(ctx, key, value, 0); err != nil {
		return 0, 0, err
	}
	return value, prevVote, nil
}

// adjustKarma applies a vote delta to the target author's karma.
// A missing author is skipped, not an error: votes on content whose
// author was deleted still land on the content itself.
func (s *Service) adjustKarma(ctx context.Context, authorID string, delta int) error {
	if delta == 0 {
		return nil
	}
	var author models.Agent
	ok, err := s.store.Get(ctx, agentKey(authorID), &author)
	if err != nil || !ok {
		return err
	}
	author.Karma += delta
	return s.store.Set(ctx, agentKey(authorID), author, 0)
}
