package social

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/syanhg/moltmarket/internal/auth"
	"github.com/syanhg/moltmarket/internal/models"
)

// Register creates an agent and returns it with the one-time
// plaintext API key.
func (s *Service) Register(ctx context.Context, name, description, mcpURL string) (*models.Registration, error) {
	if !validAgentName(name) {
		return nil, ErrInvalidName
	}
	var existingID string
	taken, err := s.store.Get(ctx, agentNameKey(name), &existingID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrNameTaken
	}
	if !validHTTPURL(mcpURL) {
		return nil, fmt.Errorf("mcp_url: %w", ErrInvalidURL)
	}

	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	keyHash := auth.HashAPIKey(apiKey)

	agent := models.Agent{
		ID:          uuid.NewString(),
		Name:        name,
		Description: sanitize(description, 500),
		Color:       colorFor(name),
		MCPURL:      mcpURL,
		APIKeyHash:  keyHash,
		Status:      "active",
		CreatedAt:   s.nowUnix(),
	}

	if err := s.store.Set(ctx, agentKey(agent.ID), agent, 0); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, agentNameKey(name), agent.ID, 0); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, agentAPIKey(keyHash), agent.ID, 0); err != nil {
		return nil, err
	}

	return &models.Registration{Agent: agent, APIKey: apiKey}, nil
}

// Authenticate resolves an API key to its agent, or nil when the key
// is unknown or malformed.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (*models.Agent, error) {
	if apiKey == "" || !auth.HasKeyPrefix(apiKey) {
		return nil, nil
	}
	var agentID string
	ok, err := s.store.Get(ctx, agentAPIKey(auth.HashAPIKey(apiKey)), &agentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.GetAgentByID(ctx, agentID)
}

func (s *Service) GetAgentByID(ctx context.Context, agentID string) (*models.Agent, error) {
	var agent models.Agent
	ok, err := s.store.Get(ctx, agentKey(agentID), &agent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &agent, nil
}

func (s *Service) GetAgentByName(ctx context.Context, name string) (*models.Agent, error) {
	var agentID string
	ok, err := s.store.Get(ctx, agentNameKey(name), &agentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return s.GetAgentByID(ctx, agentID)
}

// ListAgents returns every registered agent with the key hash
// stripped.
func (s *Service) ListAgents(ctx context.Context) ([]models.Agent, error) {
	keys, err := s.store.Keys(ctx, "agent:*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	agents := make([]models.Agent, 0, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k, "agent:") {
			continue
		}
		var agent models.Agent
		ok, err := s.store.Get(ctx, k, &agent)
		if err != nil {
			return nil, err
		}
		if ok {
			agents = append(agents, agent.Public())
		}
	}
	return agents, nil
}

// AgentUpdates carries the caller-editable fields; nil means "leave
// unchanged".
type AgentUpdates struct {
	Description *string
	MCPURL      *string
	DisplayName *string
}

func (s *Service) UpdateAgent(ctx context.Context, agentID string, updates AgentUpdates) (*models.Agent, error) {
	agent, err := s.GetAgentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNotFound
	}
	if updates.Description != nil {
		agent.Description = sanitize(*updates.Description, 500)
	}
	if updates.MCPURL != nil && validHTTPURL(*updates.MCPURL) {
		agent.MCPURL = *updates.MCPURL
	}
	if updates.DisplayName != nil {
		agent.DisplayName = sanitize(*updates.DisplayName, 100)
	}
	if err := s.store.Set(ctx, agentKey(agentID), agent, 0); err != nil {
		return nil, err
	}
	return agent, nil
}

func followKey(followerID, targetID string) string {
	return fmt.Sprintf("follow:%s:%s", followerID, targetID)
}

// Follow records follower -> target and bumps both counters. Returns
// the target's new follower count.
func (s *Service) Follow(ctx context.Context, followerID, targetID string) (int, error) {
	if followerID == targetID {
		return 0, ErrSelfFollow
	}
	var already bool
	ok, err := s.store.Get(ctx, followKey(followerID, targetID), &already)
	if err != nil {
		return 0, err
	}
	if ok && already {
		return 0, ErrAlreadyFollowing
	}

	target, err := s.GetAgentByID(ctx, targetID)
	if err != nil {
		return 0, err
	}
	if target == nil {
		return 0, ErrNotFound
	}
	follower, err := s.GetAgentByID(ctx, followerID)
	if err != nil {
		return 0, err
	}
	if follower == nil {
		return 0, ErrNotFound
	}

	if err := s.store.Set(ctx, followKey(followerID, targetID), true, 0); err != nil {
		return 0, err
	}
	if err := s.store.ListPush(ctx, "followers:"+targetID, followerID); err != nil {
		return 0, err
	}
	if err := s.store.ListPush(ctx, "following:"+followerID, targetID); err != nil {
		return 0, err
	}

	target.FollowerCount++
	follower.FollowingCount++
	if err := s.store.Set(ctx, agentKey(targetID), target, 0); err != nil {
		return 0, err
	}
	if err := s.store.Set(ctx, agentKey(followerID), follower, 0); err != nil {
		return 0, err
	}
	return target.FollowerCount, nil
}

// Unfollow removes the follow edge and decrements both counters,
// floored at zero.
func (s *Service) Unfollow(ctx context.Context, followerID, targetID string) (int, error) {
	var following bool
	ok, err := s.store.Get(ctx, followKey(followerID, targetID), &following)
	if err != nil {
		return 0, err
	}
	if !ok || !following {
		return 0, ErrNotFollowing
	}

	target, err := s.GetAgentByID(ctx, targetID)
	if err != nil {
		return 0, err
	}
	if target == nil {
		return 0, ErrNotFound
	}
	follower, err := s.GetAgentByID(ctx, followerID)
	if err != nil {
		return 0, err
	}
	if follower == nil {
		return 0, ErrNotFound
	}

	if err := s.store.Delete(ctx, followKey(followerID, targetID)); err != nil {
		return 0, err
	}

	target.FollowerCount = max(target.FollowerCount-1, 0)
	follower.FollowingCount = max(follower.FollowingCount-1, 0)
	if err := s.store.Set(ctx, agentKey(targetID), target, 0); err != nil {
		return 0, err
	}
	if err := s.store.Set(ctx, agentKey(followerID), follower, 0); err != nil {
		return 0, err
	}
	return target.FollowerCount, nil
}
