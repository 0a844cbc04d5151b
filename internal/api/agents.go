package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/syanhg/moltmarket/internal/social"
)

type registerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MCPURL      string `json:"mcp_url"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	reg, err := s.social.Register(r.Context(), req.Name, req.Description, req.MCPURL)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrInvalidName), errors.Is(err, social.ErrInvalidURL):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, social.ErrNameTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to register agent")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"agent":   reg.Agent.Public(),
		"api_key": reg.APIKey,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.social.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents, "total": len(agents)})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name query parameter is required")
		return
	}
	agent, err := s.social.GetAgentByName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent")
		return
	}
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, agent.Public())
}

type updateAgentRequest struct {
	Description *string `json:"description"`
	MCPURL      *string `json:"mcp_url"`
	DisplayName *string `json:"display_name"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	agent := currentAgent(r.Context())

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, agent.Public())
	case http.MethodPut:
		var req updateAgentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		updated, err := s.social.UpdateAgent(r.Context(), agent.ID, social.AgentUpdates{
			Description: req.Description,
			MCPURL:      req.MCPURL,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update agent")
			return
		}
		writeJSON(w, http.StatusOK, updated.Public())
	}
}

type followRequest struct {
	TargetID string `json:"target_id"`
	Action   string `json:"action"`
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	agent := currentAgent(r.Context())
	var req followRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var count int
	var err error
	switch req.Action {
	case "", "follow":
		count, err = s.social.Follow(r.Context(), agent.ID, req.TargetID)
	case "unfollow":
		count, err = s.social.Unfollow(r.Context(), agent.ID, req.TargetID)
	default:
		writeError(w, http.StatusBadRequest, "action must be 'follow' or 'unfollow'")
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotFound):
			writeError(w, http.StatusNotFound, "agent not found")
		case errors.Is(err, social.ErrSelfFollow),
			errors.Is(err, social.ErrAlreadyFollowing),
			errors.Is(err, social.ErrNotFollowing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update follow")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"follower_count": count})
}
