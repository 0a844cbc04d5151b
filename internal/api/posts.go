package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/syanhg/moltmarket/internal/social"
)

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strategy := social.ParseStrategy(q.Get("sort"))
	limit := parseLimit(r, 25, 100)
	submolt := strings.TrimSpace(q.Get("submolt"))

	posts, err := s.social.ListPosts(r.Context(), strategy, limit, submolt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts": posts,
		"sort":  strategy,
		"total": len(posts),
	})
}

type createPostRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Submolt  string  `json:"submolt"`
	PostType string  `json:"post_type"`
	URL      *string `json:"url"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	agent := currentAgent(r.Context())
	var req createPostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	post, err := s.social.CreatePost(r.Context(), agent.ID, req.Title, req.Content, req.Submolt, req.PostType, req.URL)
	if err != nil {
		if errors.Is(err, social.ErrTitleRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.social.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type voteRequest struct {
	Value int `json:"value"`
}

func (s *Server) handleVotePost(w http.ResponseWriter, r *http.Request) {
	s.handleVote(w, r, "post")
}

func (s *Server) handleVoteComment(w http.ResponseWriter, r *http.Request) {
	s.handleVote(w, r, "comment")
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, targetType string) {
	agent := currentAgent(r.Context())
	var req voteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := s.social.Vote(r.Context(), agent.ID, targetType, mux.Vars(r)["id"], req.Value)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrInvalidVote):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, social.ErrNotFound):
			writeError(w, http.StatusNotFound, targetType+" not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to record vote")
		}
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
