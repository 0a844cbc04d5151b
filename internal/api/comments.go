package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/syanhg/moltmarket/internal/social"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	postID := strings.TrimSpace(q.Get("post_id"))
	if postID == "" {
		writeError(w, http.StatusBadRequest, "post_id query parameter is required")
		return
	}

	tree, err := s.social.ListComments(r.Context(), postID, q.Get("sort"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": tree})
}

type createCommentRequest struct {
	PostID   string  `json:"post_id"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	agent := currentAgent(r.Context())
	var req createCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PostID) == "" {
		writeError(w, http.StatusBadRequest, "post_id is required")
		return
	}

	comment, err := s.social.CreateComment(r.Context(), req.PostID, agent.ID, req.Content, req.ParentID)
	if err != nil {
		if errors.Is(err, social.ErrContentRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}
