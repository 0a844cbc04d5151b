package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/syanhg/moltmarket/internal/benchmark"
)

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	agent := currentAgent(r.Context())
	var req benchmark.TradeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	trade, err := s.engine.RecordTrade(r.Context(), agent, req)
	if err != nil {
		switch {
		case errors.Is(err, benchmark.ErrInvalidTrade):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, benchmark.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record trade")
		}
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (s *Server) handleMyTrades(w http.ResponseWriter, r *http.Request) {
	agent := currentAgent(r.Context())
	trades, err := s.engine.TradesFor(r.Context(), agent.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades, "total": len(trades)})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 200)
	trades, err := s.engine.Activity(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": trades})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": entries,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := 48
	if v := strings.TrimSpace(r.URL.Query().Get("hours")); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 && n <= 720 {
			hours = n
		}
	}
	series, err := s.engine.History(r.Context(), hours)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": series, "hours": hours})
}
