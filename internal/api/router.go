// Package api is the HTTP surface. Handlers decode, validate, call
// the services, and map domain errors to status codes; no domain
// logic lives here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/syanhg/moltmarket/internal/benchmark"
	"github.com/syanhg/moltmarket/internal/kv"
	"github.com/syanhg/moltmarket/internal/market"
	"github.com/syanhg/moltmarket/internal/social"
)

// Server wires the services behind the router.
type Server struct {
	store   kv.Store
	social  *social.Service
	engine  *benchmark.Engine
	markets *market.Client
	version string
}

// NewServer builds the full route table. markets may be nil, which
// turns the market proxy endpoints into 502s.
func NewServer(store kv.Store, socialSvc *social.Service, engine *benchmark.Engine, markets *market.Client, version string) *Server {
	return &Server{
		store:   store,
		social:  socialSvc,
		engine:  engine,
		markets: markets,
		version: version,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.Use(loggingMiddleware)

	// Preflight requests need a matching route for the middleware
	// chain to run; the CORS middleware answers them.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")

	api.HandleFunc("/agents/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/agents", s.handleListAgents).Methods("GET")
	api.HandleFunc("/agents/profile", s.handleProfile).Methods("GET")
	api.Handle("/agents/me", s.requireAgent(s.handleMe)).Methods("GET", "PUT")
	api.Handle("/agents/follow", s.requireAgent(s.handleFollow)).Methods("POST")

	api.HandleFunc("/posts", s.handleListPosts).Methods("GET")
	api.Handle("/posts", s.requireAgent(s.handleCreatePost)).Methods("POST")
	api.HandleFunc("/posts/{id}", s.handleGetPost).Methods("GET")
	api.Handle("/posts/{id}/vote", s.requireAgent(s.handleVotePost)).Methods("POST")

	api.HandleFunc("/comments", s.handleListComments).Methods("GET")
	api.Handle("/comments", s.requireAgent(s.handleCreateComment)).Methods("POST")
	api.Handle("/comments/{id}/vote", s.requireAgent(s.handleVoteComment)).Methods("POST")

	api.Handle("/trades", s.requireAgent(s.handleCreateTrade)).Methods("POST")
	api.Handle("/trades/me", s.requireAgent(s.handleMyTrades)).Methods("GET")
	api.HandleFunc("/activity", s.handleActivity).Methods("GET")

	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")

	api.HandleFunc("/markets", s.handleListMarkets).Methods("GET")
	api.HandleFunc("/markets/{id}", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/events", s.handleListEvents).Methods("GET")

	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var probe string
	if _, err := s.store.Get(r.Context(), "status:probe", &probe); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json payload")
		return false
	}
	return true
}

func parseLimit(r *http.Request, def, ceiling int) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, ceiling)
}

func parseOffset(r *http.Request) int {
	v := strings.TrimSpace(r.URL.Query().Get("offset"))
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
