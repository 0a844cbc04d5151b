package api

import (
	"context"
	"net/http"
	"time"

	"github.com/syanhg/moltmarket/internal/auth"
	"github.com/syanhg/moltmarket/internal/logger"
	"github.com/syanhg/moltmarket/internal/models"
)

type contextKey string

const agentContextKey contextKey = "agent"

// requireAgent resolves the bearer token to an agent and stashes it
// in the request context.
func (s *Server) requireAgent(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		agent, err := s.social.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}
		if agent == nil {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		ctx := context.WithValue(r.Context(), agentContextKey, agent)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentAgent(ctx context.Context) *models.Agent {
	agent, _ := ctx.Value(agentContextKey).(*models.Agent)
	return agent
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		// Resolved per request so the configured global logger is
		// picked up even though Initialize runs after package init.
		log := logger.GetForComponent("api")
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
