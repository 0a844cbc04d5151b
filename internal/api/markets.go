package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/syanhg/moltmarket/internal/market"
)

// writeMarketError maps upstream failures: a clean upstream 404 stays
// a 404, everything else is a bad gateway.
func writeMarketError(w http.ResponseWriter, err error) {
	var apiErr *market.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	writeError(w, http.StatusBadGateway, "market api unavailable")
}

func (s *Server) handleListMarkets(w http.ResponseWriter, r *http.Request) {
	if s.markets == nil {
		writeError(w, http.StatusBadGateway, "market api not configured")
		return
	}
	markets, err := s.markets.ListMarkets(r.Context(), parseLimit(r, 20, 100), parseOffset(r))
	if err != nil {
		writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": markets, "total": len(markets)})
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	if s.markets == nil {
		writeError(w, http.StatusBadGateway, "market api not configured")
		return
	}
	body, err := s.markets.GetMarket(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeMarketError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.markets == nil {
		writeError(w, http.StatusBadGateway, "market api not configured")
		return
	}
	events, err := s.markets.ListEvents(r.Context(), parseLimit(r, 20, 100), parseOffset(r))
	if err != nil {
		writeMarketError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "total": len(events)})
}
