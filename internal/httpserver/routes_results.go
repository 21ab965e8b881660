// apps/go-server/internal/httpserver/routes_results.go
//
// Read-only routes over the results ledger:
//   - GET /matches/recent?limit=N → most recent finished matches
//   - GET /leaderboard?limit=N    → signed-in players ranked by wins
//
// Both answer 503 when the server runs without a database.

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

const maxListLimit = 100

// lbRes is returned by /leaderboard.
type lbRes struct {
	Top []store.LBRow `json:"top"`
}

// recentRes is returned by /matches/recent.
type recentRes struct {
	Matches []store.MatchResult `json:"matches"`
}

// mountResults registers the ledger routes.
func (s *Server) mountResults(r chi.Router) {
	r.Get("/matches/recent", s.handleRecent)
	r.Get("/leaderboard", s.handleLeaderboard)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.opts.Results == nil {
		http.Error(w, `{"error":"persistence_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	rows, err := s.opts.Results.RecentResults(r.Context(), listLimit(r, 20))
	if err != nil {
		log.Error().Err(err).Msg("recent results")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.MatchResult{}
	}
	_ = json.NewEncoder(w).Encode(recentRes{Matches: rows})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.opts.Results == nil {
		http.Error(w, `{"error":"persistence_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	rows, err := s.opts.Results.Leaderboard(r.Context(), listLimit(r, 20))
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.LBRow{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Top: rows})
}

// listLimit reads ?limit=, clamped to [1, maxListLimit].
func listLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxListLimit)
}
