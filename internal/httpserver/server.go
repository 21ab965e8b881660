// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the card duel backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/rooms".
//   - Game transport: the /ws WebSocket (see ws.go).
//   - Accounts (routes_auth.go) and the results ledger (routes_results.go)
//     when a database is configured.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - /ws is mounted outside the timeout group; its connection outlives any
//     request deadline.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/cardduel/apps/go-server/internal/auth"
	"github.com/robalobadob/cardduel/apps/go-server/internal/engine"
	"github.com/robalobadob/cardduel/apps/go-server/internal/protocol"
	"github.com/robalobadob/cardduel/apps/go-server/internal/session"
	"github.com/robalobadob/cardduel/apps/go-server/internal/store"
)

// Game is the engine surface the transport drives.
type Game interface {
	Connect(conn string, p session.Profile)
	Handle(conn string, in protocol.Inbound)
	Disconnect(conn string)
	Stats(ctx context.Context) (engine.Stats, error)
}

// Results is the read side of the results ledger.
type Results interface {
	RecentResults(ctx context.Context, limit int) ([]store.MatchResult, error)
	Leaderboard(ctx context.Context, limit int) ([]store.LBRow, error)
	FindUserByID(ctx context.Context, id string) (*store.User, error)
}

// Options configures a Server. Results and Auth may be nil, which turns the
// account and ledger endpoints into 503s.
type Options struct {
	Game         Game
	Hub          *Hub
	Results      Results
	Auth         *auth.Service
	CookieName   string
	ClientOrigin string
	Production   bool
}

// Server bundles router, engine and optional persistence.
type Server struct {
	r        *chi.Mux
	opts     Options
	upgrader websocket.Upgrader
	http     *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.CookieName == "" {
		opts.CookieName = "duel_token"
	}
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), opts: opts}
	s.http = &http.Server{Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Game transport, no handler timeout
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"cardduel-go","endpoints":["/health","/ws","/debug/rooms","/auth/*","/matches/recent","/leaderboard"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/debug/rooms", s.handleDebugRooms)

		// Auth + profile/stats
		s.mountAuthRoutes(r)

		// Results ledger
		s.mountResults(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr and blocks until Shutdown or failure.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every live socket and waits
// until each socket's disconnect has been handed to the engine.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.opts.Hub == nil {
		return s.http.Shutdown(ctx)
	}
	s.opts.Hub.CloseAll()
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return s.opts.Hub.Wait(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleDebugRooms(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Game.Stats(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("engine stats")
		http.Error(w, `{"error":"engine_unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	if st.ActiveRooms == nil {
		st.ActiveRooms = []string{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":         len(st.ActiveRooms),
		"activeRooms":   st.ActiveRooms,
		"waiting":       st.Waiting,
		"connections":   st.Connections,
		"pendingTimers": st.Timers,
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.opts.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits any origin outside production; in production only the
// configured client origin (or none, for non-browser clients).
func (s *Server) checkOrigin(r *http.Request) bool {
	if !s.opts.Production {
		return true
	}
	o := r.Header.Get("Origin")
	return o == "" || o == s.opts.ClientOrigin
}
