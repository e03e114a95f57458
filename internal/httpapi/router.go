package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cheildo/nexus-checkers/internal/auth"
	"github.com/cheildo/nexus-checkers/internal/gamemaster"
	"github.com/cheildo/nexus-checkers/internal/leaderboard"
	"github.com/cheildo/nexus-checkers/internal/matcharchive"
	"github.com/cheildo/nexus-checkers/internal/playerprofile"
)

// MatchReader exposes read-only match state.
type MatchReader interface {
	MatchState(ctx context.Context, id gamemaster.MatchID) (gamemaster.StateSnapshot, error)
}

// ConnectionCounter reports the number of connected players.
type ConnectionCounter interface {
	Count() int
}

// Deps are the handlers and stores the router serves. Nil optional parts leave their routes unmounted.
type Deps struct {
	Websocket   http.Handler
	Matches     MatchReader
	Connections ConnectionCounter
	Auth        *auth.HTTPHandler          // optional
	Profiles    *playerprofile.HTTPHandler // optional
	Archive     matcharchive.Repository    // optional
	Leaderboard leaderboard.Board          // optional
}

type handler struct {
	deps Deps
}

// NewRouter builds the HTTP surface of the game master service.
func NewRouter(deps Deps) http.Handler {
	h := &handler{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The websocket endpoint is long-lived, so it sits outside the logger and timeout middleware.
	r.Handle("/ws", deps.Websocket)
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/api/v1", func(r chi.Router) {
			if deps.Auth != nil {
				r.Post("/auth/register", deps.Auth.HandleRegister)
				r.Post("/auth/login", deps.Auth.HandleLogin)
			}
			if deps.Profiles != nil {
				r.Get("/profiles/{playerID}", deps.Profiles.HandleGetProfile)
			}
			r.Get("/matches/{matchID}", h.handleGetMatch)
			if deps.Leaderboard != nil {
				r.Get("/leaderboard", h.handleLeaderboard)
			}
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "OK"}
	if h.deps.Connections != nil {
		resp["connections"] = h.deps.Connections.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetMatch serves GET /matches/{matchID}: live state while the match is in memory,
// the archived result afterwards.
func (h *handler) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "matchID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Match ID must be a non-negative integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	snap, err := h.deps.Matches.MatchState(ctx, gamemaster.MatchID(id))
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"match_id": id, "live": true, "state": snap})
		return
	}
	if !errors.Is(err, gamemaster.ErrMatchNotFound) {
		writeError(w, http.StatusServiceUnavailable, "Game master unavailable")
		return
	}

	if h.deps.Archive == nil {
		writeError(w, http.StatusNotFound, "Match not found")
		return
	}
	res, err := h.deps.Archive.Get(ctx, gamemaster.MatchID(id))
	if err != nil {
		if errors.Is(err, matcharchive.ErrResultNotFound) {
			writeError(w, http.StatusNotFound, "Match not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to retrieve match")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"match_id": id, "live": false, "result": res})
}

func (h *handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := h.deps.Leaderboard.Top(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
