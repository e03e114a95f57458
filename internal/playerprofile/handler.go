package playerprofile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPHandler holds dependencies for profile-related HTTP requests.
type HTTPHandler struct {
	svc Service
}

func NewHTTPHandler(svc Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]string{"error": message})
}

// HandleGetProfile is the HTTP handler for GET /profiles/{playerID}.
func (h *HTTPHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.svc.GetProfile(ctx, playerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPlayerID):
			h.writeError(w, http.StatusBadRequest, "Player ID is required in the URL path")
		case errors.Is(err, ErrProfileNotFound):
			h.writeError(w, http.StatusNotFound, "Profile not found")
		default:
			h.writeError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}
