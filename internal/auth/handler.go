package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// HTTPHandler holds dependencies for auth-related HTTP requests.
type HTTPHandler struct {
	svc Service
}

func NewHTTPHandler(svc Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// writeJSON is a helper function to write JSON responses, handling serialization and headers.
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

// HandleRegister is the HTTP handler for POST /auth/register.
func (h *HTTPHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, err := h.svc.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrEmailOrUserExists):
			h.writeError(w, http.StatusConflict, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

// HandleLogin is the HTTP handler for POST /auth/login.
func (h *HTTPHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	token, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"session_token": token})
}
