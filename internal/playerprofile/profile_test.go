package playerprofile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type memoryRepo struct {
	profiles map[string]*Profile
	err      error
}

func (m *memoryRepo) GetProfile(ctx context.Context, playerID string) (*Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[playerID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func TestService_GetProfile(t *testing.T) {
	svc := NewService(&memoryRepo{profiles: map[string]*Profile{
		"ann": {PlayerID: "ann", MatchesPlayed: 3, Wins: 2, Losses: 1},
	}})

	p, err := svc.GetProfile(context.Background(), " ann ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Wins != 2 || p.Losses != 1 {
		t.Errorf("unexpected profile: %+v", p)
	}

	if _, err := svc.GetProfile(context.Background(), "  "); !errors.Is(err, ErrInvalidPlayerID) {
		t.Errorf("expected ErrInvalidPlayerID, got %v", err)
	}
}

func TestHTTPHandler_GetProfile(t *testing.T) {
	repo := &memoryRepo{profiles: map[string]*Profile{
		"ann": {PlayerID: "ann", Username: "annie", MatchesPlayed: 1, Wins: 1},
	}}
	r := chi.NewRouter()
	r.Get("/profiles/{playerID}", NewHTTPHandler(NewService(repo)).HandleGetProfile)

	tests := []struct {
		name     string
		path     string
		repoErr  error
		wantCode int
	}{
		{"known player", "/profiles/ann", nil, http.StatusOK},
		{"unknown player", "/profiles/bob", nil, http.StatusNotFound},
		{"database failure", "/profiles/ann", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.err = tt.repoErr
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			var p Profile
			if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if p.Username != "annie" || p.Wins != 1 {
				t.Errorf("unexpected profile: %+v", p)
			}
		})
	}
}
