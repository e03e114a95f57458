package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepository struct {
	users map[string]*User
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: make(map[string]*User)}
}

func (r *memoryRepository) CreateUser(ctx context.Context, email, username, hashedPassword string) (string, error) {
	if _, ok := r.users[email]; ok {
		return "", ErrEmailOrUserExists
	}
	id := "user-" + username
	r.users[email] = &User{ID: id, Email: email, Username: username, PasswordHash: hashedPassword}
	return id, nil
}

func (r *memoryRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

var testConfig = Config{JWTSecret: "test-secret", TokenDuration: time.Hour}

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, testConfig)
	ctx := context.Background()

	id, err := svc.Register(ctx, "ann@example.com", "ann", "correct-horse")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(repo.users["ann@example.com"].PasswordHash), []byte("correct-horse")); err != nil {
		t.Fatal("stored hash does not match the password")
	}

	token, err := svc.Login(ctx, "ann@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := NewTokens(testConfig).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != id || claims.Username != "ann" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(ctx, "ann@example.com", "wrong-password"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for a bad password, got %v", err)
	}
	if _, err := svc.Register(ctx, "ann@example.com", "ann2", "another-pass"); !errors.Is(err, ErrEmailOrUserExists) {
		t.Errorf("expected ErrEmailOrUserExists, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "bob", "short"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTokens_Verify(t *testing.T) {
	tokens := NewTokens(testConfig)
	token, err := tokens.Issue(&User{ID: "u1", Username: "ann"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokens(Config{JWTSecret: "other", TokenDuration: time.Hour})
		if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokens(Config{JWTSecret: "test-secret", TokenDuration: -time.Minute})
		stale, err := expired.Issue(&User{ID: "u1"})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, err := tokens.Verify(stale); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := tokens.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestHTTPHandler(t *testing.T) {
	h := NewHTTPHandler(NewService(newMemoryRepository(), testConfig))

	post := func(handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b)))
		return rec
	}

	rec := post(h.HandleRegister, registerRequest{Email: "c@example.com", Username: "cee", Password: "long-enough"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	rec = post(h.HandleRegister, registerRequest{Email: "c@example.com", Username: "cee", Password: "long-enough"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = post(h.HandleLogin, loginRequest{Email: "c@example.com", Password: "long-enough"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp["session_token"] == "" {
		t.Fatalf("expected a session token, got %v (%v)", resp, err)
	}

	rec = post(h.HandleLogin, loginRequest{Email: "c@example.com", Password: "nope-nope"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
}

func TestAccountConflict(t *testing.T) {
	unique := &pq.Error{Code: "23505", Constraint: "users_username_key"}

	tests := []struct {
		name     string
		err      error
		conflict bool
	}{
		{"unique violation", unique, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", unique), true},
		{"other driver error", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := accountConflict(tt.err)
			if errors.Is(got, ErrEmailOrUserExists) != tt.conflict {
				t.Fatalf("accountConflict(%v) = %v", tt.err, got)
			}
			if tt.conflict && !strings.Contains(got.Error(), "users_username_key") {
				t.Errorf("expected the constraint in %q", got)
			}
			if !tt.conflict && got != tt.err {
				t.Errorf("expected the error unchanged, got %v", got)
			}
		})
	}

	if got := normalizeEmail("  Ann@Example.COM "); got != "ann@example.com" {
		t.Errorf("normalizeEmail = %q", got)
	}
}
