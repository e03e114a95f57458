package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidInput = errors.New("invalid input: email, username, and password (min 8 chars) are required")

// Service defines the contract for the auth business logic.
type Service interface {
	Register(ctx context.Context, email, username, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// Config holds the configuration needed by the auth service.
type Config struct {
	JWTSecret     string
	TokenDuration time.Duration
}

type service struct {
	repo   Repository
	tokens *Tokens
}

func NewService(repo Repository, config Config) Service {
	return &service{
		repo:   repo,
		tokens: NewTokens(config),
	}
}

// Register creates a new user and returns its ID.
func (s *service) Register(ctx context.Context, email, username, password string) (string, error) {
	if email == "" || username == "" || len(password) < 8 {
		return "", ErrInvalidInput
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return "", err
	}

	userID, err := s.repo.CreateUser(ctx, email, username, string(hashedPassword))
	if err != nil {
		// The repository already logged the specific error.
		return "", err
	}

	slog.Info("New user registered successfully", "userID", userID)
	return userID, nil
}

// Login verifies credentials and returns a JWT on success.
func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Same error as an unknown email so that accounts cannot be enumerated.
		return "", ErrUserNotFound
	}

	return s.tokens.Issue(user)
}
