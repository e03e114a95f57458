package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailOrUserExists = errors.New("email or username already exists")
)

// User is an account that can log in and play rated matches.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
}

// Repository stores accounts. Emails are compared case-insensitively.
type Repository interface {
	CreateUser(ctx context.Context, email, username, hashedPassword string) (string, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

type postgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// accountConflict maps a unique violation on users to ErrEmailOrUserExists, naming the
// constraint that fired. Other errors are returned unchanged.
func accountConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w (%s)", ErrEmailOrUserExists, pqErr.Constraint)
	}
	return err
}

func (r *postgresRepository) CreateUser(ctx context.Context, email, username, hashedPassword string) (string, error) {
	query := `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id;`

	var userID string
	err := r.db.QueryRowContext(ctx, query, normalizeEmail(email), username, hashedPassword).Scan(&userID)
	if err != nil {
		err = accountConflict(err)
		if errors.Is(err, ErrEmailOrUserExists) {
			slog.Warn("Account already registered", "username", username, "reason", err)
			return "", err
		}
		slog.Error("Failed to insert account", "username", username, "error", err)
		return "", fmt.Errorf("create account %q: %w", username, err)
	}
	return userID, nil
}

func (r *postgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, username, password_hash
		FROM users
		WHERE email = $1;`

	var user User
	err := r.db.QueryRowContext(ctx, query, normalizeEmail(email)).Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		slog.Error("Failed to load account", "error", err)
		return nil, fmt.Errorf("load account by email: %w", err)
	}
	return &user, nil
}
