package playerprofile

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile is a player's record across archived matches.
type Profile struct {
	PlayerID      string `json:"player_id"`
	Username      string `json:"username,omitempty"`
	MatchesPlayed int64  `json:"matches_played"`
	Wins          int64  `json:"wins"`
	Losses        int64  `json:"losses"`
	InProgress    int64  `json:"in_progress"`
}

// Repository defines the database operations for player profiles.
type Repository interface {
	GetProfile(ctx context.Context, playerID string) (*Profile, error)
}

type postgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

// GetProfile aggregates the player's archived matches. Anonymous players have no username.
func (r *postgresRepository) GetProfile(ctx context.Context, playerID string) (*Profile, error) {
	query := `
		SELECT
			COALESCE((SELECT username FROM users WHERE id::text = $1), ''),
			COUNT(*) FILTER (WHERE finished_at IS NOT NULL),
			COUNT(*) FILTER (WHERE finished_at IS NOT NULL AND winner_player = $1),
			COUNT(*) FILTER (WHERE finished_at IS NOT NULL AND winner_player <> '' AND winner_player <> $1),
			COUNT(*) FILTER (WHERE finished_at IS NULL)
		FROM match_results
		WHERE light_player = $1 OR dark_player = $1;
	`
	p := &Profile{PlayerID: playerID}

	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&p.Username, &p.MatchesPlayed, &p.Wins, &p.Losses, &p.InProgress,
	)
	if err != nil {
		slog.Error("Failed to get profile from database", "playerID", playerID, "error", err)
		return nil, err
	}

	if p.Username == "" && p.MatchesPlayed == 0 && p.InProgress == 0 {
		return nil, ErrProfileNotFound
	}
	return p, nil
}
