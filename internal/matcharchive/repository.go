package matcharchive

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

var (
	ErrResultNotFound = errors.New("match result not found")
	ErrDuplicateMatch = errors.New("match result already archived")
)

// Result is the archived outcome of a finished match.
type Result struct {
	MatchID      gamemaster.MatchID  `json:"match_id"`
	LightPlayer  gamemaster.PlayerID `json:"light_player"`
	DarkPlayer   gamemaster.PlayerID `json:"dark_player"`
	WinnerPlayer gamemaster.PlayerID `json:"winner_player"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
}

// Repository stores match results.
type Repository interface {
	SaveStart(ctx context.Context, ev gamemaster.Event) error
	SaveFinish(ctx context.Context, ev gamemaster.Event) error
	Get(ctx context.Context, id gamemaster.MatchID) (*Result, error)
}

type postgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

// isUniqueViolation reports whether err, possibly wrapped, is a PostgreSQL unique violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}

// SaveStart inserts a row for a match that just began.
// Match IDs restart with the process, so a row is keyed by (match_id, started_at).
func (r *postgresRepository) SaveStart(ctx context.Context, ev gamemaster.Event) error {
	query := `
		INSERT INTO match_results (match_id, light_player, dark_player, started_at)
		VALUES ($1, $2, $3, $4);`

	_, err := r.db.ExecContext(ctx, query, int64(ev.MatchID), string(ev.LightPlayer), string(ev.DarkPlayer), ev.At)
	if err != nil {
		if isUniqueViolation(err) {
			slog.Warn("Match already archived", "matchID", ev.MatchID)
			return ErrDuplicateMatch
		}
		slog.Error("Failed to archive match start", "matchID", ev.MatchID, "error", err)
		return err
	}
	return nil
}

// SaveFinish records the winner on the most recent row for the match.
func (r *postgresRepository) SaveFinish(ctx context.Context, ev gamemaster.Event) error {
	query := `
		UPDATE match_results
		SET winner_player = $2, finished_at = $3
		WHERE id = (
			SELECT id FROM match_results
			WHERE match_id = $1 AND finished_at IS NULL
			ORDER BY started_at DESC
			LIMIT 1
		);`

	res, err := r.db.ExecContext(ctx, query, int64(ev.MatchID), string(ev.WinnerPlayer), ev.At)
	if err != nil {
		slog.Error("Failed to archive match result", "matchID", ev.MatchID, "error", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrResultNotFound
	}
	return nil
}

// Get returns the latest archived result for a match ID.
func (r *postgresRepository) Get(ctx context.Context, id gamemaster.MatchID) (*Result, error) {
	query := `
		SELECT match_id, light_player, dark_player, COALESCE(winner_player, ''), started_at, COALESCE(finished_at, started_at)
		FROM match_results
		WHERE match_id = $1
		ORDER BY started_at DESC
		LIMIT 1;`

	var (
		res     Result
		matchID int64
		light   string
		dark    string
		winner  string
	)
	err := r.db.QueryRowContext(ctx, query, int64(id)).Scan(&matchID, &light, &dark, &winner, &res.StartedAt, &res.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		slog.Error("Failed to get match result from database", "matchID", id, "error", err)
		return nil, err
	}

	res.MatchID = gamemaster.MatchID(matchID)
	res.LightPlayer = gamemaster.PlayerID(light)
	res.DarkPlayer = gamemaster.PlayerID(dark)
	res.WinnerPlayer = gamemaster.PlayerID(winner)
	return &res, nil
}
