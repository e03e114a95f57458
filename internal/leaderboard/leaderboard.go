package leaderboard

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

// Entry is one row of the leaderboard.
type Entry struct {
	PlayerID gamemaster.PlayerID `json:"player_id"`
	Wins     int64               `json:"wins"`
}

// Board ranks players by number of wins.
type Board interface {
	RecordResult(ctx context.Context, winner, loser gamemaster.PlayerID) error
	Top(ctx context.Context, n int) ([]Entry, error)
}

// sortedSet is the subset of *redis.Client the leaderboard uses.
type sortedSet interface {
	ZIncrBy(ctx context.Context, key string, increment float64, member string) *redis.FloatCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
}

type redisBoard struct {
	rdb sortedSet
	key string
}

// New returns a leaderboard stored in a Redis sorted set under key.
func New(rdb sortedSet, key string) Board {
	return &redisBoard{rdb: rdb, key: key}
}

// RecordResult credits the winner with a win. The loser is added with no score change so
// they show up on the board too.
func (b *redisBoard) RecordResult(ctx context.Context, winner, loser gamemaster.PlayerID) error {
	if err := b.rdb.ZIncrBy(ctx, b.key, 1, string(winner)).Err(); err != nil {
		slog.Error("Failed to record win in Redis", "playerID", winner, "error", err)
		return err
	}
	if err := b.rdb.ZIncrBy(ctx, b.key, 0, string(loser)).Err(); err != nil {
		slog.Error("Failed to record loss in Redis", "playerID", loser, "error", err)
		return err
	}
	return nil
}

// Top returns the n players with the most wins, best first.
func (b *redisBoard) Top(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	zs, err := b.rdb.ZRevRangeWithScores(ctx, b.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, Entry{PlayerID: gamemaster.PlayerID(member), Wins: int64(z.Score)})
	}
	return entries, nil
}

// Sink feeds finished matches into a leaderboard.
type Sink struct {
	board Board
}

func NewSink(board Board) *Sink {
	return &Sink{board: board}
}

func (s *Sink) Name() string { return "leaderboard" }

func (s *Sink) Handle(ctx context.Context, ev gamemaster.Event) error {
	if ev.Type != gamemaster.EventMatchFinished || ev.WinnerPlayer == "" {
		return nil
	}
	loser := ev.LightPlayer
	if loser == ev.WinnerPlayer {
		loser = ev.DarkPlayer
	}
	return s.board.RecordResult(ctx, ev.WinnerPlayer, loser)
}
