package gamemaster

import (
	"fmt"
	"time"
)

// PlayerID identifies a connected player for the lifetime of their connection.
type PlayerID string

// MatchID identifies a match. IDs are handed out in increasing order and never reused.
type MatchID uint64

// Position is an opaque square reference understood by the rule engine.
type Position int

// Board is the rule engine's serializable board representation.
type Board any

// Side is one of the two competing positions in a match.
type Side uint8

const (
	Light Side = iota
	Dark
)

func (s Side) String() string {
	switch s {
	case Light:
		return "light"
	case Dark:
		return "dark"
	}
	return fmt.Sprintf("side(%d)", uint8(s))
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Light {
		return Dark
	}
	return Light
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "light":
		*s = Light
	case "dark":
		*s = Dark
	default:
		return fmt.Errorf("unknown side %q", text)
	}
	return nil
}

// Recipient delivers one kind of outbound message to a single player.
// Implementations must not block; the orchestrator calls Deliver from its only goroutine.
type Recipient[T any] interface {
	Deliver(msg T) error
}

// RecipientFunc adapts a function to the Recipient interface.
type RecipientFunc[T any] func(msg T) error

func (f RecipientFunc[T]) Deliver(msg T) error {
	return f(msg)
}

// Recipients are the notification channels the orchestrator holds for one player.
type Recipients struct {
	MatchFound Recipient[MatchFound]
	State      Recipient[StateSnapshot]
	Update     Recipient[MoveUpdate]
	Rejected   Recipient[MoveRejected]
}

func (r Recipients) complete() bool {
	return r.MatchFound != nil && r.State != nil && r.Update != nil && r.Rejected != nil
}

// MatchupRequest is a player's request to be paired with an opponent.
type MatchupRequest struct {
	PlayerID   PlayerID
	Recipients Recipients
}

// MoveRequest asks to move the piece on From to To.
type MoveRequest struct {
	PlayerID PlayerID `json:"player_id"`
	From     Position `json:"from"`
	To       Position `json:"to"`
}

// MatchFound is sent to both players once they have been paired.
type MatchFound struct {
	MatchID     MatchID  `json:"match_id"`
	LightPlayer PlayerID `json:"light_player"`
	DarkPlayer  PlayerID `json:"dark_player"`
}

// StateSnapshot is the full authoritative state of a match.
type StateSnapshot struct {
	Board      Board `json:"board"`
	SideOnTurn Side  `json:"side_on_turn"`
	Winner     *Side `json:"winner"`
}

// MoveUpdate is broadcast to both players after an accepted move.
type MoveUpdate struct {
	From          Position  `json:"from"`
	To            Position  `json:"to"`
	Crowned       bool      `json:"crowned"`
	CapturedPiece *Position `json:"captured_piece"`
	SideOnTurn    Side      `json:"side_on_turn"`
	Winner        *Side     `json:"winner"`
}

// MoveRejected tells the mover their move was refused. It deliberately carries no reason.
type MoveRejected struct{}

// EventType names a match lifecycle event.
type EventType string

const (
	EventMatchStarted  EventType = "match_started"
	EventMatchFinished EventType = "match_finished"
)

// Event is a match lifecycle notification for out-of-band consumers (archives, leaderboards, feeds).
type Event struct {
	Type         EventType `json:"type"`
	MatchID      MatchID   `json:"match_id"`
	LightPlayer  PlayerID  `json:"light_player"`
	DarkPlayer   PlayerID  `json:"dark_player"`
	Winner       *Side     `json:"winner,omitempty"`
	WinnerPlayer PlayerID  `json:"winner_player,omitempty"`
	Forfeit      bool      `json:"forfeit,omitempty"`
	At           time.Time `json:"at"`
}

// EventSink receives lifecycle events. Publish must not block.
type EventSink interface {
	Publish(ev Event)
}

type discardSink struct{}

func (discardSink) Publish(Event) {}
