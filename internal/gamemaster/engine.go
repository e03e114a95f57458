package gamemaster

import (
	"github.com/cheildo/nexus-checkers/internal/checkers"
)

// MoveOutcome is the rule engine's verdict on a move attempt.
type MoveOutcome struct {
	Accepted bool
	Captured *Position
	Crowned  bool
}

// Engine is the narrow view of the rule engine the game master relies on.
type Engine interface {
	Move(from, to Position) MoveOutcome
	SideOnTurn() Side
	Winner() (Side, bool)
	Board() Board
}

// EngineFactory creates a rule engine in its initial position.
type EngineFactory func() Engine

// checkersEngine adapts checkers.Game to Engine.
type checkersEngine struct {
	game *checkers.Game
}

// NewCheckersEngine returns an Engine backed by a fresh game of checkers.
func NewCheckersEngine() Engine {
	return &checkersEngine{game: checkers.New()}
}

func (e *checkersEngine) Move(from, to Position) MoveOutcome {
	res, err := e.game.Move(int(from), int(to))
	if err != nil {
		return MoveOutcome{}
	}
	out := MoveOutcome{Accepted: true, Crowned: res.Crowned}
	if res.Capture {
		p := Position(res.Captured)
		out.Captured = &p
	}
	return out
}

func (e *checkersEngine) SideOnTurn() Side {
	return fromCheckersSide(e.game.Turn())
}

func (e *checkersEngine) Winner() (Side, bool) {
	w, ok := e.game.Winner()
	if !ok {
		return 0, false
	}
	return fromCheckersSide(w), true
}

func (e *checkersEngine) Board() Board {
	return e.game.Board()
}

func fromCheckersSide(s checkers.Side) Side {
	if s == checkers.Light {
		return Light
	}
	return Dark
}
