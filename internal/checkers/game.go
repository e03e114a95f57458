package checkers

import "errors"

// ErrIllegalMove is returned when a from/to pair is not a legal move for the side on turn.
var ErrIllegalMove = errors.New("illegal move")

// MoveResult describes an accepted move.
type MoveResult struct {
	Captured int // square of the captured piece, valid only when Capture is set
	Capture  bool
	Crowned  bool
}

type move struct {
	from, to int
	captured int // -1 when the move is a plain step
}

// Game is the rule engine for a single match of checkers.
//
// Captures are mandatory. After a capture the same piece must keep jumping while it can,
// and the turn only passes once the chain is over (or the piece was crowned).
// A side with no legal move on its turn loses.
type Game struct {
	board   Board
	turn    Side
	jumping int // square of the piece that must continue a capture chain, -1 otherwise
	winner  *Side
}

// New returns a game in the standard starting position with Light on turn.
func New() *Game {
	return &Game{
		board:   NewBoard(),
		turn:    Light,
		jumping: -1,
	}
}

// FromPosition returns a game starting from an arbitrary board.
func FromPosition(board Board, turn Side) *Game {
	g := &Game{board: board, turn: turn, jumping: -1}
	g.checkWinner()
	return g
}

func (g *Game) Turn() Side { return g.turn }

func (g *Game) Board() Board { return g.board }

// Winner returns the winning side once the game is over.
func (g *Game) Winner() (Side, bool) {
	if g.winner == nil {
		return 0, false
	}
	return *g.winner, true
}

// Move applies a move for the side on turn.
func (g *Game) Move(from, to int) (MoveResult, error) {
	if g.winner != nil || from < 0 || from >= Squares || to < 0 || to >= Squares {
		return MoveResult{}, ErrIllegalMove
	}

	var chosen *move
	for _, m := range g.legalMoves() {
		if m.from == from && m.to == to {
			chosen = &m
			break
		}
	}
	if chosen == nil {
		return MoveResult{}, ErrIllegalMove
	}

	piece := g.board[from]
	g.board[from] = Empty
	result := MoveResult{}
	if chosen.captured >= 0 {
		g.board[chosen.captured] = Empty
		result.Captured = chosen.captured
		result.Capture = true
	}

	row, _ := coords(to)
	if !piece.IsKing() && ((g.turn == Light && row == 0) || (g.turn == Dark && row == 7)) {
		piece = piece.crowned()
		result.Crowned = true
	}
	g.board[to] = piece

	if result.Capture && !result.Crowned && len(g.movesFrom(to, true)) > 0 {
		g.jumping = to
		return result, nil
	}

	g.jumping = -1
	g.turn = g.turn.Opponent()
	g.checkWinner()
	return result, nil
}

func (g *Game) checkWinner() {
	if len(g.legalMoves()) == 0 {
		w := g.turn.Opponent()
		g.winner = &w
	}
}

func (g *Game) legalMoves() []move {
	if g.jumping >= 0 {
		return g.movesFrom(g.jumping, true)
	}

	var captures, steps []move
	for sq, p := range g.board {
		if s, ok := p.Side(); !ok || s != g.turn {
			continue
		}
		for _, m := range g.movesFrom(sq, false) {
			if m.captured >= 0 {
				captures = append(captures, m)
			} else {
				steps = append(steps, m)
			}
		}
	}
	if len(captures) > 0 {
		return captures
	}
	return steps
}

func (g *Game) movesFrom(sq int, capturesOnly bool) []move {
	piece := g.board[sq]
	side, ok := piece.Side()
	if !ok {
		return nil
	}

	rowDirs := []int{-1}
	if side == Dark {
		rowDirs = []int{1}
	}
	if piece.IsKing() {
		rowDirs = []int{-1, 1}
	}

	row, col := coords(sq)
	var moves []move
	for _, dr := range rowDirs {
		for _, dc := range []int{-1, 1} {
			next, ok := square(row+dr, col+dc)
			if !ok {
				continue
			}
			target := g.board[next]
			if target == Empty {
				if !capturesOnly {
					moves = append(moves, move{from: sq, to: next, captured: -1})
				}
				continue
			}
			if ts, _ := target.Side(); ts == side {
				continue
			}
			landing, ok := square(row+2*dr, col+2*dc)
			if ok && g.board[landing] == Empty {
				moves = append(moves, move{from: sq, to: landing, captured: next})
			}
		}
	}
	return moves
}
