package checkers

// Squares is the number of playable (dark) squares on an 8x8 board.
const Squares = 32

// Side identifies one of the two armies. Light moves first.
type Side uint8

const (
	Light Side = iota
	Dark
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Light {
		return Dark
	}
	return Light
}

func (s Side) String() string {
	if s == Light {
		return "light"
	}
	return "dark"
}

// Piece is the content of a single playable square.
type Piece uint8

const (
	Empty Piece = iota
	LightMan
	LightKing
	DarkMan
	DarkKing
)

// Side reports which army owns the piece. ok is false for an empty square.
func (p Piece) Side() (side Side, ok bool) {
	switch p {
	case LightMan, LightKing:
		return Light, true
	case DarkMan, DarkKing:
		return Dark, true
	}
	return 0, false
}

// IsKing reports whether the piece has been crowned.
func (p Piece) IsKing() bool {
	return p == LightKing || p == DarkKing
}

func (p Piece) crowned() Piece {
	switch p {
	case LightMan:
		return LightKing
	case DarkMan:
		return DarkKing
	}
	return p
}

// Board holds the 32 playable squares, numbered left to right, top to bottom.
// Dark starts on squares 0-11, Light on squares 20-31.
type Board [Squares]Piece

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var b Board
	for i := 0; i < 12; i++ {
		b[i] = DarkMan
	}
	for i := 20; i < Squares; i++ {
		b[i] = LightMan
	}
	return b
}

// Count returns the number of pieces a side has left.
func (b *Board) Count(side Side) int {
	n := 0
	for _, p := range b {
		if s, ok := p.Side(); ok && s == side {
			n++
		}
	}
	return n
}

// coords maps a square index to its row and column on the 8x8 grid.
func coords(square int) (row, col int) {
	row = square / 4
	col = 2 * (square % 4)
	if row%2 == 0 {
		col++
	}
	return row, col
}

// square maps grid coordinates back to a square index.
func square(row, col int) (int, bool) {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return 0, false
	}
	if (row+col)%2 == 0 {
		return 0, false
	}
	return row*4 + col/2, true
}
