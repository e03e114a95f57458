package gamemaster

import "math/rand"

// Matchmaker pairs waiting players two at a time, first come first served.
type Matchmaker struct {
	pending *MatchupRequest
	nextID  MatchID
	flip    func() bool
}

// NewMatchmaker creates a matchmaker. flip decides whether the newcomer takes Light;
// nil uses an unbiased coin.
func NewMatchmaker(flip func() bool) *Matchmaker {
	if flip == nil {
		flip = func() bool { return rand.Intn(2) == 0 }
	}
	return &Matchmaker{flip: flip}
}

// Enqueue parks the request, or pairs it with the one already waiting.
// ok is false when the caller is now waiting.
func (m *Matchmaker) Enqueue(req MatchupRequest) (light, dark MatchupRequest, id MatchID, ok bool) {
	if m.pending == nil {
		m.pending = &req
		return MatchupRequest{}, MatchupRequest{}, 0, false
	}

	waiting := *m.pending
	m.pending = nil

	light, dark = req, waiting
	if m.flip() {
		light, dark = dark, light
	}

	id = m.nextID
	m.nextID++
	return light, dark, id, true
}

// Pending reports whether the player is the one currently waiting.
func (m *Matchmaker) Pending(playerID PlayerID) bool {
	return m.pending != nil && m.pending.PlayerID == playerID
}

// Cancel drops the player's waiting request, if any.
func (m *Matchmaker) Cancel(playerID PlayerID) bool {
	if !m.Pending(playerID) {
		return false
	}
	m.pending = nil
	return true
}
