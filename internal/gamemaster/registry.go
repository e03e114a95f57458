package gamemaster

import "time"

// Registry keeps sessions by match ID and the active match of every player.
// A player is mapped iff they take part in the non-finished session stored under that ID.
type Registry struct {
	matches map[MatchID]*Session
	players map[PlayerID]MatchID
}

func NewRegistry() *Registry {
	return &Registry{
		matches: make(map[MatchID]*Session),
		players: make(map[PlayerID]MatchID),
	}
}

// Insert stores a freshly created session and maps both of its players to it.
func (r *Registry) Insert(s *Session) {
	r.matches[s.id] = s
	r.players[s.light.id] = s.id
	r.players[s.dark.id] = s.id
}

func (r *Registry) MatchOf(playerID PlayerID) (MatchID, bool) {
	id, ok := r.players[playerID]
	return id, ok
}

func (r *Registry) Session(id MatchID) (*Session, bool) {
	s, ok := r.matches[id]
	return s, ok
}

// Finish unmaps the players of a finished match. The session stays readable until Remove.
func (r *Registry) Finish(id MatchID, at time.Time) {
	s, ok := r.matches[id]
	if !ok {
		return
	}
	s.finishedAt = at
	for _, p := range []PlayerID{s.light.id, s.dark.id} {
		if r.players[p] == id {
			delete(r.players, p)
		}
	}
}

// Remove drops a session and any player mappings still pointing at it.
func (r *Registry) Remove(id MatchID) {
	s, ok := r.matches[id]
	if !ok {
		return
	}
	for _, p := range []PlayerID{s.light.id, s.dark.id} {
		if r.players[p] == id {
			delete(r.players, p)
		}
	}
	delete(r.matches, id)
}

// Expired returns finished sessions that finished before cutoff.
func (r *Registry) Expired(cutoff time.Time) []MatchID {
	var ids []MatchID
	for id, s := range r.matches {
		if s.finished && s.finishedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry) Len() int { return len(r.matches) }
