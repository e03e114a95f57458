package gamemaster

import (
	"errors"
	"sync"
)

var errPeerGone = errors.New("peer gone")

// fakeEngine accepts only the moves listed in legal and flips the turn after each one.
type fakeEngine struct {
	turn   Side
	winner *Side
	legal  map[[2]Position]MoveOutcome
	winOn  map[[2]Position]bool
	calls  int
	played [][2]Position
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		turn:  Light,
		legal: make(map[[2]Position]MoveOutcome),
		winOn: make(map[[2]Position]bool),
	}
}

func (e *fakeEngine) allow(from, to Position, out MoveOutcome) *fakeEngine {
	out.Accepted = true
	e.legal[[2]Position{from, to}] = out
	return e
}

func (e *fakeEngine) Move(from, to Position) MoveOutcome {
	e.calls++
	key := [2]Position{from, to}
	out, ok := e.legal[key]
	if !ok {
		return MoveOutcome{}
	}
	e.played = append(e.played, key)
	mover := e.turn
	if e.turn == Light {
		e.turn = Dark
	} else {
		e.turn = Light
	}
	if e.winOn[key] {
		e.winner = &mover
	}
	return out
}

func (e *fakeEngine) SideOnTurn() Side { return e.turn }

func (e *fakeEngine) Winner() (Side, bool) {
	if e.winner == nil {
		return 0, false
	}
	return *e.winner, true
}

func (e *fakeEngine) Board() Board { return len(e.played) }

// mailbox records everything delivered to one player.
type mailbox struct {
	mu          sync.Mutex
	found       []MatchFound
	states      []StateSnapshot
	updates     []MoveUpdate
	rejected    int
	failUpdates bool
}

func (m *mailbox) recipients() Recipients {
	return Recipients{
		MatchFound: RecipientFunc[MatchFound](func(msg MatchFound) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.found = append(m.found, msg)
			return nil
		}),
		State: RecipientFunc[StateSnapshot](func(msg StateSnapshot) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.states = append(m.states, msg)
			return nil
		}),
		Update: RecipientFunc[MoveUpdate](func(msg MoveUpdate) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.failUpdates {
				return errPeerGone
			}
			m.updates = append(m.updates, msg)
			return nil
		}),
		Rejected: RecipientFunc[MoveRejected](func(MoveRejected) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.rejected++
			return nil
		}),
	}
}

func (m *mailbox) request(id PlayerID) MatchupRequest {
	return MatchupRequest{PlayerID: id, Recipients: m.recipients()}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func alwaysFalse() bool { return false }
