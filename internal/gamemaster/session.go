package gamemaster

import (
	"log/slog"
	"time"
)

type participant struct {
	id         PlayerID
	side       Side
	recipients Recipients
}

// Session is the authoritative state of one match: the rule engine plus the two players.
// It is only touched from the orchestrator goroutine.
type Session struct {
	id         MatchID
	engine     Engine
	light      participant
	dark       participant
	finished   bool
	finishedAt time.Time
	forfeited  *Side // winner by forfeit, overrides the engine
}

func newSession(id MatchID, engine Engine, light, dark MatchupRequest) *Session {
	return &Session{
		id:     id,
		engine: engine,
		light:  participant{id: light.PlayerID, side: Light, recipients: light.Recipients},
		dark:   participant{id: dark.PlayerID, side: Dark, recipients: dark.Recipients},
	}
}

func (s *Session) ID() MatchID { return s.id }

// Finished reports whether the match has a winner, by play or by forfeit.
func (s *Session) Finished() bool { return s.finished }

func (s *Session) participant(playerID PlayerID) (*participant, bool) {
	switch playerID {
	case s.light.id:
		return &s.light, true
	case s.dark.id:
		return &s.dark, true
	}
	return nil, false
}

// AttemptMove validates turn order, asks the engine to apply the move and notifies the players.
// It reports whether the move was accepted.
func (s *Session) AttemptMove(playerID PlayerID, from, to Position) bool {
	p, ok := s.participant(playerID)
	if !ok {
		// Routing should never hand us a stranger, and there is nobody to tell.
		slog.Warn("Move for a player outside the match", "matchID", s.id, "playerID", playerID)
		return false
	}

	if s.finished || p.side != s.engine.SideOnTurn() {
		s.reject(p)
		return false
	}

	outcome := s.engine.Move(from, to)
	if !outcome.Accepted {
		s.reject(p)
		return false
	}

	update := MoveUpdate{
		From:          from,
		To:            to,
		Crowned:       outcome.Crowned,
		CapturedPiece: outcome.Captured,
		SideOnTurn:    s.engine.SideOnTurn(),
		Winner:        s.winner(),
	}
	if update.Winner != nil {
		s.finished = true
	}

	deliver(s.light.recipients.Update, update, s.id, s.light.id, "update")
	deliver(s.dark.recipients.Update, update, s.id, s.dark.id, "update")
	return true
}

// Forfeit ends a running match in favour of playerID's opponent and sends both players the
// final state. It reports whether the match ended.
func (s *Session) Forfeit(playerID PlayerID) bool {
	p, ok := s.participant(playerID)
	if !ok || s.finished {
		return false
	}
	w := p.side.Opponent()
	s.forfeited = &w
	s.finished = true
	s.BroadcastSnapshot()
	return true
}

// BroadcastSnapshot sends the full match state to both players.
func (s *Session) BroadcastSnapshot() {
	snap := s.Snapshot()
	deliver(s.light.recipients.State, snap, s.id, s.light.id, "state")
	deliver(s.dark.recipients.State, snap, s.id, s.dark.id, "state")
}

// Snapshot returns the current match state.
func (s *Session) Snapshot() StateSnapshot {
	return StateSnapshot{
		Board:      s.engine.Board(),
		SideOnTurn: s.engine.SideOnTurn(),
		Winner:     s.winner(),
	}
}

func (s *Session) winner() *Side {
	if s.forfeited != nil {
		w := *s.forfeited
		return &w
	}
	w, ok := s.engine.Winner()
	if !ok {
		return nil
	}
	return &w
}

func (s *Session) reject(p *participant) {
	deliver(p.recipients.Rejected, MoveRejected{}, s.id, p.id, "rejected")
}

// deliver sends msg to a single recipient. A failure is logged and swallowed so that the
// other participant still gets their copy.
func deliver[T any](r Recipient[T], msg T, matchID MatchID, playerID PlayerID, kind string) {
	if r == nil {
		return
	}
	if err := r.Deliver(msg); err != nil {
		slog.Warn("Failed to deliver message to player", "kind", kind, "matchID", matchID, "playerID", playerID, "error", err)
	}
}
