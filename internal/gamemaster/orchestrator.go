package gamemaster

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the orchestrator's tunables.
type Config struct {
	InboxSize    int
	Retention    time.Duration // how long finished matches stay readable
	ReapInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.InboxSize <= 0 {
		c.InboxSize = 256
	}
	if c.Retention <= 0 {
		c.Retention = 10 * time.Minute
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = time.Minute
	}
	return c
}

type matchupCmd struct {
	req   MatchupRequest
	reply chan error
}

type moveCmd struct {
	req   MoveRequest
	reply chan error
}

type leaveCmd struct {
	playerID PlayerID
	reply    chan bool
}

type disconnectCmd struct {
	playerID PlayerID
	reply    chan error
}

type stateQuery struct {
	id    MatchID
	reply chan stateResult
}

type stateResult struct {
	snap StateSnapshot
	ok   bool
}

// Orchestrator is the single authority over matchmaking and every running match.
// All mutations happen on the goroutine running Run, one command at a time, in arrival order.
type Orchestrator struct {
	cfg        Config
	inbox      chan any
	done       chan struct{}
	matchmaker *Matchmaker
	registry   *Registry
	newEngine  EngineFactory
	sink       EventSink
	now        func() time.Time
}

// NewOrchestrator wires an orchestrator. A nil sink discards lifecycle events.
func NewOrchestrator(cfg Config, newEngine EngineFactory, sink EventSink) *Orchestrator {
	cfg = cfg.withDefaults()
	if newEngine == nil {
		newEngine = NewCheckersEngine
	}
	if sink == nil {
		sink = discardSink{}
	}
	return &Orchestrator{
		cfg:        cfg,
		inbox:      make(chan any, cfg.InboxSize),
		done:       make(chan struct{}),
		matchmaker: NewMatchmaker(nil),
		registry:   NewRegistry(),
		newEngine:  newEngine,
		sink:       sink,
		now:        time.Now,
	}
}

// Run processes commands until ctx is cancelled. It must be called exactly once.
func (o *Orchestrator) Run(ctx context.Context) {
	slog.Info("Game master loop started", "retention", o.cfg.Retention)
	defer close(o.done)

	ticker := time.NewTicker(o.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Game master loop stopping.")
			return
		case cmd := <-o.inbox:
			o.handleCommand(cmd)
		case <-ticker.C:
			o.reap()
		}
	}
}

// Matchup queues the player for a match.
func (o *Orchestrator) Matchup(ctx context.Context, req MatchupRequest) error {
	reply := make(chan error, 1)
	if err := o.submit(ctx, matchupCmd{req: req, reply: reply}); err != nil {
		return err
	}
	return await(ctx, o.done, reply)
}

// Move submits a move. Illegal moves are not errors: the mover receives MoveRejected instead.
func (o *Orchestrator) Move(ctx context.Context, req MoveRequest) error {
	reply := make(chan error, 1)
	if err := o.submit(ctx, moveCmd{req: req, reply: reply}); err != nil {
		return err
	}
	return await(ctx, o.done, reply)
}

// Leave withdraws a waiting player from matchmaking. It reports whether the player was waiting.
func (o *Orchestrator) Leave(ctx context.Context, playerID PlayerID) (bool, error) {
	reply := make(chan bool, 1)
	if err := o.submit(ctx, leaveCmd{playerID: playerID, reply: reply}); err != nil {
		return false, err
	}
	select {
	case left := <-reply:
		return left, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-o.done:
		return false, ErrOrchestratorStopped
	}
}

// Disconnect releases everything a departing player holds: a waiting player leaves the queue,
// a player in a running match forfeits it to the opponent.
func (o *Orchestrator) Disconnect(ctx context.Context, playerID PlayerID) error {
	reply := make(chan error, 1)
	if err := o.submit(ctx, disconnectCmd{playerID: playerID, reply: reply}); err != nil {
		return err
	}
	return await(ctx, o.done, reply)
}

// MatchState returns the current state of a running or recently finished match.
func (o *Orchestrator) MatchState(ctx context.Context, id MatchID) (StateSnapshot, error) {
	reply := make(chan stateResult, 1)
	if err := o.submit(ctx, stateQuery{id: id, reply: reply}); err != nil {
		return StateSnapshot{}, err
	}
	select {
	case res := <-reply:
		if !res.ok {
			return StateSnapshot{}, ErrMatchNotFound
		}
		return res.snap, nil
	case <-ctx.Done():
		return StateSnapshot{}, ctx.Err()
	case <-o.done:
		return StateSnapshot{}, ErrOrchestratorStopped
	}
}

func (o *Orchestrator) submit(ctx context.Context, cmd any) error {
	select {
	case o.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrOrchestratorStopped
	}
}

func await(ctx context.Context, done <-chan struct{}, reply <-chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return ErrOrchestratorStopped
	}
}

func (o *Orchestrator) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case matchupCmd:
		c.reply <- o.handleMatchup(c.req)
	case moveCmd:
		c.reply <- o.handleMove(c.req)
	case leaveCmd:
		c.reply <- o.handleLeave(c.playerID)
	case disconnectCmd:
		c.reply <- o.handleDisconnect(c.playerID)
	case stateQuery:
		var res stateResult
		if s, ok := o.registry.Session(c.id); ok {
			res = stateResult{snap: s.Snapshot(), ok: true}
		}
		c.reply <- res
	default:
		slog.Error("Unknown game master command", "type", fmt.Sprintf("%T", cmd))
	}
}

func (o *Orchestrator) handleMatchup(req MatchupRequest) error {
	if !req.Recipients.complete() {
		return ErrIncompleteRecipients
	}
	if _, ok := o.registry.MatchOf(req.PlayerID); ok {
		return ErrAlreadyInMatch
	}
	if o.matchmaker.Pending(req.PlayerID) {
		return ErrAlreadyQueued
	}

	light, dark, id, ok := o.matchmaker.Enqueue(req)
	if !ok {
		slog.Info("Player waiting for an opponent", "playerID", req.PlayerID)
		return nil
	}

	session := newSession(id, o.newEngine(), light, dark)
	session.BroadcastSnapshot()
	o.registry.Insert(session)

	found := MatchFound{MatchID: id, LightPlayer: light.PlayerID, DarkPlayer: dark.PlayerID}
	deliver(light.Recipients.MatchFound, found, id, light.PlayerID, "match_found")
	deliver(dark.Recipients.MatchFound, found, id, dark.PlayerID, "match_found")

	slog.Info("Match started", "matchID", id, "light", light.PlayerID, "dark", dark.PlayerID)
	o.sink.Publish(Event{
		Type:        EventMatchStarted,
		MatchID:     id,
		LightPlayer: light.PlayerID,
		DarkPlayer:  dark.PlayerID,
		At:          o.now(),
	})
	return nil
}

func (o *Orchestrator) handleMove(req MoveRequest) error {
	id, ok := o.registry.MatchOf(req.PlayerID)
	if !ok {
		slog.Warn("Move from a player without an active match", "playerID", req.PlayerID)
		return ErrUnknownPlayer
	}

	session, ok := o.registry.Session(id)
	if !ok {
		slog.Error("CRITICAL: player mapped to a match without a session", "playerID", req.PlayerID, "matchID", id)
		return fmt.Errorf("%w: player %s maps to missing match %d", ErrRegistryInconsistency, req.PlayerID, id)
	}

	if accepted := session.AttemptMove(req.PlayerID, req.From, req.To); accepted && session.Finished() {
		o.finish(session)
	}
	return nil
}

func (o *Orchestrator) finish(s *Session) {
	o.registry.Finish(s.id, o.now())

	ev := Event{
		Type:        EventMatchFinished,
		MatchID:     s.id,
		LightPlayer: s.light.id,
		DarkPlayer:  s.dark.id,
		Winner:      s.winner(),
		Forfeit:     s.forfeited != nil,
		At:          o.now(),
	}
	if ev.Winner != nil {
		ev.WinnerPlayer = s.light.id
		if *ev.Winner == Dark {
			ev.WinnerPlayer = s.dark.id
		}
	}
	slog.Info("Match finished", "matchID", s.id, "winner", ev.WinnerPlayer)
	o.sink.Publish(ev)
}

func (o *Orchestrator) handleLeave(playerID PlayerID) bool {
	if !o.matchmaker.Cancel(playerID) {
		return false
	}
	slog.Info("Player left the matchmaking queue", "playerID", playerID)
	return true
}

func (o *Orchestrator) handleDisconnect(playerID PlayerID) error {
	if o.handleLeave(playerID) {
		return nil
	}
	id, ok := o.registry.MatchOf(playerID)
	if !ok {
		return nil
	}
	session, ok := o.registry.Session(id)
	if !ok {
		slog.Error("CRITICAL: player mapped to a match without a session", "playerID", playerID, "matchID", id)
		return fmt.Errorf("%w: player %s maps to missing match %d", ErrRegistryInconsistency, playerID, id)
	}
	if session.Forfeit(playerID) {
		slog.Info("Player forfeited by disconnecting", "matchID", id, "playerID", playerID)
		o.finish(session)
	}
	return nil
}

func (o *Orchestrator) reap() {
	for _, id := range o.registry.Expired(o.now().Add(-o.cfg.Retention)) {
		o.registry.Remove(id)
		slog.Info("Removed finished match", "matchID", id)
	}
}
