package gamemaster

import "errors"

var (
	// ErrUnknownPlayer is returned for a move from a player who is not in an active match.
	ErrUnknownPlayer = errors.New("player is not in an active match")
	// ErrRegistryInconsistency means a player maps to a match that has no session. It is a bug, not a user error.
	ErrRegistryInconsistency = errors.New("registry inconsistency")
	ErrAlreadyQueued         = errors.New("player is already waiting for a match")
	ErrAlreadyInMatch        = errors.New("player is already in a match")
	ErrIncompleteRecipients  = errors.New("matchup request is missing recipients")
	ErrMatchNotFound         = errors.New("match not found")
	ErrOrchestratorStopped   = errors.New("orchestrator stopped")
)
