package gateway

import (
	"encoding/json"
	"fmt"
)

// Frame types exchanged with clients.
const (
	FrameMatchup = "matchup"
	FrameMove    = "move"
	FrameLeave   = "leave"

	FrameWelcome    = "welcome"
	FrameMatchFound = "match_found"
	FrameState      = "state"
	FrameUpdate     = "update"
	FrameRejected   = "rejected"
	FrameError      = "error"
)

// Frame is the envelope of every websocket message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MovePayload is the body of a "move" frame.
type MovePayload struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// WelcomePayload tells a client which player ID the server knows them by.
type WelcomePayload struct {
	PlayerID string `json:"player_id"`
}

// ErrorPayload is the body of an "error" frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

func encodeFrame(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("frame type is empty")
	}
	f := Frame{Type: t}
	if payload != nil {
		p, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		f.Payload = p
	}
	return json.Marshal(f)
}

func decodePayload[T any](f Frame) (T, error) {
	var out T
	if len(f.Payload) == 0 {
		return out, fmt.Errorf("empty payload for frame %q", f.Type)
	}
	err := json.Unmarshal(f.Payload, &out)
	return out, err
}
