package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cheildo/nexus-checkers/internal/auth"
	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBufferSize = 64
	requestTimeout = 5 * time.Second
)

var (
	ErrClientClosed   = errors.New("client connection closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// upgrader is used to upgrade an HTTP connection to a persistent WebSocket connection.
var upgrader = websocket.Upgrader{
	// Allow connections from any origin (for development).
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GameMaster is what the gateway needs from the orchestrator.
type GameMaster interface {
	Matchup(ctx context.Context, req gamemaster.MatchupRequest) error
	Move(ctx context.Context, req gamemaster.MoveRequest) error
	Leave(ctx context.Context, playerID gamemaster.PlayerID) (bool, error)
	Disconnect(ctx context.Context, playerID gamemaster.PlayerID) error
}

// TokenVerifier validates session tokens issued by the auth service.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// WebsocketHandler upgrades player connections and relays frames to and from the game master.
type WebsocketHandler struct {
	gm          GameMaster
	verifier    TokenVerifier
	connections *ConnectionManager
}

// NewWebsocketHandler creates the handler. With a nil verifier players connect anonymously
// and get a random player ID.
func NewWebsocketHandler(gm GameMaster, verifier TokenVerifier, connections *ConnectionManager) *WebsocketHandler {
	if connections == nil {
		connections = NewConnectionManager()
	}
	return &WebsocketHandler{gm: gm, verifier: verifier, connections: connections}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if h.connections.Connected(playerID) {
		http.Error(w, "Player is already connected", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	c := &client{
		playerID: playerID,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		closed:   make(chan struct{}),
	}
	if !h.connections.Add(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	slog.Info("WebSocket connection established", "playerID", playerID)

	go c.writePump()
	c.enqueue(FrameWelcome, WelcomePayload{PlayerID: string(playerID)})
	h.readPump(r.Context(), c)
}

func (h *WebsocketHandler) authenticate(w http.ResponseWriter, r *http.Request) (gamemaster.PlayerID, bool) {
	if h.verifier == nil {
		return gamemaster.PlayerID(uuid.NewString()), true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Session token is required", http.StatusUnauthorized)
		return "", false
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		slog.Warn("Rejected WebSocket connection with invalid token", "error", err)
		http.Error(w, "Invalid session token", http.StatusUnauthorized)
		return "", false
	}
	return gamemaster.PlayerID(claims.Subject), true
}

// readPump runs for the lifetime of the connection and dispatches client frames.
func (h *WebsocketHandler) readPump(ctx context.Context, c *client) {
	defer func() {
		slog.Info("Closing WebSocket connection", "playerID", c.playerID)
		leaveCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		if err := h.gm.Disconnect(leaveCtx, c.playerID); err != nil {
			slog.Warn("Failed to release disconnected player", "playerID", c.playerID, "error", err)
		}
		cancel()
		h.connections.Remove(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket connection closed unexpectedly", "playerID", c.playerID, "error", err)
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.enqueue(FrameError, ErrorPayload{Message: "malformed frame"})
			continue
		}
		h.dispatch(ctx, c, f)
	}
}

func (h *WebsocketHandler) dispatch(ctx context.Context, c *client, f Frame) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch f.Type {
	case FrameMatchup:
		err := h.gm.Matchup(ctx, gamemaster.MatchupRequest{PlayerID: c.playerID, Recipients: c.recipients()})
		switch {
		case err == nil:
		case errors.Is(err, gamemaster.ErrAlreadyQueued), errors.Is(err, gamemaster.ErrAlreadyInMatch):
			c.enqueue(FrameError, ErrorPayload{Message: err.Error()})
		default:
			slog.Error("Matchup request failed", "playerID", c.playerID, "error", err)
			c.enqueue(FrameError, ErrorPayload{Message: "matchup failed"})
		}

	case FrameMove:
		mv, err := decodePayload[MovePayload](f)
		if err != nil {
			c.enqueue(FrameError, ErrorPayload{Message: "malformed move"})
			return
		}
		err = h.gm.Move(ctx, gamemaster.MoveRequest{
			PlayerID: c.playerID,
			From:     gamemaster.Position(mv.From),
			To:       gamemaster.Position(mv.To),
		})
		switch {
		case err == nil:
		case errors.Is(err, gamemaster.ErrUnknownPlayer):
			c.enqueue(FrameRejected, gamemaster.MoveRejected{})
		default:
			slog.Error("Move request failed", "playerID", c.playerID, "error", err)
			c.enqueue(FrameError, ErrorPayload{Message: "internal error"})
		}

	case FrameLeave:
		if _, err := h.gm.Leave(ctx, c.playerID); err != nil {
			slog.Error("Leave request failed", "playerID", c.playerID, "error", err)
		}

	default:
		c.enqueue(FrameError, ErrorPayload{Message: "unknown frame type"})
	}
}

// client is one player's websocket connection.
type client struct {
	playerID  gamemaster.PlayerID
	conn      *websocket.Conn
	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// enqueue hands a frame to the write pump without blocking.
func (c *client) enqueue(t string, payload any) error {
	b, err := encodeFrame(t, payload)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.closed:
		return ErrClientClosed
	default:
		return ErrSendBufferFull
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

func (c *client) recipients() gamemaster.Recipients {
	return gamemaster.Recipients{
		MatchFound: gamemaster.RecipientFunc[gamemaster.MatchFound](func(m gamemaster.MatchFound) error {
			return c.enqueue(FrameMatchFound, m)
		}),
		State: gamemaster.RecipientFunc[gamemaster.StateSnapshot](func(m gamemaster.StateSnapshot) error {
			return c.enqueue(FrameState, m)
		}),
		Update: gamemaster.RecipientFunc[gamemaster.MoveUpdate](func(m gamemaster.MoveUpdate) error {
			return c.enqueue(FrameUpdate, m)
		}),
		Rejected: gamemaster.RecipientFunc[gamemaster.MoveRejected](func(m gamemaster.MoveRejected) error {
			return c.enqueue(FrameRejected, m)
		}),
	}
}

// writePump owns all writes to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("Failed to write to WebSocket", "playerID", c.playerID, "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
