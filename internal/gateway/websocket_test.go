package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cheildo/nexus-checkers/internal/auth"
	"github.com/cheildo/nexus-checkers/internal/gamemaster"
)

func newTestServer(t *testing.T, verifier TokenVerifier) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	gm := gamemaster.NewOrchestrator(gamemaster.Config{}, nil, nil)
	go gm.Run(ctx)

	srv := httptest.NewServer(NewWebsocketHandler(gm, verifier, nil))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	b, err := encodeFrame(typ, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func expect(t *testing.T, conn *websocket.Conn, typ string) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("waiting for %q: %v", typ, err)
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if f.Type != typ {
		t.Fatalf("expected %q frame, got %q: %s", typ, f.Type, f.Payload)
	}
	return f
}

func welcome(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	w, err := decodePayload[WelcomePayload](expect(t, conn, FrameWelcome))
	if err != nil || w.PlayerID == "" {
		t.Fatalf("bad welcome: %+v (%v)", w, err)
	}
	return w.PlayerID
}

func TestWebsocket_MatchAndPlay(t *testing.T) {
	srv := newTestServer(t, nil)

	a := dial(t, srv, "")
	b := dial(t, srv, "")
	idA := welcome(t, a)
	idB := welcome(t, b)
	if idA == idB {
		t.Fatalf("expected distinct player ids, got %s twice", idA)
	}

	send(t, a, FrameMatchup, nil)
	send(t, b, FrameMatchup, nil)

	conns := map[string]*websocket.Conn{idA: a, idB: b}
	var found gamemaster.MatchFound
	for _, conn := range conns {
		state, err := decodePayload[gamemaster.StateSnapshot](expect(t, conn, FrameState))
		if err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if state.SideOnTurn != gamemaster.Light || state.Winner != nil {
			t.Fatalf("unexpected initial state: %+v", state)
		}
		found, err = decodePayload[gamemaster.MatchFound](expect(t, conn, FrameMatchFound))
		if err != nil {
			t.Fatalf("decode match found: %v", err)
		}
	}

	light := conns[string(found.LightPlayer)]
	dark := conns[string(found.DarkPlayer)]
	if light == nil || dark == nil || light == dark {
		t.Fatalf("unexpected sides in %+v", found)
	}

	// Dark may not open.
	send(t, dark, FrameMove, MovePayload{From: 9, To: 13})
	expect(t, dark, FrameRejected)

	send(t, light, FrameMove, MovePayload{From: 21, To: 17})
	for _, conn := range []*websocket.Conn{light, dark} {
		upd, err := decodePayload[gamemaster.MoveUpdate](expect(t, conn, FrameUpdate))
		if err != nil {
			t.Fatalf("decode update: %v", err)
		}
		if upd.From != 21 || upd.To != 17 || upd.SideOnTurn != gamemaster.Dark || upd.CapturedPiece != nil {
			t.Fatalf("unexpected update: %+v", upd)
		}
	}
}

func TestWebsocket_MoveWithoutMatchIsRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	conn := dial(t, srv, "")
	welcome(t, conn)

	send(t, conn, FrameMove, MovePayload{From: 21, To: 17})
	expect(t, conn, FrameRejected)
}

func TestWebsocket_BadFrames(t *testing.T) {
	srv := newTestServer(t, nil)
	conn := dial(t, srv, "")
	welcome(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	expect(t, conn, FrameError)

	send(t, conn, "dance", nil)
	expect(t, conn, FrameError)

	send(t, conn, FrameMove, nil)
	expect(t, conn, FrameError)

	send(t, conn, FrameMatchup, nil)
	send(t, conn, FrameMatchup, nil)
	f := expect(t, conn, FrameError)
	if !strings.Contains(string(f.Payload), "already waiting") {
		t.Errorf("expected an already-waiting error, got %s", f.Payload)
	}
}

func TestWebsocket_TokenAuthentication(t *testing.T) {
	tokens := auth.NewTokens(auth.Config{JWTSecret: "secret", TokenDuration: time.Hour})
	srv := newTestServer(t, tokens)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %v (%v)", resp, err)
	}

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=forged", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with a forged token, got %v (%v)", resp, err)
	}

	token, err := tokens.Issue(&auth.User{ID: "user-42", Username: "ann"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	conn := dial(t, srv, "token="+token)
	if id := welcome(t, conn); id != "user-42" {
		t.Fatalf("expected the token subject as player id, got %q", id)
	}

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for a second connection, got %v (%v)", resp, err)
	}
}

func TestWebsocket_DisconnectForfeitsAndPlayerCanRequeue(t *testing.T) {
	tokens := auth.NewTokens(auth.Config{JWTSecret: "secret", TokenDuration: time.Hour})
	srv := newTestServer(t, tokens)

	issue := func(id string) string {
		token, err := tokens.Issue(&auth.User{ID: id, Username: id})
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		return token
	}
	annToken, bobToken := issue("ann"), issue("bob")

	ann := dial(t, srv, "token="+annToken)
	bob := dial(t, srv, "token="+bobToken)
	welcome(t, ann)
	welcome(t, bob)

	send(t, ann, FrameMatchup, nil)
	send(t, bob, FrameMatchup, nil)
	expect(t, ann, FrameState)
	expect(t, ann, FrameMatchFound)
	expect(t, bob, FrameState)
	found, err := decodePayload[gamemaster.MatchFound](expect(t, bob, FrameMatchFound))
	if err != nil {
		t.Fatalf("decode match found: %v", err)
	}
	bobSide := gamemaster.Light
	if found.DarkPlayer == "bob" {
		bobSide = gamemaster.Dark
	}

	ann.Close()

	final, err := decodePayload[gamemaster.StateSnapshot](expect(t, bob, FrameState))
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if final.Winner == nil || *final.Winner != bobSide {
		t.Fatalf("expected bob to win by forfeit, got %+v", final)
	}

	// The old connection is unregistered right after the forfeit; retry until it is gone.
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + annToken
	var again *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			again = conn
			break
		}
		if resp == nil || resp.StatusCode != http.StatusConflict || time.Now().After(deadline) {
			t.Fatalf("reconnect: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Cleanup(func() { again.Close() })
	welcome(t, again)

	send(t, again, FrameMatchup, nil)
	send(t, bob, FrameMatchup, nil)
	expect(t, again, FrameState)
	rematch, err := decodePayload[gamemaster.MatchFound](expect(t, again, FrameMatchFound))
	if err != nil {
		t.Fatalf("decode match found: %v", err)
	}
	if rematch.MatchID == found.MatchID {
		t.Fatalf("expected a new match, got %d again", rematch.MatchID)
	}
}
