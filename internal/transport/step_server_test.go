package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/infra/storage"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

func testGateway(t *testing.T) (*httptest.Server, *storage.SessionRepository) {
	t.Helper()
	db, err := storage.InitSQLite(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := storage.NewSessionRepository(db)
	srv := NewStepServer(repo, nil, logger.New())
	ts := httptest.NewServer(http.HandlerFunc(srv.ServeWS))
	t.Cleanup(ts.Close)
	return ts, repo
}

func dialGateway(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func smallConfig() *game.Config {
	return &game.Config{
		Names:          []string{"Derek", "Scott", "Mia", "Paul"},
		NumWerewolves:  1,
		MaxDebateTurns: 1,
		SheriffEnabled: false,
		Workers:        1,
		Seed:           7,
	}
}

// drive answers every request with its first legal option (or a stock
// statement) until the game ends, returning the final frame.
func drive(t *testing.T, conn *websocket.Conn) *outboundFrame {
	t.Helper()
	for steps := 0; steps < 10000; steps++ {
		var frame outboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		switch frame.Type {
		case frameRequest:
			value := "I have nothing to add."
			if len(frame.Request.Options) > 0 {
				value = frame.Request.Options[0]
			}
			reply := inboundFrame{Type: frameDecision, Value: value, Log: json.RawMessage(`{"source":"test"}`)}
			if err := conn.WriteJSON(&reply); err != nil {
				t.Fatalf("write failed: %v", err)
			}
		case frameRoundComplete:
			continue
		case frameGameOver:
			return &frame
		case frameError:
			t.Fatalf("gateway error: %s", frame.Message)
		default:
			t.Fatalf("unexpected frame type %q", frame.Type)
		}
	}
	t.Fatal("game did not terminate")
	return nil
}

func TestGatewayDrivesGameToCompletion(t *testing.T) {
	ts, repo := testGateway(t)
	conn := dialGateway(t, ts)

	if err := conn.WriteJSON(&inboundFrame{Type: frameStart, Config: smallConfig()}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	final := drive(t, conn)

	if final.Result == nil || !final.Result.GameOver || final.Result.Winner == game.WinnerNone {
		t.Fatalf("game did not finish cleanly: %+v", final.Result)
	}

	// The finished session is on disk with its outcome.
	st, err := repo.LoadState(context.Background(), final.SessionID)
	if err != nil {
		t.Fatalf("finished session not persisted: %v", err)
	}
	if st.Winner != final.Result.Winner {
		t.Errorf("persisted winner %q, reported %q", st.Winner, final.Result.Winner)
	}
	if len(st.Rounds) == 0 {
		t.Error("no rounds persisted")
	}
	for i, rd := range st.Rounds {
		if !rd.Success {
			t.Errorf("round %d persisted unsuccessful", i)
		}
	}
}

func TestGatewayAuditsDecisions(t *testing.T) {
	ts, repo := testGateway(t)
	conn := dialGateway(t, ts)

	if err := conn.WriteJSON(&inboundFrame{Type: frameStart, Config: smallConfig()}); err != nil {
		t.Fatal(err)
	}
	final := drive(t, conn)

	sessions, err := repo.ListSessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0] != final.SessionID {
		t.Fatalf("expected exactly the driven session, got %v", sessions)
	}
}

func TestGatewayRejectsUnknownOpeningFrame(t *testing.T) {
	ts, _ := testGateway(t)
	conn := dialGateway(t, ts)

	if err := conn.WriteJSON(&inboundFrame{Type: frameDecision, Value: "Derek"}); err != nil {
		t.Fatal(err)
	}
	var frame outboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if frame.Type != frameError {
		t.Fatalf("expected an error frame, got %q", frame.Type)
	}
}

func TestGatewayResumesUnknownSession(t *testing.T) {
	ts, _ := testGateway(t)
	conn := dialGateway(t, ts)

	if err := conn.WriteJSON(&inboundFrame{Type: frameResume, SessionID: "no-such-session"}); err != nil {
		t.Fatal(err)
	}
	var frame outboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if frame.Type != frameError {
		t.Fatalf("expected an error frame, got %q", frame.Type)
	}
}
