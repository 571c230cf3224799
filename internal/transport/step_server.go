// Package transport exposes sessions over WebSocket: one connection
// drives one session in lockstep, receiving decision requests and
// sending decisions back.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/engine"
	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/infra/storage"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed for the peer to produce the next decision.
	decisionWait = 10 * time.Minute
	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// Inbound frames.
const (
	frameStart    = "start"
	frameResume   = "resume"
	frameDecision = "decision"
)

// Outbound frames.
const (
	frameRequest       = "request"
	frameRoundComplete = "round_complete"
	frameGameOver      = "game_over"
	frameError         = "error"
)

type inboundFrame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Config    *game.Config    `json:"config,omitempty"`
	Value     string          `json:"value,omitempty"`
	Log       json.RawMessage `json:"log,omitempty"`
}

type outboundFrame struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id,omitempty"`
	Request   *decider.Request   `json:"request,omitempty"`
	Result    *engine.StepResult `json:"result,omitempty"`
	Message   string             `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StepServer serves sessions over WebSocket. The peer opens with a
// start or resume frame, then answers every request frame with a
// decision frame. The session is persisted at every round boundary.
type StepServer struct {
	repo *storage.SessionRepository
	exp  engine.Experience
	log  *logger.Logger
}

// NewStepServer wires the gateway over its storage and experience
// dependencies. exp may be nil.
func NewStepServer(repo *storage.SessionRepository, exp engine.Experience, log *logger.Logger) *StepServer {
	return &StepServer{repo: repo, exp: exp, log: log}
}

// ServeWS upgrades the request and drives the session until it ends or
// the peer disconnects.
func (s *StepServer) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error(fmt.Sprintf("failed to upgrade websocket connection: %v", err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	if err := s.serve(r.Context(), conn); err != nil {
		s.log.Warn(fmt.Sprintf("session connection closed: %v", err))
		s.writeFrame(conn, &outboundFrame{Type: frameError, Message: err.Error()})
	}
}

func (s *StepServer) serve(ctx context.Context, conn *websocket.Conn) error {
	open, err := s.readFrame(conn)
	if err != nil {
		return err
	}

	var st *game.State
	switch open.Type {
	case frameStart:
		cfg := game.DefaultConfig()
		if open.Config != nil {
			cfg = *open.Config
		}
		st, err = game.NewState(cfg)
		if err != nil {
			return err
		}
	case frameResume:
		st, err = s.repo.Resume(ctx, open.SessionID)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("transport: expected %s or %s frame, got %q", frameStart, frameResume, open.Type)
	}
	s.log.Event("SESSION_ATTACHED", st.ID, fmt.Sprintf("%d rounds on record", len(st.Rounds)))

	res := engine.NewResolver(st, s.log, s.exp)
	sched := engine.NewScheduler(res, s.log)

	var dec *decider.Decision
	for {
		req, result, err := sched.Step(ctx, dec)
		if err != nil {
			if saveErr := s.repo.SaveState(ctx, st); saveErr != nil {
				s.log.Error(fmt.Sprintf("failed to persist failed session %s: %v", st.ID, saveErr))
			}
			return err
		}
		dec = nil

		if result != nil {
			if err := s.repo.SaveState(ctx, st); err != nil {
				return fmt.Errorf("transport: persist round %d: %w", result.Round, err)
			}
			kind := frameRoundComplete
			if result.GameOver {
				kind = frameGameOver
			}
			if err := s.writeFrame(conn, &outboundFrame{Type: kind, SessionID: st.ID, Result: result}); err != nil {
				return err
			}
			if result.GameOver {
				return nil
			}
			continue
		}

		if err := s.writeFrame(conn, &outboundFrame{Type: frameRequest, SessionID: st.ID, Request: req}); err != nil {
			return err
		}
		frame, err := s.readFrame(conn)
		if err != nil {
			return err
		}
		if frame.Type != frameDecision {
			return fmt.Errorf("transport: expected %s frame, got %q", frameDecision, frame.Type)
		}
		dec = &decider.Decision{Value: frame.Value, Log: frame.Log}
		if roundIdx := st.RoundNumber(); roundIdx >= 0 {
			if err := s.repo.AppendDecision(ctx, st.ID, roundIdx, string(req.Action), req.Player, dec.Value, dec.Log); err != nil {
				s.log.Warn(fmt.Sprintf("failed to audit decision for %s: %v", st.ID, err))
			}
		}
	}
}

func (s *StepServer) readFrame(conn *websocket.Conn) (*inboundFrame, error) {
	conn.SetReadDeadline(time.Now().Add(decisionWait))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var frame inboundFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return nil, fmt.Errorf("transport: malformed frame: %w", err)
	}
	return &frame, nil
}

func (s *StepServer) writeFrame(conn *websocket.Conn, frame *outboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("transport: serialize frame: %w", err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
