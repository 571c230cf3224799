package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/game"
)

// ErrSessionNotFound is returned when loading an unknown session id.
var ErrSessionNotFound = errors.New("storage: session not found")

// SessionRepository persists session aggregates round by round.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SaveState upserts the session header and every round document. Call
// it after each completed round so a crash loses at most the round in
// flight.
func (r *SessionRepository) SaveState(ctx context.Context, st *game.State) error {
	configDoc, err := json.Marshal(st.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	rosterDoc, err := json.Marshal(st.Roster)
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}
	playersDoc, err := json.Marshal(st.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal players: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, config, roster, players, winner, error_message, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			players = excluded.players,
			winner = excluded.winner,
			error_message = excluded.error_message,
			last_updated = excluded.last_updated`,
		st.ID, string(configDoc), string(rosterDoc), string(playersDoc),
		string(st.Winner), st.ErrorMessage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for i, rd := range st.Rounds {
		doc, err := json.Marshal(rd)
		if err != nil {
			return fmt.Errorf("failed to marshal round %d: %w", i, err)
		}
		var lg *game.RoundLog
		if i < len(st.Logs) {
			lg = st.Logs[i]
		}
		logDoc, err := json.Marshal(lg)
		if err != nil {
			return fmt.Errorf("failed to marshal round log %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rounds (session_id, round_idx, doc, log_doc, success)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(session_id, round_idx) DO UPDATE SET
				doc = excluded.doc,
				log_doc = excluded.log_doc,
				success = excluded.success`,
			st.ID, i, string(doc), string(logDoc), rd.Success,
		)
		if err != nil {
			return fmt.Errorf("failed to save round %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// AppendDecision writes one audited decision as it happens.
func (r *SessionRepository) AppendDecision(ctx context.Context, sessionID string, roundIdx int, phase, actor, value string, log json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO decisions (session_id, round_idx, phase, actor, value, log)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, roundIdx, phase, actor, value, string(log),
	)
	if err != nil {
		return fmt.Errorf("failed to append decision: %w", err)
	}
	return nil
}

// LoadState reads a session aggregate back as it was persisted. Views
// and ability flags are NOT rebuilt here; use Resume for a playable
// state.
func (r *SessionRepository) LoadState(ctx context.Context, id string) (*game.State, error) {
	var configDoc, rosterDoc, playersDoc, winner, errorMessage string
	err := r.db.QueryRowContext(ctx, `
		SELECT config, roster, players, winner, error_message
		FROM sessions WHERE id = ?`, id,
	).Scan(&configDoc, &rosterDoc, &playersDoc, &winner, &errorMessage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var cfg game.Config
	if err := json.Unmarshal([]byte(configDoc), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	var roster []string
	if err := json.Unmarshal([]byte(rosterDoc), &roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster: %w", err)
	}
	players := make(map[string]*player.Player)
	if err := json.Unmarshal([]byte(playersDoc), &players); err != nil {
		return nil, fmt.Errorf("failed to unmarshal players: %w", err)
	}

	st := game.NewStateFromPlayers(id, cfg, roster, players)
	st.Winner = game.Winner(winner)
	st.ErrorMessage = errorMessage

	rows, err := r.db.QueryContext(ctx, `
		SELECT doc, log_doc FROM rounds WHERE session_id = ? ORDER BY round_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc, logDoc string
		if err := rows.Scan(&doc, &logDoc); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		var rd game.Round
		if err := json.Unmarshal([]byte(doc), &rd); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round: %w", err)
		}
		var lg game.RoundLog
		if err := json.Unmarshal([]byte(logDoc), &lg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round log: %w", err)
		}
		st.Rounds = append(st.Rounds, &rd)
		st.Logs = append(st.Logs, &lg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading rounds: %w", err)
	}
	return st, nil
}

// Resume loads a session and rebuilds it into a playable state: the
// failed round (if any) is discarded and views and ability flags are
// reconstructed from the surviving round records.
func (r *SessionRepository) Resume(ctx context.Context, id string) (*game.State, error) {
	st, err := r.LoadState(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Rebuild(st); err != nil {
		return nil, err
	}
	// Drop any persisted rounds beyond the rebuilt history.
	_, err = r.db.ExecContext(ctx, `
		DELETE FROM rounds WHERE session_id = ? AND round_idx >= ?`, id, len(st.Rounds))
	if err != nil {
		return nil, fmt.Errorf("failed to prune discarded rounds: %w", err)
	}
	return st, nil
}

// ListSessions returns the known session ids, most recent first.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM sessions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
