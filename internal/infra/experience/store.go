// Package experience persists vote outcomes across sessions and feeds
// them back into vote prompts as good and bad examples.
package experience

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS vote_experiences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	agent TEXT NOT NULL,
	role TEXT NOT NULL,
	round INTEGER NOT NULL,
	reflection TEXT,
	vote TEXT NOT NULL,
	reward INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_vote_experiences_role ON vote_experiences(role, reward);
`

// Store is the sqlite-backed experience log. Rewards favor ballots
// that hit a werewolf early.
type Store struct {
	db  *sql.DB
	log *logger.Logger

	// goodLimit bounds the positive examples attached per request.
	goodLimit int
}

// NewStore prepares the experience schema on an open database.
func NewStore(db *sql.DB, log *logger.Logger) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("experience schema: %w", err)
	}
	return &Store{db: db, log: log, goodLimit: 2}, nil
}

// RecordVote appends one ballot outcome.
func (s *Store) RecordVote(ctx context.Context, sessionID, agent, roleName string, round int, reflection, vote string, reward int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vote_experiences (session_id, agent, role, round, reflection, vote, reward)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, agent, roleName, round, reflection, vote, reward)
	if err != nil {
		return fmt.Errorf("record vote experience: %w", err)
	}
	return nil
}

// VoteExperience retrieves the strongest and weakest remembered
// ballots for the agent's role. An empty store returns nil without
// error so its absence never changes control flow.
func (s *Store) VoteExperience(ctx context.Context, sessionID, agent, roleName string) (*decider.VoteExperience, error) {
	good, err := s.queryExamples(ctx, roleName, "DESC", s.goodLimit)
	if err != nil {
		return nil, err
	}
	if len(good) == 0 {
		return nil, nil
	}
	bad, err := s.queryExamples(ctx, roleName, "ASC", 1)
	if err != nil {
		return nil, err
	}

	exp := &decider.VoteExperience{Good: good}
	// The weakest ballot only teaches when it is genuinely worse than
	// the examples held up as good.
	if len(bad) > 0 && bad[0].Reward < good[len(good)-1].Reward {
		exp.Bad = &bad[0]
	}
	return exp, nil
}

func (s *Store) queryExamples(ctx context.Context, roleName, order string, limit int) ([]decider.VoteExample, error) {
	query := fmt.Sprintf(`
		SELECT reflection, vote, reward FROM vote_experiences
		WHERE role = ? ORDER BY reward %s, id DESC LIMIT ?`, order)
	rows, err := s.db.QueryContext(ctx, query, roleName, limit)
	if err != nil {
		return nil, fmt.Errorf("query vote experiences: %w", err)
	}
	defer rows.Close()

	var out []decider.VoteExample
	for rows.Next() {
		var ex decider.VoteExample
		if err := rows.Scan(&ex.Reflection, &ex.Vote, &ex.Reward); err != nil {
			return nil, fmt.Errorf("scan vote experience: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}
