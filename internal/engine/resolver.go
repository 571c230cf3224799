// Package engine contains the two drivers of a session — the blocking
// orchestrator and the resumable step scheduler — and the phase
// resolver they share. All rule outcomes live in the resolver so both
// drivers produce identical transcripts for identical decisions.
package engine

import (
	"context"
	"encoding/json"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/domain/role"
	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

// Experience supplies past-ballot examples for vote requests and
// records ballot outcomes. A nil Experience only removes information
// from prompts; it never changes control flow.
type Experience interface {
	VoteExperience(ctx context.Context, sessionID, agent, roleName string) (*decider.VoteExperience, error)
	RecordVote(ctx context.Context, sessionID, agent, roleName string, round int, reflection, vote string, reward int) error
}

// Resolver applies decisions to the session state. Every mutation of a
// Round or a player view goes through here.
type Resolver struct {
	st  *game.State
	log *logger.Logger
	exp Experience
}

// NewResolver builds a resolver over a session. exp may be nil.
func NewResolver(st *game.State, log *logger.Logger, exp Experience) *Resolver {
	return &Resolver{st: st, log: log, exp: exp}
}

// State exposes the underlying session.
func (r *Resolver) State() *game.State { return r.st }

// buildView snapshots everything p may know for a decision request.
func (r *Resolver) buildView(p *player.Player) decider.View {
	v := decider.View{
		Player:       p.Name,
		Role:         p.Role.String(),
		Personality:  p.Personality,
		Observations: p.GroupedObservations(),
		BidRationale: p.BidRationale,
	}
	if p.View != nil {
		v.Round = p.View.RoundNumber
		v.Alive = append([]string(nil), p.View.Alive...)
		v.Debate = append([]player.Utterance(nil), p.View.Debate...)
		v.Sheriff = p.View.Sheriff
		v.Candidates = append([]string(nil), p.View.Candidates...)
		v.OtherWolf = p.View.OtherWolf
		v.DebateTurnsLeft = r.st.Config.MaxDebateTurns - len(p.View.Debate)
		if v.DebateTurnsLeft < 0 {
			v.DebateTurnsLeft = 0
		}
	}
	return v
}

// NewRequest builds a decision request. Target options are shuffled so
// a position-biased decision-maker cannot latch onto seat order;
// fixed-form option sets (Yes/No, statement orders) keep their order.
func (r *Resolver) NewRequest(p *player.Player, action decider.ActionKind, options []string, shuffle bool) *decider.Request {
	opts := append([]string(nil), options...)
	if shuffle {
		r.st.Rand().Shuffle(len(opts), func(i, j int) {
			opts[i], opts[j] = opts[j], opts[i]
		})
	}
	return &decider.Request{
		Player:  p.Name,
		Action:  action,
		View:    r.buildView(p),
		Options: opts,
	}
}

// AttachExperience enriches a vote request with past examples.
func (r *Resolver) AttachExperience(ctx context.Context, req *decider.Request) {
	if r.exp == nil || req.Action != decider.ActionVote {
		return
	}
	p := r.st.Player(req.Player)
	if p == nil {
		return
	}
	exp, err := r.exp.VoteExperience(ctx, r.st.ID, p.Name, p.Role.String())
	if err != nil {
		r.log.Warn("experience lookup failed for " + p.Name + ": " + err.Error())
		return
	}
	req.Experience = exp
}

// announce delivers a moderator announcement to every living player.
func (r *Resolver) announce(rd *game.Round, msg string) {
	for _, name := range rd.Players {
		if p := r.st.Player(name); p != nil {
			p.AddObservation("Moderator Announcement: " + msg)
		}
	}
	r.log.Event("ANNOUNCE", "moderator", msg)
}

// kill removes a player from the round and from every survivor's view.
func (r *Resolver) kill(rd *game.Round, name string) {
	rd.Remove(name)
	for _, alive := range rd.Players {
		if p := r.st.Player(alive); p != nil && p.View != nil {
			p.View.RemovePlayer(name)
		}
	}
}

// CheckWinner evaluates the win conditions and records the outcome.
func (r *Resolver) CheckWinner(rd *game.Round) game.Winner {
	w := r.st.EvaluateWinner(rd)
	if w != game.WinnerNone && r.st.Winner == game.WinnerNone {
		r.st.Winner = w
		r.log.Event("WINNER", string(w), "session "+r.st.ID)
	}
	return r.st.Winner
}

// FinishRound marks the round complete and, if the game goes on, rolls
// every view over to the next round.
func (r *Resolver) FinishRound(rd *game.Round) {
	rd.Success = true
	if r.st.Winner != game.WinnerNone {
		return
	}
	for _, p := range r.st.Players {
		if p.View != nil {
			p.View.RoundNumber++
			p.View.ClearDebate()
		}
	}
}

// record wraps a decision into an audit record.
func record(actor string, dec *decider.Decision) game.Record {
	return game.Record{Actor: actor, Value: dec.Value, Log: dec.Log}
}

// reflectionFrom digs the decision-maker's reasoning out of the
// provenance blob, if there is any.
func reflectionFrom(log json.RawMessage) string {
	if len(log) == 0 {
		return ""
	}
	var doc struct {
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal(log, &doc); err != nil {
		return ""
	}
	return doc.Reasoning
}

// aliveExcept lists the round's living players minus the given names.
func aliveExcept(rd *game.Round, exclude ...string) []string {
	out := make([]string, 0, len(rd.Players))
	for _, name := range rd.Players {
		skip := false
		for _, ex := range exclude {
			if name == ex {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, name)
		}
	}
	return out
}

// aliveHolder returns the living holder of a special role, or nil.
func (r *Resolver) aliveHolder(rd *game.Round, ro role.Role) *player.Player {
	p := r.st.RoleHolder(ro)
	if p == nil || !rd.IsAlive(p.Name) {
		return nil
	}
	return p
}

// aliveWerewolves lists the living wolves in roster order.
func (r *Resolver) aliveWerewolves(rd *game.Round) []*player.Player {
	var wolves []*player.Player
	for _, w := range r.st.Werewolves() {
		if rd.IsAlive(w.Name) {
			wolves = append(wolves, w)
		}
	}
	return wolves
}
