// Package decider defines the contract between the engine and the
// decision-maker: the engine emits requests describing what one player
// must decide, and receives back a single value with its provenance.
// Implementations range from scripted test doubles to LLM clients.
package decider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lunarfang/werewolf-arena/internal/domain/player"
)

// ActionKind names a decision the engine can request.
type ActionKind string

const (
	ActionVote           ActionKind = "vote"
	ActionRemove         ActionKind = "remove"
	ActionInvestigate    ActionKind = "investigate"
	ActionProtect        ActionKind = "protect"
	ActionSave           ActionKind = "save"
	ActionPoison         ActionKind = "poison"
	ActionShoot          ActionKind = "shoot"
	ActionBid            ActionKind = "bid"
	ActionDebate         ActionKind = "debate"
	ActionElect          ActionKind = "elect"
	ActionRunForSheriff  ActionKind = "run_for_sheriff"
	ActionStatementOrder ActionKind = "determine_statement_order"
	ActionBadgeFlow      ActionKind = "badge_flow"
	ActionPseudoVote     ActionKind = "pseudo_vote"
	ActionSheriffSummary ActionKind = "sheriff_summarize"
	ActionSummarize      ActionKind = "summarize"
)

// View is the snapshot of everything the deciding player may know.
// It never leaks another player's private state.
type View struct {
	Player      string `json:"player"`
	Role        string `json:"role"`
	Round       int    `json:"round"`
	Personality string `json:"personality,omitempty"`

	Alive  []string           `json:"alive"`
	Debate []player.Utterance `json:"debate,omitempty"`

	// Observations are the player's journal, grouped per round.
	Observations []string `json:"observations,omitempty"`

	Sheriff    string   `json:"sheriff,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
	OtherWolf  string   `json:"other_wolf,omitempty"`

	DebateTurnsLeft int    `json:"debate_turns_left,omitempty"`
	BidRationale    string `json:"bid_rationale,omitempty"`
}

// VoteExample is one remembered ballot with its outcome reward.
type VoteExample struct {
	Reflection string `json:"reflection"`
	Vote       string `json:"vote"`
	Reward     int    `json:"reward"`
}

// VoteExperience enriches a vote request with past examples. Its
// absence changes only the information supplied, never control flow.
type VoteExperience struct {
	Good []VoteExample `json:"good,omitempty"`
	Bad  *VoteExample  `json:"bad,omitempty"`
}

// Request asks one player for one decision. Options, when non-empty,
// is the closed set of legal values; free-text actions (debate,
// summaries) leave it empty.
type Request struct {
	Player     string          `json:"player"`
	Action     ActionKind      `json:"action"`
	View       View            `json:"view"`
	Options    []string        `json:"options,omitempty"`
	Experience *VoteExperience `json:"experience,omitempty"`
}

// Constrained reports whether the request carries a closed option set.
func (r *Request) Constrained() bool {
	return len(r.Options) > 0
}

// Allows reports whether value is legal for this request.
func (r *Request) Allows(value string) bool {
	if !r.Constrained() {
		return value != ""
	}
	for _, o := range r.Options {
		if o == value {
			return true
		}
	}
	return false
}

// Decision is one answered request. Log is an opaque provenance blob
// (prompt, raw reply, reasoning) carried into the audit trail.
type Decision struct {
	Value string          `json:"value"`
	Log   json.RawMessage `json:"log,omitempty"`
}

// Decider produces a decision for a request. Implementations own their
// retries: an error return is fatal to the round.
type Decider interface {
	Decide(ctx context.Context, req *Request) (*Decision, error)
}

// Func adapts a function to the Decider interface.
type Func func(ctx context.Context, req *Request) (*Decision, error)

func (f Func) Decide(ctx context.Context, req *Request) (*Decision, error) {
	return f(ctx, req)
}

// ErrNoDecision is returned when a required decision never arrived.
var ErrNoDecision = errors.New("decider: no decision produced")

// InvalidDecisionError marks a value outside the request's legal set.
type InvalidDecisionError struct {
	Player string
	Action ActionKind
	Value  string
}

func (e *InvalidDecisionError) Error() string {
	return fmt.Sprintf("decider: invalid %s decision by %s: %q", e.Action, e.Player, e.Value)
}

// ErrInvalidDecision lets callers match invalid decisions with
// errors.Is without holding the concrete type.
var ErrInvalidDecision = errors.New("decider: invalid decision")

func (e *InvalidDecisionError) Is(target error) bool {
	return target == ErrInvalidDecision
}

// Validate checks a decision against its request.
func Validate(req *Request, dec *Decision) error {
	if dec == nil {
		return ErrNoDecision
	}
	if !req.Allows(dec.Value) {
		return &InvalidDecisionError{Player: req.Player, Action: req.Action, Value: dec.Value}
	}
	return nil
}
