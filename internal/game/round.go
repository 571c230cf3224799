package game

import (
	"encoding/json"

	"github.com/lunarfang/werewolf-arena/internal/domain/player"
)

// Round is the per-round scratch record. Name fields hold "" until the
// corresponding action resolves; they record the *choice*, not whether
// the target actually died (resolution can cancel an elimination).
type Round struct {
	// Players is the roster alive at the start of the round. Deaths
	// during the round remove names in place.
	Players []string `json:"players"`

	Eliminated string `json:"eliminated,omitempty"`
	Protected  string `json:"protected,omitempty"`
	Saved      string `json:"saved,omitempty"`
	Poisoned   string `json:"poisoned,omitempty"`
	Unmasked   string `json:"unmasked,omitempty"`
	Shot       string `json:"shot,omitempty"`
	Exiled     string `json:"exiled,omitempty"`

	Debate []player.Utterance `json:"debate,omitempty"`

	// Bids holds one map per debate turn; Votes, PseudoVotes and Elect
	// hold one ballot map per polling pass.
	Bids        []map[string]int    `json:"bids,omitempty"`
	Votes       []map[string]string `json:"votes,omitempty"`
	PseudoVotes []map[string]string `json:"pseudo_votes,omitempty"`
	Elect       []map[string]string `json:"elect,omitempty"`

	Sheriff           string   `json:"sheriff,omitempty"`
	SheriffCandidates []string `json:"sheriff_candidates,omitempty"`
	StatementOrder    []string `json:"statement_order,omitempty"`

	// Success is set only when the round ran to completion. Resume
	// discards rounds that never got here.
	Success bool `json:"success"`
}

// NewRound starts a round over a copy of the given roster.
func NewRound(alive []string) *Round {
	return &Round{Players: append([]string(nil), alive...)}
}

// IsAlive reports whether name is still in the round's roster.
func (r *Round) IsAlive(name string) bool {
	for _, p := range r.Players {
		if p == name {
			return true
		}
	}
	return false
}

// Remove drops a dead player from the round roster.
func (r *Round) Remove(name string) {
	for i, p := range r.Players {
		if p == name {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return
		}
	}
}

// Record is one audited decision: who chose what, plus the raw
// provenance blob the decision-maker returned.
type Record struct {
	Actor string          `json:"actor"`
	Value string          `json:"value"`
	Log   json.RawMessage `json:"log,omitempty"`
}

// RoundLog is the per-round audit trail, parallel to Round.
type RoundLog struct {
	Eliminate   *Record    `json:"eliminate,omitempty"`
	Protect     *Record    `json:"protect,omitempty"`
	Save        *Record    `json:"save,omitempty"`
	Poison      *Record    `json:"poison,omitempty"`
	Investigate *Record    `json:"investigate,omitempty"`
	Shoot       *Record    `json:"shoot,omitempty"`
	Bids        [][]Record `json:"bids,omitempty"`
	Debate      []Record   `json:"debate,omitempty"`
	Votes       [][]Record `json:"votes,omitempty"`
	PseudoVotes [][]Record `json:"pseudo_votes,omitempty"`
	Elect       [][]Record `json:"elect,omitempty"`
	Campaign    []Record   `json:"campaign,omitempty"`
	Order       *Record    `json:"order,omitempty"`
	BadgeFlow   *Record    `json:"badge_flow,omitempty"`
	Summaries   []Record   `json:"summaries,omitempty"`
}
