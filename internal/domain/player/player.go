// Package player holds per-player identity, ability state, and the
// private game view. This package is PURE domain logic and must NOT
// import infrastructure.
package player

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lunarfang/werewolf-arena/internal/domain/role"
)

// Player is one seat at the table. Ability fields are only ever
// touched for the player's own role; they stay flat so sessions
// serialize cleanly.
type Player struct {
	Name        string    `json:"name"`
	Role        role.Role `json:"role"`
	Model       string    `json:"model,omitempty"`
	Personality string    `json:"personality,omitempty"`

	// Observations is the private journal. Every entry is prefixed
	// "Round N:" so it can be regrouped per round.
	Observations []string `json:"observations"`

	// BidRationale carries the reasoning from the player's last debate
	// bid into the speech that follows it.
	BidRationale string `json:"bid_rationale,omitempty"`

	// Guarded is the guard's protection history, newest last.
	Guarded []string `json:"guarded,omitempty"`
	// HasSaved and HasPoisoned are the witch's single-use charges.
	HasSaved    bool `json:"has_saved,omitempty"`
	HasPoisoned bool `json:"has_poisoned,omitempty"`
	// Unmasked maps investigated names to their true role (seer).
	Unmasked map[string]role.Role `json:"unmasked,omitempty"`
	// Shot records the hunter's target, if the shot was ever taken.
	Shot string `json:"shot,omitempty"`

	View *GameView `json:"view,omitempty"`
}

// New creates a player with an initialized ability state for its role.
func New(name string, r role.Role) *Player {
	p := &Player{Name: name, Role: r}
	if r == role.Seer {
		p.Unmasked = make(map[string]role.Role)
	}
	return p
}

// InitView resets the player's private view for a (new or resumed)
// session. alive is copied; callers may keep mutating their slice.
func (p *Player) InitView(roundNumber int, alive []string, otherWolf string) {
	p.View = NewGameView(roundNumber, alive, otherWolf)
}

// AddObservation appends a private observation, stamped with the
// current round from the player's view.
func (p *Player) AddObservation(text string) {
	round := 0
	if p.View != nil {
		round = p.View.RoundNumber
	}
	p.Observations = append(p.Observations, fmt.Sprintf("Round %d: %s", round, text))
}

// GroupedObservations regroups the journal per round, oldest first,
// one formatted block per round.
func (p *Player) GroupedObservations() []string {
	grouped := make(map[int][]string)
	for _, obs := range p.Observations {
		head, rest, ok := strings.Cut(obs, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(head)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		text := strings.ReplaceAll(strings.TrimSpace(rest), `"`, "")
		grouped[n] = append(grouped[n], text)
	}

	rounds := make([]int, 0, len(grouped))
	for n := range grouped {
		rounds = append(rounds, n)
	}
	sort.Ints(rounds)

	blocks := make([]string, 0, len(rounds))
	for _, n := range rounds {
		var b strings.Builder
		fmt.Fprintf(&b, "Round %d:\n", n)
		for i, obs := range grouped[n] {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("   - ")
			b.WriteString(obs)
		}
		blocks = append(blocks, b.String())
	}
	return blocks
}

// LastGuarded returns the most recent protection target, or "".
func (p *Player) LastGuarded() string {
	if len(p.Guarded) == 0 {
		return ""
	}
	return p.Guarded[len(p.Guarded)-1]
}

// RecordGuard appends a protection target to the guard's history.
func (p *Player) RecordGuard(name string) {
	p.Guarded = append(p.Guarded, name)
}

// HasUnmasked reports whether the seer already investigated name.
func (p *Player) HasUnmasked(name string) bool {
	_, ok := p.Unmasked[name]
	return ok
}

// RecordUnmask stores an investigation result.
func (p *Player) RecordUnmask(name string, r role.Role) {
	if p.Unmasked == nil {
		p.Unmasked = make(map[string]role.Role)
	}
	p.Unmasked[name] = r
}
