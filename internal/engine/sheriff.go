package engine

import (
	"fmt"
	"strings"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/game"
)

// SheriffCause explains how a player came to hold the badge.
type SheriffCause int

const (
	SheriffElected SheriffCause = iota
	SheriffContinues
	SheriffBadge
	SheriffNone
)

// RunForSheriffRequest asks one player whether they stand for
// election.
func (r *Resolver) RunForSheriffRequest(p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionRunForSheriff, []string{"Yes", "No"}, false)
}

// ApplyRunForSheriff registers a candidacy on a yes.
func (r *Resolver) ApplyRunForSheriff(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Campaign = append(lg.Campaign, record(req.Player, dec))
	if dec.Value != "Yes" {
		return nil
	}
	rd.SheriffCandidates = append(rd.SheriffCandidates, req.Player)
	for _, name := range rd.Players {
		if p := r.st.Player(name); p != nil && p.View != nil {
			p.View.AddCandidate(req.Player)
		}
	}
	r.announce(rd, fmt.Sprintf("%s is now a candidate for the sheriff.", req.Player))
	return nil
}

// CampaignRequest asks a candidate for their campaign speech.
func (r *Resolver) CampaignRequest(p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionDebate, nil, false)
}

// ElectRequest asks a non-candidate for their election ballot.
func (r *Resolver) ElectRequest(rd *game.Round, p *player.Player) *decider.Request {
	options := make([]string, 0, len(rd.SheriffCandidates))
	for _, c := range rd.SheriffCandidates {
		if c != p.Name {
			options = append(options, c)
		}
	}
	return r.NewRequest(p, decider.ActionElect, options, true)
}

// ApplyElect records one election ballot into the accumulator.
func (r *Resolver) ApplyElect(ballot map[string]string, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	if p := r.st.Player(req.Player); p != nil {
		p.AddObservation(fmt.Sprintf("Before the debate, I elected %s to be the sheriff.", dec.Value))
	}
	ballot[req.Player] = dec.Value
	return nil
}

// CommitElect appends the completed election poll and seats the
// plurality winner.
func (r *Resolver) CommitElect(rd *game.Round, lg *game.RoundLog, ballot map[string]string, recs []game.Record) {
	rd.Elect = append(rd.Elect, ballot)
	lg.Elect = append(lg.Elect, recs)

	counts := make(map[string]int, len(ballot))
	for _, voter := range r.st.Roster {
		if target, ok := ballot[voter]; ok {
			counts[target]++
		}
	}
	if winner := r.firstMax(counts); winner != "" {
		r.DetermineSheriff(rd, winner, SheriffElected)
	} else {
		r.DetermineSheriff(rd, "", SheriffNone)
	}
}

// DetermineSheriff seats (or vacates) the badge and tells the table.
func (r *Resolver) DetermineSheriff(rd *game.Round, sheriff string, cause SheriffCause) {
	rd.Sheriff = sheriff

	var announcement string
	switch cause {
	case SheriffElected:
		announcement = fmt.Sprintf("The majority elected %s as the sheriff.", sheriff)
	case SheriffContinues:
		announcement = fmt.Sprintf("%s is still the sheriff.", sheriff)
	case SheriffBadge:
		announcement = fmt.Sprintf("The former sheriff named %s as the sheriff.", sheriff)
	case SheriffNone:
		announcement = "No one is running for sheriff. This round will proceed without a sheriff."
	}

	for _, name := range rd.Players {
		if p := r.st.Player(name); p != nil && p.View != nil {
			p.View.SetSheriff(sheriff)
		}
	}
	r.announce(rd, announcement)
}

// BadgeFlowOffered reports whether a badge succession is due after the
// night: the standing sheriff died and must pass the badge on.
func (r *Resolver) BadgeFlowOffered(rd *game.Round, lastSheriff string) *player.Player {
	if lastSheriff == "" || rd.IsAlive(lastSheriff) {
		return nil
	}
	return r.st.Player(lastSheriff)
}

// BadgeFlowRequest asks the (dead) sheriff to name a successor.
func (r *Resolver) BadgeFlowRequest(rd *game.Round, sheriff *player.Player) *decider.Request {
	return r.NewRequest(sheriff, decider.ActionBadgeFlow, aliveExcept(rd, sheriff.Name), true)
}

// ApplyBadgeFlow hands the badge to the named successor.
func (r *Resolver) ApplyBadgeFlow(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.BadgeFlow = ptr(record(req.Player, dec))
	r.DetermineSheriff(rd, dec.Value, SheriffBadge)
	return nil
}

// StatementOrderRequest asks the sheriff to choose between the two
// legal speaking orders.
func (r *Resolver) StatementOrderRequest(sheriff *player.Player) *decider.Request {
	orders := sheriff.View.LegalOrders(sheriff.Name)
	options := make([]string, 0, len(orders))
	for _, o := range orders {
		options = append(options, player.FormatOrder(o))
	}
	return r.NewRequest(sheriff, decider.ActionStatementOrder, options, false)
}

// ApplyStatementOrder fixes the day's speaking order.
func (r *Resolver) ApplyStatementOrder(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Order = ptr(record(req.Player, dec))
	rd.StatementOrder = ParseOrder(dec.Value)
	r.announce(rd, fmt.Sprintf("The order of statements is %s", dec.Value))
	return nil
}

// SheriffSummaryRequest asks the sheriff to close the debate.
func (r *Resolver) SheriffSummaryRequest(sheriff *player.Player) *decider.Request {
	return r.NewRequest(sheriff, decider.ActionSheriffSummary, nil, false)
}

// ParseOrder turns "[A, B, C]" back into its name list.
func ParseOrder(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	order := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			order = append(order, name)
		}
	}
	return order
}
