package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/game"
)

var bidOptions = []string{"0", "1", "2", "3", "4"}

// BidRequest asks a player how badly they want the floor.
func (r *Resolver) BidRequest(p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionBid, bidOptions, false)
}

// ApplyBid parses a bid and keeps its rationale for the speech that
// may follow.
func (r *Resolver) ApplyBid(req *decider.Request, dec *decider.Decision) (int, error) {
	if err := decider.Validate(req, dec); err != nil {
		return 0, err
	}
	bid, err := strconv.Atoi(dec.Value)
	if err != nil {
		return 0, &decider.InvalidDecisionError{Player: req.Player, Action: req.Action, Value: dec.Value}
	}
	if p := r.st.Player(req.Player); p != nil {
		p.BidRationale = reflectionFrom(dec.Log)
	}
	return bid, nil
}

// NextSpeaker picks the highest bidder, preferring players named in
// the previous utterance, breaking remaining ties randomly.
func (r *Resolver) NextSpeaker(bids map[string]int, prev *player.Utterance) string {
	max := -1
	for _, bid := range bids {
		if bid > max {
			max = bid
		}
	}
	var top []string
	for _, name := range r.st.Roster {
		if bid, ok := bids[name]; ok && bid == max {
			top = append(top, name)
		}
	}
	if len(top) == 0 {
		return ""
	}
	if prev != nil {
		var mentioned []string
		for _, name := range top {
			if strings.Contains(prev.Text, name) {
				mentioned = append(mentioned, name)
			}
		}
		if len(mentioned) > 0 {
			top = mentioned
		}
	}
	return top[r.st.Rand().Intn(len(top))]
}

// DebateRequest asks a player to speak. Free text, no options.
func (r *Resolver) DebateRequest(p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionDebate, nil, false)
}

// ApplyDebate publishes an utterance to the round and every living
// player's view.
func (r *Resolver) ApplyDebate(rd *game.Round, lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Debate = append(lg.Debate, record(req.Player, dec))
	rd.Debate = append(rd.Debate, player.Utterance{Speaker: req.Player, Text: dec.Value})

	for _, name := range rd.Players {
		if p := r.st.Player(name); p != nil && p.View != nil {
			p.View.AddDebate(req.Player, dec.Value)
		}
	}
	r.log.Event("DEBATE", req.Player, dec.Value)
	return nil
}

// PseudoVoteRequest asks for the pre-debate straw ballot.
func (r *Resolver) PseudoVoteRequest(rd *game.Round, p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionPseudoVote, aliveExcept(rd, p.Name), true)
}

// ApplyPseudoVote records one straw ballot into the accumulator.
func (r *Resolver) ApplyPseudoVote(ballot map[string]string, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	if p := r.st.Player(req.Player); p != nil {
		p.AddObservation(fmt.Sprintf("Before the debate, I plan to remove %s from the game.", dec.Value))
	}
	ballot[req.Player] = dec.Value
	return nil
}

// CommitPseudoVotes appends a completed straw poll to the round.
func (r *Resolver) CommitPseudoVotes(rd *game.Round, lg *game.RoundLog, ballot map[string]string, recs []game.Record) {
	rd.PseudoVotes = append(rd.PseudoVotes, ballot)
	lg.PseudoVotes = append(lg.PseudoVotes, recs)
}

// VoteRequest asks for the exile ballot.
func (r *Resolver) VoteRequest(rd *game.Round, p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionVote, aliveExcept(rd, p.Name), true)
}

// ApplyVote records one exile ballot into the accumulator.
func (r *Resolver) ApplyVote(ballot map[string]string, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	if p := r.st.Player(req.Player); p != nil {
		p.AddObservation(fmt.Sprintf("After the debate, I voted to remove %s from the game.", dec.Value))
	}
	ballot[req.Player] = dec.Value
	return nil
}

// CommitVotes appends a completed exile poll and records each ballot's
// outcome into the experience store. Ballots that hit a living wolf
// earn the early-round premium.
func (r *Resolver) CommitVotes(ctx context.Context, rd *game.Round, lg *game.RoundLog, ballot map[string]string, recs []game.Record) {
	rd.Votes = append(rd.Votes, ballot)
	lg.Votes = append(lg.Votes, recs)

	if r.exp == nil {
		return
	}
	wolves := make(map[string]bool)
	for _, w := range r.aliveWerewolves(rd) {
		wolves[w.Name] = true
	}
	round := r.st.RoundNumber()
	for _, rec := range recs {
		voter := r.st.Player(rec.Actor)
		if voter == nil {
			continue
		}
		reward := round
		if wolves[rec.Value] {
			reward = 1000 - round
		}
		err := r.exp.RecordVote(ctx, r.st.ID, voter.Name, voter.Role.String(),
			round, reflectionFrom(rec.Log), rec.Value, reward)
		if err != nil {
			r.log.Warn("experience record failed for " + voter.Name + ": " + err.Error())
		}
	}
}

// ApplyExile tallies the last poll and removes the loser. Every ballot
// weighs two; the sheriff's weighs three. Ties fall to the earliest
// seat in roster order.
func (r *Resolver) ApplyExile(rd *game.Round) string {
	if len(rd.Votes) == 0 {
		return ""
	}
	ballot := rd.Votes[len(rd.Votes)-1]

	counts := make(map[string]int, len(ballot))
	for _, voter := range r.st.Roster {
		target, ok := ballot[voter]
		if !ok {
			continue
		}
		weight := 2
		if voter == rd.Sheriff {
			weight = 3
		}
		counts[target] += weight
	}

	exiled := r.firstMax(counts)
	rd.Exiled = exiled
	if exiled != "" && rd.IsAlive(exiled) {
		r.kill(rd, exiled)
		r.announce(rd, fmt.Sprintf("The majority voted to remove %s from the game.", exiled))
	} else {
		r.announce(rd, "A majority vote was not reached, so no one was removed from the game.")
	}
	return exiled
}

// firstMax returns the highest-counted name, scanning candidates in
// roster order so tie-breaks are reproducible.
func (r *Resolver) firstMax(counts map[string]int) string {
	best := ""
	bestCount := 0
	for _, name := range r.st.Roster {
		if c, ok := counts[name]; ok && c > bestCount {
			best = name
			bestCount = c
		}
	}
	return best
}

// SummarizeRequest asks a player for their private round summary.
func (r *Resolver) SummarizeRequest(p *player.Player) *decider.Request {
	return r.NewRequest(p, decider.ActionSummarize, nil, false)
}

// ApplySummary appends the summary to the player's own journal only.
func (r *Resolver) ApplySummary(lg *game.RoundLog, req *decider.Request, dec *decider.Decision) error {
	if err := decider.Validate(req, dec); err != nil {
		return err
	}
	lg.Summaries = append(lg.Summaries, record(req.Player, dec))
	if p := r.st.Player(req.Player); p != nil {
		p.AddObservation("Summary: " + strings.Trim(dec.Value, `"`))
	}
	return nil
}
