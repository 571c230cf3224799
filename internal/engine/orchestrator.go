package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/domain/role"
	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

// Orchestrator drives a session to completion, blocking on every
// decision. Simultaneous cohorts (bids, polls, summaries) run on a
// bounded worker pool; their results are applied in roster order so a
// run is reproducible regardless of goroutine scheduling.
type Orchestrator struct {
	st  *game.State
	res *Resolver
	dec decider.Decider
	log *logger.Logger
}

// NewOrchestrator wires a driver over a session.
func NewOrchestrator(res *Resolver, d decider.Decider, log *logger.Logger) *Orchestrator {
	return &Orchestrator{st: res.State(), res: res, dec: d, log: log}
}

// RunGame runs rounds until a faction wins. A failed decision aborts
// the session with the round marked unsuccessful.
func (o *Orchestrator) RunGame(ctx context.Context) (game.Winner, error) {
	for o.st.Winner == game.WinnerNone {
		if err := ctx.Err(); err != nil {
			o.st.Fail(err)
			return game.WinnerNone, err
		}
		if err := o.RunRound(ctx); err != nil {
			o.st.Fail(err)
			return game.WinnerNone, err
		}
	}
	return o.st.Winner, nil
}

// RunRound runs one full round: night, resolution, the day's debate
// and vote, and the round-end summaries.
func (o *Orchestrator) RunRound(ctx context.Context) error {
	rd, lg := o.st.BeginRound()
	o.log.Infof("STARTING ROUND %d", o.st.RoundNumber())

	if err := o.runNight(ctx, rd, lg); err != nil {
		return err
	}
	if o.res.CheckWinner(rd) != game.WinnerNone {
		o.res.FinishRound(rd)
		return nil
	}
	if err := o.runShot(ctx, rd, lg, o.res.NightShotPending(rd)); err != nil {
		return err
	}
	if o.res.CheckWinner(rd) != game.WinnerNone {
		o.res.FinishRound(rd)
		return nil
	}

	if o.st.Config.SheriffEnabled {
		if err := o.runSheriffMorning(ctx, rd, lg); err != nil {
			return err
		}
	}
	if err := o.runDebate(ctx, rd, lg); err != nil {
		return err
	}
	if o.st.Config.SheriffEnabled && rd.Sheriff != "" {
		if err := o.runPseudoVote(ctx, rd, lg); err != nil {
			return err
		}
		if err := o.runSheriffSummary(ctx, rd, lg); err != nil {
			return err
		}
	}
	if err := o.runVote(ctx, rd, lg); err != nil {
		return err
	}
	o.res.ApplyExile(rd)
	if o.res.CheckWinner(rd) != game.WinnerNone {
		o.res.FinishRound(rd)
		return nil
	}
	if err := o.runShot(ctx, rd, lg, o.res.DayShotPending(rd)); err != nil {
		return err
	}
	if o.res.CheckWinner(rd) != game.WinnerNone {
		o.res.FinishRound(rd)
		return nil
	}

	if o.st.Config.SheriffEnabled && rd.Sheriff != "" &&
		(rd.Exiled == rd.Sheriff || rd.Shot == rd.Sheriff) {
		sheriff := o.st.Player(rd.Sheriff)
		req := o.res.BadgeFlowRequest(rd, sheriff)
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplyBadgeFlow(rd, lg, req, dec); err != nil {
			return err
		}
	}

	if err := o.runSummaries(ctx, rd, lg); err != nil {
		return err
	}
	o.res.FinishRound(rd)
	return nil
}

func (o *Orchestrator) runNight(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	wolf := o.res.PickEliminator(rd)
	if wolf == nil {
		return fmt.Errorf("engine: no living werewolf to eliminate with")
	}
	req := o.res.EliminateRequest(rd, wolf)
	dec, err := o.decide(ctx, req)
	if err != nil {
		return err
	}
	if err := o.res.ApplyEliminate(rd, lg, req, dec); err != nil {
		return err
	}

	if guard := o.res.aliveHolder(rd, role.Guard); guard != nil {
		req := o.res.ProtectRequest(rd, guard)
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplyProtect(rd, lg, req, dec); err != nil {
			return err
		}
	}

	if witch := o.res.SaveOffered(rd); witch != nil {
		req := o.res.SaveRequest(rd, witch)
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplySave(rd, lg, req, dec); err != nil {
			return err
		}
	}

	if witch := o.res.PoisonOffered(rd); witch != nil {
		req := o.res.PoisonRequest(rd, witch)
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplyPoison(rd, lg, req, dec); err != nil {
			return err
		}
	}

	if seer := o.res.aliveHolder(rd, role.Seer); seer != nil {
		req := o.res.InvestigateRequest(rd, seer)
		if len(req.Options) > 0 {
			dec, err := o.decide(ctx, req)
			if err != nil {
				return err
			}
			if err := o.res.ApplyInvestigate(rd, lg, req, dec); err != nil {
				return err
			}
		}
	}

	o.res.ResolveNight(rd)
	return nil
}

func (o *Orchestrator) runShot(ctx context.Context, rd *game.Round, lg *game.RoundLog, hunter *player.Player) error {
	if hunter == nil {
		return nil
	}
	req := o.res.ShootRequest(rd, hunter)
	dec, err := o.decide(ctx, req)
	if err != nil {
		return err
	}
	return o.res.ApplyShoot(rd, lg, req, dec)
}

// runSheriffMorning handles badge continuity, the first-day election,
// and the sheriff's statement order.
func (o *Orchestrator) runSheriffMorning(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	if o.st.RoundNumber() == 0 {
		if err := o.runElection(ctx, rd, lg); err != nil {
			return err
		}
	} else {
		lastSheriff := o.st.Rounds[o.st.RoundNumber()-1].Sheriff
		if dead := o.res.BadgeFlowOffered(rd, lastSheriff); dead != nil {
			req := o.res.BadgeFlowRequest(rd, dead)
			dec, err := o.decide(ctx, req)
			if err != nil {
				return err
			}
			if err := o.res.ApplyBadgeFlow(rd, lg, req, dec); err != nil {
				return err
			}
		} else if lastSheriff != "" {
			o.res.DetermineSheriff(rd, lastSheriff, SheriffContinues)
		}
	}

	if rd.Sheriff == "" {
		return nil
	}
	sheriff := o.st.Player(rd.Sheriff)
	req := o.res.StatementOrderRequest(sheriff)
	dec, err := o.decide(ctx, req)
	if err != nil {
		return err
	}
	return o.res.ApplyStatementOrder(rd, lg, req, dec)
}

func (o *Orchestrator) runElection(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	for _, name := range o.st.AliveInRosterOrder(rd) {
		req := o.res.RunForSheriffRequest(o.st.Player(name))
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplyRunForSheriff(rd, lg, req, dec); err != nil {
			return err
		}
	}

	// All in or all out means nobody holds the badge.
	if len(rd.SheriffCandidates) == 0 || len(rd.SheriffCandidates) == len(rd.Players) {
		o.res.DetermineSheriff(rd, "", SheriffNone)
		return nil
	}

	for _, name := range rd.SheriffCandidates {
		req := o.res.CampaignRequest(o.st.Player(name))
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplyDebate(rd, lg, req, dec); err != nil {
			return err
		}
	}

	candidates := make(map[string]bool, len(rd.SheriffCandidates))
	for _, c := range rd.SheriffCandidates {
		candidates[c] = true
	}
	var reqs []*decider.Request
	for _, name := range o.st.AliveInRosterOrder(rd) {
		if !candidates[name] {
			reqs = append(reqs, o.res.ElectRequest(rd, o.st.Player(name)))
		}
	}
	decs, err := o.collect(ctx, reqs)
	if err != nil {
		return err
	}
	ballot := make(map[string]string, len(reqs))
	recs := make([]game.Record, 0, len(reqs))
	for i, req := range reqs {
		if err := o.res.ApplyElect(ballot, req, decs[i]); err != nil {
			return err
		}
		recs = append(recs, record(req.Player, decs[i]))
	}
	o.res.CommitElect(rd, lg, ballot, recs)
	return nil
}

func (o *Orchestrator) runDebate(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	if len(rd.StatementOrder) > 0 {
		for _, name := range rd.StatementOrder {
			// The sheriff speaks last, through the debate summary.
			if name == rd.Sheriff {
				break
			}
			if !rd.IsAlive(name) {
				continue
			}
			req := o.res.DebateRequest(o.st.Player(name))
			dec, err := o.decide(ctx, req)
			if err != nil {
				return err
			}
			if err := o.res.ApplyDebate(rd, lg, req, dec); err != nil {
				return err
			}
		}
		return nil
	}

	for turn := 0; turn < o.st.Config.MaxDebateTurns; turn++ {
		prevSpeaker := ""
		var prev *player.Utterance
		if len(rd.Debate) > 0 {
			last := rd.Debate[len(rd.Debate)-1]
			prevSpeaker = last.Speaker
			prev = &last
		}

		var reqs []*decider.Request
		for _, name := range o.st.AliveInRosterOrder(rd) {
			if name != prevSpeaker {
				reqs = append(reqs, o.res.BidRequest(o.st.Player(name)))
			}
		}
		decs, err := o.collect(ctx, reqs)
		if err != nil {
			return err
		}
		bids := make(map[string]int, len(reqs))
		recs := make([]game.Record, 0, len(reqs))
		for i, req := range reqs {
			bid, err := o.res.ApplyBid(req, decs[i])
			if err != nil {
				return err
			}
			bids[req.Player] = bid
			recs = append(recs, record(req.Player, decs[i]))
		}
		rd.Bids = append(rd.Bids, bids)
		lg.Bids = append(lg.Bids, recs)

		speaker := o.res.NextSpeaker(bids, prev)
		if speaker == "" {
			return fmt.Errorf("engine: no speaker emerged from bids")
		}
		req := o.res.DebateRequest(o.st.Player(speaker))
		dec, err := o.decide(ctx, req)
		if err != nil {
			return err
		}
		if err := o.res.ApplyDebate(rd, lg, req, dec); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runPseudoVote(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	var reqs []*decider.Request
	for _, name := range o.st.AliveInRosterOrder(rd) {
		reqs = append(reqs, o.res.PseudoVoteRequest(rd, o.st.Player(name)))
	}
	decs, err := o.collect(ctx, reqs)
	if err != nil {
		return err
	}
	ballot := make(map[string]string, len(reqs))
	recs := make([]game.Record, 0, len(reqs))
	for i, req := range reqs {
		if err := o.res.ApplyPseudoVote(ballot, req, decs[i]); err != nil {
			return err
		}
		recs = append(recs, record(req.Player, decs[i]))
	}
	o.res.CommitPseudoVotes(rd, lg, ballot, recs)
	return nil
}

func (o *Orchestrator) runSheriffSummary(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	sheriff := o.st.Player(rd.Sheriff)
	if sheriff == nil || !rd.IsAlive(sheriff.Name) {
		return nil
	}
	req := o.res.SheriffSummaryRequest(sheriff)
	dec, err := o.decide(ctx, req)
	if err != nil {
		return err
	}
	return o.res.ApplyDebate(rd, lg, req, dec)
}

func (o *Orchestrator) runVote(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	var reqs []*decider.Request
	for _, name := range o.st.AliveInRosterOrder(rd) {
		req := o.res.VoteRequest(rd, o.st.Player(name))
		o.res.AttachExperience(ctx, req)
		reqs = append(reqs, req)
	}
	decs, err := o.collect(ctx, reqs)
	if err != nil {
		return err
	}
	ballot := make(map[string]string, len(reqs))
	recs := make([]game.Record, 0, len(reqs))
	for i, req := range reqs {
		if err := o.res.ApplyVote(ballot, req, decs[i]); err != nil {
			return err
		}
		recs = append(recs, record(req.Player, decs[i]))
	}
	o.res.CommitVotes(ctx, rd, lg, ballot, recs)
	return nil
}

func (o *Orchestrator) runSummaries(ctx context.Context, rd *game.Round, lg *game.RoundLog) error {
	var reqs []*decider.Request
	for _, name := range o.st.AliveInRosterOrder(rd) {
		reqs = append(reqs, o.res.SummarizeRequest(o.st.Player(name)))
	}
	decs, err := o.collect(ctx, reqs)
	if err != nil {
		return err
	}
	for i, req := range reqs {
		if err := o.res.ApplySummary(lg, req, decs[i]); err != nil {
			return err
		}
	}
	return nil
}

// decide runs a single blocking decision.
func (o *Orchestrator) decide(ctx context.Context, req *decider.Request) (*decider.Decision, error) {
	dec, err := o.dec.Decide(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("decision %s for %s: %w", req.Action, req.Player, err)
	}
	return dec, nil
}

// collect fans a cohort of requests out over the worker pool and
// returns the decisions in request order.
func (o *Orchestrator) collect(ctx context.Context, reqs []*decider.Request) ([]*decider.Decision, error) {
	workers := o.st.Config.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	decs := make([]*decider.Decision, len(reqs))
	errs := make([]error, len(reqs))

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *decider.Request) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			decs[i], errs[i] = o.dec.Decide(ctx, req)
		}(i, req)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("decision %s for %s: %w", reqs[i].Action, reqs[i].Player, err)
		}
	}
	return decs, nil
}
