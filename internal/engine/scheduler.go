package engine

import (
	"context"
	"fmt"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/domain/role"
	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

// StepResult reports a round boundary to the external driver.
type StepResult struct {
	Round         int         `json:"round"`
	RoundComplete bool        `json:"round_complete"`
	Winner        game.Winner `json:"winner,omitempty"`
	GameOver      bool        `json:"game_over"`
}

// Scheduler is the resumable, inverted driver: each Step call applies
// at most one incoming decision and advances the phase pointer until
// the next decision is needed or the round closes. The caller owns the
// pacing; the scheduler owns the rules, through the shared resolver.
type Scheduler struct {
	st  *game.State
	res *Resolver
	log *logger.Logger

	seq         []Phase
	ptr         int
	completeIdx int

	pending      *decider.Request
	pendingPhase Phase
	gameOver     bool

	// Round-scoped accumulators, reset once per round in new_round.
	prompted   map[string]bool
	ballot     map[string]string
	recs       []game.Record
	bids       map[string]int
	queue      []string
	queueSet   bool
	turns      int
	speaker    string
	summarized bool
}

// NewScheduler builds a step driver over a session.
func NewScheduler(res *Resolver, log *logger.Logger) *Scheduler {
	seq := sequence(res.State().Config.SheriffEnabled)
	s := &Scheduler{st: res.State(), res: res, log: log, seq: seq}
	for i, ph := range seq {
		if ph == PhaseRoundComplete {
			s.completeIdx = i
		}
	}
	if res.State().Winner != game.WinnerNone {
		s.gameOver = true
	}
	return s
}

// Pending returns the request awaiting a decision, if any.
func (s *Scheduler) Pending() *decider.Request { return s.pending }

// Step applies dec to the pending request (dec must be nil when
// nothing is pending) and advances until the scheduler either needs
// the next decision or closes the round. Exactly one of the returns is
// non-nil on success.
func (s *Scheduler) Step(ctx context.Context, dec *decider.Decision) (*decider.Request, *StepResult, error) {
	if s.gameOver {
		return nil, &StepResult{
			Round:         s.st.RoundNumber(),
			RoundComplete: true,
			Winner:        s.st.Winner,
			GameOver:      true,
		}, nil
	}

	if s.pending != nil {
		if dec == nil {
			err := fmt.Errorf("phase %s awaiting %s by %s: %w",
				s.pendingPhase, s.pending.Action, s.pending.Player, decider.ErrNoDecision)
			s.st.Fail(err)
			return nil, nil, err
		}
		if err := s.apply(ctx, dec); err != nil {
			s.st.Fail(err)
			return nil, nil, err
		}
		s.pending = nil
	} else if dec != nil {
		return nil, nil, fmt.Errorf("engine: decision received with no pending request")
	}

	for {
		ph := s.seq[s.ptr]
		if ph == PhaseRoundComplete {
			return nil, s.completeRound(), nil
		}
		req, err := s.enter(ctx, ph)
		if err != nil {
			s.st.Fail(err)
			return nil, nil, err
		}
		if req != nil {
			s.pending = req
			s.pendingPhase = ph
			return req, nil, nil
		}
		if s.st.Winner != game.WinnerNone {
			s.ptr = s.completeIdx
			continue
		}
		s.ptr++
	}
}

// completeRound closes the round and either ends the game or rewinds
// the pointer for the next round.
func (s *Scheduler) completeRound() *StepResult {
	rd := s.st.CurrentRound()
	s.res.FinishRound(rd)
	result := &StepResult{
		Round:         s.st.RoundNumber(),
		RoundComplete: true,
		Winner:        s.st.Winner,
	}
	if s.st.Winner != game.WinnerNone {
		s.gameOver = true
		result.GameOver = true
	} else {
		s.ptr = 0
	}
	return result
}

// enter evaluates one phase: it returns the next request the phase
// needs, or nil when the phase is complete or skips itself.
func (s *Scheduler) enter(ctx context.Context, ph Phase) (*decider.Request, error) {
	rd, lg := s.st.CurrentRound(), s.st.CurrentLog()

	switch ph {
	case PhaseNewRound:
		s.resetRound()
		s.st.BeginRound()
		s.log.Infof("STARTING ROUND %d", s.st.RoundNumber())
		return nil, nil

	case PhaseEliminate:
		if rd.Eliminated != "" {
			return nil, nil
		}
		wolf := s.res.PickEliminator(rd)
		if wolf == nil {
			return nil, fmt.Errorf("engine: no living werewolf to eliminate with")
		}
		return s.res.EliminateRequest(rd, wolf), nil

	case PhaseProtect:
		if lg.Protect != nil {
			return nil, nil
		}
		guard := s.res.aliveHolder(rd, role.Guard)
		if guard == nil {
			return nil, nil
		}
		return s.res.ProtectRequest(rd, guard), nil

	case PhaseSave:
		if lg.Save != nil {
			return nil, nil
		}
		witch := s.res.SaveOffered(rd)
		if witch == nil {
			return nil, nil
		}
		return s.res.SaveRequest(rd, witch), nil

	case PhasePoison:
		if lg.Poison != nil {
			return nil, nil
		}
		witch := s.res.PoisonOffered(rd)
		if witch == nil {
			return nil, nil
		}
		return s.res.PoisonRequest(rd, witch), nil

	case PhaseUnmask:
		if lg.Investigate != nil {
			return nil, nil
		}
		seer := s.res.aliveHolder(rd, role.Seer)
		if seer == nil {
			return nil, nil
		}
		req := s.res.InvestigateRequest(rd, seer)
		if len(req.Options) == 0 {
			return nil, nil
		}
		return req, nil

	case PhaseResolveNight:
		s.res.ResolveNight(rd)
		return nil, nil

	case PhaseWinnerNight, PhaseWinnerNightShot, PhaseWinnerExile, PhaseWinnerDayShot:
		s.res.CheckWinner(rd)
		return nil, nil

	case PhaseNightShot:
		if lg.Shoot != nil {
			return nil, nil
		}
		hunter := s.res.NightShotPending(rd)
		if hunter == nil {
			return nil, nil
		}
		return s.res.ShootRequest(rd, hunter), nil

	case PhaseDayShot:
		if lg.Shoot != nil {
			return nil, nil
		}
		hunter := s.res.DayShotPending(rd)
		if hunter == nil {
			return nil, nil
		}
		return s.res.ShootRequest(rd, hunter), nil

	case PhaseBadgeFlowDawn:
		if s.st.RoundNumber() == 0 || lg.BadgeFlow != nil {
			return nil, nil
		}
		lastSheriff := s.st.Rounds[s.st.RoundNumber()-1].Sheriff
		if dead := s.res.BadgeFlowOffered(rd, lastSheriff); dead != nil {
			return s.res.BadgeFlowRequest(rd, dead), nil
		}
		if lastSheriff != "" {
			s.res.DetermineSheriff(rd, lastSheriff, SheriffContinues)
		}
		return nil, nil

	case PhaseBadgeFlowDusk:
		// Once the successor is seated the offer condition goes false,
		// so re-entry after apply skips cleanly.
		if dead := s.res.BadgeFlowOffered(rd, rd.Sheriff); dead != nil {
			return s.res.BadgeFlowRequest(rd, dead), nil
		}
		return nil, nil

	case PhaseRunForSheriff:
		if s.st.RoundNumber() != 0 {
			return nil, nil
		}
		for _, name := range s.st.AliveInRosterOrder(rd) {
			if !s.prompted[name] {
				s.prompted[name] = true
				return s.res.RunForSheriffRequest(s.st.Player(name)), nil
			}
		}
		s.prompted = make(map[string]bool)
		return nil, nil

	case PhaseCandidateSpeeches:
		if s.st.RoundNumber() != 0 || s.electionDegenerate(rd) {
			return nil, nil
		}
		for _, name := range rd.SheriffCandidates {
			if !s.prompted[name] {
				s.prompted[name] = true
				return s.res.CampaignRequest(s.st.Player(name)), nil
			}
		}
		s.prompted = make(map[string]bool)
		return nil, nil

	case PhaseElect:
		if s.st.RoundNumber() != 0 || len(rd.Elect) > 0 {
			return nil, nil
		}
		if s.electionDegenerate(rd) {
			s.res.DetermineSheriff(rd, "", SheriffNone)
			return nil, nil
		}
		candidates := make(map[string]bool, len(rd.SheriffCandidates))
		for _, c := range rd.SheriffCandidates {
			candidates[c] = true
		}
		for _, name := range s.st.AliveInRosterOrder(rd) {
			if candidates[name] || s.prompted[name] {
				continue
			}
			s.prompted[name] = true
			return s.res.ElectRequest(rd, s.st.Player(name)), nil
		}
		s.res.CommitElect(rd, lg, s.ballot, s.recs)
		s.resetPoll()
		return nil, nil

	case PhaseStatementOrder:
		if rd.Sheriff == "" || lg.Order != nil {
			return nil, nil
		}
		return s.res.StatementOrderRequest(s.st.Player(rd.Sheriff)), nil

	case PhaseDebate:
		return s.enterDebate(rd, lg)

	case PhasePseudoVote:
		if rd.Sheriff == "" || len(rd.PseudoVotes) > 0 {
			return nil, nil
		}
		for _, name := range s.st.AliveInRosterOrder(rd) {
			if !s.prompted[name] {
				s.prompted[name] = true
				return s.res.PseudoVoteRequest(rd, s.st.Player(name)), nil
			}
		}
		s.res.CommitPseudoVotes(rd, lg, s.ballot, s.recs)
		s.resetPoll()
		return nil, nil

	case PhaseSheriffSummary:
		if rd.Sheriff == "" || s.summarized || !rd.IsAlive(rd.Sheriff) {
			return nil, nil
		}
		return s.res.SheriffSummaryRequest(s.st.Player(rd.Sheriff)), nil

	case PhaseVote:
		if len(rd.Votes) > 0 {
			return nil, nil
		}
		for _, name := range s.st.AliveInRosterOrder(rd) {
			if !s.prompted[name] {
				s.prompted[name] = true
				req := s.res.VoteRequest(rd, s.st.Player(name))
				s.res.AttachExperience(ctx, req)
				return req, nil
			}
		}
		s.res.CommitVotes(ctx, rd, lg, s.ballot, s.recs)
		s.resetPoll()
		return nil, nil

	case PhaseExile:
		if rd.Exiled == "" && len(rd.Votes) > 0 {
			s.res.ApplyExile(rd)
		}
		return nil, nil

	case PhaseSummaries:
		for _, name := range s.st.AliveInRosterOrder(rd) {
			if !s.prompted[name] {
				s.prompted[name] = true
				return s.res.SummarizeRequest(s.st.Player(name)), nil
			}
		}
		s.prompted = make(map[string]bool)
		return nil, nil
	}
	return nil, fmt.Errorf("engine: unknown phase %q", ph)
}

// enterDebate handles both debate modes: the sheriff's fixed statement
// order, or bid-driven turns.
func (s *Scheduler) enterDebate(rd *game.Round, lg *game.RoundLog) (*decider.Request, error) {
	if len(rd.StatementOrder) > 0 {
		if !s.queueSet {
			s.queue = append([]string(nil), rd.StatementOrder...)
			s.queueSet = true
		}
		for len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			// The sheriff speaks last, through the debate summary.
			if next == rd.Sheriff {
				s.queue = nil
				return nil, nil
			}
			if !rd.IsAlive(next) {
				continue
			}
			return s.res.DebateRequest(s.st.Player(next)), nil
		}
		return nil, nil
	}

	for s.turns < s.st.Config.MaxDebateTurns {
		if s.speaker != "" {
			return s.res.DebateRequest(s.st.Player(s.speaker)), nil
		}

		prevSpeaker, prev := lastUtterance(rd)
		for _, name := range s.st.AliveInRosterOrder(rd) {
			if name == prevSpeaker || s.prompted[name] {
				continue
			}
			s.prompted[name] = true
			return s.res.BidRequest(s.st.Player(name)), nil
		}

		rd.Bids = append(rd.Bids, s.bids)
		lg.Bids = append(lg.Bids, s.recs)
		speaker := s.res.NextSpeaker(s.bids, prev)
		s.resetPoll()
		s.bids = make(map[string]int)
		if speaker == "" {
			return nil, fmt.Errorf("engine: no speaker emerged from bids")
		}
		s.speaker = speaker
	}
	return nil, nil
}

// apply routes a decision to the resolver based on the pending phase.
func (s *Scheduler) apply(ctx context.Context, dec *decider.Decision) error {
	rd, lg := s.st.CurrentRound(), s.st.CurrentLog()
	req := s.pending

	switch s.pendingPhase {
	case PhaseEliminate:
		return s.res.ApplyEliminate(rd, lg, req, dec)
	case PhaseProtect:
		return s.res.ApplyProtect(rd, lg, req, dec)
	case PhaseSave:
		return s.res.ApplySave(rd, lg, req, dec)
	case PhasePoison:
		return s.res.ApplyPoison(rd, lg, req, dec)
	case PhaseUnmask:
		return s.res.ApplyInvestigate(rd, lg, req, dec)
	case PhaseNightShot, PhaseDayShot:
		return s.res.ApplyShoot(rd, lg, req, dec)
	case PhaseBadgeFlowDawn, PhaseBadgeFlowDusk:
		return s.res.ApplyBadgeFlow(rd, lg, req, dec)
	case PhaseRunForSheriff:
		return s.res.ApplyRunForSheriff(rd, lg, req, dec)
	case PhaseCandidateSpeeches:
		return s.res.ApplyDebate(rd, lg, req, dec)
	case PhaseElect:
		if err := s.res.ApplyElect(s.ballot, req, dec); err != nil {
			return err
		}
		s.recs = append(s.recs, record(req.Player, dec))
		return nil
	case PhaseStatementOrder:
		return s.res.ApplyStatementOrder(rd, lg, req, dec)
	case PhaseDebate:
		if req.Action == decider.ActionBid {
			bid, err := s.res.ApplyBid(req, dec)
			if err != nil {
				return err
			}
			s.bids[req.Player] = bid
			s.recs = append(s.recs, record(req.Player, dec))
			return nil
		}
		if err := s.res.ApplyDebate(rd, lg, req, dec); err != nil {
			return err
		}
		s.speaker = ""
		s.turns++
		return nil
	case PhasePseudoVote:
		if err := s.res.ApplyPseudoVote(s.ballot, req, dec); err != nil {
			return err
		}
		s.recs = append(s.recs, record(req.Player, dec))
		return nil
	case PhaseSheriffSummary:
		if err := s.res.ApplyDebate(rd, lg, req, dec); err != nil {
			return err
		}
		s.summarized = true
		return nil
	case PhaseVote:
		if err := s.res.ApplyVote(s.ballot, req, dec); err != nil {
			return err
		}
		s.recs = append(s.recs, record(req.Player, dec))
		return nil
	case PhaseSummaries:
		return s.res.ApplySummary(lg, req, dec)
	}
	return fmt.Errorf("engine: no apply handler for phase %q", s.pendingPhase)
}

// resetPoll clears the shared single-poll accumulators.
func (s *Scheduler) resetPoll() {
	s.prompted = make(map[string]bool)
	s.ballot = make(map[string]string)
	s.recs = nil
}

// resetRound clears every round-scoped accumulator.
func (s *Scheduler) resetRound() {
	s.resetPoll()
	s.bids = make(map[string]int)
	s.queue = nil
	s.queueSet = false
	s.turns = 0
	s.speaker = ""
	s.summarized = false
}

// electionDegenerate reports an election with no possible voters: all
// in or all out.
func (s *Scheduler) electionDegenerate(rd *game.Round) bool {
	return len(rd.SheriffCandidates) == 0 || len(rd.SheriffCandidates) == len(rd.Players)
}

func lastUtterance(rd *game.Round) (string, *player.Utterance) {
	if len(rd.Debate) == 0 {
		return "", nil
	}
	last := rd.Debate[len(rd.Debate)-1]
	return last.Speaker, &last
}
