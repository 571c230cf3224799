package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

// scenario scripts multi-round sheriff games: the wolves take the
// scripted victim each night, the table piles its ballots on the
// scripted exile each day, Jacob alone stands for election, and a dead
// sheriff hands the badge to the named successor. Anything unscripted
// falls back to the first legal option.
type scenario struct {
	victims   []string
	exiles    []string
	successor string
}

func (s scenario) Decide(_ context.Context, req *decider.Request) (*decider.Decision, error) {
	round := req.View.Round
	scripted := func(list []string) string {
		if round < len(list) {
			return list[round]
		}
		return ""
	}

	switch req.Action {
	case decider.ActionRemove:
		if v := scripted(s.victims); hasOption(req, v) {
			return dec(v), nil
		}
	case decider.ActionVote, decider.ActionPseudoVote:
		if v := scripted(s.exiles); hasOption(req, v) {
			return dec(v), nil
		}
	case decider.ActionRunForSheriff:
		if req.Player == "Jacob" {
			return dec("Yes"), nil
		}
		return dec("No"), nil
	case decider.ActionSave, decider.ActionPoison:
		return dec("No"), nil
	case decider.ActionProtect:
		// The guard must never ward a scripted victim.
		return dec(firstOptionExcept(req, s.victims...)), nil
	case decider.ActionBadgeFlow:
		if hasOption(req, s.successor) {
			return dec(s.successor), nil
		}
	}

	if len(req.Options) > 0 {
		return dec(req.Options[0]), nil
	}
	return dec(req.Player + " has nothing to add."), nil
}

func hasOption(req *decider.Request, value string) bool {
	for _, o := range req.Options {
		if o == value {
			return true
		}
	}
	return false
}

func firstOptionExcept(req *decider.Request, exclude ...string) string {
	for _, o := range req.Options {
		skip := false
		for _, ex := range exclude {
			if o == ex {
				skip = true
				break
			}
		}
		if !skip {
			return o
		}
	}
	return req.Options[0]
}

func observed(t *testing.T, p *player.Player, want string) {
	t.Helper()
	for _, obs := range p.Observations {
		if strings.Contains(obs, want) {
			return
		}
	}
	t.Errorf("%s never observed %q:\n%s", p.Name, want, strings.Join(p.Observations, "\n"))
}

// The sheriff dies to the wolves at night; at dawn the dead sheriff
// names a successor and the badge moves before the day starts.
func TestOrchestratorBadgeTransfersAtDawn(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	d := scenario{victims: []string{"Paul", "Jacob"}, exiles: []string{"Mia", "Hao"}, successor: "Isaac"}
	orch := NewOrchestrator(res, d, logger.New())
	ctx := context.Background()

	if err := orch.RunRound(ctx); err != nil {
		t.Fatalf("round 0 failed: %v", err)
	}
	if got := st.Rounds[0].Sheriff; got != "Jacob" {
		t.Fatalf("round 0 elected %q, expected Jacob", got)
	}

	if err := orch.RunRound(ctx); err != nil {
		t.Fatalf("round 1 failed: %v", err)
	}
	rd1 := st.Rounds[1]
	if rd1.IsAlive("Jacob") {
		t.Fatal("the sheriff survived the scripted night")
	}
	if rd1.Sheriff != "Isaac" {
		t.Errorf("badge did not transfer: sheriff %q", rd1.Sheriff)
	}
	bf := st.Logs[1].BadgeFlow
	if bf == nil || bf.Actor != "Jacob" || bf.Value != "Isaac" {
		t.Errorf("badge flow not audited: %+v", bf)
	}
	observed(t, st.Player("Leah"), "The former sheriff named Isaac as the sheriff.")
	if got := st.Player("Leah").View.Sheriff; got != "Isaac" {
		t.Errorf("survivor view holds sheriff %q", got)
	}
}

// The sheriff is exiled by the day's vote; the dusk badge flow runs
// before the round closes and the successor is on the round record.
func TestSchedulerBadgeTransfersAtDusk(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	sched := NewScheduler(res, logger.New())
	d := scenario{victims: []string{"Paul"}, exiles: []string{"Jacob"}, successor: "Mia"}

	driveScheduler(t, sched, d)

	rd0 := st.Rounds[0]
	if rd0.Exiled != "Jacob" {
		t.Fatalf("scripted exile missed: exiled %q", rd0.Exiled)
	}
	if rd0.Sheriff != "Mia" {
		t.Errorf("badge did not transfer at dusk: sheriff %q", rd0.Sheriff)
	}
	bf := st.Logs[0].BadgeFlow
	if bf == nil || bf.Actor != "Jacob" || bf.Value != "Mia" {
		t.Errorf("badge flow not audited: %+v", bf)
	}
	observed(t, st.Player("Leah"), "The former sheriff named Mia as the sheriff.")
}

// A sheriff who survives the night keeps the badge without any
// nomination, and the table is told.
func TestOrchestratorSheriffContinues(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	d := scenario{victims: []string{"Paul", "Mia"}, exiles: []string{"Hao", "Leah"}}
	orch := NewOrchestrator(res, d, logger.New())
	ctx := context.Background()

	if err := orch.RunRound(ctx); err != nil {
		t.Fatalf("round 0 failed: %v", err)
	}
	if err := orch.RunRound(ctx); err != nil {
		t.Fatalf("round 1 failed: %v", err)
	}

	rd1 := st.Rounds[1]
	if rd1.Sheriff != "Jacob" {
		t.Errorf("surviving sheriff lost the badge: %q", rd1.Sheriff)
	}
	if st.Logs[1].BadgeFlow != nil {
		t.Errorf("continuity triggered a nomination: %+v", st.Logs[1].BadgeFlow)
	}
	observed(t, st.Player("Isaac"), "Jacob is still the sheriff.")
}

func TestNextSpeakerPrefersHighestBid(t *testing.T) {
	_, r := testResolver(t)
	bids := map[string]int{"Derek": 1, "Mia": 4, "Paul": 2}
	if got := r.NextSpeaker(bids, nil); got != "Mia" {
		t.Errorf("expected the highest bidder, got %q", got)
	}
}

func TestNextSpeakerPrefersMentionedOnTie(t *testing.T) {
	_, r := testResolver(t)
	bids := map[string]int{"Derek": 3, "Scott": 3, "Mia": 1}
	prev := &player.Utterance{Speaker: "Leah", Text: "I do not trust Scott at all."}
	if got := r.NextSpeaker(bids, prev); got != "Scott" {
		t.Errorf("expected the mentioned bidder, got %q", got)
	}
}

func TestNextSpeakerTieStaysAmongTop(t *testing.T) {
	_, r := testResolver(t)
	bids := map[string]int{"Derek": 2, "Scott": 2, "Mia": 0}
	got := r.NextSpeaker(bids, nil)
	if got != "Derek" && got != "Scott" {
		t.Errorf("speaker %q is not a top bidder", got)
	}
}

func TestNextSpeakerEmptyBids(t *testing.T) {
	_, r := testResolver(t)
	if got := r.NextSpeaker(map[string]int{}, nil); got != "" {
		t.Errorf("expected no speaker, got %q", got)
	}
}
