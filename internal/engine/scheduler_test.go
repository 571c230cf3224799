package engine

import (
	"context"
	"testing"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/game"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

// driveScheduler answers every pending request with the given decider
// until the game ends, returning the per-round results.
func driveScheduler(t *testing.T, sched *Scheduler, d decider.Decider) []*StepResult {
	t.Helper()
	ctx := context.Background()

	var results []*StepResult
	var dec *decider.Decision
	for steps := 0; ; steps++ {
		if steps > 100000 {
			t.Fatal("scheduler did not terminate")
		}
		req, result, err := sched.Step(ctx, dec)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		dec = nil
		if result != nil {
			results = append(results, result)
			if result.GameOver {
				return results
			}
			continue
		}
		answer, err := d.Decide(ctx, req)
		if err != nil {
			t.Fatalf("decide failed: %v", err)
		}
		dec = answer
	}
}

func TestSchedulerRunsGameToCompletion(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	sched := NewScheduler(res, logger.New())

	results := driveScheduler(t, sched, scriptedForGame())

	last := results[len(results)-1]
	if !last.GameOver || last.Winner == game.WinnerNone {
		t.Fatalf("game did not finish cleanly: %+v", last)
	}
	if len(results) != len(st.Rounds) {
		t.Errorf("%d round results for %d rounds", len(results), len(st.Rounds))
	}
	for i, result := range results {
		if result.Round != i {
			t.Errorf("result %d reports round %d", i, result.Round)
		}
		if !result.RoundComplete {
			t.Errorf("result %d not marked complete", i)
		}
		if !st.Rounds[i].Success {
			t.Errorf("round %d not marked successful", i)
		}
	}
}

// The two drivers share the resolver and consume the session's random
// stream in the same order, so with a pure decider they must produce
// identical transcripts.
func TestSchedulerMatchesOrchestrator(t *testing.T) {
	orchState := testState(t)
	orchRes := NewResolver(orchState, logger.New(), nil)
	orch := NewOrchestrator(orchRes, scriptedForGame(), logger.New())
	winner, err := orch.RunGame(context.Background())
	if err != nil {
		t.Fatalf("orchestrator failed: %v", err)
	}

	schedState := testState(t)
	schedRes := NewResolver(schedState, logger.New(), nil)
	sched := NewScheduler(schedRes, logger.New())
	results := driveScheduler(t, sched, scriptedForGame())

	if schedState.Winner != winner {
		t.Fatalf("winners diverged: orchestrator %q, scheduler %q", winner, schedState.Winner)
	}
	if len(schedState.Rounds) != len(orchState.Rounds) {
		t.Fatalf("round counts diverged: orchestrator %d, scheduler %d",
			len(orchState.Rounds), len(schedState.Rounds))
	}
	for i := range orchState.Rounds {
		a, b := orchState.Rounds[i], schedState.Rounds[i]
		if a.Eliminated != b.Eliminated {
			t.Errorf("round %d: eliminated diverged: %q vs %q", i, a.Eliminated, b.Eliminated)
		}
		if a.Exiled != b.Exiled {
			t.Errorf("round %d: exiled diverged: %q vs %q", i, a.Exiled, b.Exiled)
		}
		if a.Sheriff != b.Sheriff {
			t.Errorf("round %d: sheriff diverged: %q vs %q", i, a.Sheriff, b.Sheriff)
		}
		if len(a.Players) != len(b.Players) {
			t.Errorf("round %d: survivor counts diverged: %d vs %d", i, len(a.Players), len(b.Players))
		}
	}
	for i, result := range results {
		if result.Round != i {
			t.Errorf("scheduler result %d reports round %d", i, result.Round)
		}
	}
}

func TestSchedulerRejectsUnsolicitedDecision(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	sched := NewScheduler(res, logger.New())

	_, _, err := sched.Step(context.Background(), &decider.Decision{Value: "Derek"})
	if err == nil {
		t.Fatal("expected an error for a decision with nothing pending")
	}
}

func TestSchedulerGameOverIsTerminal(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	sched := NewScheduler(res, logger.New())
	driveScheduler(t, sched, scriptedForGame())

	_, result, err := sched.Step(context.Background(), nil)
	if err != nil {
		t.Fatalf("terminal step errored: %v", err)
	}
	if result == nil || !result.GameOver {
		t.Fatal("finished scheduler did not report game over")
	}
}

func TestSchedulerResumesBetweenRounds(t *testing.T) {
	st := testState(t)
	res := NewResolver(st, logger.New(), nil)
	sched := NewScheduler(res, logger.New())
	d := scriptedForGame()
	ctx := context.Background()

	// Drive to the first round boundary.
	var dec *decider.Decision
	for {
		req, result, err := sched.Step(ctx, dec)
		if err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		dec = nil
		if result != nil {
			if result.GameOver {
				t.Skip("game ended in round zero")
			}
			break
		}
		answer, err := d.Decide(ctx, req)
		if err != nil {
			t.Fatal(err)
		}
		dec = answer
	}

	// A fresh scheduler over the same state picks up at round one.
	resumed := NewScheduler(NewResolver(st, logger.New(), nil), logger.New())
	results := driveScheduler(t, resumed, d)
	if results[len(results)-1].Winner == game.WinnerNone {
		t.Fatal("resumed scheduler did not finish the game")
	}
	if got := results[0].Round; got != 1 {
		t.Errorf("resumed scheduler restarted at round %d", got)
	}
}
