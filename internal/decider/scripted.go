package decider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// Scripted is a deterministic in-memory decider for tests and dry
// runs. Constrained actions pick from the options; free-text actions
// produce a canned line. A non-nil rng picks options uniformly,
// otherwise the first option wins.
type Scripted struct {
	mu  sync.Mutex
	rng *rand.Rand

	// Answers overrides the default per action kind, keyed by
	// "player/action". Values must still be legal for the request.
	Answers map[string]string
}

// NewScripted returns a scripted decider with optional randomness.
func NewScripted(rng *rand.Rand) *Scripted {
	return &Scripted{rng: rng}
}

// Answer pins a specific reply for one player and action.
func (s *Scripted) Answer(playerName string, action ActionKind, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Answers == nil {
		s.Answers = make(map[string]string)
	}
	s.Answers[playerName+"/"+string(action)] = value
}

func (s *Scripted) Decide(_ context.Context, req *Request) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.Answers[req.Player+"/"+string(req.Action)]; ok {
		return &Decision{Value: v}, nil
	}

	if req.Constrained() {
		idx := 0
		if s.rng != nil {
			idx = s.rng.Intn(len(req.Options))
		}
		return &Decision{Value: req.Options[idx]}, nil
	}

	switch req.Action {
	case ActionDebate:
		return &Decision{Value: fmt.Sprintf("%s has nothing to add.", req.Player)}, nil
	case ActionSheriffSummary:
		return &Decision{Value: "The debate is closed; vote carefully."}, nil
	case ActionSummarize:
		return &Decision{Value: "An uneventful round."}, nil
	}
	return &Decision{Value: "..."}, nil
}
