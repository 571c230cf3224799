package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lunarfang/werewolf-arena/internal/domain/role"
	"github.com/lunarfang/werewolf-arena/internal/game"
)

// Rebuild turns a loaded session back into a playable state. The round
// that failed (if any) is discarded together with every observation it
// produced, and all ability state is recomputed from the surviving
// round records, which are the source of truth.
func Rebuild(st *game.State) error {
	for last := st.CurrentRound(); last != nil && !last.Success; last = st.CurrentRound() {
		st.Rounds = st.Rounds[:len(st.Rounds)-1]
		if len(st.Logs) > len(st.Rounds) {
			st.Logs = st.Logs[:len(st.Rounds)]
		}
	}
	st.ErrorMessage = ""
	// The outcome is a pure function of the surviving roster, so it is
	// recomputed rather than trusted.
	st.Winner = game.WinnerNone
	if last := st.CurrentRound(); last != nil {
		st.Winner = st.EvaluateWinner(last)
	}

	nextRound := len(st.Rounds)
	for _, p := range st.Players {
		p.Observations = pruneObservations(p.Observations, nextRound)
		p.BidRationale = ""
	}

	if err := rebuildAbilities(st); err != nil {
		return err
	}

	alive := st.Roster
	sheriff := ""
	if last := st.CurrentRound(); last != nil {
		alive = last.Players
		sheriff = last.Sheriff
	}
	st.InitViews(nextRound, alive)
	if sheriff != "" {
		for _, name := range alive {
			if p := st.Player(name); p != nil && p.View != nil {
				p.View.SetSheriff(sheriff)
			}
		}
	}
	return nil
}

// pruneObservations drops journal entries stamped with a discarded
// round.
func pruneObservations(obs []string, nextRound int) []string {
	kept := obs[:0]
	for _, o := range obs {
		head, _, ok := strings.Cut(o, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(head)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n >= nextRound {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

// rebuildAbilities recomputes every single-use charge and history from
// the round records instead of trusting the persisted player fields.
func rebuildAbilities(st *game.State) error {
	if guard := st.RoleHolder(role.Guard); guard != nil {
		guard.Guarded = nil
	}
	if witch := st.RoleHolder(role.Witch); witch != nil {
		witch.HasSaved = false
		witch.HasPoisoned = false
	}
	if seer := st.RoleHolder(role.Seer); seer != nil {
		seer.Unmasked = make(map[string]role.Role)
	}
	if hunter := st.RoleHolder(role.Hunter); hunter != nil {
		hunter.Shot = ""
	}

	for i, rd := range st.Rounds {
		if rd.Protected != "" {
			guard := st.RoleHolder(role.Guard)
			if guard == nil {
				return fmt.Errorf("round %d records a protection but no guard is seated", i)
			}
			guard.RecordGuard(rd.Protected)
		}
		if rd.Saved != "" {
			witch := st.RoleHolder(role.Witch)
			if witch == nil {
				return fmt.Errorf("round %d records a save but no witch is seated", i)
			}
			witch.HasSaved = true
		}
		if rd.Poisoned != "" {
			witch := st.RoleHolder(role.Witch)
			if witch == nil {
				return fmt.Errorf("round %d records a poisoning but no witch is seated", i)
			}
			witch.HasPoisoned = true
		}
		if rd.Unmasked != "" {
			seer := st.RoleHolder(role.Seer)
			if seer == nil {
				return fmt.Errorf("round %d records an investigation but no seer is seated", i)
			}
			target := st.Player(rd.Unmasked)
			if target == nil {
				return fmt.Errorf("round %d investigates unknown player %s", i, rd.Unmasked)
			}
			seer.RecordUnmask(target.Name, target.Role)
		}
		if rd.Shot != "" {
			hunter := st.RoleHolder(role.Hunter)
			if hunter == nil {
				return fmt.Errorf("round %d records a shot but no hunter is seated", i)
			}
			hunter.Shot = rd.Shot
		}
	}
	return nil
}
