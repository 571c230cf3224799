package storage

import (
	"testing"

	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/domain/role"
	"github.com/lunarfang/werewolf-arena/internal/game"
)

var testRoster = []string{"Derek", "Scott", "Jacob", "Isaac", "Hao", "Leah", "Mia", "Paul"}

func testState(t *testing.T) *game.State {
	t.Helper()
	roles := []role.Role{
		role.Werewolf, role.Werewolf, role.Seer, role.Guard,
		role.Witch, role.Hunter, role.Villager, role.Villager,
	}
	cfg := game.DefaultConfig()
	cfg.Names = append([]string(nil), testRoster...)

	players := make(map[string]*player.Player, len(testRoster))
	for i, name := range testRoster {
		players[name] = player.New(name, roles[i])
	}
	st := game.NewStateFromPlayers("resume-test", cfg, append([]string(nil), testRoster...), players)
	st.InitViews(0, st.Roster)
	return st
}

func TestRebuildDropsFailedRound(t *testing.T) {
	st := testState(t)

	rd0 := game.NewRound(st.Roster)
	rd0.Protected = "Mia"
	rd0.Saved = "Scott"
	rd0.Unmasked = "Derek"
	rd0.Sheriff = "Jacob"
	rd0.Exiled = "Paul"
	rd0.Remove("Paul")
	rd0.Success = true
	st.Rounds = append(st.Rounds, rd0)
	st.Logs = append(st.Logs, &game.RoundLog{})

	rd1 := game.NewRound(rd0.Players)
	rd1.Protected = "Leah"
	st.Rounds = append(st.Rounds, rd1)
	st.Logs = append(st.Logs, &game.RoundLog{})
	st.ErrorMessage = "decision vote for Derek: no decision produced"

	villager := st.Player("Mia")
	villager.Observations = []string{
		"Round 0: Moderator Announcement: Paul was removed from the game.",
		"Round 1: Moderator Announcement: something from the failed round.",
	}
	// Stale ability fields the records must override.
	guard := st.Player("Isaac")
	guard.Guarded = []string{"Mia", "Leah"}
	witch := st.Player("Hao")
	witch.HasPoisoned = true
	seer := st.Player("Jacob")
	seer.RecordUnmask("Scott", role.Werewolf)

	if err := Rebuild(st); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if len(st.Rounds) != 1 || len(st.Logs) != 1 {
		t.Fatalf("failed round not dropped: %d rounds, %d logs", len(st.Rounds), len(st.Logs))
	}
	if st.ErrorMessage != "" {
		t.Errorf("error message not cleared: %q", st.ErrorMessage)
	}

	if len(villager.Observations) != 1 {
		t.Fatalf("failed-round observations not pruned: %v", villager.Observations)
	}

	if len(guard.Guarded) != 1 || guard.Guarded[0] != "Mia" {
		t.Errorf("guard history not rebuilt from records: %v", guard.Guarded)
	}
	if !witch.HasSaved {
		t.Error("witch antidote not rebuilt from the save record")
	}
	if witch.HasPoisoned {
		t.Error("stale poison flag survived the rebuild")
	}
	if seer.HasUnmasked("Scott") {
		t.Error("stale investigation survived the rebuild")
	}
	if seer.Unmasked["Derek"] != role.Werewolf {
		t.Errorf("investigation not rebuilt: %v", seer.Unmasked)
	}

	for _, name := range rd0.Players {
		p := st.Player(name)
		if p.View == nil {
			t.Fatalf("%s has no view after rebuild", name)
		}
		if p.View.RoundNumber != 1 {
			t.Errorf("%s resumes at round %d", name, p.View.RoundNumber)
		}
		if p.View.IsAlive("Paul") {
			t.Errorf("%s still sees the exiled player", name)
		}
		if p.View.Sheriff != "Jacob" {
			t.Errorf("%s lost the sheriff: %q", name, p.View.Sheriff)
		}
	}

	wolfView := st.Player("Derek").View
	if wolfView.OtherWolf != "Scott" {
		t.Errorf("wolf lost the packmate link: %q", wolfView.OtherWolf)
	}
}

func TestRebuildKeepsCompleteHistory(t *testing.T) {
	st := testState(t)
	rd0 := game.NewRound(st.Roster)
	rd0.Success = true
	st.Rounds = append(st.Rounds, rd0)
	st.Logs = append(st.Logs, &game.RoundLog{})

	if err := Rebuild(st); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if len(st.Rounds) != 1 {
		t.Errorf("complete round dropped: %d rounds", len(st.Rounds))
	}
}

func TestRebuildEmptySession(t *testing.T) {
	st := testState(t)
	if err := Rebuild(st); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	for _, name := range st.Roster {
		v := st.Player(name).View
		if v == nil || v.RoundNumber != 0 || len(v.Alive) != len(st.Roster) {
			t.Fatalf("%s: fresh session view wrong: %+v", name, v)
		}
	}
}
