package game

import (
	"testing"

	"github.com/lunarfang/werewolf-arena/internal/domain/role"
)

func TestNewStateDealsRoles(t *testing.T) {
	st, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}

	if len(st.Roster) != 8 {
		t.Fatalf("expected 8 seats, got %d", len(st.Roster))
	}
	counts := make(map[role.Role]int)
	for _, name := range st.Roster {
		p := st.Player(name)
		if p == nil {
			t.Fatalf("roster name %q has no player", name)
		}
		counts[p.Role]++
	}
	if counts[role.Werewolf] != 2 {
		t.Errorf("expected 2 werewolves, got %d", counts[role.Werewolf])
	}
	for _, r := range []role.Role{role.Seer, role.Guard, role.Witch, role.Hunter} {
		if counts[r] != 1 {
			t.Errorf("expected 1 %s, got %d", r, counts[r])
		}
	}
	if counts[role.Villager] != 2 {
		t.Errorf("expected 2 villagers, got %d", counts[role.Villager])
	}
}

func TestNewStateDeterministicForSeed(t *testing.T) {
	a, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Roster {
		if a.Roster[i] != b.Roster[i] {
			t.Fatalf("roster diverged at seat %d: %q vs %q", i, a.Roster[i], b.Roster[i])
		}
	}
	for _, name := range a.Roster {
		if a.Player(name).Role != b.Player(name).Role {
			t.Errorf("role for %s diverged: %s vs %s", name, a.Player(name).Role, b.Player(name).Role)
		}
	}
}

func TestWerewolfViewsKnowPackmate(t *testing.T) {
	st, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	wolves := st.Werewolves()
	if len(wolves) != 2 {
		t.Fatalf("expected 2 wolves, got %d", len(wolves))
	}
	for _, w := range wolves {
		if w.View.OtherWolf == "" {
			t.Errorf("wolf %s has no packmate in view", w.Name)
		}
		if w.View.OtherWolf == w.Name {
			t.Errorf("wolf %s is their own packmate", w.Name)
		}
	}
	for _, name := range st.Roster {
		p := st.Player(name)
		if !p.Role.IsWerewolf() && p.View.OtherWolf != "" {
			t.Errorf("%s (%s) sees a packmate", p.Name, p.Role)
		}
	}
}

func TestEvaluateWinner(t *testing.T) {
	st, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	wolves := st.Werewolves()

	rd := NewRound(st.Roster)
	if w := st.EvaluateWinner(rd); w != WinnerNone {
		t.Errorf("fresh round has winner %q", w)
	}

	// All wolves dead: villagers win.
	rd = NewRound(st.Roster)
	for _, w := range wolves {
		rd.Remove(w.Name)
	}
	if w := st.EvaluateWinner(rd); w != WinnerVillagers {
		t.Errorf("expected villagers, got %q", w)
	}

	// Parity: two wolves and two others.
	rd = NewRound(st.Roster)
	removed := 0
	for _, name := range st.Roster {
		if !st.Player(name).Role.IsWerewolf() && removed < 4 {
			rd.Remove(name)
			removed++
		}
	}
	if w := st.EvaluateWinner(rd); w != WinnerWerewolves {
		t.Errorf("expected werewolves at parity, got %q", w)
	}
}

func TestAliveInRosterOrder(t *testing.T) {
	st, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	rd := NewRound(st.Roster)
	rd.Remove(st.Roster[1])
	rd.Remove(st.Roster[5])

	alive := st.AliveInRosterOrder(rd)
	if len(alive) != 6 {
		t.Fatalf("expected 6 alive, got %d", len(alive))
	}
	idx := 0
	for _, name := range st.Roster {
		if name == st.Roster[1] || name == st.Roster[5] {
			continue
		}
		if alive[idx] != name {
			t.Errorf("position %d: expected %q, got %q", idx, name, alive[idx])
		}
		idx++
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(c *Config) {}, true},
		{"too few players", func(c *Config) { c.Names = c.Names[:3] }, false},
		{"duplicate name", func(c *Config) { c.Names[1] = c.Names[0] }, false},
		{"empty name", func(c *Config) { c.Names[0] = "" }, false},
		{"no wolves", func(c *Config) { c.NumWerewolves = 0 }, false},
		{"wolves at parity", func(c *Config) { c.NumWerewolves = 4 }, false},
		{"too many specials", func(c *Config) { c.Names = c.Names[:5]; c.NumWerewolves = 2 }, false},
		{"no debate turns", func(c *Config) { c.MaxDebateTurns = 0 }, false},
		{"no workers", func(c *Config) { c.Workers = 0 }, false},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestBeginRoundCarriesSurvivors(t *testing.T) {
	st, err := NewState(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	rd, lg := st.BeginRound()
	if lg == nil {
		t.Fatal("no round log")
	}
	if len(rd.Players) != len(st.Roster) {
		t.Fatalf("round zero should seat the full roster")
	}
	rd.Remove(st.Roster[0])

	next, _ := st.BeginRound()
	if len(next.Players) != len(st.Roster)-1 {
		t.Fatalf("expected %d survivors, got %d", len(st.Roster)-1, len(next.Players))
	}
	if next.IsAlive(st.Roster[0]) {
		t.Error("dead player carried into next round")
	}
	if st.RoundNumber() != 1 {
		t.Errorf("expected round 1, got %d", st.RoundNumber())
	}
}
