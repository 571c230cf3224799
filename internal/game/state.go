package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/lunarfang/werewolf-arena/internal/domain/player"
	"github.com/lunarfang/werewolf-arena/internal/domain/role"
)

// Winner is the session outcome.
type Winner string

const (
	WinnerNone       Winner = ""
	WinnerWerewolves Winner = "Werewolves"
	WinnerVillagers  Winner = "Villagers"
)

// State is the session aggregate: config, players, the full round
// history and its audit logs, and the outcome.
type State struct {
	ID     string  `json:"id"`
	Config Config  `json:"config"`

	// Roster is the fixed seat order for the whole session. Every
	// deterministic scan (cohort application, tie-breaks) walks it.
	Roster  []string                  `json:"roster"`
	Players map[string]*player.Player `json:"players"`

	Rounds []*Round    `json:"rounds"`
	Logs   []*RoundLog `json:"logs"`

	Winner       Winner `json:"winner,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	rng *rand.Rand
}

// NewState builds a fresh session: shuffles the seats, assigns roles,
// and initializes every private view for round zero.
func NewState(cfg Config) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := &State{
		ID:      uuid.NewString(),
		Config:  cfg,
		Players: make(map[string]*player.Player, len(cfg.Names)),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}

	st.Roster = append([]string(nil), cfg.Names...)
	st.rng.Shuffle(len(st.Roster), func(i, j int) {
		st.Roster[i], st.Roster[j] = st.Roster[j], st.Roster[i]
	})

	roles := make([]role.Role, 0, len(st.Roster))
	for i := 0; i < cfg.NumWerewolves; i++ {
		roles = append(roles, role.Werewolf)
	}
	if cfg.HasSeer {
		roles = append(roles, role.Seer)
	}
	if cfg.HasGuard {
		roles = append(roles, role.Guard)
	}
	if cfg.HasWitch {
		roles = append(roles, role.Witch)
	}
	if cfg.HasHunter {
		roles = append(roles, role.Hunter)
	}
	for len(roles) < len(st.Roster) {
		roles = append(roles, role.Villager)
	}
	// Roles land on random seats: the seat order was shuffled above,
	// so assigning in sequence keeps the deal uniform.
	st.rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	for i, name := range st.Roster {
		st.Players[name] = player.New(name, roles[i])
	}
	st.InitViews(0, st.Roster)
	return st, nil
}

// NewStateFromPlayers rebuilds the aggregate from persisted parts; the
// caller is responsible for view reconstruction afterwards.
func NewStateFromPlayers(id string, cfg Config, roster []string, players map[string]*player.Player) *State {
	return &State{
		ID:      id,
		Config:  cfg,
		Roster:  roster,
		Players: players,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Rand is the session's deterministic random stream.
func (s *State) Rand() *rand.Rand {
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(s.Config.Seed))
	}
	return s.rng
}

// InitViews (re)initializes every player's private view over the given
// alive roster. Werewolf views learn their first living packmate.
func (s *State) InitViews(roundNumber int, alive []string) {
	for _, p := range s.Players {
		other := ""
		if p.Role == role.Werewolf {
			for _, w := range s.Werewolves() {
				if w.Name != p.Name {
					other = w.Name
					break
				}
			}
		}
		p.InitView(roundNumber, alive, other)
	}
}

// BeginRound appends a fresh round and audit log over the survivors of
// the previous round (or the full roster on round zero).
func (s *State) BeginRound() (*Round, *RoundLog) {
	alive := s.Roster
	if last := s.CurrentRound(); last != nil {
		alive = last.Players
	}
	rd := NewRound(alive)
	lg := &RoundLog{}
	s.Rounds = append(s.Rounds, rd)
	s.Logs = append(s.Logs, lg)
	return rd, lg
}

// CurrentRound returns the round in progress, or nil before the first.
func (s *State) CurrentRound() *Round {
	if len(s.Rounds) == 0 {
		return nil
	}
	return s.Rounds[len(s.Rounds)-1]
}

// CurrentLog returns the audit log for the round in progress.
func (s *State) CurrentLog() *RoundLog {
	if len(s.Logs) == 0 {
		return nil
	}
	return s.Logs[len(s.Logs)-1]
}

// RoundNumber is the zero-based index of the round in progress.
func (s *State) RoundNumber() int {
	return len(s.Rounds) - 1
}

// Player looks a player up by name.
func (s *State) Player(name string) *player.Player {
	return s.Players[name]
}

// Werewolves returns the werewolf players in roster order, dead or
// alive.
func (s *State) Werewolves() []*player.Player {
	var wolves []*player.Player
	for _, name := range s.Roster {
		if p := s.Players[name]; p != nil && p.Role.IsWerewolf() {
			wolves = append(wolves, p)
		}
	}
	return wolves
}

// RoleHolder returns the unique holder of a special role, or nil if
// the config excludes it. Not meaningful for Werewolf or Villager.
func (s *State) RoleHolder(r role.Role) *player.Player {
	for _, name := range s.Roster {
		if p := s.Players[name]; p != nil && p.Role == r {
			return p
		}
	}
	return nil
}

// AliveInRosterOrder filters the session roster down to the round's
// survivors, preserving seat order.
func (s *State) AliveInRosterOrder(rd *Round) []string {
	alive := make([]string, 0, len(rd.Players))
	for _, name := range s.Roster {
		if rd.IsAlive(name) {
			alive = append(alive, name)
		}
	}
	return alive
}

// EvaluateWinner applies the standing win conditions to the round's
// current roster: werewolves win on parity, villagers win when the
// last werewolf dies.
func (s *State) EvaluateWinner(rd *Round) Winner {
	wolves := 0
	for _, name := range rd.Players {
		if p := s.Players[name]; p != nil && p.Role.IsWerewolf() {
			wolves++
		}
	}
	if wolves >= len(rd.Players)-wolves {
		return WinnerWerewolves
	}
	if wolves == 0 {
		return WinnerVillagers
	}
	return WinnerNone
}

// Fail records a fatal session error on the round in progress.
func (s *State) Fail(err error) {
	s.ErrorMessage = err.Error()
	if rd := s.CurrentRound(); rd != nil {
		rd.Success = false
	}
}

func (s *State) String() string {
	return fmt.Sprintf("session %s: %d players, round %d", s.ID, len(s.Roster), len(s.Rounds))
}
