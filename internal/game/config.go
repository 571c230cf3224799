// Package game holds the session aggregate: rules configuration, the
// per-round records, and the full session state shared by both drivers.
package game

import (
	"errors"
	"fmt"
)

// Default pools used when a config does not name its players.
var defaultNames = []string{
	"Derek", "Scott", "Jacob", "Isaac", "Hao",
	"Leah", "Mia", "Paul", "Ginger", "Tyler",
}

// Config is the per-session rules configuration. Sessions with
// different configs can coexist in one process.
type Config struct {
	// Names are the table seats in order. Role assignment shuffles a
	// copy; the shuffled order becomes the session's roster order.
	Names []string `json:"names"`

	NumWerewolves int  `json:"num_werewolves"`
	HasSeer       bool `json:"has_seer"`
	HasGuard      bool `json:"has_guard"`
	HasWitch      bool `json:"has_witch"`
	HasHunter     bool `json:"has_hunter"`

	// MaxDebateTurns bounds the bid-driven debate per day.
	MaxDebateTurns int `json:"max_debate_turns"`

	// SheriffEnabled turns on the sheriff sub-game: election on the
	// first day, badge succession, weighted ballots, statement orders.
	SheriffEnabled bool `json:"sheriff_enabled"`

	// Workers bounds the cohort worker pool in the synchronous driver.
	Workers int `json:"workers"`

	// Seed fixes the session's random stream.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the standard eight-player setup.
func DefaultConfig() Config {
	return Config{
		Names:          append([]string(nil), defaultNames[:8]...),
		NumWerewolves:  2,
		HasSeer:        true,
		HasGuard:       true,
		HasWitch:       true,
		HasHunter:      true,
		MaxDebateTurns: 8,
		SheriffEnabled: true,
		Workers:        4,
		Seed:           1,
	}
}

// Validate checks the config for a playable session.
func (c Config) Validate() error {
	if len(c.Names) < 4 {
		return errors.New("config: at least four players required")
	}
	seen := make(map[string]bool, len(c.Names))
	for _, n := range c.Names {
		if n == "" {
			return errors.New("config: empty player name")
		}
		if seen[n] {
			return fmt.Errorf("config: duplicate player name %q", n)
		}
		seen[n] = true
	}
	if c.NumWerewolves < 1 {
		return errors.New("config: at least one werewolf required")
	}
	specials := c.NumWerewolves
	for _, has := range []bool{c.HasSeer, c.HasGuard, c.HasWitch, c.HasHunter} {
		if has {
			specials++
		}
	}
	if specials > len(c.Names) {
		return fmt.Errorf("config: %d special roles for %d players", specials, len(c.Names))
	}
	if c.NumWerewolves*2 >= len(c.Names) {
		return errors.New("config: werewolves must start outnumbered")
	}
	if c.MaxDebateTurns < 1 {
		return errors.New("config: max debate turns must be positive")
	}
	if c.Workers < 1 {
		return errors.New("config: worker count must be positive")
	}
	return nil
}
