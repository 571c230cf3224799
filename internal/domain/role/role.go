// Package role defines the closed set of roles a player can hold.
// This package is PURE domain logic and must NOT import infrastructure.
package role

// Role identifies one of the six playable roles.
type Role string

const (
	Villager Role = "Villager"
	Werewolf Role = "Werewolf"
	Seer     Role = "Seer"
	Guard    Role = "Guard"
	Witch    Role = "Witch"
	Hunter   Role = "Hunter"
)

// All returns every role in a stable order.
func All() []Role {
	return []Role{Villager, Werewolf, Seer, Guard, Witch, Hunter}
}

// Valid reports whether r is one of the six known roles.
func (r Role) Valid() bool {
	switch r {
	case Villager, Werewolf, Seer, Guard, Witch, Hunter:
		return true
	}
	return false
}

// IsWerewolf reports whether the role belongs to the werewolf faction.
func (r Role) IsWerewolf() bool {
	return r == Werewolf
}

// ActsAtNight reports whether the role ever takes a night action.
// The hunter's shot is resolved after death announcements, not during
// the night sequence, so it does not count here.
func (r Role) ActsAtNight() bool {
	switch r {
	case Werewolf, Seer, Guard, Witch:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
