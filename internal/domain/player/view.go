package player

import "strings"

// Utterance is one public debate contribution.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// GameView is a player's private, possibly partial view of the session.
// It is updated by moderator announcements only; two players' views of
// the same round may legitimately differ.
type GameView struct {
	RoundNumber int         `json:"round_number"`
	Alive       []string    `json:"current_players"`
	Debate      []Utterance `json:"debate"`

	// OtherWolf is set only on werewolf views.
	OtherWolf string `json:"other_wolf,omitempty"`

	Sheriff    string   `json:"sheriff,omitempty"`
	Candidates []string `json:"sheriff_candidates,omitempty"`
}

// NewGameView builds a view over a copy of alive.
func NewGameView(roundNumber int, alive []string, otherWolf string) *GameView {
	return &GameView{
		RoundNumber: roundNumber,
		Alive:       append([]string(nil), alive...),
		OtherWolf:   otherWolf,
	}
}

// IsAlive reports whether name is still in the view's player list.
func (v *GameView) IsAlive(name string) bool {
	for _, p := range v.Alive {
		if p == name {
			return true
		}
	}
	return false
}

// RemovePlayer drops a player from the view. Unknown names are ignored:
// a view only tracks what its owner was told.
func (v *GameView) RemovePlayer(name string) {
	for i, p := range v.Alive {
		if p == name {
			v.Alive = append(v.Alive[:i], v.Alive[i+1:]...)
			return
		}
	}
}

// AddDebate appends a public utterance.
func (v *GameView) AddDebate(speaker, text string) {
	v.Debate = append(v.Debate, Utterance{Speaker: speaker, Text: text})
}

// ClearDebate drops the debate transcript at a round boundary.
func (v *GameView) ClearDebate() {
	v.Debate = nil
}

// SetSheriff records the current badge holder.
func (v *GameView) SetSheriff(name string) {
	v.Sheriff = name
}

// AddCandidate records a declared sheriff candidate.
func (v *GameView) AddCandidate(name string) {
	v.Candidates = append(v.Candidates, name)
}

// LegalOrders returns the two statement orders the sheriff may choose
// between: the full circle walked leftward or rightward starting from
// the seat adjacent to mine, with me last.
func (v *GameView) LegalOrders(myName string) [][]string {
	n := len(v.Alive)
	myIdx := -1
	for i, p := range v.Alive {
		if p == myName {
			myIdx = i
			break
		}
	}
	if myIdx < 0 || n == 0 {
		return nil
	}

	left := make([]string, 0, n)
	right := make([]string, 0, n)
	for i := 0; i < n; i++ {
		left = append(left, v.Alive[((myIdx-1-i)%n+n)%n])
		right = append(right, v.Alive[(myIdx+1+i)%n])
	}
	return [][]string{left, right}
}

// FormatOrder renders a statement order the way it is presented as an
// option, e.g. "[Dan, Jacob, Hao]".
func FormatOrder(order []string) string {
	return "[" + strings.Join(order, ", ") + "]"
}
