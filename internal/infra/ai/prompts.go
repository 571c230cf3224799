package ai

import (
	"fmt"
	"strings"

	"github.com/lunarfang/werewolf-arena/internal/decider"
)

// systemPrompt frames every request. The reply format is fixed so the
// decider can parse it without per-action cases.
const systemPrompt = `You are playing a game of Werewolf, a social deduction game of
hidden roles, persuasion, and elimination.

The table holds Villagers, Werewolves, and possibly a Seer, a Guard, a
Witch, and a Hunter. Each night the Werewolves pick a victim; the Seer
investigates one player; the Guard wards one player; the Witch holds
one antidote and one poison. Each day the table debates and votes to
exile one player. Villagers win when every Werewolf is dead; Werewolves
win when they reach parity with the rest of the table.

Stay in character. Never reveal information your role could not know.

Always respond with a single JSON object in EXACTLY this format:

{
  "reasoning": "your private step-by-step thinking",
  "%s": %s
}`

// actionInstruction tells the player what is being asked of them.
var actionInstruction = map[decider.ActionKind]string{
	decider.ActionRemove:         "Choose one player for the pack to eliminate tonight.",
	decider.ActionProtect:        "Choose one player to ward tonight. You cannot ward the same player twice in a row.",
	decider.ActionSave:           "The werewolves' victim is named in your observations. Answer Yes to spend your only antidote on them, or No to keep it.",
	decider.ActionPoison:         "Choose one player to poison tonight, or answer No to keep your only vial.",
	decider.ActionInvestigate:    "Choose one player to investigate tonight. You will learn their true role.",
	decider.ActionShoot:          "You are dying. Choose one player to take with you.",
	decider.ActionBid:            "Bid for the next turn to speak: 0 means you would rather listen, 4 means you urgently need the floor.",
	decider.ActionDebate:         "It is your turn to speak to the whole table.",
	decider.ActionVote:           "Vote to exile one player.",
	decider.ActionPseudoVote:     "Before the final vote, declare who you currently plan to exile.",
	decider.ActionElect:          "Vote for one sheriff candidate.",
	decider.ActionRunForSheriff:  "Answer Yes to stand for sheriff, or No to stay out of the race.",
	decider.ActionStatementOrder: "As sheriff, choose the order in which the table will speak today.",
	decider.ActionBadgeFlow:      "You are dying as sheriff. Choose the player who inherits the badge.",
	decider.ActionSheriffSummary: "As sheriff, summarize the debate for the table before the vote.",
	decider.ActionSummarize:      "Privately summarize what you learned this round.",
}

// resultKey returns the JSON field the reply carries the decision in.
func resultKey(action decider.ActionKind) string {
	switch action {
	case decider.ActionDebate, decider.ActionSheriffSummary:
		return "say"
	case decider.ActionSummarize:
		return "summary"
	}
	return "choice"
}

// resultHint shows the expected value shape in the system prompt.
func resultHint(req *decider.Request) string {
	if req.Constrained() {
		return `"one of the listed options, exactly as written"`
	}
	return `"what you say, in your own voice"`
}

// BuildMessages renders a decision request into chat messages.
func BuildMessages(req *decider.Request) []Message {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a %s.\n", req.View.Player, req.View.Role)
	if req.View.Personality != "" {
		fmt.Fprintf(&b, "Your personality: %s\n", req.View.Personality)
	}
	fmt.Fprintf(&b, "\nIt is round %d. Players still alive: %s.\n",
		req.View.Round, strings.Join(req.View.Alive, ", "))
	if req.View.OtherWolf != "" {
		fmt.Fprintf(&b, "The other Werewolf is %s.\n", req.View.OtherWolf)
	}
	if req.View.Sheriff != "" {
		fmt.Fprintf(&b, "The sheriff is %s.\n", req.View.Sheriff)
	}
	if len(req.View.Candidates) > 0 {
		fmt.Fprintf(&b, "Sheriff candidates: %s.\n", strings.Join(req.View.Candidates, ", "))
	}

	if len(req.View.Observations) > 0 {
		b.WriteString("\nYour observations so far:\n")
		for _, obs := range req.View.Observations {
			b.WriteString(obs)
			b.WriteByte('\n')
		}
	}

	if len(req.View.Debate) > 0 {
		b.WriteString("\nThe debate so far:\n")
		for _, u := range req.View.Debate {
			fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
		}
	}
	if req.Action == decider.ActionDebate && req.View.BidRationale != "" {
		fmt.Fprintf(&b, "\nYou bid for this turn because: %s\n", req.View.BidRationale)
	}
	if req.View.DebateTurnsLeft > 0 && req.Action == decider.ActionBid {
		fmt.Fprintf(&b, "\nDebate turns left today: %d.\n", req.View.DebateTurnsLeft)
	}

	if req.Experience != nil {
		b.WriteString("\nLessons from your past games:\n")
		for _, ex := range req.Experience.Good {
			fmt.Fprintf(&b, "- A vote for %s worked out well. Reasoning then: %s\n", ex.Vote, ex.Reflection)
		}
		if ex := req.Experience.Bad; ex != nil {
			fmt.Fprintf(&b, "- A vote for %s worked out badly. Reasoning then: %s\n", ex.Vote, ex.Reflection)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", actionInstruction[req.Action])
	if req.Constrained() {
		fmt.Fprintf(&b, "Your options: %s\n", strings.Join(req.Options, ", "))
	}

	return []Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, resultKey(req.Action), resultHint(req))},
		{Role: "user", Content: b.String()},
	}
}
