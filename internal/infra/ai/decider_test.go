package ai

import (
	"strings"
	"testing"

	"github.com/lunarfang/werewolf-arena/internal/decider"
)

func voteRequest() *decider.Request {
	return &decider.Request{
		Player:  "Derek",
		Action:  decider.ActionVote,
		View:    decider.View{Player: "Derek", Role: "Villager", Alive: []string{"Derek", "Scott", "Mia"}},
		Options: []string{"Scott", "Mia"},
	}
}

func TestParseReply(t *testing.T) {
	req := voteRequest()
	value, reasoning, err := parseReply(req, `{"reasoning": "Scott dodged every question.", "choice": "Scott"}`)
	if err != nil {
		t.Fatalf("parseReply failed: %v", err)
	}
	if value != "Scott" {
		t.Errorf("expected Scott, got %q", value)
	}
	if reasoning != "Scott dodged every question." {
		t.Errorf("reasoning lost: %q", reasoning)
	}
}

func TestParseReplyStripsFences(t *testing.T) {
	req := voteRequest()
	reply := "```json\n{\"reasoning\": \"r\", \"choice\": \"Mia\"}\n```"
	value, _, err := parseReply(req, reply)
	if err != nil {
		t.Fatalf("parseReply failed: %v", err)
	}
	if value != "Mia" {
		t.Errorf("expected Mia, got %q", value)
	}
}

func TestParseReplyCaseInsensitiveMatch(t *testing.T) {
	req := voteRequest()
	value, _, err := parseReply(req, `{"choice": "scott"}`)
	if err != nil {
		t.Fatalf("parseReply failed: %v", err)
	}
	if value != "Scott" {
		t.Errorf("expected canonical option Scott, got %q", value)
	}
}

func TestParseReplyNumericBid(t *testing.T) {
	req := &decider.Request{
		Player:  "Derek",
		Action:  decider.ActionBid,
		Options: []string{"0", "1", "2", "3", "4"},
	}
	value, _, err := parseReply(req, `{"choice": 3}`)
	if err != nil {
		t.Fatalf("parseReply failed: %v", err)
	}
	if value != "3" {
		t.Errorf("expected 3, got %q", value)
	}
}

func TestParseReplyRejectsIllegalOption(t *testing.T) {
	req := voteRequest()
	if _, _, err := parseReply(req, `{"choice": "Derek"}`); err == nil {
		t.Error("expected an error for a value outside the options")
	}
}

func TestParseReplyRejectsMalformed(t *testing.T) {
	req := voteRequest()
	for _, reply := range []string{
		"not json at all",
		`{"reasoning": "no result field"}`,
		`{"choice": ""}`,
	} {
		if _, _, err := parseReply(req, reply); err == nil {
			t.Errorf("expected an error for %q", reply)
		}
	}
}

func TestParseReplyFreeText(t *testing.T) {
	req := &decider.Request{Player: "Derek", Action: decider.ActionDebate}
	value, _, err := parseReply(req, `{"reasoning": "r", "say": "I trust no one."}`)
	if err != nil {
		t.Fatalf("parseReply failed: %v", err)
	}
	if value != "I trust no one." {
		t.Errorf("free text mangled: %q", value)
	}
}

func TestResultKeyPerAction(t *testing.T) {
	if k := resultKey(decider.ActionDebate); k != "say" {
		t.Errorf("debate key: %q", k)
	}
	if k := resultKey(decider.ActionSheriffSummary); k != "say" {
		t.Errorf("sheriff summary key: %q", k)
	}
	if k := resultKey(decider.ActionSummarize); k != "summary" {
		t.Errorf("summarize key: %q", k)
	}
	if k := resultKey(decider.ActionVote); k != "choice" {
		t.Errorf("vote key: %q", k)
	}
}

func TestBuildMessages(t *testing.T) {
	req := voteRequest()
	req.View.Observations = []string{"Round 0:\n   - Moderator Announcement: the night was quiet."}
	req.Experience = &decider.VoteExperience{
		Good: []decider.VoteExample{{Reflection: "he lied", Vote: "Scott", Reward: 1000}},
	}

	messages := BuildMessages(req)
	if len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(messages))
	}
	if messages[0].Role != "system" || !strings.Contains(messages[0].Content, `"choice"`) {
		t.Errorf("system prompt missing result key: %q", messages[0].Content)
	}
	user := messages[1].Content
	for _, want := range []string{
		"You are Derek, a Villager.",
		"Scott, Mia",
		"the night was quiet",
		"A vote for Scott worked out well",
	} {
		if !strings.Contains(user, want) {
			t.Errorf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"Yes", "No"}
	if got, ok := matchOption(options, "Yes"); !ok || got != "Yes" {
		t.Errorf("exact match failed: %q %v", got, ok)
	}
	if got, ok := matchOption(options, "no"); !ok || got != "No" {
		t.Errorf("folded match failed: %q %v", got, ok)
	}
	if _, ok := matchOption(options, "Maybe"); ok {
		t.Error("matched a value outside the options")
	}
}
