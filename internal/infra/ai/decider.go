package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lunarfang/werewolf-arena/internal/decider"
	"github.com/lunarfang/werewolf-arena/internal/platform/logger"
)

// Decider turns decision requests into prompts and LLM replies into
// decisions. It owns its retries: a returned error is fatal to the
// round.
type Decider struct {
	provider LLMProvider
	log      *logger.Logger
	retries  int
}

// NewDecider wraps an LLM provider behind the decider contract.
func NewDecider(provider LLMProvider, log *logger.Logger) *Decider {
	return &Decider{provider: provider, log: log, retries: 2}
}

// provenance is the audit blob attached to every decision.
type provenance struct {
	Model     string `json:"model,omitempty"`
	Raw       string `json:"raw"`
	Reasoning string `json:"reasoning,omitempty"`
	Attempts  int    `json:"attempts"`
}

func (d *Decider) Decide(ctx context.Context, req *decider.Request) (*decider.Decision, error) {
	messages := BuildMessages(req)

	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		resp, err := d.provider.Complete(ctx, CompletionRequest{
			Messages:    messages,
			MaxTokens:   1024,
			Temperature: 0.7,
			JSONMode:    true,
		})
		if err != nil {
			lastErr = err
			d.log.Warn(fmt.Sprintf("completion for %s/%s failed (attempt %d): %v",
				req.Player, req.Action, attempt+1, err))
			continue
		}

		value, reasoning, err := parseReply(req, resp.Content)
		if err != nil {
			lastErr = err
			d.log.Warn(fmt.Sprintf("unusable reply for %s/%s (attempt %d): %v",
				req.Player, req.Action, attempt+1, err))
			continue
		}

		blob, _ := json.Marshal(provenance{
			Model:     resp.Model,
			Raw:       resp.Content,
			Reasoning: reasoning,
			Attempts:  attempt + 1,
		})
		return &decider.Decision{Value: value, Log: blob}, nil
	}
	return nil, fmt.Errorf("ai: %s decision for %s failed: %w", req.Action, req.Player, lastErr)
}

// parseReply extracts the decision value from a JSON reply and matches
// it against the request's legal options.
func parseReply(req *decider.Request, content string) (string, string, error) {
	raw := stripFences(content)

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", "", fmt.Errorf("reply is not a JSON object: %w", err)
	}

	reasoning := ""
	if r, ok := doc["reasoning"]; ok {
		_ = json.Unmarshal(r, &reasoning)
	}

	field, ok := doc[resultKey(req.Action)]
	if !ok {
		return "", "", fmt.Errorf("reply missing %q field", resultKey(req.Action))
	}
	var value string
	if err := json.Unmarshal(field, &value); err != nil {
		// Some models return bids as bare numbers.
		var n json.Number
		if err2 := json.Unmarshal(field, &n); err2 != nil {
			return "", "", fmt.Errorf("unreadable %q field: %w", resultKey(req.Action), err)
		}
		value = n.String()
	}
	value = strings.TrimSpace(value)

	if !req.Constrained() {
		if value == "" {
			return "", "", fmt.Errorf("empty %q field", resultKey(req.Action))
		}
		return value, reasoning, nil
	}

	if matched, ok := matchOption(req.Options, value); ok {
		return matched, reasoning, nil
	}
	return "", "", fmt.Errorf("value %q matches none of the options", value)
}

// matchOption maps a reply onto a legal option, tolerating case and
// whitespace drift.
func matchOption(options []string, value string) (string, bool) {
	for _, o := range options {
		if o == value {
			return o, true
		}
	}
	folded := strings.ToLower(value)
	for _, o := range options {
		if strings.ToLower(o) == folded {
			return o, true
		}
	}
	return "", false
}

// stripFences removes a markdown code fence around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ decider.Decider = (*Decider)(nil)
