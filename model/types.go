// Package model provides domain types shared across packages.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects how a prompt is sent to the endpoint.
type Mode string

const (
	// ModeChat replays the conversation and embodies a character.
	ModeChat Mode = "chat"
	// ModeInstruct sends a system prompt followed by the user prompt.
	ModeInstruct Mode = "instruct"
	// ModeCompletion sends raw text to the completions endpoint.
	// Used internally to extend a reply that was cut off.
	ModeCompletion Mode = "completion"
)

// ParseMode parses a user-selectable mode (case-insensitive).
// Completion mode is internal and cannot be selected.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeChat:
		return ModeChat, nil
	case ModeInstruct:
		return ModeInstruct, nil
	default:
		return "", fmt.Errorf("unknown mode: %q (expected chat or instruct)", s)
	}
}

// Turn is one exchange: the user's (possibly augmented) question and the reply.
// Turns are never modified once appended to a History.
type Turn struct {
	Question string
	Answer   string
}

// MarshalJSON encodes the turn as a two-element array [question, answer].
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{t.Question, t.Answer})
}

// UnmarshalJSON decodes a [question, answer] array. A null answer,
// written by older clients after a failed request, decodes to "".
func (t *Turn) UnmarshalJSON(data []byte) error {
	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("turn: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("turn: expected 2 elements, got %d", len(pair))
	}
	t.Question, t.Answer = "", ""
	if pair[0] != nil {
		t.Question = *pair[0]
	}
	if pair[1] != nil {
		t.Answer = *pair[1]
	}
	return nil
}

// History is the ordered list of turns, oldest first.
//
// The whole history is replayed on every chat request, so payloads grow
// linearly with the number of turns.
type History []Turn

// Append returns a history with the turn added at the end.
// The receiver is not modified.
func (h History) Append(t Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, t)
}

// SearchResult is one entry returned by the search aggregator.
// It is implemented by OrganicResult, InfoBox and DirectAnswer only.
type SearchResult interface {
	searchResult()
}

// OrganicResult is a regular web result.
type OrganicResult struct {
	Title   string
	URL     string
	Content string
	Engine  string
}

// InfoBox is a structured summary box; Content is HTML.
type InfoBox struct {
	Title   string
	Content string
}

// DirectAnswer is an answer the aggregator produced directly.
type DirectAnswer struct {
	Content string
}

func (OrganicResult) searchResult() {}
func (InfoBox) searchResult()       {}
func (DirectAnswer) searchResult()  {}
