// Package reply turns free-text agent output into an answer and a state update.
package reply

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/bnema/uap-cli/internal/domain"
)

type Strategy string

const (
	StrategyFencedBlock Strategy = "fenced_block"
	StrategyKeyedObject Strategy = "keyed_object"
	StrategyOuterBraces Strategy = "outer_braces"
	StrategyRawFallback Strategy = "raw_fallback"
)

const (
	FallbackContextSummary = "Response did not follow UAP format - raw response captured"
	FallbackTaskCompleted  = "Unknown - response parsing failed"
)

const (
	keyAnswer       = "answer"
	keyStateUpdates = "state_updates"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```[ \\t]*[\\w+.-]*(.*?)```")
	keyedObjectPattern = regexp.MustCompile(`\{\s*"(?:answer|state_updates)"`)
)

// Reply is the structured form of one agent response.
type Reply struct {
	Answer       string
	HasAnswer    bool
	StateUpdates *domain.StateUpdate
	Strategy     Strategy
}

// Degraded reports whether no strategy found a protocol object.
func (r Reply) Degraded() bool {
	return r.Strategy == StrategyRawFallback
}

// AnswerOr returns the parsed answer, or fallback when the reply had none.
func (r Reply) AnswerOr(fallback string) string {
	if r.HasAnswer {
		return r.Answer
	}
	return fallback
}

// Parse tries, in order: fenced code blocks, an object starting with an
// answer or state_updates key, the span between the first '{' and the last
// '}'. When all fail the raw text becomes the answer. Parse never fails.
func Parse(text string) Reply {
	if r, ok := fromFencedBlocks(text); ok {
		return r
	}
	if r, ok := fromKeyedObject(text); ok {
		return r
	}
	if r, ok := fromOuterBraces(text); ok {
		return r
	}

	return rawFallback(text)
}

func fromFencedBlocks(text string) (Reply, bool) {
	for _, match := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		content := strings.TrimSpace(match[1])
		if !strings.HasPrefix(content, "{") {
			continue
		}
		if r, ok := decodeCandidate([]byte(content), StrategyFencedBlock); ok {
			return r, true
		}
	}
	return Reply{}, false
}

// fromKeyedObject decodes exactly one JSON value at each candidate brace, so
// braces inside string literals cannot throw off where the object ends.
func fromKeyedObject(text string) (Reply, bool) {
	for _, loc := range keyedObjectPattern.FindAllStringIndex(text, -1) {
		dec := json.NewDecoder(strings.NewReader(text[loc[0]:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if r, ok := decodeCandidate(raw, StrategyKeyedObject); ok {
			return r, true
		}
	}
	return Reply{}, false
}

func fromOuterBraces(text string) (Reply, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Reply{}, false
	}
	return decodeCandidate([]byte(text[start:end+1]), StrategyOuterBraces)
}

func decodeCandidate(data []byte, strategy Strategy) (Reply, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Reply{}, false
	}

	rawAnswer, hasAnswer := fields[keyAnswer]
	rawUpdates, hasUpdates := fields[keyStateUpdates]
	if !hasAnswer && !hasUpdates {
		return Reply{}, false
	}

	r := Reply{Strategy: strategy}
	if hasAnswer {
		r.Answer = answerText(rawAnswer)
		r.HasAnswer = true
	}
	if hasUpdates && isObject(rawUpdates) {
		update, err := domain.ParseStateUpdate(rawUpdates)
		if err == nil {
			r.StateUpdates = &update
		}
	}

	return r, true
}

func rawFallback(raw string) Reply {
	update := domain.StateUpdate{}
	update.SetContextSummary(FallbackContextSummary)
	update.SetTaskCompleted(FallbackTaskCompleted)

	return Reply{
		Answer:       raw,
		HasAnswer:    true,
		StateUpdates: &update,
		Strategy:     StrategyRawFallback,
	}
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func answerText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return string(trimmed)
	}
	return compact.String()
}
