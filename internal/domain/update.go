package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	KeyCurrentObjective = "current_objective"
	KeyContextSummary   = "context_summary"
	KeyTaskCompleted    = "task_completed"
	KeyResultSummary    = "result_summary"
	KeyHandoffReason    = "handoff_reason"
	KeyNextAgentHint    = "next_agent_hint"
	KeyArtifacts        = "artifacts"
)

// Optional marks whether a field was present in an update, independently of its value.
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](value T) Optional[T] {
	return Optional[T]{Value: value, Set: true}
}

// StateUpdate is the state_updates object of one agent reply. Every field is
// optional; Keys keeps the top-level keys in the order the agent sent them,
// unknown ones included, for the handshake log.
type StateUpdate struct {
	CurrentObjective Optional[string]
	ContextSummary   Optional[string]
	TaskCompleted    Optional[string]
	ResultSummary    Optional[string]
	HandoffReason    Optional[string]
	NextAgentHint    Optional[string]
	Artifacts        Optional[map[string]any]

	keys   []string
	extras map[string]json.RawMessage
}

func ParseStateUpdate(data []byte) (StateUpdate, error) {
	var update StateUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return StateUpdate{}, err
	}
	return update, nil
}

func (u StateUpdate) Keys() []string {
	return append([]string(nil), u.keys...)
}

func (u StateUpdate) IsEmpty() bool {
	return len(u.keys) == 0
}

// RequestsHandoff reports whether the update asks for another agent.
func (u StateUpdate) RequestsHandoff() bool {
	return u.HandoffReason.Set && strings.TrimSpace(u.HandoffReason.Value) != ""
}

func (u *StateUpdate) SetCurrentObjective(value string) {
	u.CurrentObjective = Some(value)
	u.touch(KeyCurrentObjective)
}

func (u *StateUpdate) SetContextSummary(value string) {
	u.ContextSummary = Some(value)
	u.touch(KeyContextSummary)
}

func (u *StateUpdate) SetTaskCompleted(value string) {
	u.TaskCompleted = Some(value)
	u.touch(KeyTaskCompleted)
}

func (u *StateUpdate) SetResultSummary(value string) {
	u.ResultSummary = Some(value)
	u.touch(KeyResultSummary)
}

func (u *StateUpdate) SetHandoff(reason, nextAgentHint string) {
	u.HandoffReason = Some(reason)
	u.touch(KeyHandoffReason)
	if nextAgentHint != "" {
		u.NextAgentHint = Some(nextAgentHint)
		u.touch(KeyNextAgentHint)
	}
}

func (u *StateUpdate) SetArtifact(bucket string, value any) {
	if !u.Artifacts.Set || u.Artifacts.Value == nil {
		u.Artifacts = Some(map[string]any{})
	}
	u.Artifacts.Value[bucket] = value
	u.touch(KeyArtifacts)
}

func (u *StateUpdate) touch(key string) {
	for _, existing := range u.keys {
		if existing == key {
			return
		}
	}
	u.keys = append(u.keys, key)
}

func (u *StateUpdate) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("state_updates must be a JSON object")
	}

	out := StateUpdate{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected state_updates key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decode state_updates.%s: %w", key, err)
		}
		if err := out.assign(key, raw); err != nil {
			return err
		}
		out.touch(key)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*u = out
	return nil
}

func (u *StateUpdate) assign(key string, raw json.RawMessage) error {
	switch key {
	case KeyCurrentObjective:
		u.CurrentObjective = Some(looseString(raw))
	case KeyContextSummary:
		u.ContextSummary = Some(looseString(raw))
	case KeyTaskCompleted:
		u.TaskCompleted = Some(looseString(raw))
	case KeyResultSummary:
		u.ResultSummary = Some(looseString(raw))
	case KeyHandoffReason:
		u.HandoffReason = Some(looseString(raw))
	case KeyNextAgentHint:
		u.NextAgentHint = Some(looseString(raw))
	case KeyArtifacts:
		buckets := map[string]any{}
		decoded, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("decode state_updates.artifacts: %w", err)
		}
		if m, ok := decoded.(map[string]any); ok {
			buckets = m
		}
		u.Artifacts = Some(buckets)
	default:
		if u.extras == nil {
			u.extras = map[string]json.RawMessage{}
		}
		u.extras[key] = append(json.RawMessage(nil), raw...)
	}
	return nil
}

func (u StateUpdate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range u.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')

		value, err := u.valueJSON(key)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (u StateUpdate) valueJSON(key string) ([]byte, error) {
	switch key {
	case KeyCurrentObjective:
		return json.Marshal(u.CurrentObjective.Value)
	case KeyContextSummary:
		return json.Marshal(u.ContextSummary.Value)
	case KeyTaskCompleted:
		return json.Marshal(u.TaskCompleted.Value)
	case KeyResultSummary:
		return json.Marshal(u.ResultSummary.Value)
	case KeyHandoffReason:
		return json.Marshal(u.HandoffReason.Value)
	case KeyNextAgentHint:
		return json.Marshal(u.NextAgentHint.Value)
	case KeyArtifacts:
		return json.Marshal(u.Artifacts.Value)
	default:
		if raw, ok := u.extras[key]; ok {
			return raw, nil
		}
		return []byte("null"), nil
	}
}

// looseString reads a JSON value as text: null is empty, strings are
// unquoted, anything else keeps its compact JSON form.
func looseString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
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
