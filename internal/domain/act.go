package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ActionStateUpdate labels handshake entries written by StateManager.ApplyUpdate.
const ActionStateUpdate = "state_update"

// ACT (Agent Context Token) is the state one session hands from agent to agent.
type ACT struct {
	SessionID        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	TaskChain        []TaskRecord
	CurrentObjective string
	ContextSummary   string
	OriginAgent      string
	HandoffReason    string
	NextAgentHint    string
	Artifacts        Artifacts
	HandshakeLog     []HandshakeEntry
}

type TaskRecord struct {
	Task          string
	Agent         string
	Timestamp     time.Time
	ResultSummary string
}

type HandshakeEntry struct {
	Agent          string
	Timestamp      time.Time
	Action         string
	UpdatesApplied []string
}

func NewACT(sessionID, objective string, now time.Time) ACT {
	return ACT{
		SessionID:        sessionID,
		CreatedAt:        now,
		UpdatedAt:        now,
		TaskChain:        []TaskRecord{},
		CurrentObjective: objective,
		Artifacts:        NewArtifacts(),
		HandshakeLog:     []HandshakeEntry{},
	}
}

// Clone returns a deep copy; callers outside StateManager only ever see clones.
func (a ACT) Clone() ACT {
	out := a
	out.TaskChain = append(make([]TaskRecord, 0, len(a.TaskChain)), a.TaskChain...)
	out.HandshakeLog = make([]HandshakeEntry, 0, len(a.HandshakeLog))
	for _, entry := range a.HandshakeLog {
		entry.UpdatesApplied = append(make([]string, 0, len(entry.UpdatesApplied)), entry.UpdatesApplied...)
		out.HandshakeLog = append(out.HandshakeLog, entry)
	}
	out.Artifacts = a.Artifacts.Clone()
	return out
}

// Agents lists the distinct agents found in the handshake log, first seen first.
func (a ACT) Agents() []string {
	agents := make([]string, 0, len(a.HandshakeLog))
	seen := make(map[string]struct{}, len(a.HandshakeLog))
	for _, entry := range a.HandshakeLog {
		if _, ok := seen[entry.Agent]; ok {
			continue
		}
		seen[entry.Agent] = struct{}{}
		agents = append(agents, entry.Agent)
	}
	return agents
}

// State derives the session lifecycle state. A session awaits the next agent
// while the last applied update carried a non-empty handoff_reason.
func (a ACT) State() SessionState {
	if len(a.HandshakeLog) == 0 {
		return SessionStateCreated
	}

	last := a.HandshakeLog[len(a.HandshakeLog)-1]
	for _, key := range last.UpdatesApplied {
		if key == KeyHandoffReason && strings.TrimSpace(a.HandoffReason) != "" {
			return SessionStateAwaitingNext
		}
	}

	return SessionStateDone
}

func (a ACT) Summary() SessionSummary {
	return SessionSummary{
		SessionID: a.SessionID,
		Objective: a.CurrentObjective,
		Agents:    len(a.Agents()),
		Tasks:     len(a.TaskChain),
		State:     a.State(),
		UpdatedAt: a.UpdatedAt,
	}
}

type actJSON struct {
	SessionID        string          `json:"session_id"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
	TaskChain        []taskJSON      `json:"task_chain"`
	CurrentObjective string          `json:"current_objective"`
	ContextSummary   string          `json:"context_summary"`
	OriginAgent      string          `json:"origin_agent"`
	HandoffReason    *string         `json:"handoff_reason"`
	NextAgentHint    *string         `json:"next_agent_hint"`
	Artifacts        *Artifacts      `json:"artifacts"`
	HandshakeLog     []handshakeJSON `json:"handshake_log"`
}

type taskJSON struct {
	Task          string `json:"task"`
	Agent         string `json:"agent"`
	Timestamp     string `json:"timestamp"`
	ResultSummary string `json:"result_summary"`
}

type handshakeJSON struct {
	Agent          string   `json:"agent"`
	Timestamp      string   `json:"timestamp"`
	Action         string   `json:"action"`
	UpdatesApplied []string `json:"updates_applied"`
}

func (a ACT) MarshalJSON() ([]byte, error) {
	handoffReason := a.HandoffReason
	nextAgentHint := a.NextAgentHint
	artifacts := a.Artifacts.normalized()

	wire := actJSON{
		SessionID:        a.SessionID,
		CreatedAt:        FormatTimestamp(a.CreatedAt),
		UpdatedAt:        FormatTimestamp(a.UpdatedAt),
		TaskChain:        make([]taskJSON, 0, len(a.TaskChain)),
		CurrentObjective: a.CurrentObjective,
		ContextSummary:   a.ContextSummary,
		OriginAgent:      a.OriginAgent,
		HandoffReason:    &handoffReason,
		NextAgentHint:    &nextAgentHint,
		Artifacts:        &artifacts,
		HandshakeLog:     make([]handshakeJSON, 0, len(a.HandshakeLog)),
	}
	for _, task := range a.TaskChain {
		wire.TaskChain = append(wire.TaskChain, taskJSON{
			Task:          task.Task,
			Agent:         task.Agent,
			Timestamp:     FormatTimestamp(task.Timestamp),
			ResultSummary: task.ResultSummary,
		})
	}
	for _, entry := range a.HandshakeLog {
		updates := entry.UpdatesApplied
		if updates == nil {
			updates = []string{}
		}
		wire.HandshakeLog = append(wire.HandshakeLog, handshakeJSON{
			Agent:          entry.Agent,
			Timestamp:      FormatTimestamp(entry.Timestamp),
			Action:         entry.Action,
			UpdatesApplied: updates,
		})
	}

	return json.Marshal(wire)
}

// UnmarshalJSON fills every field absent from the document with its empty default.
func (a *ACT) UnmarshalJSON(data []byte) error {
	var wire actJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	createdAt, err := ParseTimestamp(wire.CreatedAt)
	if err != nil {
		return fmt.Errorf("decode created_at: %w", err)
	}
	updatedAt, err := ParseTimestamp(wire.UpdatedAt)
	if err != nil {
		return fmt.Errorf("decode updated_at: %w", err)
	}

	out := ACT{
		SessionID:        wire.SessionID,
		CreatedAt:        createdAt,
		UpdatedAt:        updatedAt,
		TaskChain:        make([]TaskRecord, 0, len(wire.TaskChain)),
		CurrentObjective: wire.CurrentObjective,
		ContextSummary:   wire.ContextSummary,
		OriginAgent:      wire.OriginAgent,
		Artifacts:        NewArtifacts(),
		HandshakeLog:     make([]HandshakeEntry, 0, len(wire.HandshakeLog)),
	}
	if wire.HandoffReason != nil {
		out.HandoffReason = *wire.HandoffReason
	}
	if wire.NextAgentHint != nil {
		out.NextAgentHint = *wire.NextAgentHint
	}
	if wire.Artifacts != nil {
		out.Artifacts = wire.Artifacts.normalized()
	}

	for i, task := range wire.TaskChain {
		ts, err := ParseTimestamp(task.Timestamp)
		if err != nil {
			return fmt.Errorf("decode task_chain[%d].timestamp: %w", i, err)
		}
		out.TaskChain = append(out.TaskChain, TaskRecord{
			Task:          task.Task,
			Agent:         task.Agent,
			Timestamp:     ts,
			ResultSummary: task.ResultSummary,
		})
	}
	for i, entry := range wire.HandshakeLog {
		ts, err := ParseTimestamp(entry.Timestamp)
		if err != nil {
			return fmt.Errorf("decode handshake_log[%d].timestamp: %w", i, err)
		}
		updates := entry.UpdatesApplied
		if updates == nil {
			updates = []string{}
		}
		out.HandshakeLog = append(out.HandshakeLog, HandshakeEntry{
			Agent:          entry.Agent,
			Timestamp:      ts,
			Action:         entry.Action,
			UpdatesApplied: updates,
		})
	}

	*a = out
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO-8601 values (read as UTC).
// An empty string is the zero time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func FormatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
