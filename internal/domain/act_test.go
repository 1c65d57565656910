package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var textGen = rapid.StringMatching(`[a-zA-Z0-9 _.:-]{0,24}`)

func drawTime(rt *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(0, 4102444800).Draw(rt, label+"_sec")
	nsec := rapid.Int64Range(0, 999_999_999).Draw(rt, label+"_nsec")
	return time.Unix(sec, nsec).UTC()
}

func drawStrings(rt *rapid.T, label string) []string {
	return append([]string{}, rapid.SliceOfN(textGen, 0, 4).Draw(rt, label)...)
}

func drawACT(rt *rapid.T) ACT {
	act := NewACT(textGen.Draw(rt, "session_id"), textGen.Draw(rt, "objective"), drawTime(rt, "created_at"))
	act.UpdatedAt = drawTime(rt, "updated_at")
	act.ContextSummary = textGen.Draw(rt, "context_summary")
	act.OriginAgent = textGen.Draw(rt, "origin_agent")
	act.HandoffReason = textGen.Draw(rt, "handoff_reason")
	act.NextAgentHint = textGen.Draw(rt, "next_agent_hint")

	for i, n := 0, rapid.IntRange(0, 3).Draw(rt, "tasks"); i < n; i++ {
		act.TaskChain = append(act.TaskChain, TaskRecord{
			Task:          textGen.Draw(rt, "task"),
			Agent:         textGen.Draw(rt, "task_agent"),
			Timestamp:     drawTime(rt, "task_ts"),
			ResultSummary: textGen.Draw(rt, "result_summary"),
		})
	}
	for i, n := 0, rapid.IntRange(0, 3).Draw(rt, "handshakes"); i < n; i++ {
		act.HandshakeLog = append(act.HandshakeLog, HandshakeEntry{
			Agent:          textGen.Draw(rt, "handshake_agent"),
			Timestamp:      drawTime(rt, "handshake_ts"),
			Action:         ActionStateUpdate,
			UpdatesApplied: drawStrings(rt, "updates_applied"),
		})
	}

	act.Artifacts.CodeSnippets = drawStrings(rt, "code_snippets")
	act.Artifacts.Decisions = drawStrings(rt, "decisions")
	act.Artifacts.FilesModified = drawStrings(rt, "files_modified")
	for i, n := 0, rapid.IntRange(0, 3).Draw(rt, "game_state"); i < n; i++ {
		key := textGen.Draw(rt, "game_state_key")
		switch rapid.IntRange(0, 2).Draw(rt, "game_state_kind") {
		case 0:
			act.Artifacts.GameState[key] = textGen.Draw(rt, "game_state_text")
		case 1:
			act.Artifacts.GameState[key] = json.Number(strconv.FormatInt(rapid.Int64().Draw(rt, "game_state_num"), 10))
		default:
			act.Artifacts.GameState[key] = rapid.Bool().Draw(rt, "game_state_bool")
		}
	}

	return act
}

func TestACTRoundTripProperty(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		act := drawACT(rt)

		encoded, err := json.Marshal(act)
		if err != nil {
			rt.Fatalf("encode: %v", err)
		}

		var decoded ACT
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			rt.Fatalf("decode: %v", err)
		}

		if diff := cmp.Diff(act, decoded); diff != "" {
			rt.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestACTEncodesExactFieldSet(t *testing.T) {
	t.Parallel()

	act := NewACT("abcd1234", "Build X", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	encoded, err := json.Marshal(act)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(encoded, &raw))

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"artifacts",
		"context_summary",
		"created_at",
		"current_objective",
		"handoff_reason",
		"handshake_log",
		"next_agent_hint",
		"origin_agent",
		"session_id",
		"task_chain",
		"updated_at",
	}, keys)

	assert.JSONEq(t, `{"code_snippets":[],"game_state":{},"decisions":[],"files_modified":[]}`, string(raw["artifacts"]))
	assert.JSONEq(t, `"2026-03-01T09:00:00Z"`, string(raw["created_at"]))
	assert.JSONEq(t, `[]`, string(raw["task_chain"]))
}

func TestACTDecodeFillsEmptyDefaults(t *testing.T) {
	t.Parallel()

	var act ACT
	require.NoError(t, json.Unmarshal([]byte(`{"session_id":"abc","handoff_reason":null}`), &act))

	assert.Equal(t, "abc", act.SessionID)
	assert.Empty(t, act.HandoffReason)
	assert.True(t, act.CreatedAt.IsZero())
	assert.NotNil(t, act.TaskChain)
	assert.NotNil(t, act.HandshakeLog)
	assert.Equal(t, NewArtifacts(), act.Artifacts)
}

func TestACTRoundTripKeepsLargeIntegers(t *testing.T) {
	t.Parallel()

	doc := `{"session_id": "abcd1234", "artifacts": {"game_state": {"seed": 12345678901234567, "ratio": 0.25, "board": {"cells": [9007199254740993]}}}}`

	var act ACT
	require.NoError(t, json.Unmarshal([]byte(doc), &act))
	assert.Equal(t, json.Number("12345678901234567"), act.Artifacts.GameState["seed"])

	encoded, err := json.Marshal(act)
	require.NoError(t, err)

	var raw struct {
		Artifacts struct {
			GameState json.RawMessage `json:"game_state"`
		} `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(encoded, &raw))
	assert.JSONEq(t, `{"seed": 12345678901234567, "ratio": 0.25, "board": {"cells": [9007199254740993]}}`, string(raw.Artifacts.GameState))
	assert.Contains(t, string(raw.Artifacts.GameState), "12345678901234567")
	assert.Contains(t, string(raw.Artifacts.GameState), "9007199254740993")
}

func TestACTDecodeAcceptsZonelessTimestampsAndLooseArtifacts(t *testing.T) {
	t.Parallel()

	doc := `{
		"session_id": "py000001",
		"created_at": "2026-01-15T10:22:33.123456",
		"updated_at": "2026-01-15T10:25:00.5+02:00",
		"artifacts": {"decisions": ["a", 3, {"k": "v"}], "game_state": {"level": 2}, "unknown": [1]}
	}`

	var act ACT
	require.NoError(t, json.Unmarshal([]byte(doc), &act))

	assert.Equal(t, time.Date(2026, 1, 15, 10, 22, 33, 123456000, time.UTC), act.CreatedAt)
	assert.Equal(t, time.Date(2026, 1, 15, 8, 25, 0, 500000000, time.UTC), act.UpdatedAt)
	assert.Equal(t, []string{"a", "3", `{"k":"v"}`}, act.Artifacts.Decisions)
	assert.Equal(t, map[string]any{"level": json.Number("2")}, act.Artifacts.GameState)
	assert.Empty(t, act.Artifacts.CodeSnippets)
}

func TestACTDecodeRejectsGarbageTimestamp(t *testing.T) {
	t.Parallel()

	var act ACT
	err := json.Unmarshal([]byte(`{"session_id":"x","created_at":"yesterday"}`), &act)
	require.Error(t, err)
	assert.ErrorContains(t, err, "created_at")
}

func TestACTCloneIsDeep(t *testing.T) {
	t.Parallel()

	act := NewACT("s1", "objective", time.Now().UTC())
	act.Artifacts.GameState["board"] = map[string]any{"x": "1"}
	act.HandshakeLog = append(act.HandshakeLog, HandshakeEntry{Agent: "a", UpdatesApplied: []string{"context_summary"}})

	clone := act.Clone()
	clone.Artifacts.GameState["board"].(map[string]any)["x"] = "2"
	clone.HandshakeLog[0].UpdatesApplied[0] = "changed"
	clone.Artifacts.Decisions = append(clone.Artifacts.Decisions, "d")

	assert.Equal(t, "1", act.Artifacts.GameState["board"].(map[string]any)["x"])
	assert.Equal(t, "context_summary", act.HandshakeLog[0].UpdatesApplied[0])
	assert.Empty(t, act.Artifacts.Decisions)
}

func TestACTState(t *testing.T) {
	t.Parallel()

	act := NewACT("s1", "", time.Now().UTC())
	assert.Equal(t, SessionStateCreated, act.State())

	act.HandoffReason = "needs code"
	act.HandshakeLog = append(act.HandshakeLog, HandshakeEntry{Agent: "designer", UpdatesApplied: []string{KeyTaskCompleted, KeyHandoffReason}})
	assert.Equal(t, SessionStateAwaitingNext, act.State())

	act.HandshakeLog = append(act.HandshakeLog, HandshakeEntry{Agent: "coder", UpdatesApplied: []string{KeyTaskCompleted}})
	assert.Equal(t, SessionStateDone, act.State())
}

func TestACTSummaryCountsDistinctAgents(t *testing.T) {
	t.Parallel()

	act := NewACT("s1", "Build X", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	act.HandshakeLog = []HandshakeEntry{{Agent: "planner"}, {Agent: "coder"}, {Agent: "planner"}}
	act.TaskChain = []TaskRecord{{Task: "plan"}}

	summary := act.Summary()
	assert.Equal(t, "s1", summary.SessionID)
	assert.Equal(t, "Build X", summary.Objective)
	assert.Equal(t, 2, summary.Agents)
	assert.Equal(t, 1, summary.Tasks)
	assert.Equal(t, []string{"planner", "coder"}, act.Agents())
}

func TestValidateSessionID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"a1b2c3d4", "session_01", "X"} {
		assert.NoError(t, ValidateSessionID(id), id)
	}
	for _, id := range []string{"", "../etc", "a/b", "-leading", "has space"} {
		assert.ErrorIs(t, ValidateSessionID(id), ErrInvalidSessionID, id)
	}
}
