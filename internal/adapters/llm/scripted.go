package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultScriptedRoutes is the offline hand-off order between built-in agents.
var DefaultScriptedRoutes = map[string]string{
	"planner":  "coder",
	"designer": "coder",
	"coder":    "reviewer",
	"debugger": "reviewer",
}

// Scripted answers every prompt locally in protocol format. It makes offline
// runs and chains deterministic.
type Scripted struct {
	next map[string]string
}

func NewScripted(next map[string]string) *Scripted {
	if next == nil {
		next = DefaultScriptedRoutes
	}
	return &Scripted{next: next}
}

type scriptedUpdates struct {
	ContextSummary string              `json:"context_summary"`
	TaskCompleted  string              `json:"task_completed"`
	ResultSummary  string              `json:"result_summary"`
	HandoffReason  *string             `json:"handoff_reason"`
	NextAgentHint  string              `json:"next_agent_hint,omitempty"`
	Artifacts      map[string][]string `json:"artifacts"`
}

type scriptedReply struct {
	Answer       string          `json:"answer"`
	StateUpdates scriptedUpdates `json:"state_updates"`
}

func (s *Scripted) Complete(ctx context.Context, call Call) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	agent := call.AgentID
	if agent == "" {
		agent = "agent"
	}
	focus := promptFocus(call.Prompt)

	updates := scriptedUpdates{
		ContextSummary: fmt.Sprintf("%s worked on: %s", agent, focus),
		TaskCompleted:  fmt.Sprintf("%s pass over %q", agent, focus),
		ResultSummary:  "success",
		Artifacts: map[string][]string{
			"decisions": {fmt.Sprintf("%s: proceed with %s", agent, focus)},
		},
	}
	if next, ok := s.next[agent]; ok && next != "" {
		reason := fmt.Sprintf("%s finished, %s should continue", agent, next)
		updates.HandoffReason = &reason
		updates.NextAgentHint = next
	}

	data, err := json.MarshalIndent(scriptedReply{
		Answer:       fmt.Sprintf("[%s] %s", agent, focus),
		StateUpdates: updates,
	}, "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("Offline reply from %s.\n\n```json\n%s\n```\n", agent, data), nil
}

// promptFocus pulls the new task, or the objective when continuing.
func promptFocus(prompt string) string {
	for _, marker := range []string{"=== NEW TASK ===\n", "Objective: "} {
		if _, rest, ok := strings.Cut(prompt, marker); ok {
			line, _, _ := strings.Cut(rest, "\n")
			if line = strings.TrimSpace(line); line != "" {
				return line
			}
		}
	}
	return "the current objective"
}
