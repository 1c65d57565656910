package domain

import (
	"fmt"
	"time"
)

type SessionState string

const (
	SessionStateCreated      SessionState = "created"
	SessionStateAwaitingNext SessionState = "awaiting_next"
	SessionStateDone         SessionState = "done"
)

type SessionSummary struct {
	SessionID string       `json:"session_id"`
	Objective string       `json:"objective"`
	Agents    int          `json:"agents"`
	Tasks     int          `json:"tasks"`
	State     SessionState `json:"state"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// HandoffContext is the read-only projection the next agent is briefed with.
type HandoffContext struct {
	FromAgent      string `json:"from_agent"`
	Reason         string `json:"reason"`
	SuggestedAgent string `json:"suggested_agent"`
	Objective      string `json:"objective"`
	Context        string `json:"context"`
}

type HandoffPackage struct {
	ACT            ACT            `json:"act"`
	HandoffContext HandoffContext `json:"handoff_context"`
}

func NewHandoffPackage(act ACT) HandoffPackage {
	return HandoffPackage{
		ACT: act,
		HandoffContext: HandoffContext{
			FromAgent:      act.OriginAgent,
			Reason:         act.HandoffReason,
			SuggestedAgent: act.NextAgentHint,
			Objective:      act.CurrentObjective,
			Context:        act.ContextSummary,
		},
	}
}

type MultiAgentCheck struct {
	Passed  bool     `json:"passed"`
	Agents  []string `json:"agents"`
	Message string   `json:"message"`
}

type ContextCheck struct {
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

type TaskProgressionCheck struct {
	Passed  bool   `json:"passed"`
	Tasks   int    `json:"tasks"`
	Message string `json:"message"`
}

type ValidationChecks struct {
	MultiAgent       MultiAgentCheck      `json:"multi_agent"`
	ContextPreserved ContextCheck         `json:"context_preserved"`
	TaskProgression  TaskProgressionCheck `json:"task_progression"`
}

type ValidationReport struct {
	Valid     bool             `json:"valid"`
	SessionID string           `json:"session_id"`
	Checks    ValidationChecks `json:"checks"`
}

// Validate runs the three handshake checks over an ACT.
func Validate(act ACT) ValidationReport {
	agents := act.Agents()
	multi := MultiAgentCheck{
		Passed:  len(agents) >= 2,
		Agents:  agents,
		Message: fmt.Sprintf("%d agent(s) participated", len(agents)),
	}

	contextCheck := ContextCheck{Passed: act.ContextSummary != "", Message: "No context summary"}
	if contextCheck.Passed {
		contextCheck.Message = "Context summary exists"
	}

	tasks := TaskProgressionCheck{
		Passed:  len(act.TaskChain) > 0,
		Tasks:   len(act.TaskChain),
		Message: fmt.Sprintf("%d task(s) completed", len(act.TaskChain)),
	}

	return ValidationReport{
		Valid:     multi.Passed && contextCheck.Passed && tasks.Passed,
		SessionID: act.SessionID,
		Checks: ValidationChecks{
			MultiAgent:       multi,
			ContextPreserved: contextCheck,
			TaskProgression:  tasks,
		},
	}
}

// PassedCount counts the checks that passed.
func (r ValidationReport) PassedCount() int {
	count := 0
	for _, passed := range []bool{r.Checks.MultiAgent.Passed, r.Checks.ContextPreserved.Passed, r.Checks.TaskProgression.Passed} {
		if passed {
			count++
		}
	}
	return count
}
