package application

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bnema/uap-cli/internal/domain"
)

//go:embed protocol_instructions.txt
var ProtocolInstructions string

// BuildPrompt assembles the text sent to an agent for one turn. An empty task
// means the agent continues from the ACT.
func BuildPrompt(agent domain.AgentConfig, act domain.ACT, task, instructions string) (string, error) {
	if strings.TrimSpace(instructions) == "" {
		instructions = ProtocolInstructions
	}

	actJSON, err := json.MarshalIndent(act, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode act: %w", err)
	}

	parts := []string{
		fmt.Sprintf("=== AGENT SYSTEM PROMPT ===\n%s\n", agent.SystemPrompt),
		fmt.Sprintf("=== UAP PROTOCOL INSTRUCTIONS ===\n%s\n", instructions),
		fmt.Sprintf("=== CURRENT ACT (Agent Context Token) ===\n```json\n%s\n```\n", actJSON),
	}

	if task != "" {
		parts = append(parts, fmt.Sprintf("=== NEW TASK ===\n%s\n", task))
	} else {
		parts = append(parts, fmt.Sprintf(
			"=== CONTINUE FROM ACT ===\nObjective: %s\nContext: %s\nHandoff Reason: %s\n\nContinue the work based on the ACT above. No user re-prompting needed.\n",
			act.CurrentObjective,
			act.ContextSummary,
			act.HandoffReason,
		))
	}

	parts = append(parts, "\n=== YOUR RESPONSE ===\nProvide your response with the required JSON structure (answer + state_updates).\n")

	return strings.Join(parts, "\n"), nil
}
