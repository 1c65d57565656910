package application

import (
	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/reply"
)

type HandoffInfo struct {
	Reason          string `json:"reason"`
	NextAgentHint   string `json:"next_agent_hint"`
	ReadyForHandoff bool   `json:"ready_for_handoff"`
}

// HopRecord is one automatic handoff taken by Dispatch.
type HopRecord struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Hint   string `json:"hint"`
	Reason string `json:"reason"`
}

type DispatchResult struct {
	SessionID       string         `json:"session_id"`
	AgentID         string         `json:"agent"`
	Response        string         `json:"response"`
	ACT             domain.ACT     `json:"act"`
	RawResponse     string         `json:"raw_response"`
	HandoffInfo     *HandoffInfo   `json:"handoff_info,omitempty"`
	ParseStrategy   reply.Strategy `json:"parse_strategy"`
	Degraded        bool           `json:"degraded"`
	Hops            []HopRecord    `json:"hops,omitempty"`
	HopLimitReached bool           `json:"hop_limit_reached,omitempty"`
}

type ChainStep struct {
	Agent         string         `json:"agent"`
	Response      string         `json:"response"`
	HandoffInfo   *HandoffInfo   `json:"handoff_info"`
	ParseStrategy reply.Strategy `json:"parse_strategy"`
	Degraded      bool           `json:"degraded"`
}

type ChainResult struct {
	SessionID  string                  `json:"session_id"`
	Chain      []ChainStep             `json:"chain"`
	FinalACT   domain.ACT              `json:"final_act"`
	Validation domain.ValidationReport `json:"validation"`
}
