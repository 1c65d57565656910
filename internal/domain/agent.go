package domain

import (
	"fmt"
	"strings"
	"time"
)

type Backend string

const (
	BackendGroq       Backend = "groq"
	BackendOpenAI     Backend = "openai"
	BackendTogether   Backend = "together"
	BackendOpenRouter Backend = "openrouter"
	BackendAnthropic  Backend = "anthropic"
	BackendOllama     Backend = "ollama"
	BackendGoogle     Backend = "google"
	BackendScripted   Backend = "scripted"
)

var knownBackends = map[Backend]struct{}{
	BackendGroq:       {},
	BackendOpenAI:     {},
	BackendTogether:   {},
	BackendOpenRouter: {},
	BackendAnthropic:  {},
	BackendOllama:     {},
	BackendGoogle:     {},
	BackendScripted:   {},
}

func (b Backend) Valid() bool {
	_, ok := knownBackends[b]
	return ok
}

const (
	SourceBuiltin = "builtin"
	SourceLocal   = "local"
)

type AgentConfig struct {
	ID           string
	Type         string
	SystemPrompt string
	Model        string
	Backend      Backend
	Source       string
	Description  string
	Metadata     map[string]string
}

func (a AgentConfig) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("agent id is required")
	}
	if strings.ContainsAny(a.ID, `/\`) {
		return fmt.Errorf("agent id %q must not contain path separators", a.ID)
	}
	if strings.TrimSpace(a.Type) == "" {
		return fmt.Errorf("agent type is required")
	}
	if !a.Backend.Valid() {
		return fmt.Errorf("unsupported backend %q", a.Backend)
	}
	return nil
}

// InstalledAgent is one entry of the installed-agent index.
type InstalledAgent struct {
	ID          string
	Type        string
	Source      string
	Description string
	InstalledAt time.Time
}

// InvokeRequest is what the agent-call collaborator needs for one turn.
type InvokeRequest struct {
	AgentID string
	Backend Backend
	Model   string
	Prompt  string
}
