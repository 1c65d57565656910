package application

type DispatchCommand struct {
	AgentID     string
	SessionID   string
	Task        string
	AutoHandoff bool
	// MaxHops overrides the dispatcher bound for this call when positive.
	MaxHops int
}

type ChainCommand struct {
	Task      string   `json:"task" yaml:"task"`
	AgentIDs  []string `json:"agents" yaml:"agents"`
	SessionID string   `json:"session_id,omitempty" yaml:"session_id,omitempty"`
}

type SetTeamCommand struct {
	ID      string
	Name    string
	Members []string
}
