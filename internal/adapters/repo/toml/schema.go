package toml

import "fmt"

const (
	currentAgentsSchemaVersion = 1
	currentTeamsSchemaVersion  = 1
)

type agentsFileSchema struct {
	Version int                    `toml:"version"`
	Agents  []installedAgentSchema `toml:"agents"`
}

func (s *agentsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentAgentsSchemaVersion
	}
}

func (s agentsFileSchema) validateVersion() error {
	if s.Version > currentAgentsSchemaVersion {
		return fmt.Errorf("unsupported agents schema version %d (current %d)", s.Version, currentAgentsSchemaVersion)
	}

	return nil
}

type installedAgentSchema struct {
	ID          string `toml:"id"`
	Type        string `toml:"type"`
	Source      string `toml:"source"`
	Description string `toml:"description,omitempty"`
	InstalledAt string `toml:"installed_at"`
}

type teamsFileSchema struct {
	Version int          `toml:"version"`
	Teams   []teamSchema `toml:"teams"`
}

func (s *teamsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentTeamsSchemaVersion
	}
}

func (s teamsFileSchema) validateVersion() error {
	if s.Version > currentTeamsSchemaVersion {
		return fmt.Errorf("unsupported teams schema version %d (current %d)", s.Version, currentTeamsSchemaVersion)
	}

	return nil
}

type teamSchema struct {
	ID        string   `toml:"id"`
	Name      string   `toml:"name"`
	Members   []string `toml:"members"`
	UpdatedAt string   `toml:"updated_at"`
}
