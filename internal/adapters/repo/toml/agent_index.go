package toml

import (
	"context"
	"sync"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	agentsPathKey  = "agents.path"
	agentsFileName = "agents.toml"
)

// AgentIndex is the agents.toml record of installed agents.
type AgentIndex struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.AgentIndex = (*AgentIndex)(nil)

func NewAgentIndex(cfg *viper.Viper) (*AgentIndex, error) {
	path, err := resolvePath(cfg, agentsPathKey, agentsFileName)
	if err != nil {
		return nil, err
	}

	return &AgentIndex{path: path, mu: lockForPath(path)}, nil
}

func (r *AgentIndex) Path() string {
	return r.path
}

func (r *AgentIndex) Save(ctx context.Context, agent domain.InstalledAgent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toInstalledAgentSchema(agent)
	updated := false
	for i := range file.Agents {
		if file.Agents[i].ID == encoded.ID {
			file.Agents[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Agents = append(file.Agents, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeTOMLFile(r.path, file)
}

func (r *AgentIndex) GetByID(ctx context.Context, id string) (domain.InstalledAgent, error) {
	if err := ctx.Err(); err != nil {
		return domain.InstalledAgent{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.InstalledAgent{}, err
	}

	for _, entry := range file.Agents {
		if entry.ID == id {
			return fromInstalledAgentSchema(entry), nil
		}
	}

	return domain.InstalledAgent{}, domain.ErrAgentNotFound
}

func (r *AgentIndex) List(ctx context.Context) ([]domain.InstalledAgent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	agents := make([]domain.InstalledAgent, 0, len(file.Agents))
	for _, entry := range file.Agents {
		agents = append(agents, fromInstalledAgentSchema(entry))
	}

	return agents, nil
}

func (r *AgentIndex) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	kept := file.Agents[:0]
	found := false
	for _, entry := range file.Agents {
		if entry.ID == id {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return domain.ErrAgentNotFound
	}
	file.Agents = kept

	return writeTOMLFile(r.path, file)
}

func (r *AgentIndex) readSchema() (agentsFileSchema, error) {
	var file agentsFileSchema
	if err := readTOMLFile(r.path, &file); err != nil {
		return agentsFileSchema{}, err
	}
	if err := file.validateVersion(); err != nil {
		return agentsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toInstalledAgentSchema(agent domain.InstalledAgent) installedAgentSchema {
	return installedAgentSchema{
		ID:          agent.ID,
		Type:        agent.Type,
		Source:      agent.Source,
		Description: agent.Description,
		InstalledAt: formatTime(agent.InstalledAt),
	}
}

func fromInstalledAgentSchema(schema installedAgentSchema) domain.InstalledAgent {
	return domain.InstalledAgent{
		ID:          schema.ID,
		Type:        schema.Type,
		Source:      schema.Source,
		Description: schema.Description,
		InstalledAt: parseTime(schema.InstalledAt),
	}
}
