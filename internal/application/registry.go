package application

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bnema/uap-cli/internal/domain"
)

// AgentRegistry holds the agents a Dispatcher may call, in registration order.
type AgentRegistry struct {
	mu     sync.RWMutex
	order  []string
	agents map[string]domain.AgentConfig
}

func NewAgentRegistry(agents ...domain.AgentConfig) (*AgentRegistry, error) {
	registry := &AgentRegistry{agents: map[string]domain.AgentConfig{}}
	for _, agent := range agents {
		if err := registry.Register(agent); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// Register adds the agent, replacing any earlier agent with the same id.
func (r *AgentRegistry) Register(agent domain.AgentConfig) error {
	if err := agent.Validate(); err != nil {
		return fmt.Errorf("register agent %q: %w", agent.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agent.ID]; !exists {
		r.order = append(r.order, agent.ID)
	}
	r.agents[agent.ID] = agent

	return nil
}

func (r *AgentRegistry) Unregister(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[agentID]; !exists {
		return false
	}
	delete(r.agents, agentID)
	for i, id := range r.order {
		if id == agentID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return true
}

func (r *AgentRegistry) Get(agentID string) (domain.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[agentID]
	if !ok {
		return domain.AgentConfig{}, fmt.Errorf("agent %q: %w", agentID, domain.ErrAgentNotRegistered)
	}

	return agent, nil
}

func (r *AgentRegistry) List() []domain.AgentConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AgentConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}

	return out
}

// FindByType returns the first registered agent of the given type.
func (r *AgentRegistry) FindByType(agentType string) (domain.AgentConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if strings.EqualFold(r.agents[id].Type, agentType) {
			return r.agents[id], true
		}
	}

	return domain.AgentConfig{}, false
}

// Resolve maps a next_agent_hint to an agent, by type first and then by id.
func (r *AgentRegistry) Resolve(hint string) (domain.AgentConfig, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return domain.AgentConfig{}, false
	}
	if agent, ok := r.FindByType(hint); ok {
		return agent, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if strings.EqualFold(id, hint) {
			return r.agents[id], true
		}
	}

	return domain.AgentConfig{}, false
}
