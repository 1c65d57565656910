package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"go.uber.org/zap"
)

// CatalogService lists built-in and installed agents and manages installs.
type CatalogService struct {
	index     ports.AgentIndex
	manifests ports.ManifestStore
	clock     ports.Clock
	logger    *zap.Logger
}

func NewCatalogService(index ports.AgentIndex, manifests ports.ManifestStore, clock ports.Clock, logger *zap.Logger) *CatalogService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogService{
		index:     index,
		manifests: manifests,
		clock:     clock,
		logger:    logger.With(zap.String("component", "catalog")),
	}
}

// List returns built-in agents followed by installed ones. Installed agents
// whose manifest cannot be read are skipped.
func (s *CatalogService) List(ctx context.Context) ([]domain.AgentConfig, error) {
	agents := BuiltinAgents()

	installed, err := s.index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list installed agents: %w", err)
	}
	for _, entry := range installed {
		if IsBuiltinAgent(entry.ID) {
			continue
		}
		agent, err := s.manifests.Load(ctx, entry.ID)
		if err != nil {
			s.logger.Warn("skip unreadable agent manifest", zap.String("agent", entry.ID), zap.Error(err))
			continue
		}
		if agent.Source == "" {
			agent.Source = entry.Source
		}
		agents = append(agents, agent)
	}

	return agents, nil
}

func (s *CatalogService) Installed(ctx context.Context) ([]domain.InstalledAgent, error) {
	installed, err := s.index.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list installed agents: %w", err)
	}
	return installed, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (domain.AgentConfig, error) {
	for _, agent := range BuiltinAgents() {
		if agent.ID == id {
			return agent, nil
		}
	}

	entry, err := s.index.GetByID(ctx, id)
	if err != nil {
		return domain.AgentConfig{}, err
	}
	agent, err := s.manifests.Load(ctx, id)
	if err != nil {
		return domain.AgentConfig{}, fmt.Errorf("load agent %q: %w", id, err)
	}
	if agent.Source == "" {
		agent.Source = entry.Source
	}

	return agent, nil
}

func (s *CatalogService) Install(ctx context.Context, source string) (domain.AgentConfig, error) {
	agent, err := s.manifests.Install(ctx, source)
	if err != nil {
		return domain.AgentConfig{}, fmt.Errorf("install agent from %q: %w", source, err)
	}

	if IsBuiltinAgent(agent.ID) {
		err := fmt.Errorf("install agent %q: %w", agent.ID, domain.ErrBuiltinAgent)
		if rmErr := s.manifests.Remove(ctx, agent.ID); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("remove manifest: %w", rmErr))
		}
		return domain.AgentConfig{}, err
	}

	entry := domain.InstalledAgent{
		ID:          agent.ID,
		Type:        agent.Type,
		Source:      agent.Source,
		Description: agent.Description,
		InstalledAt: s.clock.Now(),
	}
	if err := s.index.Save(ctx, entry); err != nil {
		return domain.AgentConfig{}, fmt.Errorf("save agent index: %w", err)
	}
	s.logger.Info("agent installed", zap.String("agent", agent.ID), zap.String("source", agent.Source))

	return agent, nil
}

func (s *CatalogService) Remove(ctx context.Context, id string) error {
	if IsBuiltinAgent(id) {
		return fmt.Errorf("remove agent %q: %w", id, domain.ErrBuiltinAgent)
	}
	if _, err := s.index.GetByID(ctx, id); err != nil {
		return err
	}

	var errs []error
	if err := s.manifests.Remove(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("remove manifest: %w", err))
	}
	if err := s.index.Delete(ctx, id); err != nil {
		errs = append(errs, fmt.Errorf("delete index entry: %w", err))
	}

	return errors.Join(errs...)
}

// Registry builds the dispatch registry from every available agent. With
// offline set, agents run on the scripted backend.
func (s *CatalogService) Registry(ctx context.Context, offline bool) (*AgentRegistry, error) {
	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	registry, _ := NewAgentRegistry()
	for _, agent := range agents {
		if offline {
			agent.Backend = domain.BackendScripted
		}
		if err := registry.Register(agent); err != nil {
			s.logger.Warn("skip invalid agent", zap.String("agent", agent.ID), zap.Error(err))
		}
	}

	return registry, nil
}
