package ports

import (
	"context"

	"github.com/bnema/uap-cli/internal/domain"
)

// AgentIndex records which agents were installed and from where.
type AgentIndex interface {
	GetByID(ctx context.Context, id string) (domain.InstalledAgent, error)
	List(ctx context.Context) ([]domain.InstalledAgent, error)
	Save(ctx context.Context, agent domain.InstalledAgent) error
	Delete(ctx context.Context, id string) error
}

// ManifestStore reads and writes installed agent manifests.
type ManifestStore interface {
	Load(ctx context.Context, id string) (domain.AgentConfig, error)
	Install(ctx context.Context, source string) (domain.AgentConfig, error)
	Remove(ctx context.Context, id string) error
}
