package ports

import (
	"context"

	"github.com/bnema/uap-cli/internal/domain"
)

type TeamRepository interface {
	GetByID(ctx context.Context, id string) (domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	Save(ctx context.Context, team domain.Team) error
}
