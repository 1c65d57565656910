package toml

import (
	"context"
	"sync"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	teamsPathKey  = "teams.path"
	teamsFileName = "teams.toml"
)

type TeamRepository struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.TeamRepository = (*TeamRepository)(nil)

func NewTeamRepository(cfg *viper.Viper) (*TeamRepository, error) {
	path, err := resolvePath(cfg, teamsPathKey, teamsFileName)
	if err != nil {
		return nil, err
	}

	return &TeamRepository{path: path, mu: lockForPath(path)}, nil
}

func (r *TeamRepository) Save(ctx context.Context, team domain.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	encoded := toTeamSchema(team)
	updated := false
	for i := range file.Teams {
		if file.Teams[i].ID == encoded.ID {
			file.Teams[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Teams = append(file.Teams, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return writeTOMLFile(r.path, file)
}

func (r *TeamRepository) GetByID(ctx context.Context, id string) (domain.Team, error) {
	if err := ctx.Err(); err != nil {
		return domain.Team{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.Team{}, err
	}

	for _, entry := range file.Teams {
		if entry.ID == id {
			return fromTeamSchema(entry), nil
		}
	}

	return domain.Team{}, domain.ErrTeamNotFound
}

func (r *TeamRepository) List(ctx context.Context) ([]domain.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	teams := make([]domain.Team, 0, len(file.Teams))
	for _, entry := range file.Teams {
		teams = append(teams, fromTeamSchema(entry))
	}

	return teams, nil
}

func (r *TeamRepository) readSchema() (teamsFileSchema, error) {
	var file teamsFileSchema
	if err := readTOMLFile(r.path, &file); err != nil {
		return teamsFileSchema{}, err
	}
	if err := file.validateVersion(); err != nil {
		return teamsFileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toTeamSchema(team domain.Team) teamSchema {
	return teamSchema{
		ID:        team.ID,
		Name:      team.Name,
		Members:   append([]string(nil), team.Members...),
		UpdatedAt: formatTime(team.UpdatedAt),
	}
}

func fromTeamSchema(schema teamSchema) domain.Team {
	team := domain.Team{
		ID:        schema.ID,
		Name:      schema.Name,
		Members:   append([]string(nil), schema.Members...),
		UpdatedAt: parseTime(schema.UpdatedAt),
	}
	team.NormalizeMembers()
	return team
}
