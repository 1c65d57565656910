package application

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
)

const CoreTeamID = "core"

func coreTeam() domain.Team {
	return domain.Team{
		ID:      CoreTeamID,
		Name:    "core",
		Members: []string{"planner", "coder", "reviewer"},
	}
}

type TeamService struct {
	teams ports.TeamRepository
	clock ports.Clock
}

func NewTeamService(teams ports.TeamRepository, clock ports.Clock) *TeamService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &TeamService{teams: teams, clock: clock}
}

func (s *TeamService) SetTeam(ctx context.Context, cmd SetTeamCommand) (domain.Team, error) {
	team := domain.Team{
		ID:        cmd.ID,
		Name:      cmd.Name,
		Members:   cmd.Members,
		UpdatedAt: s.clock.Now(),
	}
	if team.Name == "" {
		team.Name = team.ID
	}
	team.NormalizeMembers()

	if err := team.Validate(); err != nil {
		return domain.Team{}, err
	}

	if err := s.teams.Save(ctx, team); err != nil {
		return domain.Team{}, fmt.Errorf("save team: %w", err)
	}

	return team, nil
}

// GetTeam falls back to the built-in core team unless it has been redefined.
func (s *TeamService) GetTeam(ctx context.Context, id string) (domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err == nil {
		return team, nil
	}
	if errors.Is(err, domain.ErrTeamNotFound) && id == CoreTeamID {
		return coreTeam(), nil
	}

	return domain.Team{}, err
}

func (s *TeamService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	hasCore := false
	for _, team := range teams {
		if team.ID == CoreTeamID {
			hasCore = true
			break
		}
	}
	if !hasCore {
		teams = append(teams, coreTeam())
	}

	sort.Slice(teams, func(i, j int) bool {
		return teams[i].ID < teams[j].ID
	})

	return teams, nil
}
