package toml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := viper.New()
	cfg.Set("teams.path", filepath.Join(t.TempDir(), "teams.toml"))
	repo, err := NewTeamRepository(cfg)
	require.NoError(t, err)

	team := domain.Team{
		ID:        "web",
		Name:      "Web crew",
		Members:   []string{"designer", "coder", "reviewer", "coder"},
		UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(context.Background(), team))

	got, err := repo.GetByID(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, team, got)

	team.Members = []string{"coder"}
	require.NoError(t, repo.Save(context.Background(), team))
	teams, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, []string{"coder"}, teams[0].Members)

	_, err = repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrTeamNotFound)
}

func TestTeamRepositoryNormalizesHandEditedMembers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "teams.toml")
	require.NoError(t, os.WriteFile(path, []byte(`version = 1

[[teams]]
id = "ops"
name = "ops"
members = [" debugger ", "", "reviewer"]
`), 0o600))

	cfg := viper.New()
	cfg.Set("teams.path", path)
	repo, err := NewTeamRepository(cfg)
	require.NoError(t, err)

	team, err := repo.GetByID(context.Background(), "ops")
	require.NoError(t, err)
	assert.Equal(t, []string{"debugger", "reviewer"}, team.Members)
	assert.True(t, team.UpdatedAt.IsZero())
}

func TestTeamRepositoryDefaultsUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	repo, err := NewTeamRepository(nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), domain.Team{ID: "solo", Name: "solo", Members: []string{"coder"}}))

	_, err = os.Stat(filepath.Join(home, ".uap", "teams.toml"))
	require.NoError(t, err)
}
