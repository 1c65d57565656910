package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		team    Team
		wantErr string
	}{
		{
			name: "valid",
			team: Team{ID: "core", Name: "Core", Members: []string{"planner", "coder"}},
		},
		{
			name:    "missing id",
			team:    Team{Name: "Core", Members: []string{"planner"}},
			wantErr: "id is required",
		},
		{
			name:    "missing name",
			team:    Team{ID: "core", Members: []string{"planner"}},
			wantErr: "name is required",
		},
		{
			name:    "no members",
			team:    Team{ID: "core", Name: "Core"},
			wantErr: "at least one member is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.team.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestTeamNormalizeMembersKeepsRepeats(t *testing.T) {
	t.Parallel()

	team := Team{Members: []string{" planner ", "", "coder", "reviewer", "coder"}}
	team.NormalizeMembers()

	assert.Equal(t, []string{"planner", "coder", "reviewer", "coder"}, team.Members)
}

func TestAgentConfigValidate(t *testing.T) {
	t.Parallel()

	valid := AgentConfig{ID: "coder", Type: "coder", Backend: BackendGroq}
	assert.NoError(t, valid.Validate())

	missingType := valid
	missingType.Type = ""
	assert.EqualError(t, missingType.Validate(), "agent type is required")

	badBackend := valid
	badBackend.Backend = "carrier-pigeon"
	assert.EqualError(t, badBackend.Validate(), `unsupported backend "carrier-pigeon"`)

	pathID := valid
	pathID.ID = "../evil"
	assert.Error(t, pathID.Validate())
}
