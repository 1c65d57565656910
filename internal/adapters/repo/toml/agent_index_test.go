package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAgentIndex(t *testing.T, path string) *AgentIndex {
	t.Helper()

	config := viper.New()
	config.Set("agents.path", path)
	index, err := NewAgentIndex(config)
	require.NoError(t, err)
	return index
}

func TestAgentIndexRoundTrip(t *testing.T) {
	t.Parallel()

	index := newTestAgentIndex(t, filepath.Join(t.TempDir(), "agents.toml"))
	installedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := domain.InstalledAgent{ID: "tester", Type: "reviewer", Source: "github:acme/tester", Description: "Writes tests", InstalledAt: installedAt}
	second := domain.InstalledAgent{ID: "artist", Type: "designer", Source: "local:/tmp/artist", InstalledAt: installedAt}

	require.NoError(t, index.Save(context.Background(), first))
	require.NoError(t, index.Save(context.Background(), second))

	got, err := index.GetByID(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	agents, err := index.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.InstalledAgent{first, second}, agents)

	first.Description = "Writes better tests"
	require.NoError(t, index.Save(context.Background(), first))
	agents, err = index.List(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Writes better tests", agents[0].Description)
}

func TestAgentIndexDelete(t *testing.T) {
	t.Parallel()

	index := newTestAgentIndex(t, filepath.Join(t.TempDir(), "agents.toml"))
	require.NoError(t, index.Save(context.Background(), domain.InstalledAgent{ID: "tester", Type: "reviewer"}))

	require.NoError(t, index.Delete(context.Background(), "tester"))
	_, err := index.GetByID(context.Background(), "tester")
	require.ErrorIs(t, err, domain.ErrAgentNotFound)

	err = index.Delete(context.Background(), "tester")
	require.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestAgentIndexMissingFileBehaviors(t *testing.T) {
	t.Parallel()

	index := newTestAgentIndex(t, filepath.Join(t.TempDir(), "missing", "agents.toml"))

	agents, err := index.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)

	_, err = index.GetByID(context.Background(), "any")
	require.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestAgentIndexSaveEnforcesPermissionsAndVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "agents.toml")
	index := newTestAgentIndex(t, path)
	require.NoError(t, index.Save(context.Background(), domain.InstalledAgent{ID: "tester", Type: "reviewer"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "version = 1"))
}

func TestAgentIndexFutureSchemaVersionReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agents.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0o600))
	index := newTestAgentIndex(t, path)

	_, err := index.List(context.Background())
	require.ErrorContains(t, err, "unsupported agents schema version 99")
}

func TestAgentIndexMalformedTOMLReturnsError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agents.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[agents]\nid = "), 0o600))
	index := newTestAgentIndex(t, path)

	_, err := index.List(context.Background())
	require.ErrorContains(t, err, "decode agents.toml")
}

func TestAgentIndexSaveCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	index := newTestAgentIndex(t, filepath.Join(t.TempDir(), "agents.toml"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := index.Save(ctx, domain.InstalledAgent{ID: "tester"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestAgentIndexConcurrentSavesAcrossInstancesPreserveAllAgents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agents.toml")
	indexA := newTestAgentIndex(t, path)
	indexB := newTestAgentIndex(t, path)

	const perIndexWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perIndexWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	write := func(index *AgentIndex, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perIndexWrites; i++ {
			errCh <- index.Save(context.Background(), domain.InstalledAgent{ID: prefix + strconv.Itoa(i), Type: "coder"})
		}
	}
	go write(indexA, "a-")
	go write(indexB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	agents, err := indexA.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, agents, perIndexWrites*2)
}
