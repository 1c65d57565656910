package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	cfg := viper.New()
	cfg.Set("storage.dir", filepath.Join(t.TempDir(), "act_storage"))
	repo, err := NewRepository(cfg)
	require.NoError(t, err)
	return repo
}

func sampleACT(id string) domain.ACT {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	act := domain.NewACT(id, "Build X", now)
	act.ContextSummary = "Plan ready."
	act.TaskChain = append(act.TaskChain, domain.TaskRecord{Task: "plan", Agent: "planner", Timestamp: now, ResultSummary: "success"})
	act.HandshakeLog = append(act.HandshakeLog, domain.HandshakeEntry{
		Agent:          "planner",
		Timestamp:      now,
		Action:         domain.ActionStateUpdate,
		UpdatesApplied: []string{"context_summary", "task_completed"},
	})
	act.Artifacts.Decisions = []string{"use grid"}
	return act
}

func TestRepositorySaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	act := sampleACT("abcd1234")

	require.NoError(t, repo.Save(context.Background(), act))
	got, err := repo.Load(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, act, got)

	info, err := os.Stat(filepath.Join(repo.Dir(), "abcd1234.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(repo.Dir(), "abcd1234.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Build X", doc["current_objective"])
}

func TestRepositorySaveOverwrites(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	act := sampleACT("abcd1234")
	require.NoError(t, repo.Save(context.Background(), act))

	act.ContextSummary = "Code written."
	require.NoError(t, repo.Save(context.Background(), act))

	got, err := repo.Load(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "Code written.", got.ContextSummary)

	ids, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"abcd1234"}, ids)
}

func TestRepositoryLoadErrors(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	_, err := repo.Load(context.Background(), "missing1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = repo.Load(context.Background(), "../escape")
	require.ErrorIs(t, err, domain.ErrInvalidSessionID)

	require.NoError(t, os.MkdirAll(repo.Dir(), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "broken01.json"), []byte("{not json"), 0o600))
	_, err = repo.Load(context.Background(), "broken01")
	require.ErrorContains(t, err, "decode session file broken01.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = repo.Load(ctx, "abcd1234")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRepositoryListSkipsForeignFiles(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)

	ids, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.Save(context.Background(), sampleACT("bbbb0002")))
	require.NoError(t, repo.Save(context.Background(), sampleACT("aaaa0001")))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), ".act-123.json.tmp"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(repo.Dir(), "nested.json"), 0o700))

	ids, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa0001", "bbbb0002"}, ids)
}

func TestRepositoryWatchEmitsSavedSnapshots(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	updates, err := repo.Watch(ctx, "abcd1234")
	require.NoError(t, err)

	act := sampleACT("abcd1234")
	require.NoError(t, repo.Save(context.Background(), sampleACT("other001")))
	require.NoError(t, repo.Save(context.Background(), act))

	select {
	case got := <-updates:
		assert.Equal(t, "abcd1234", got.SessionID)
		assert.Equal(t, "Plan ready.", got.ContextSummary)
	case <-ctx.Done():
		t.Fatal("no update received")
	}

	cancel()
	for range updates {
	}
}
