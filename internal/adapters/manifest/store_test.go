package manifest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, baseURL string) *Store {
	t.Helper()

	cfg := viper.New()
	cfg.Set(agentsDirKey, filepath.Join(t.TempDir(), "agents"))
	if baseURL != "" {
		cfg.Set(baseURLKey, baseURL)
	}

	store, err := NewStore(cfg, nil)
	require.NoError(t, err)
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte("name: tester\n"))
	require.NoError(t, err)

	assert.Equal(t, "tester", m.Name)
	assert.Equal(t, DefaultType, m.Type)
	assert.Equal(t, DefaultPromptFile, m.PromptFile)
	assert.Equal(t, DefaultModel, m.Defaults.Model)
	assert.Equal(t, string(DefaultBackend), m.Defaults.Backend)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("name: [unterminated"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "decode uap-agent.yaml")
}

func TestInstallFromLocalDirectory(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "security-auditor")
	writeFile(t, filepath.Join(src, ManifestFile), `name: auditor
type: reviewer
description: Finds security issues
prompt_file: prompts/audit.txt
defaults:
  model: gpt-4o-mini
  backend: openai
metadata:
  author: someone
`)
	writeFile(t, filepath.Join(src, "prompts", "audit.txt"), "You audit code.")

	store := newTestStore(t, "")
	agent, err := store.Install(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "auditor", agent.ID)
	assert.Equal(t, "reviewer", agent.Type)
	assert.Equal(t, "You audit code.", agent.SystemPrompt)
	assert.Equal(t, domain.BackendOpenAI, agent.Backend)
	assert.Equal(t, "gpt-4o-mini", agent.Model)
	assert.Equal(t, "someone", agent.Metadata["author"])
	assert.Contains(t, agent.Source, "local:")

	loaded, err := store.Load(context.Background(), "auditor")
	require.NoError(t, err)
	assert.Equal(t, agent, loaded)

	info, err := os.Stat(filepath.Join(store.Dir(), "auditor", "audit.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())
}

func TestInstallLocalUsesDirectoryNameAndInlinePrompt(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "tiny")
	writeFile(t, filepath.Join(src, ManifestFile), "system_prompt: Inline prompt.\n")

	store := newTestStore(t, "")
	agent, err := store.Install(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "tiny", agent.ID)
	assert.Equal(t, DefaultType, agent.Type)
	assert.Equal(t, "Inline prompt.", agent.SystemPrompt)

	loaded, err := store.Load(context.Background(), "tiny")
	require.NoError(t, err)
	assert.Equal(t, "Inline prompt.", loaded.SystemPrompt)
}

func TestInstallFromGitHub(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		hits []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, r.URL.Path)
		mu.Unlock()

		switch r.URL.Path {
		case "/acme/uap-tester/main/uap-agent.yaml":
			_, _ = w.Write([]byte("name: tester\ntype: tester\ndescription: Writes tests\n"))
		case "/acme/uap-tester/main/system.txt":
			_, _ = w.Write([]byte("You write tests."))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	store := newTestStore(t, server.URL+"/")
	agent, err := store.Install(context.Background(), "github:acme/uap-tester")
	require.NoError(t, err)

	assert.Equal(t, "tester", agent.ID)
	assert.Equal(t, "You write tests.", agent.SystemPrompt)
	assert.Equal(t, "github:acme/uap-tester", agent.Source)
	assert.Equal(t, []string{"/acme/uap-tester/main/uap-agent.yaml", "/acme/uap-tester/main/system.txt"}, hits)

	loaded, err := store.Load(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, "github:acme/uap-tester", loaded.Source)
	assert.Equal(t, "You write tests.", loaded.SystemPrompt)
}

func TestInstallFromGitHubWithoutPromptFile(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/acme/bare/main/uap-agent.yaml" {
			_, _ = w.Write([]byte("system_prompt: Inline.\n"))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	store := newTestStore(t, server.URL)
	agent, err := store.Install(context.Background(), "acme/bare")
	require.NoError(t, err)

	assert.Equal(t, "bare", agent.ID)
	assert.Equal(t, "Inline.", agent.SystemPrompt)
}

func TestInstallFromGitHubFailsOnMissingManifest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(server.Close)

	store := newTestStore(t, server.URL)
	_, err := store.Install(context.Background(), "github:acme/missing")
	require.Error(t, err)
	assert.ErrorContains(t, err, "fetch agent manifest from acme/missing")
	assert.ErrorContains(t, err, "404")
}

func TestInstallRejectsBadSources(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, "")
	for _, source := range []string{"", "github:", "github:justowner", "github:a/b/c"} {
		_, err := store.Install(context.Background(), source)
		assert.Error(t, err, source)
	}
}

func TestLoadMissingAgentIsNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, "")
	_, err := store.Load(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)

	_, err = store.Load(context.Background(), "../escape")
	assert.ErrorContains(t, err, "invalid agent id")
}

func TestRemoveDeletesAgentDirectory(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "gone")
	writeFile(t, filepath.Join(src, ManifestFile), "name: gone\n")

	store := newTestStore(t, "")
	_, err := store.Install(context.Background(), src)
	require.NoError(t, err)

	require.NoError(t, store.Remove(context.Background(), "gone"))
	_, err = os.Stat(filepath.Join(store.Dir(), "gone"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = store.Remove(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}
