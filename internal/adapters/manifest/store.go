// Package manifest installs agents described by a uap-agent.yaml manifest,
// either from a local directory or from a GitHub repository.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	agentsDirKey      = "agents.dir"
	baseURLKey        = "agents.github_raw_url"
	DefaultBaseURL    = "https://raw.githubusercontent.com"
	ManifestFile      = "uap-agent.yaml"
	DefaultPromptFile = "system.txt"
	DefaultType       = "coder"
	DefaultModel      = "llama-3.1-8b-instant"
	DefaultBackend    = domain.BackendGroq
	githubPrefix      = "github:"
	defaultBranch     = "main"
	fetchTimeout      = 10 * time.Second
	maxFetchBytes     = 1 << 20
	fileMode          = 0o600
	dirMode           = 0o700
)

// Manifest is the on-disk uap-agent.yaml document.
type Manifest struct {
	Name         string            `yaml:"name"`
	Type         string            `yaml:"type,omitempty"`
	Description  string            `yaml:"description,omitempty"`
	PromptFile   string            `yaml:"prompt_file,omitempty"`
	SystemPrompt string            `yaml:"system_prompt,omitempty"`
	Defaults     Defaults          `yaml:"defaults,omitempty"`
	Metadata     map[string]string `yaml:"metadata,omitempty"`
	Source       string            `yaml:"source,omitempty"`
}

type Defaults struct {
	Model   string `yaml:"model,omitempty"`
	Backend string `yaml:"backend,omitempty"`
}

// Store keeps installed manifests under <agents.dir>/<id>/.
type Store struct {
	dir     string
	baseURL string
	client  *http.Client
}

var _ ports.ManifestStore = (*Store)(nil)

func NewStore(cfg *viper.Viper, client *http.Client) (*Store, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	dir := cfg.GetString(agentsDirKey)
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".uap", "agents")
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve agents dir: %w", err)
	}

	baseURL := strings.TrimRight(cfg.GetString(baseURLKey), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Store{dir: filepath.Clean(dir), baseURL: baseURL, client: client}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Load(ctx context.Context, id string) (domain.AgentConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.AgentConfig{}, err
	}

	agentDir, err := s.agentDir(id)
	if err != nil {
		return domain.AgentConfig{}, err
	}

	data, err := os.ReadFile(filepath.Join(agentDir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.AgentConfig{}, fmt.Errorf("manifest for %q: %w", id, domain.ErrAgentNotFound)
		}
		return domain.AgentConfig{}, fmt.Errorf("read manifest for %q: %w", id, err)
	}

	m, err := Parse(data)
	if err != nil {
		return domain.AgentConfig{}, fmt.Errorf("manifest for %q: %w", id, err)
	}

	prompt := m.SystemPrompt
	if raw, err := os.ReadFile(filepath.Join(agentDir, filepath.Base(m.PromptFile))); err == nil {
		prompt = string(raw)
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.AgentConfig{}, fmt.Errorf("read prompt for %q: %w", id, err)
	}

	agent := m.AgentConfig(prompt)
	if agent.ID == "" {
		agent.ID = id
	}
	return agent, nil
}

// Install accepts a local directory, "github:owner/repo" or "owner/repo".
func (s *Store) Install(ctx context.Context, source string) (domain.AgentConfig, error) {
	if err := ctx.Err(); err != nil {
		return domain.AgentConfig{}, err
	}

	source = strings.TrimSpace(source)
	if source == "" {
		return domain.AgentConfig{}, errors.New("agent source is empty")
	}

	var (
		fetched fetchedAgent
		err     error
	)
	if info, statErr := os.Stat(source); statErr == nil && info.IsDir() {
		fetched, err = readLocal(source)
	} else {
		fetched, err = s.fetchGitHub(ctx, source)
	}
	if err != nil {
		return domain.AgentConfig{}, err
	}

	if err := s.write(fetched); err != nil {
		return domain.AgentConfig{}, err
	}

	return fetched.manifest.AgentConfig(fetched.promptOr()), nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agentDir, err := s.agentDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(agentDir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("agent dir for %q: %w", id, domain.ErrAgentNotFound)
	}
	if err := os.RemoveAll(agentDir); err != nil {
		return fmt.Errorf("remove agent dir for %q: %w", id, err)
	}

	return nil
}

// Parse decodes a manifest and fills in defaults.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode %s: %w", ManifestFile, err)
	}
	m.applyDefaults()
	return m, nil
}

func (m *Manifest) applyDefaults() {
	m.Name = strings.TrimSpace(m.Name)
	if strings.TrimSpace(m.Type) == "" {
		m.Type = DefaultType
	}
	if strings.TrimSpace(m.PromptFile) == "" {
		m.PromptFile = DefaultPromptFile
	}
	if m.Defaults.Model == "" {
		m.Defaults.Model = DefaultModel
	}
	if m.Defaults.Backend == "" {
		m.Defaults.Backend = string(DefaultBackend)
	}
}

func (m Manifest) AgentConfig(prompt string) domain.AgentConfig {
	metadata := make(map[string]string, len(m.Metadata))
	for k, v := range m.Metadata {
		metadata[k] = v
	}

	return domain.AgentConfig{
		ID:           m.Name,
		Type:         m.Type,
		SystemPrompt: prompt,
		Model:        m.Defaults.Model,
		Backend:      domain.Backend(m.Defaults.Backend),
		Source:       m.Source,
		Description:  m.Description,
		Metadata:     metadata,
	}
}

type fetchedAgent struct {
	manifest Manifest
	prompt   []byte
}

func (f fetchedAgent) promptOr() string {
	if f.prompt != nil {
		return string(f.prompt)
	}
	return f.manifest.SystemPrompt
}

func readLocal(dir string) (fetchedAgent, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fetchedAgent{}, fmt.Errorf("resolve %s: %w", dir, err)
	}

	data, err := os.ReadFile(filepath.Join(absDir, ManifestFile))
	if err != nil {
		return fetchedAgent{}, fmt.Errorf("read %s: %w", ManifestFile, err)
	}
	m, err := Parse(data)
	if err != nil {
		return fetchedAgent{}, err
	}
	if m.Name == "" {
		m.Name = filepath.Base(absDir)
	}
	m.Source = domain.SourceLocal + ":" + absDir

	out := fetchedAgent{manifest: m}
	prompt, err := os.ReadFile(filepath.Join(absDir, filepath.Clean(m.PromptFile)))
	switch {
	case err == nil:
		out.prompt = prompt
	case !errors.Is(err, os.ErrNotExist):
		return fetchedAgent{}, fmt.Errorf("read prompt file: %w", err)
	}

	return out, nil
}

func (s *Store) fetchGitHub(ctx context.Context, source string) (fetchedAgent, error) {
	repo := strings.TrimPrefix(source, githubPrefix)
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fetchedAgent{}, fmt.Errorf("invalid repo %q: use owner/repo", source)
	}

	root := s.baseURL + "/" + owner + "/" + name + "/" + defaultBranch
	data, err := s.get(ctx, root+"/"+ManifestFile)
	if err != nil {
		return fetchedAgent{}, fmt.Errorf("fetch agent manifest from %s: %w", repo, err)
	}
	m, err := Parse(data)
	if err != nil {
		return fetchedAgent{}, err
	}
	if m.Name == "" {
		m.Name = name
	}
	m.Source = githubPrefix + repo

	out := fetchedAgent{manifest: m}
	// The prompt file is optional; the inline system_prompt covers a miss.
	if prompt, err := s.get(ctx, root+"/"+path.Clean(m.PromptFile)); err == nil {
		out.prompt = prompt
	}

	return out, nil
}

func (s *Store) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
}

func (s *Store) write(f fetchedAgent) error {
	agentDir, err := s.agentDir(f.manifest.Name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(agentDir, dirMode); err != nil {
		return fmt.Errorf("create agent dir: %w", err)
	}

	m := f.manifest
	m.PromptFile = filepath.Base(m.PromptFile)
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ManifestFile, err)
	}
	if err := os.WriteFile(filepath.Join(agentDir, ManifestFile), data, fileMode); err != nil {
		return fmt.Errorf("write %s: %w", ManifestFile, err)
	}

	if f.prompt != nil {
		if err := os.WriteFile(filepath.Join(agentDir, m.PromptFile), f.prompt, fileMode); err != nil {
			return fmt.Errorf("write prompt file: %w", err)
		}
	}

	return nil
}

func (s *Store) agentDir(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid agent id %q", id)
	}
	return filepath.Join(s.dir, id), nil
}
