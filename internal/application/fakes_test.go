package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/stretchr/testify/require"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// tickingClock advances one second on every read.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type inMemorySessionRepo struct {
	mu      sync.Mutex
	acts    map[string]domain.ACT
	loadErr map[string]error
	saveErr error
	saves   int
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{acts: map[string]domain.ACT{}, loadErr: map[string]error{}}
}

func (r *inMemorySessionRepo) Load(_ context.Context, id string) (domain.ACT, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.loadErr[id]; ok {
		return domain.ACT{}, err
	}
	act, ok := r.acts[id]
	if !ok {
		return domain.ACT{}, domain.ErrSessionNotFound
	}
	return act.Clone(), nil
}

func (r *inMemorySessionRepo) Save(_ context.Context, act domain.ACT) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.acts[act.SessionID] = act.Clone()
	return nil
}

func (r *inMemorySessionRepo) List(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.acts)+len(r.loadErr))
	for id := range r.acts {
		ids = append(ids, id)
	}
	for id := range r.loadErr {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *inMemorySessionRepo) stored(id string) (domain.ACT, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	act, ok := r.acts[id]
	return act, ok
}

var _ ports.SessionRepository = (*inMemorySessionRepo)(nil)

// scriptedInvoker replays queued replies per agent and records every prompt.
type scriptedInvoker struct {
	mu       sync.Mutex
	replies  map[string][]string
	fallback func(req domain.InvokeRequest) string
	requests []domain.InvokeRequest
}

func newScriptedInvoker() *scriptedInvoker {
	return &scriptedInvoker{replies: map[string][]string{}}
}

func (s *scriptedInvoker) queue(agentID string, replies ...string) *scriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[agentID] = append(s.replies[agentID], replies...)
	return s
}

func (s *scriptedInvoker) Invoke(_ context.Context, req domain.InvokeRequest) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if queued := s.replies[req.AgentID]; len(queued) > 0 {
		s.replies[req.AgentID] = queued[1:]
		return queued[0]
	}
	if s.fallback != nil {
		return s.fallback(req)
	}
	return fmt.Sprintf("no scripted reply for %s", req.AgentID)
}

func (s *scriptedInvoker) prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.requests))
	for _, req := range s.requests {
		out = append(out, req.Prompt)
	}
	return out
}

func (s *scriptedInvoker) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type recordingObserver struct {
	mu       sync.Mutex
	turns    []ports.TurnObservation
	handoffs []string
}

func (o *recordingObserver) ObserveTurn(obs ports.TurnObservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.turns = append(o.turns, obs)
}

func (o *recordingObserver) ObserveHandoff(from, to string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handoffs = append(o.handoffs, from+"->"+to)
}

type inMemoryAgentIndex struct {
	agents map[string]domain.InstalledAgent
}

func (r *inMemoryAgentIndex) GetByID(_ context.Context, id string) (domain.InstalledAgent, error) {
	agent, ok := r.agents[id]
	if !ok {
		return domain.InstalledAgent{}, domain.ErrAgentNotFound
	}
	return agent, nil
}

func (r *inMemoryAgentIndex) List(_ context.Context) ([]domain.InstalledAgent, error) {
	out := make([]domain.InstalledAgent, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, agent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *inMemoryAgentIndex) Save(_ context.Context, agent domain.InstalledAgent) error {
	if r.agents == nil {
		r.agents = map[string]domain.InstalledAgent{}
	}
	r.agents[agent.ID] = agent
	return nil
}

func (r *inMemoryAgentIndex) Delete(_ context.Context, id string) error {
	delete(r.agents, id)
	return nil
}

type fakeManifestStore struct {
	manifests map[string]domain.AgentConfig
	sources   map[string]domain.AgentConfig
	removed   []string
}

func (f *fakeManifestStore) Load(_ context.Context, id string) (domain.AgentConfig, error) {
	agent, ok := f.manifests[id]
	if !ok {
		return domain.AgentConfig{}, fmt.Errorf("manifest %q missing", id)
	}
	return agent, nil
}

func (f *fakeManifestStore) Install(_ context.Context, source string) (domain.AgentConfig, error) {
	agent, ok := f.sources[source]
	if !ok {
		return domain.AgentConfig{}, fmt.Errorf("source %q unreachable", source)
	}
	if f.manifests == nil {
		f.manifests = map[string]domain.AgentConfig{}
	}
	f.manifests[agent.ID] = agent
	return agent, nil
}

func (f *fakeManifestStore) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	delete(f.manifests, id)
	return nil
}

type inMemoryTeamRepo struct {
	teams map[string]domain.Team
}

func (r *inMemoryTeamRepo) GetByID(_ context.Context, id string) (domain.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	return team, nil
}

func (r *inMemoryTeamRepo) List(_ context.Context) ([]domain.Team, error) {
	out := make([]domain.Team, 0, len(r.teams))
	for _, team := range r.teams {
		out = append(out, team)
	}
	return out, nil
}

func (r *inMemoryTeamRepo) Save(_ context.Context, team domain.Team) error {
	if r.teams == nil {
		r.teams = map[string]domain.Team{}
	}
	r.teams[team.ID] = team
	return nil
}

// protocolReply wraps an answer and its state updates the way agents are asked to.
func protocolReply(t *testing.T, answer string, updates map[string]any) string {
	t.Helper()

	payload, err := json.MarshalIndent(map[string]any{
		"answer":        answer,
		"state_updates": updates,
	}, "", "  ")
	require.NoError(t, err)

	return "Here is my work.\n\n```json\n" + string(payload) + "\n```\n"
}

func mustUpdate(t *testing.T, raw string) domain.StateUpdate {
	t.Helper()

	update, err := domain.ParseStateUpdate([]byte(raw))
	require.NoError(t, err)
	return update
}

func testAgent(id, agentType string) domain.AgentConfig {
	return domain.AgentConfig{
		ID:           id,
		Type:         agentType,
		SystemPrompt: "You are the " + strings.ToLower(agentType) + ".",
		Model:        DefaultModel,
		Backend:      domain.BackendScripted,
	}
}

func mustCreate(t *testing.T, states *StateManager, objective string) domain.ACT {
	t.Helper()

	act, err := states.Create(context.Background(), objective)
	require.NoError(t, err)
	return act
}

// sequenceIDs returns the given ids in order, then repeats the last one.
func sequenceIDs(ids ...string) func() string {
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		if len(ids) > 1 {
			ids = ids[1:]
		}
		return id
	}
}
