package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StateManager owns the in-memory sessions and is the only code path that
// mutates an ACT. Callers always receive clones.
type StateManager struct {
	repo   ports.SessionRepository
	clock  ports.Clock
	logger *zap.Logger
	newID  func() string

	mu       sync.Mutex
	sessions map[string]*domain.ACT
}

func NewStateManager(repo ports.SessionRepository, clock ports.Clock, logger *zap.Logger) *StateManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StateManager{
		repo:     repo,
		clock:    clock,
		logger:   logger.With(zap.String("component", "state_manager")),
		newID:    newSessionID,
		sessions: map[string]*domain.ACT{},
	}
}

const maxIDAttempts = 16

func newSessionID() string {
	return uuid.NewString()[:8]
}

// Create registers a blank session under an id that is neither in memory nor
// already stored.
func (s *StateManager) Create(ctx context.Context, objective string) (domain.ACT, error) {
	for range maxIDAttempts {
		if err := ctx.Err(); err != nil {
			return domain.ACT{}, err
		}

		id := s.newID()
		s.mu.Lock()
		_, taken := s.sessions[id]
		s.mu.Unlock()
		if taken {
			continue
		}

		_, err := s.repo.Load(ctx, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ACT{}, fmt.Errorf("check session id %q: %w", id, err)
		}

		s.mu.Lock()
		if _, taken := s.sessions[id]; taken {
			s.mu.Unlock()
			continue
		}
		act := domain.NewACT(id, objective, s.clock.Now())
		s.sessions[id] = &act
		s.mu.Unlock()

		s.logger.Debug("session created", zap.String("session_id", id))
		return act.Clone(), nil
	}

	return domain.ACT{}, fmt.Errorf("allocate session id: no free id after %d attempts", maxIDAttempts)
}

func (s *StateManager) Get(ctx context.Context, sessionID string) (domain.ACT, error) {
	if err := s.ensureLoaded(ctx, sessionID); err != nil {
		return domain.ACT{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions[sessionID].Clone(), nil
}

// ApplyUpdate merges one agent update into the session, in a fixed order:
// timestamp, objective, context, task chain, handoff, artifacts, handshake
// log, origin agent.
func (s *StateManager) ApplyUpdate(ctx context.Context, sessionID string, update domain.StateUpdate, agentID string) (domain.ACT, error) {
	if err := s.ensureLoaded(ctx, sessionID); err != nil {
		return domain.ACT{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	act := s.sessions[sessionID]
	dropped := applyUpdate(act, update, agentID, s.clock.Now())
	if len(dropped) > 0 {
		s.logger.Debug("unknown artifact buckets dropped",
			zap.String("session_id", sessionID),
			zap.String("agent", agentID),
			zap.Strings("buckets", dropped),
		)
	}

	return act.Clone(), nil
}

// Persist writes the current snapshot, replacing any earlier one.
func (s *StateManager) Persist(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	act, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("persist session %q: %w", sessionID, domain.ErrSessionNotFound)
	}
	snapshot := act.Clone()
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save session %q: %w", sessionID, err)
	}

	return nil
}

func (s *StateManager) PrepareHandoff(ctx context.Context, sessionID string) (domain.HandoffPackage, error) {
	act, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.HandoffPackage{}, err
	}

	return domain.NewHandoffPackage(act), nil
}

func (s *StateManager) ValidateHandshake(ctx context.Context, sessionID string) (domain.ValidationReport, error) {
	act, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.ValidationReport{}, err
	}

	return domain.Validate(act), nil
}

// ListSessions summarizes stored and in-memory sessions, most recently
// updated first. Documents that fail to load are skipped.
func (s *StateManager) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	ids := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		ids[id] = struct{}{}
	}
	s.mu.Lock()
	for id := range s.sessions {
		ids[id] = struct{}{}
	}
	s.mu.Unlock()

	summaries := make([]domain.SessionSummary, 0, len(ids))
	for id := range ids {
		act, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.logger.Warn("skip unreadable session", zap.String("session_id", id), zap.Error(err))
			continue
		}
		summaries = append(summaries, act.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].SessionID < summaries[j].SessionID
		}
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})

	return summaries, nil
}

func (s *StateManager) ensureLoaded(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is empty: %w", domain.ErrSessionNotFound)
	}

	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if ok {
		return nil
	}

	loaded, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("session %q: %w", sessionID, domain.ErrSessionNotFound)
		}
		return fmt.Errorf("load session %q: %w", sessionID, err)
	}
	if loaded.SessionID == "" {
		loaded.SessionID = sessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = &loaded
	}

	return nil
}

func applyUpdate(act *domain.ACT, update domain.StateUpdate, agentID string, now time.Time) []string {
	act.UpdatedAt = now

	if update.CurrentObjective.Set {
		act.CurrentObjective = update.CurrentObjective.Value
	}
	if update.ContextSummary.Set {
		act.ContextSummary = update.ContextSummary.Value
	}
	if update.TaskCompleted.Set {
		act.TaskChain = append(act.TaskChain, domain.TaskRecord{
			Task:          update.TaskCompleted.Value,
			Agent:         agentID,
			Timestamp:     now,
			ResultSummary: update.ResultSummary.Value,
		})
	}
	if update.HandoffReason.Set {
		act.HandoffReason = update.HandoffReason.Value
		act.NextAgentHint = update.NextAgentHint.Value
	}

	var dropped []string
	if update.Artifacts.Set {
		dropped = mergeArtifacts(&act.Artifacts, update.Artifacts.Value)
	}

	keys := update.Keys()
	if keys == nil {
		keys = []string{}
	}
	act.HandshakeLog = append(act.HandshakeLog, domain.HandshakeEntry{
		Agent:          agentID,
		Timestamp:      now,
		Action:         domain.ActionStateUpdate,
		UpdatesApplied: keys,
	})
	act.OriginAgent = agentID

	return dropped
}

// mergeArtifacts appends to sequence buckets and key-merges mapping buckets.
// It returns the bucket names it did not recognize.
func mergeArtifacts(artifacts *domain.Artifacts, buckets map[string]any) []string {
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	var dropped []string
	for _, name := range names {
		kind, ok := domain.ArtifactBuckets[name]
		if !ok {
			dropped = append(dropped, name)
			continue
		}

		value := buckets[name]
		switch kind {
		case domain.BucketSequence:
			seq := artifacts.Sequence(name)
			*seq = append(*seq, domain.SequenceItems(value)...)
		case domain.BucketMapping:
			incoming, ok := value.(map[string]any)
			if !ok {
				dropped = append(dropped, name)
				continue
			}
			target := artifacts.Mapping(name)
			for key, item := range incoming {
				target[key] = item
			}
		}
	}

	return dropped
}
