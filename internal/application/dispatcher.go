package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/bnema/uap-cli/internal/reply"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxHops      = 5
	DefaultPreviewChars = 500
	DefaultParallelism  = 2

	instrumentationName = "github.com/bnema/uap-cli/internal/application"
)

type DispatcherOptions struct {
	MaxHops      int
	PreviewChars int
	Parallelism  int
	Instructions string
	Observer     ports.DispatchObserver
	Logger       *zap.Logger
	Tracer       trace.Tracer
}

// Dispatcher runs agent turns against sessions owned by a StateManager.
type Dispatcher struct {
	states       *StateManager
	agents       *AgentRegistry
	invoker      ports.AgentInvoker
	observer     ports.DispatchObserver
	logger       *zap.Logger
	tracer       trace.Tracer
	clock        ports.Clock
	instructions string
	maxHops      int
	previewChars int
	parallelism  int
}

func NewDispatcher(states *StateManager, agents *AgentRegistry, invoker ports.AgentInvoker, opts DispatcherOptions) *Dispatcher {
	if opts.MaxHops <= 0 {
		opts.MaxHops = DefaultMaxHops
	}
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = DefaultPreviewChars
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.Observer == nil {
		opts.Observer = ports.NopObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(instrumentationName)
	}

	return &Dispatcher{
		states:       states,
		agents:       agents,
		invoker:      invoker,
		observer:     opts.Observer,
		logger:       opts.Logger.With(zap.String("component", "dispatcher")),
		tracer:       opts.Tracer,
		clock:        states.clock,
		instructions: opts.Instructions,
		maxHops:      opts.MaxHops,
		previewChars: opts.PreviewChars,
		parallelism:  opts.Parallelism,
	}
}

func (d *Dispatcher) MaxHops() int {
	return d.maxHops
}

func (d *Dispatcher) Agents() *AgentRegistry {
	return d.agents
}

// Dispatch runs one turn and, with AutoHandoff, keeps following the agent
// named by next_agent_hint until no handoff is requested, no registered agent
// matches the hint, or the hop limit is reached.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd DispatchCommand) (DispatchResult, error) {
	result, err := d.turn(ctx, cmd.AgentID, cmd.SessionID, cmd.Task)
	if err != nil || !cmd.AutoHandoff {
		return result, err
	}

	maxHops := cmd.MaxHops
	if maxHops <= 0 {
		maxHops = d.maxHops
	}

	var hops []HopRecord
	for result.HandoffInfo != nil && result.HandoffInfo.NextAgentHint != "" {
		next, ok := d.agents.Resolve(result.HandoffInfo.NextAgentHint)
		if !ok {
			d.logger.Info("no agent matches handoff hint",
				zap.String("session_id", result.SessionID),
				zap.String("hint", result.HandoffInfo.NextAgentHint),
			)
			break
		}
		if len(hops) >= maxHops {
			result.HopLimitReached = true
			d.logger.Warn("auto handoff stopped at hop limit",
				zap.String("session_id", result.SessionID),
				zap.Int("max_hops", maxHops),
			)
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		hops = append(hops, HopRecord{
			From:   result.AgentID,
			To:     next.ID,
			Hint:   result.HandoffInfo.NextAgentHint,
			Reason: result.HandoffInfo.Reason,
		})
		d.observer.ObserveHandoff(result.AgentID, next.ID)

		nextResult, err := d.turn(ctx, next.ID, result.SessionID, "")
		if err != nil {
			nextResult.Hops = hops
			return nextResult, err
		}
		result = nextResult
	}

	result.Hops = hops
	return result, nil
}

// Handoff gives the session to another agent with no new task, so the agent
// works from the ACT alone.
func (d *Dispatcher) Handoff(ctx context.Context, sessionID, toAgentID string) (DispatchResult, error) {
	if _, err := d.agents.Get(toAgentID); err != nil {
		return DispatchResult{}, err
	}

	pkg, err := d.states.PrepareHandoff(ctx, sessionID)
	if err != nil {
		return DispatchResult{}, err
	}

	d.logger.Debug("handoff",
		zap.String("session_id", sessionID),
		zap.String("from", pkg.HandoffContext.FromAgent),
		zap.String("to", toAgentID),
		zap.String("reason", pkg.HandoffContext.Reason),
	)
	d.observer.ObserveHandoff(pkg.HandoffContext.FromAgent, toAgentID)

	return d.turn(ctx, toAgentID, sessionID, "")
}

// RunChain runs the first agent with the task and hands the session to each
// following agent in turn.
func (d *Dispatcher) RunChain(ctx context.Context, cmd ChainCommand) (ChainResult, error) {
	if len(cmd.AgentIDs) == 0 {
		return ChainResult{}, domain.ErrEmptyChain
	}
	for _, agentID := range cmd.AgentIDs {
		if _, err := d.agents.Get(agentID); err != nil {
			return ChainResult{}, err
		}
	}

	ctx, span := d.tracer.Start(ctx, "uap.run_chain", trace.WithAttributes(
		attribute.StringSlice("uap.agents", cmd.AgentIDs),
	))
	defer span.End()

	sessionID := cmd.SessionID
	steps := make([]ChainStep, 0, len(cmd.AgentIDs))
	var last DispatchResult
	for i, agentID := range cmd.AgentIDs {
		var (
			result DispatchResult
			err    error
		)
		if i == 0 {
			result, err = d.turn(ctx, agentID, sessionID, cmd.Task)
		} else {
			if err := ctx.Err(); err != nil {
				span.RecordError(err)
				return ChainResult{}, err
			}
			result, err = d.Handoff(ctx, sessionID, agentID)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return ChainResult{}, fmt.Errorf("chain step %d (%s): %w", i+1, agentID, err)
		}

		sessionID = result.SessionID
		last = result
		steps = append(steps, ChainStep{
			Agent:         agentID,
			Response:      truncateRunes(result.Response, d.previewChars),
			HandoffInfo:   result.HandoffInfo,
			ParseStrategy: result.ParseStrategy,
			Degraded:      result.Degraded,
		})
	}

	validation, err := d.states.ValidateHandshake(ctx, sessionID)
	if err != nil {
		return ChainResult{}, err
	}
	span.SetAttributes(
		attribute.String("uap.session_id", sessionID),
		attribute.Bool("uap.valid", validation.Valid),
	)

	return ChainResult{
		SessionID:  sessionID,
		Chain:      steps,
		FinalACT:   last.ACT,
		Validation: validation,
	}, nil
}

// RunBatch runs independent chains in parallel. Chains sharing a session id
// are rejected since turns on one session must stay sequential.
func (d *Dispatcher) RunBatch(ctx context.Context, cmds []ChainCommand) ([]ChainResult, error) {
	seen := make(map[string]struct{}, len(cmds))
	for _, cmd := range cmds {
		if cmd.SessionID == "" {
			continue
		}
		if _, dup := seen[cmd.SessionID]; dup {
			return nil, fmt.Errorf("session %q appears in more than one batch entry", cmd.SessionID)
		}
		seen[cmd.SessionID] = struct{}{}
	}

	results := make([]ChainResult, len(cmds))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.parallelism)
	for i, cmd := range cmds {
		group.Go(func() error {
			result, err := d.RunChain(groupCtx, cmd)
			if err != nil {
				return fmt.Errorf("batch entry %d: %w", i+1, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (d *Dispatcher) turn(ctx context.Context, agentID, sessionID, task string) (DispatchResult, error) {
	agent, err := d.agents.Get(agentID)
	if err != nil {
		return DispatchResult{}, err
	}

	ctx, span := d.tracer.Start(ctx, "uap.dispatch", trace.WithAttributes(
		attribute.String("uap.agent", agentID),
		attribute.String("uap.backend", string(agent.Backend)),
		attribute.Bool("uap.new_task", task != ""),
	))
	defer span.End()

	var act domain.ACT
	if sessionID == "" {
		act, err = d.states.Create(ctx, task)
	} else {
		act, err = d.states.Get(ctx, sessionID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return DispatchResult{}, err
	}
	span.SetAttributes(attribute.String("uap.session_id", act.SessionID))

	prompt, err := BuildPrompt(agent, act, task, d.instructions)
	if err != nil {
		return DispatchResult{}, err
	}

	started := d.clock.Now()
	raw := d.invoker.Invoke(ctx, domain.InvokeRequest{
		AgentID: agent.ID,
		Backend: agent.Backend,
		Model:   agent.Model,
		Prompt:  prompt,
	})
	elapsed := d.clock.Now().Sub(started)

	parsed := reply.Parse(raw)
	if parsed.StateUpdates != nil {
		act, err = d.states.ApplyUpdate(ctx, act.SessionID, *parsed.StateUpdates, agent.ID)
		if err != nil {
			return DispatchResult{}, err
		}
	}

	if err := d.states.Persist(ctx, act.SessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return DispatchResult{}, err
	}

	result := DispatchResult{
		SessionID:     act.SessionID,
		AgentID:       agent.ID,
		Response:      parsed.AnswerOr(raw),
		ACT:           act,
		RawResponse:   raw,
		ParseStrategy: parsed.Strategy,
		Degraded:      parsed.Degraded(),
	}
	if parsed.StateUpdates != nil && parsed.StateUpdates.RequestsHandoff() {
		result.HandoffInfo = &HandoffInfo{
			Reason:          parsed.StateUpdates.HandoffReason.Value,
			NextAgentHint:   parsed.StateUpdates.NextAgentHint.Value,
			ReadyForHandoff: true,
		}
	}

	span.SetAttributes(
		attribute.String("uap.parse_strategy", string(parsed.Strategy)),
		attribute.Bool("uap.degraded", result.Degraded),
	)
	d.observer.ObserveTurn(ports.TurnObservation{
		AgentID:  agent.ID,
		Strategy: string(parsed.Strategy),
		Degraded: result.Degraded,
		Duration: elapsed,
	})
	if result.Degraded {
		d.logger.Warn("reply did not follow protocol format",
			zap.String("session_id", act.SessionID),
			zap.String("agent", agent.ID),
		)
	}
	d.logger.Info("turn complete",
		zap.String("session_id", act.SessionID),
		zap.String("agent", agent.ID),
		zap.String("strategy", string(parsed.Strategy)),
		zap.Bool("handoff", result.HandoffInfo != nil),
		zap.Duration("elapsed", elapsed.Round(time.Millisecond)),
	)

	return result, nil
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
