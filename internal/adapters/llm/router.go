// Package llm routes agent turns to language model backends.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout    = 60 * time.Second
	DefaultRPS        = 2.0
	DefaultBurst      = 1
	defaultTemp       = 0.7
	defaultMaxTokens  = 2048
	maxErrorBodyBytes = 512
)

// Call is one completion request as seen by a backend client.
type Call struct {
	AgentID string
	Model   string
	Prompt  string
	APIKey  string
}

// Client talks to a single backend.
type Client interface {
	Complete(ctx context.Context, call Call) (string, error)
}

// Route binds a backend to its client. Keyed routes resolve
// "<backend>/api_key" from the secret store before each call. Local routes
// skip the rate limiter.
type Route struct {
	Client   Client
	NeedsKey bool
	Local    bool
}

type RouterOptions struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
}

// Router implements ports.AgentInvoker. Every failure becomes a protocol
// reply so the dispatcher can keep going.
type Router struct {
	secrets ports.SecretStore
	timeout time.Duration
	limit   rate.Limit
	burst   int
	logger  *zap.Logger

	mu       sync.Mutex
	routes   map[domain.Backend]Route
	limiters map[domain.Backend]*rate.Limiter
}

var _ ports.AgentInvoker = (*Router)(nil)

func NewRouter(secrets ports.SecretStore, opts RouterOptions) *Router {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Router{
		secrets:  secrets,
		timeout:  opts.Timeout,
		limit:    limit,
		burst:    opts.Burst,
		logger:   logger.With(zap.String("component", "llm")),
		routes:   map[domain.Backend]Route{},
		limiters: map[domain.Backend]*rate.Limiter{},
	}
}

func (r *Router) Register(backend domain.Backend, route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[backend] = route
}

func (r *Router) Backends() []domain.Backend {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Backend, 0, len(r.routes))
	for backend := range r.routes {
		out = append(out, backend)
	}
	return out
}

func (r *Router) Invoke(ctx context.Context, req domain.InvokeRequest) string {
	text, err := r.invoke(ctx, req)
	if err != nil {
		r.logger.Warn("backend call failed",
			zap.String("agent", req.AgentID),
			zap.String("backend", string(req.Backend)),
			zap.Error(err),
		)
		return ErrorReply(req.Backend, err)
	}
	return text
}

func (r *Router) invoke(ctx context.Context, req domain.InvokeRequest) (string, error) {
	route, limiter, ok := r.route(req.Backend)
	if !ok {
		return "", fmt.Errorf("unknown backend %q", req.Backend)
	}

	call := Call{AgentID: req.AgentID, Model: req.Model, Prompt: req.Prompt}
	if route.NeedsKey {
		if r.secrets == nil {
			return "", fmt.Errorf("no secret store for %s: %w", req.Backend, domain.ErrSecretNotFound)
		}
		key, err := r.secrets.Get(ctx, string(req.Backend)+"/api_key")
		if err != nil {
			return "", fmt.Errorf("resolve %s api key: %w", req.Backend, err)
		}
		call.APIKey = key
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !route.Local {
		if err := limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for %s rate limit: %w", req.Backend, err)
		}
	}

	start := time.Now()
	text, err := route.Client.Complete(ctx, call)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("timed out after %s: %w", r.timeout, err)
		}
		return "", err
	}
	r.logger.Debug("backend call complete",
		zap.String("agent", req.AgentID),
		zap.String("backend", string(req.Backend)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return text, nil
}

func (r *Router) route(backend domain.Backend) (Route, *rate.Limiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.routes[backend]
	if !ok || route.Client == nil {
		return Route{}, nil, false
	}
	limiter, ok := r.limiters[backend]
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters[backend] = limiter
	}
	return route, limiter, true
}

type errorReply struct {
	Answer       string            `json:"answer"`
	StateUpdates errorStateUpdates `json:"state_updates"`
}

type errorStateUpdates struct {
	ContextSummary string `json:"context_summary"`
}

// ErrorReply renders err as a protocol reply.
func ErrorReply(backend domain.Backend, err error) string {
	data, _ := json.Marshal(errorReply{
		Answer: "ERROR: " + err.Error(),
		StateUpdates: errorStateUpdates{
			ContextSummary: fmt.Sprintf("%s call failed: %s", backend, err),
		},
	})
	return string(data)
}
