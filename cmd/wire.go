package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bnema/uap-cli/internal/adapters/llm"
	"github.com/bnema/uap-cli/internal/adapters/manifest"
	promrecorder "github.com/bnema/uap-cli/internal/adapters/metrics/prometheus"
	sessionrender "github.com/bnema/uap-cli/internal/adapters/render/session"
	"github.com/bnema/uap-cli/internal/adapters/repo/jsonfile"
	redisrepo "github.com/bnema/uap-cli/internal/adapters/repo/redis"
	sqliterepo "github.com/bnema/uap-cli/internal/adapters/repo/sqlite"
	tomlrepo "github.com/bnema/uap-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/uap-cli/internal/adapters/secrets/chain"
	passstore "github.com/bnema/uap-cli/internal/adapters/secrets/pass"
	"github.com/bnema/uap-cli/internal/application"
	"github.com/bnema/uap-cli/internal/config"
	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/logging"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const storageConnectTimeout = 10 * time.Second

type app struct {
	cfg      *viper.Viper
	logger   *zap.Logger
	sessions ports.SessionRepository
	states   *application.StateManager
	catalog  *application.CatalogService
	teams    *application.TeamService
	invoker  ports.AgentInvoker
	recorder *promrecorder.Recorder
	closers  []func(context.Context) error

	renderList       func([]domain.SessionSummary, sessionrender.RenderOptions) (string, error)
	renderDetail     func(domain.ACT, sessionrender.RenderOptions) (string, error)
	renderValidation func(domain.ValidationReport) (string, error)
	now              func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(os.Stderr, cfg.GetString(config.KeyLogLevel), cfg.GetString(config.KeyLogFormat))
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	a := &app{
		cfg:              cfg,
		logger:           logger,
		recorder:         promrecorder.NewRecorder(),
		renderList:       sessionrender.RenderList,
		renderDetail:     sessionrender.RenderDetail,
		renderValidation: sessionrender.RenderValidation,
		now:              time.Now,
	}

	sessions, err := a.openSessionRepository()
	if err != nil {
		return nil, err
	}
	a.sessions = sessions
	a.states = application.NewStateManager(sessions, ports.SystemClock{}, logger)

	index, err := tomlrepo.NewAgentIndex(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire agent index: %w", err)
	}
	manifests, err := manifest.NewStore(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("wire manifest store: %w", err)
	}
	a.catalog = application.NewCatalogService(index, manifests, ports.SystemClock{}, logger)

	teamRepo, err := tomlrepo.NewTeamRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire team repository: %w", err)
	}
	a.teams = application.NewTeamService(teamRepo, ports.SystemClock{})

	secrets, err := chainstore.NewDefault(passstore.DefaultPrefix, cfg.GetString(config.KeySecretsDir))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}
	a.invoker = llm.NewRouterFromConfig(cfg, secrets, logger)

	return a, nil
}

func (a *app) openSessionRepository() (ports.SessionRepository, error) {
	switch backend := a.cfg.GetString(config.KeyStorageBackend); backend {
	case config.StorageRedis:
		ctx, cancel := context.WithTimeout(context.Background(), storageConnectTimeout)
		defer cancel()

		repo, err := redisrepo.NewFromConfig(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("wire redis session store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return repo.Close() })
		return repo, nil
	case config.StorageSQLite:
		repo, err := sqliterepo.NewFromConfig(a.cfg)
		if err != nil {
			return nil, fmt.Errorf("wire sqlite session store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return repo.Close() })
		return repo, nil
	default:
		repo, err := jsonfile.NewRepository(a.cfg)
		if err != nil {
			return nil, fmt.Errorf("wire file session store: %w", err)
		}
		return repo, nil
	}
}

// dispatcher builds a dispatcher over every available agent. Offline mode
// (flag or llm.offline) runs all agents on the scripted backend.
func (a *app) dispatcher(ctx context.Context, parallelism int) (*application.Dispatcher, error) {
	registry, err := a.catalog.Registry(ctx, a.cfg.GetBool(config.KeyLLMOffline))
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}

	instructions, err := a.protocolInstructions()
	if err != nil {
		return nil, err
	}

	tracer, shutdown, err := setupTracing(ctx, a.cfg.GetString(config.KeyTracingOTLPEndpoint))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdown)

	if parallelism <= 0 {
		parallelism = a.cfg.GetInt(config.KeyDispatchParallelism)
	}

	return application.NewDispatcher(a.states, registry, a.invoker, application.DispatcherOptions{
		MaxHops:      a.cfg.GetInt(config.KeyDispatchMaxHops),
		PreviewChars: a.cfg.GetInt(config.KeyDispatchPreviewChars),
		Parallelism:  parallelism,
		Instructions: instructions,
		Observer:     a.recorder,
		Logger:       a.logger,
		Tracer:       tracer,
	}), nil
}

func (a *app) protocolInstructions() (string, error) {
	path := a.cfg.GetString(config.KeyDispatchProtocolFile)
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read protocol instructions: %w", err)
	}
	return string(data), nil
}

// close flushes metrics and releases storage and tracing resources.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if path := a.cfg.GetString(config.KeyMetricsTextfile); path != "" {
		if err := a.recorder.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	_ = a.logger.Sync()

	return errors.Join(errs...)
}
