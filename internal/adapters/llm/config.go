package llm

import (
	"net/http"

	"github.com/bnema/uap-cli/internal/config"
	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewRouterFromConfig registers every supported backend using the llm.* keys.
func NewRouterFromConfig(cfg *viper.Viper, secrets ports.SecretStore, logger *zap.Logger) *Router {
	router := NewRouter(secrets, RouterOptions{
		Timeout:           cfg.GetDuration(config.KeyLLMTimeout),
		RequestsPerSecond: cfg.GetFloat64(config.KeyLLMRequestsPerSecond),
		Burst:             cfg.GetInt(config.KeyLLMBurst),
		Logger:            logger,
	})

	client := &http.Client{}
	baseURL := func(backend domain.Backend) string {
		if override := config.BaseURL(cfg, string(backend)); override != "" {
			return override
		}
		if backend == domain.BackendOllama {
			if url := cfg.GetString(config.KeyLLMOllamaURL); url != "" {
				return url
			}
		}
		return DefaultBaseURLs[backend]
	}

	for _, backend := range []domain.Backend{
		domain.BackendGroq,
		domain.BackendOpenAI,
		domain.BackendTogether,
		domain.BackendOpenRouter,
	} {
		router.Register(backend, Route{Client: NewOpenAICompatible(baseURL(backend), client), NeedsKey: true})
	}
	router.Register(domain.BackendAnthropic, Route{Client: NewAnthropic(baseURL(domain.BackendAnthropic), client), NeedsKey: true})
	router.Register(domain.BackendOllama, Route{Client: NewOllama(baseURL(domain.BackendOllama), client)})
	router.Register(domain.BackendGoogle, Route{Client: NewGemini(config.BaseURL(cfg, string(domain.BackendGoogle)), client), NeedsKey: true})
	router.Register(domain.BackendScripted, Route{Client: NewScripted(nil), Local: true})

	return router
}
