// Package config loads the uap configuration from ~/.uap/config.toml and
// UAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	homeDir    = ".uap"
	envPrefix  = "UAP"
)

const (
	KeyHome = "home"

	KeyStorageBackend       = "storage.backend"
	KeyStorageDir           = "storage.dir"
	KeyStorageRedisAddr     = "storage.redis.addr"
	KeyStorageRedisPassword = "storage.redis.password"
	KeyStorageRedisDB       = "storage.redis.db"
	KeyStorageRedisPrefix   = "storage.redis.prefix"
	KeyStorageRedisTTL      = "storage.redis.ttl"
	KeyStorageSQLitePath    = "storage.sqlite.path"

	KeyAgentsPath = "agents.path"
	KeyAgentsDir  = "agents.dir"
	KeyTeamsPath  = "teams.path"

	KeyDispatchMaxHops      = "dispatch.max_hops"
	KeyDispatchPreviewChars = "dispatch.preview_chars"
	KeyDispatchParallelism  = "dispatch.parallelism"
	KeyDispatchProtocolFile = "dispatch.protocol_file"

	KeyLLMDefaultBackend    = "llm.default_backend"
	KeyLLMTimeout           = "llm.timeout"
	KeyLLMRequestsPerSecond = "llm.requests_per_second"
	KeyLLMBurst             = "llm.burst"
	KeyLLMOllamaURL         = "llm.ollama_url"
	KeyLLMBaseURLs          = "llm.base_urls"
	KeyLLMOffline           = "llm.offline"
	KeyManifestBaseURL      = "agents.github_raw_url"

	KeySecretsDir = "secrets.dir"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyMetricsTextfile     = "metrics.textfile"
	KeyTracingOTLPEndpoint = "tracing.otlp_endpoint"
)

const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Load builds the effective configuration. The home directory defaults to
// ~/.uap; a missing config file is not an error.
func Load() (*viper.Viper, error) {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	cfg.SetDefault(KeyHome, filepath.Join(userHome, homeDir))
	home := cfg.GetString(KeyHome)
	SetDefaults(cfg, home)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(home)
	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SetDefaults registers every default relative to home.
func SetDefaults(cfg *viper.Viper, home string) {
	cfg.SetDefault(KeyHome, home)

	cfg.SetDefault(KeyStorageBackend, StorageFile)
	cfg.SetDefault(KeyStorageDir, filepath.Join(home, "act_storage"))
	cfg.SetDefault(KeyStorageRedisAddr, "127.0.0.1:6379")
	cfg.SetDefault(KeyStorageRedisPassword, "")
	cfg.SetDefault(KeyStorageRedisDB, 0)
	cfg.SetDefault(KeyStorageRedisPrefix, "uap:act:")
	cfg.SetDefault(KeyStorageRedisTTL, time.Duration(0))
	cfg.SetDefault(KeyStorageSQLitePath, filepath.Join(home, "sessions.db"))

	cfg.SetDefault(KeyAgentsPath, filepath.Join(home, "agents.toml"))
	cfg.SetDefault(KeyAgentsDir, filepath.Join(home, "agents"))
	cfg.SetDefault(KeyTeamsPath, filepath.Join(home, "teams.toml"))
	cfg.SetDefault(KeyManifestBaseURL, "https://raw.githubusercontent.com")

	cfg.SetDefault(KeyDispatchMaxHops, 5)
	cfg.SetDefault(KeyDispatchPreviewChars, 500)
	cfg.SetDefault(KeyDispatchParallelism, 2)
	cfg.SetDefault(KeyDispatchProtocolFile, "")

	cfg.SetDefault(KeyLLMDefaultBackend, "groq")
	cfg.SetDefault(KeyLLMTimeout, 60*time.Second)
	cfg.SetDefault(KeyLLMRequestsPerSecond, 2.0)
	cfg.SetDefault(KeyLLMBurst, 1)
	cfg.SetDefault(KeyLLMOllamaURL, "http://localhost:11434")
	cfg.SetDefault(KeyLLMOffline, false)

	cfg.SetDefault(KeySecretsDir, filepath.Join(home, "secrets"))

	cfg.SetDefault(KeyLogLevel, "warn")
	cfg.SetDefault(KeyLogFormat, "console")

	cfg.SetDefault(KeyMetricsTextfile, "")
	cfg.SetDefault(KeyTracingOTLPEndpoint, "")
}

func Validate(cfg *viper.Viper) error {
	switch backend := cfg.GetString(KeyStorageBackend); backend {
	case StorageFile, StorageRedis, StorageSQLite:
	default:
		return fmt.Errorf("unsupported storage backend %q", backend)
	}

	if cfg.GetInt(KeyDispatchMaxHops) < 0 {
		return fmt.Errorf("%s must not be negative", KeyDispatchMaxHops)
	}
	if cfg.GetInt(KeyDispatchParallelism) < 0 {
		return fmt.Errorf("%s must not be negative", KeyDispatchParallelism)
	}
	if cfg.GetFloat64(KeyLLMRequestsPerSecond) < 0 {
		return fmt.Errorf("%s must not be negative", KeyLLMRequestsPerSecond)
	}

	return nil
}

// BaseURL returns the llm.base_urls override for backend, if any.
func BaseURL(cfg *viper.Viper, backend string) string {
	return cfg.GetString(KeyLLMBaseURLs + "." + backend)
}

// Setting is one resolved key for display.
type Setting struct {
	Key   string
	Value any
}

// Settings lists every resolved key in sorted order, with secrets masked.
func Settings(cfg *viper.Viper) []Setting {
	keys := cfg.AllKeys()
	sort.Strings(keys)

	out := make([]Setting, 0, len(keys))
	for _, key := range keys {
		value := cfg.Get(key)
		if strings.HasSuffix(key, "password") && cfg.GetString(key) != "" {
			value = "********"
		}
		out = append(out, Setting{Key: key, Value: value})
	}

	return out
}

// FilePath reports the config file viper would read, whether or not it exists.
func FilePath(cfg *viper.Viper) string {
	if used := cfg.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(cfg.GetString(KeyHome), configName+"."+configType)
}
