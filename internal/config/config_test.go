package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	uapHome := filepath.Join(home, ".uap")
	assert.Equal(t, uapHome, cfg.GetString(KeyHome))
	assert.Equal(t, StorageFile, cfg.GetString(KeyStorageBackend))
	assert.Equal(t, filepath.Join(uapHome, "act_storage"), cfg.GetString(KeyStorageDir))
	assert.Equal(t, filepath.Join(uapHome, "agents.toml"), cfg.GetString(KeyAgentsPath))
	assert.Equal(t, 5, cfg.GetInt(KeyDispatchMaxHops))
	assert.Equal(t, 500, cfg.GetInt(KeyDispatchPreviewChars))
	assert.Equal(t, 60*time.Second, cfg.GetDuration(KeyLLMTimeout))
	assert.Equal(t, "warn", cfg.GetString(KeyLogLevel))
	assert.Equal(t, filepath.Join(uapHome, "config.toml"), FilePath(cfg))
}

func TestLoadReadsConfigFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("UAP_DISPATCH_MAX_HOPS", "9")

	uapHome := filepath.Join(home, ".uap")
	require.NoError(t, os.MkdirAll(uapHome, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(uapHome, "config.toml"), []byte(`
[storage]
backend = "sqlite"

[storage.redis]
password = "hunter2"

[llm]
offline = true

[llm.base_urls]
groq = "http://127.0.0.1:9999/v1"
`), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageSQLite, cfg.GetString(KeyStorageBackend))
	assert.Equal(t, 9, cfg.GetInt(KeyDispatchMaxHops))
	assert.True(t, cfg.GetBool(KeyLLMOffline))
	assert.Equal(t, "http://127.0.0.1:9999/v1", BaseURL(cfg, "groq"))
	assert.Empty(t, BaseURL(cfg, "openai"))

	var password any
	for _, setting := range Settings(cfg) {
		if setting.Key == KeyStorageRedisPassword {
			password = setting.Value
		}
	}
	assert.Equal(t, "********", password)
}

func TestLoadRejectsUnknownStorageBackend(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("UAP_STORAGE_BACKEND", "floppy")

	_, err := Load()
	require.ErrorContains(t, err, `unsupported storage backend "floppy"`)
}

func TestValidateRejectsNegativeBounds(t *testing.T) {
	t.Parallel()

	cfg := viper.New()
	SetDefaults(cfg, t.TempDir())
	cfg.Set(KeyDispatchMaxHops, -1)

	require.ErrorContains(t, Validate(cfg), KeyDispatchMaxHops)
}
