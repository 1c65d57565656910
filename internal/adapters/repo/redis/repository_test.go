package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bnema/uap-cli/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *Repository) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewRepository(client, "test:", ttl)
}

func sampleACT(id string, updated time.Time) domain.ACT {
	act := domain.NewACT(id, "Build X", updated.Add(-time.Minute))
	act.UpdatedAt = updated
	act.ContextSummary = "Plan ready."
	act.Artifacts.GameState["level"] = json.Number("2")
	return act
}

func TestRepositorySaveLoad(t *testing.T) {
	t.Parallel()

	mr, repo := setupTestRedis(t, 0)
	act := sampleACT("abcd1234", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Save(context.Background(), act))
	got, err := repo.Load(context.Background(), "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, act, got)

	assert.True(t, mr.Exists("test:doc:abcd1234"))
	assert.Zero(t, mr.TTL("test:doc:abcd1234"))
}

func TestRepositoryLoadErrors(t *testing.T) {
	t.Parallel()

	mr, repo := setupTestRedis(t, 0)

	_, err := repo.Load(context.Background(), "missing1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = repo.Load(context.Background(), "a b")
	require.ErrorIs(t, err, domain.ErrInvalidSessionID)

	require.NoError(t, mr.Set("test:doc:broken01", "{oops"))
	_, err = repo.Load(context.Background(), "broken01")
	require.ErrorContains(t, err, `decode session "broken01"`)
}

func TestRepositoryListOrdersByUpdateAndPrunesExpired(t *testing.T) {
	t.Parallel()

	mr, repo := setupTestRedis(t, time.Hour)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(context.Background(), sampleACT("newer001", base.Add(time.Minute))))
	require.NoError(t, repo.Save(context.Background(), sampleACT("older001", base)))
	assert.Equal(t, time.Hour, mr.TTL("test:doc:older001"))

	ids, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"older001", "newer001"}, ids)

	mr.Del("test:doc:older001")
	ids, err = repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"newer001"}, ids)

	members, err := mr.ZMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"newer001"}, members)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := viper.New()
	cfg.Set("storage.redis.addr", mr.Addr())
	cfg.Set("storage.redis.prefix", "cfg:")

	repo, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.Save(context.Background(), sampleACT("abcd1234", time.Now().UTC())))
	assert.True(t, mr.Exists("cfg:doc:abcd1234"))

	bad := viper.New()
	bad.Set("storage.redis.addr", "127.0.0.1:1")
	_, err = NewFromConfig(context.Background(), bad)
	require.ErrorContains(t, err, "connect to redis")
}
