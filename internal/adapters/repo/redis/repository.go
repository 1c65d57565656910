// Package redis stores ACT documents in Redis, one string key per session plus
// a sorted-set index scored by updated_at.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const (
	addrKey     = "storage.redis.addr"
	passwordKey = "storage.redis.password"
	dbKey       = "storage.redis.db"
	prefixKey   = "storage.redis.prefix"
	ttlKey      = "storage.redis.ttl"

	defaultPrefix = "uap:act:"
	pingTimeout   = 5 * time.Second
)

type Repository struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.SessionRepository = (*Repository)(nil)

// NewRepository wraps an existing client. A zero ttl keeps documents forever.
func NewRepository(client goredis.UniversalClient, prefix string, ttl time.Duration) *Repository {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Repository{client: client, prefix: prefix, ttl: ttl}
}

// NewFromConfig dials the configured server and checks it answers.
func NewFromConfig(ctx context.Context, cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	cfg.SetDefault(addrKey, "127.0.0.1:6379")
	cfg.SetDefault(prefixKey, defaultPrefix)

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.GetString(addrKey),
		Password: cfg.GetString(passwordKey),
		DB:       cfg.GetInt(dbKey),
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.GetString(addrKey), err)
	}

	return NewRepository(client, cfg.GetString(prefixKey), cfg.GetDuration(ttlKey)), nil
}

func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) Load(ctx context.Context, sessionID string) (domain.ACT, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return domain.ACT{}, err
	}

	data, err := r.client.Get(ctx, r.docKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.ACT{}, domain.ErrSessionNotFound
		}
		return domain.ACT{}, fmt.Errorf("get session %q: %w", sessionID, err)
	}

	var act domain.ACT
	if err := json.Unmarshal(data, &act); err != nil {
		return domain.ACT{}, fmt.Errorf("decode session %q: %w", sessionID, err)
	}

	return act, nil
}

func (r *Repository) Save(ctx context.Context, act domain.ACT) error {
	if err := domain.ValidateSessionID(act.SessionID); err != nil {
		return err
	}

	data, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", act.SessionID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.docKey(act.SessionID), data, r.ttl)
		pipe.ZAdd(ctx, r.indexKey(), goredis.Z{
			Score:  float64(act.UpdatedAt.UnixNano()),
			Member: act.SessionID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %q: %w", act.SessionID, err)
	}

	return nil
}

// List returns indexed ids whose document still exists, oldest first.
// Index entries left behind by expired documents are pruned.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	pipe := r.client.Pipeline()
	exists := make([]*goredis.IntCmd, len(ids))
	for i, id := range ids {
		exists[i] = pipe.Exists(ctx, r.docKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("check session documents: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
			continue
		}
		stale = append(stale, id)
	}
	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, r.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("prune session index: %w", err)
		}
	}

	return live, nil
}

func (r *Repository) docKey(sessionID string) string {
	return r.prefix + "doc:" + sessionID
}

func (r *Repository) indexKey() string {
	return r.prefix + "index"
}
