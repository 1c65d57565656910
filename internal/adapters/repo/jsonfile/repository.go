// Package jsonfile stores each ACT as <dir>/<session_id>.json.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/bnema/uap-cli/internal/ports"
	"github.com/spf13/viper"
)

const (
	storageDirKey   = "storage.dir"
	storageHomeDir  = ".uap"
	storageSubDir   = "act_storage"
	documentExt     = ".json"
	fileMode        = 0o600
	dirMode         = 0o700
	tempFilePattern = ".act-*.json.tmp"
)

type Repository struct {
	dir string
	mu  *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	dirLockMap     = map[string]*sync.RWMutex{}
)

var (
	_ ports.SessionRepository = (*Repository)(nil)
	_ ports.SessionWatcher    = (*Repository)(nil)
)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	cfg.SetDefault(storageDirKey, filepath.Join(homeDir, storageHomeDir, storageSubDir))

	dir := cfg.GetString(storageDirKey)
	if dir == "" {
		return nil, errors.New("storage dir is empty")
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	dir = filepath.Clean(dir)

	return &Repository{dir: dir, mu: lockForDir(dir)}, nil
}

func (r *Repository) Dir() string {
	return r.dir
}

func (r *Repository) Load(ctx context.Context, sessionID string) (domain.ACT, error) {
	if err := ctx.Err(); err != nil {
		return domain.ACT{}, err
	}
	path, err := r.pathFor(sessionID)
	if err != nil {
		return domain.ACT{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return readDocument(path)
}

func (r *Repository) Save(ctx context.Context, act domain.ACT) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.pathFor(act.SessionID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(act, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %q: %w", act.SessionID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writeDocument(path, data)
}

func (r *Repository) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read storage dir: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), documentExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), documentExt)
		if domain.ValidateSessionID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

func (r *Repository) pathFor(sessionID string) (string, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, sessionID+documentExt), nil
}

func readDocument(path string) (domain.ACT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ACT{}, domain.ErrSessionNotFound
		}
		return domain.ACT{}, fmt.Errorf("read session file: %w", err)
	}

	var act domain.ACT
	if err := json.Unmarshal(data, &act); err != nil {
		return domain.ACT{}, fmt.Errorf("decode session file %s: %w", filepath.Base(path), err)
	}

	return act, nil
}

func (r *Repository) writeDocument(path string, data []byte) error {
	if err := os.MkdirAll(r.dir, dirMode); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	tempFile, err := os.CreateTemp(r.dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	cleanup = false

	return nil
}

func lockForDir(dir string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := dirLockMap[dir]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	dirLockMap[dir] = mu
	return mu
}
