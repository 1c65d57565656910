package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/bnema/uap-cli/internal/adapters/secrets/env"
	filestore "github.com/bnema/uap-cli/internal/adapters/secrets/file"
	passstore "github.com/bnema/uap-cli/internal/adapters/secrets/pass"
	"github.com/bnema/uap-cli/internal/ports"
)

// Store asks each backend in order and returns the first value found.
type Store struct {
	stores []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var (
	errNoStores = errors.New("secret store chain is empty")
	errNilStore = errors.New("secret store is nil")
)

func NewStore(stores ...ports.SecretStore) *Store {
	store, err := NewStoreChecked(stores...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(stores ...ports.SecretStore) (*Store, error) {
	if len(stores) == 0 {
		return nil, errNoStores
	}
	for i, s := range stores {
		if s == nil {
			return nil, fmt.Errorf("secret store %d: %w", i, errNilStore)
		}
	}

	return &Store{stores: append([]ports.SecretStore(nil), stores...)}, nil
}

// NewDefault resolves keys from the environment, then pass, then files under fileRoot.
func NewDefault(passPrefix string, fileRoot string) (*Store, error) {
	return NewStoreChecked(envstore.NewStore(), passstore.NewStore(passPrefix), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for i, store := range s.stores {
		value, err := store.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldSkipFallback(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("backend %d: %w", i, err))
	}

	return "", fmt.Errorf("resolve secret %q: %w", key, errors.Join(errs...))
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
