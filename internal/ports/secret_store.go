package ports

import "context"

// SecretStore resolves provider credentials. Missing keys wrap domain.ErrSecretNotFound.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}
