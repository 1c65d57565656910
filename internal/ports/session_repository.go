package ports

import (
	"context"

	"github.com/bnema/uap-cli/internal/domain"
)

// SessionRepository stores one ACT document per session id. Load returns
// domain.ErrSessionNotFound for unknown ids; Save overwrites any prior snapshot.
type SessionRepository interface {
	Load(ctx context.Context, sessionID string) (domain.ACT, error)
	Save(ctx context.Context, act domain.ACT) error
	List(ctx context.Context) ([]string, error)
}

// SessionWatcher streams a session's stored snapshot every time it changes.
// The channel closes when ctx is done.
type SessionWatcher interface {
	Watch(ctx context.Context, sessionID string) (<-chan domain.ACT, error)
}
