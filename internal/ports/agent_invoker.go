package ports

import (
	"context"

	"github.com/bnema/uap-cli/internal/domain"
)

// AgentInvoker calls a language model for one agent turn. It never fails:
// transport, auth and timeout errors come back as reply text.
type AgentInvoker interface {
	Invoke(ctx context.Context, req domain.InvokeRequest) string
}
