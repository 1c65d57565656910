package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/uap-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecret(t *testing.T, root string, key string, value string) {
	t.Helper()

	path := filepath.Join(root, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(value), 0o600))
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "secret key is empty"},
		{name: "whitespace", key: "   ", wantErr: "secret key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid secret key"},
		{name: "traversal", key: "../escape", wantErr: "invalid secret key"},
		{name: "deep traversal", key: "../../secret", wantErr: "invalid secret key"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Get(context.Background(), tc.key)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStoreGetTrimsTrailingNewline(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeSecret(t, root, "groq/api_key", "gsk-top-secret\n")

	got, err := NewStore(root).Get(context.Background(), "groq/api_key")
	require.NoError(t, err)
	assert.Equal(t, "gsk-top-secret", got)
}

func TestStoreGetMissingSecretIsNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewStore(t.TempDir()).Get(context.Background(), "openai/api_key")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreGetBlankSecretIsNotFound(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeSecret(t, root, "anthropic/api_key", "  \n")

	_, err := NewStore(root).Get(context.Background(), "anthropic/api_key")
	assert.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestStoreGetHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore(t.TempDir()).Get(ctx, "groq/api_key")
	assert.ErrorIs(t, err, context.Canceled)
}
