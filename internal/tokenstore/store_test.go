package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tidewallet/tidewallet/pkg/errors"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "wallet_9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin_authToken", Key("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	token, err := m.LoadToken(ctx, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, "", token)

	require.NoError(t, m.SaveToken(ctx, "addr-1", "token-1"))
	require.NoError(t, m.SaveToken(ctx, "addr-2", "token-2"))

	token, err = m.LoadToken(ctx, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	addrs, err := m.Addresses(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"addr-1", "addr-2"}, addrs)

	require.NoError(t, m.DeleteToken(ctx, "addr-1"))
	token, err = m.LoadToken(ctx, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, "", token)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.sealed")

	f, err := NewFile(path, "correct horse battery staple")
	require.NoError(t, err)
	require.NoError(t, f.SaveToken(ctx, "addr-1", "token-1"))
	require.NoError(t, f.SaveToken(ctx, "addr-2", "token-2"))
	require.NoError(t, f.DeleteToken(ctx, "addr-2"))

	// Reopen with the same passphrase.
	reopened, err := NewFile(path, "correct horse battery staple")
	require.NoError(t, err)

	token, err := reopened.LoadToken(ctx, "addr-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	token, err = reopened.LoadToken(ctx, "addr-2")
	require.NoError(t, err)
	assert.Equal(t, "", token)

	addrs, err := reopened.Addresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"addr-1"}, addrs)
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.sealed")

	f, err := NewFile(path, "passphrase-a")
	require.NoError(t, err)
	require.NoError(t, f.SaveToken(ctx, "addr-1", "token-1"))

	_, err = NewFile(path, "passphrase-b")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStorageError, apperrors.CodeOf(err))
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.sealed")

	f, err := NewFile(path, "pass")
	require.NoError(t, err)

	addrs, err := f.Addresses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.sealed")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0o600))

	_, err := NewFile(path, "pass")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStorageError, apperrors.CodeOf(err))
}
