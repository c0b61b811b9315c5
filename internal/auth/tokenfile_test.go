package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenFileSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens", ".globus_transfer_rt")
	tokens := NewTokenFile(path)

	assert.False(t, tokens.Exists())

	require.NoError(t, tokens.Save("AgEupM2refresh"))
	assert.True(t, tokens.Exists())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	token, err := tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "AgEupM2refresh", token)
}

func TestTokenFileLoadFirstLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt")
	require.NoError(t, os.WriteFile(path, []byte("  the-token  \nsecond line\n"), 0600))

	token, err := NewTokenFile(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "the-token", token)
}

func TestTokenFileLoadEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0600))

	_, err := NewTokenFile(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestTokenFileLoadMissing(t *testing.T) {
	_, err := NewTokenFile(filepath.Join(t.TempDir(), "missing")).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTokenFileDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt")
	tokens := NewTokenFile(path)

	// Deleting a missing file is fine.
	require.NoError(t, tokens.Delete())

	require.NoError(t, tokens.Save("tok"))
	require.NoError(t, tokens.Delete())
	assert.False(t, tokens.Exists())
}

func TestTokenFileDefaultPath(t *testing.T) {
	tokens := NewTokenFile("")
	assert.True(t, strings.HasSuffix(tokens.Path(), ".globus_transfer_rt"))
}
