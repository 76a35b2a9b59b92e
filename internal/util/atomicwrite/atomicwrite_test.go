package atomicwrite

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.key")

	require.NoError(t, WriteFile(path, []byte("seed-1\n"), 0o600, false))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "seed-1\n", string(b))

	if runtime.GOOS != "windows" {
		st, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())
	}

	assert.ErrorIs(t, WriteFile(path, []byte("seed-2\n"), 0o600, false), ErrExists)
	b, _ = os.ReadFile(path)
	assert.Equal(t, "seed-1\n", string(b))

	require.NoError(t, WriteFile(path, []byte("seed-2\n"), 0o600, true))
	b, _ = os.ReadFile(path)
	assert.Equal(t, "seed-2\n", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
