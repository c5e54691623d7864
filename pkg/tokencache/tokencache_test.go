package tokencache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stridehq/stride/pkg/tokencache"
)

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.bin")
	cache, err := tokencache.Open(path, []byte("test-key"))
	require.NoError(t, err)

	blob := []byte(`{"access_token":"access-1","refresh_token":"refresh-1"}`)
	require.NoError(t, cache.Save(blob))

	loaded, err := cache.Load()
	require.NoError(t, err)
	require.Equal(t, blob, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	cache, err := tokencache.Open(filepath.Join(t.TempDir(), "session.bin"), []byte("test-key"))
	require.NoError(t, err)

	_, err = cache.Load()
	require.ErrorIs(t, err, tokencache.ErrNoCache)
}

func TestLoadCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.bin")
	cache, err := tokencache.Open(path, []byte("test-key"))
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

		_, err := cache.Load()
		require.ErrorIs(t, err, tokencache.ErrNoCache)
	})

	t.Run("tampered", func(t *testing.T) {
		require.NoError(t, cache.Save([]byte("payload")))

		sealed, err := os.ReadFile(path)
		require.NoError(t, err)
		sealed[len(sealed)-1] ^= 0xff
		require.NoError(t, os.WriteFile(path, sealed, 0o600))

		_, err = cache.Load()
		require.ErrorIs(t, err, tokencache.ErrNoCache)
	})
}

func TestLoadWithWrongKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.bin")

	writer, err := tokencache.Open(path, []byte("key-one"))
	require.NoError(t, err)
	require.NoError(t, writer.Save([]byte("payload")))

	reader, err := tokencache.Open(path, []byte("key-two"))
	require.NoError(t, err)

	_, err = reader.Load()
	require.ErrorIs(t, err, tokencache.ErrNoCache)
}

func TestClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.bin")
	cache, err := tokencache.Open(path, []byte("test-key"))
	require.NoError(t, err)

	require.NoError(t, cache.Save([]byte("payload")))
	require.NoError(t, cache.Clear())

	_, err = cache.Load()
	require.ErrorIs(t, err, tokencache.ErrNoCache)

	// Clearing twice is fine.
	require.NoError(t, cache.Clear())
}

func TestOpenRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	_, err := tokencache.Open(filepath.Join(t.TempDir(), "session.bin"), nil)
	require.Error(t, err)
}

func TestKeyFromEnv(t *testing.T) {
	t.Run("key file wins", func(t *testing.T) {
		keyPath := filepath.Join(t.TempDir(), "cache.key")
		require.NoError(t, os.WriteFile(keyPath, []byte("file-key"), 0o600))
		t.Setenv("STRIDE_CACHE_KEY", "env-key")

		material, err := tokencache.KeyFromEnv(keyPath)
		require.NoError(t, err)
		require.Equal(t, []byte("file-key"), material)
	})

	t.Run("env var fallback", func(t *testing.T) {
		t.Setenv("STRIDE_CACHE_KEY", "env-key")

		material, err := tokencache.KeyFromEnv("")
		require.NoError(t, err)
		require.Equal(t, []byte("env-key"), material)
	})

	t.Run("ephemeral fallback", func(t *testing.T) {
		t.Setenv("STRIDE_CACHE_KEY", "")

		material, err := tokencache.KeyFromEnv("")
		require.NoError(t, err)
		require.Len(t, material, 32)
	})

	t.Run("missing key file errors", func(t *testing.T) {
		_, err := tokencache.KeyFromEnv(filepath.Join(t.TempDir(), "nope.key"))
		require.Error(t, err)
	})
}
