package session_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtrack/internal/session"
)

func newStore(t *testing.T) (*session.Store, string) {
	t.Helper()
	t.Setenv(session.TokenEnv, "")
	path := filepath.Join(t.TempDir(), "token.json")
	return session.NewStore(path), path
}

func TestStore_LoginPersistsAndLoads(t *testing.T) {
	store, path := newStore(t)

	require.NoError(t, store.Login("Bearer abc123"))
	assert.True(t, store.IsLoggedIn())
	assert.Equal(t, "abc123", store.Token(), "bearer prefix stripped")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded := session.NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, "abc123", reloaded.Token())
	assert.Equal(t, "file", reloaded.Source())
}

func TestStore_LoadMissingFileIsLoggedOut(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Load())
	assert.False(t, store.IsLoggedIn())
}

func TestStore_LoadCorruptFile(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, store.Load())
}

func TestStore_EnvOverride(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"from-file"}`), 0o600))
	t.Setenv(session.TokenEnv, "from-env")

	require.NoError(t, store.Load())
	assert.Equal(t, "from-env", store.Token())
	assert.Equal(t, "env", store.Source())
}

func TestStore_EnvTokenLeavesFileAlone(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"from-file"}`), 0o600))
	t.Setenv(session.TokenEnv, "from-env")
	require.NoError(t, store.Load())

	assert.True(t, store.Expire("from-env"))
	assert.FileExists(t, path, "expiry of an env token keeps the stored session")

	require.NoError(t, store.Load())
	require.NoError(t, store.Logout())
	assert.False(t, store.IsLoggedIn())
	assert.FileExists(t, path, "logout of an env token keeps the stored session")
}

func TestStore_LoginRejectsEmpty(t *testing.T) {
	store, _ := newStore(t)
	assert.Error(t, store.Login("   "))
	assert.False(t, store.IsLoggedIn())
}

func TestStore_LogoutClearsMemoryAndDisk(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, store.Login("tok"))
	done := store.Done()

	require.NoError(t, store.Logout())
	assert.False(t, store.IsLoggedIn())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	select {
	case <-done:
	default:
		t.Fatal("session channel should be closed after logout")
	}

	// Logging out twice is harmless.
	require.NoError(t, store.Logout())
}

func TestStore_ExpireOnlyOnce(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Login("tok"))

	assert.True(t, store.Expire("tok"))
	assert.False(t, store.Expire("tok"))
	assert.False(t, store.IsLoggedIn())
}

func TestStore_ExpireIgnoresStaleToken(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Login("old"))
	require.NoError(t, store.Login("new"))

	assert.False(t, store.Expire("old"), "a 401 for a replaced token must not end the new session")
	assert.Equal(t, "new", store.Token())
}

func TestStore_LoginAfterExpiryRenewsSession(t *testing.T) {
	store, _ := newStore(t)
	require.NoError(t, store.Login("first"))
	first := store.Done()
	require.True(t, store.Expire("first"))

	require.NoError(t, store.Login("second"))
	second := store.Done()
	assert.NotEqual(t, first, second)

	select {
	case <-second:
		t.Fatal("new session channel must be open")
	default:
	}
}
