package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Store("github_token", "secret"))

	value, ok, err := store.Get("github_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "secret", value)

	require.NoError(t, store.Delete("github_token"))
	_, ok, err = store.Get("github_token")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is fine.
	assert.NoError(t, store.Delete("never_stored"))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "DEVBOY_GITHUB_TOKEN", EnvVar("github_token"))
	assert.Equal(t, "DEVBOY_GITLAB_TOKEN", EnvVar("gitlab-token"))
}

func TestEnvStore(t *testing.T) {
	t.Setenv("DEVBOY_GITHUB_TOKEN", "from-env")
	store := NewEnvStore()

	value, ok, err := store.Get("github_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "from-env", value)

	_, ok, err = store.Get("gitlab_token")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, store.Store("github_token", "x"))
	assert.Error(t, store.Delete("github_token"))
}

func TestChainGetOrder(t *testing.T) {
	first := NewMemoryStore()
	second := NewMemoryStore()
	require.NoError(t, second.Store("key", "second"))

	chain := Chain{first, second}

	value, ok, err := chain.Get("key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	// A hit earlier in the chain shadows later stores.
	require.NoError(t, first.Store("key", "first"))
	value, _, _ = chain.Get("key")
	assert.Equal(t, "first", value)
}

func TestChainWritesSkipReadOnly(t *testing.T) {
	t.Setenv("DEVBOY_GITHUB_TOKEN", "env-value")
	mem := NewMemoryStore()
	chain := Chain{NewEnvStore(), mem}

	// The env store rejects writes; the chain falls through to memory.
	require.NoError(t, chain.Store("gitlab_token", "stored"))
	value, ok, err := mem.Get("gitlab_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "stored", value)

	require.NoError(t, chain.Delete("gitlab_token"))
	_, ok, _ = mem.Get("gitlab_token")
	assert.False(t, ok)
}

func TestEmptyChain(t *testing.T) {
	chain := Chain{}

	_, ok, err := chain.Get("key")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, chain.Store("key", "value"))
	assert.Error(t, chain.Delete("key"))
}
