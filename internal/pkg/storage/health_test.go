package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noPing struct{ ObjectStore }

func TestLocalStorePing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	check := HealthCheck(store)
	require.NotNil(t, check)
	require.NoError(t, check(context.Background()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, check(context.Background()))
}

func TestLocalStorePingCancelled(t *testing.T) {
	store, err := NewLocalStore(filepath.Join(t.TempDir(), "data"), "/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Ping(ctx), context.Canceled)
}

func TestHealthCheckWithoutPinger(t *testing.T) {
	assert.Nil(t, HealthCheck(noPing{}))
}
