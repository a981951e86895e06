package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key-1", []byte("value-1")))

	got, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value-1"), got)
}

func TestMemoryStoreGetMissingKey(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key-1", []byte("old")))
	require.NoError(t, store.Set(ctx, "key-1", []byte("new")))

	got, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "key-1", []byte("v1")))
	require.NoError(t, store.Set(ctx, "key-2", []byte("v2")))

	require.NoError(t, store.Delete(ctx, "key-1", "key-2"))

	_, err := store.Get(ctx, "key-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "key-2")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting absent keys is not an error
	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte("immutable")
	require.NoError(t, store.Set(ctx, "key-1", original))
	original[0] = 'X'

	got, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), got)

	// Mutating a returned value must not leak into the store
	got[0] = 'Y'
	again, err := store.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), again)
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "behaviorPattern_agent-7", BehaviorPatternKey("agent-7"))
	assert.Equal(t, "geofence_zone-1_status", GeofenceStatusKey("zone-1"))
}
