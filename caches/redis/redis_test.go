package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()

	store, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestStore_SetGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("value"), time.Minute))

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)
}

func TestStore_MissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	val, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStore_TTLExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("value"), time.Minute))

	mr.FastForward(2 * time.Minute)

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("value"), time.Minute))
	require.NoError(t, store.Delete(ctx, "k1"))

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStore_Namespacing(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("value"), time.Minute))

	// Raw key is prefixed in Redis.
	assert.False(t, mr.Exists("k1"))
	assert.True(t, mr.Exists("coach:k1"))
}
