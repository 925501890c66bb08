package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/config"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)

	_, err := store.Get(ctx, "equipment:1")
	require.ErrorIs(t, err, ErrCacheMiss)

	value := []byte(`{"id":1}`)
	require.NoError(t, store.Set(ctx, "equipment:1", value, 0))
	value[0] = 'X'

	got, err := store.Get(ctx, "equipment:1")
	require.NoError(t, err)
	require.Equal(t, `{"id":1}`, string(got), "stored bytes are copied")

	require.NoError(t, store.Delete(ctx, "equipment:1"))
	_, err = store.Get(ctx, "equipment:1")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.Error(t, store.Set(ctx, "", value, 0))
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(time.Minute)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := store.Get(ctx, "k")
		return err == ErrCacheMiss
	}, time.Second, 5*time.Millisecond)
}

func TestNoopStore(t *testing.T) {
	ctx := context.Background()
	store := Noop()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestNewStore_Drivers(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	logger := zap.NewNop()

	store, err := NewStore(lc, config.Config{Cache: config.Cache{Driver: "memory"}}, logger)
	require.NoError(t, err)
	require.IsType(t, &memoryStore{}, store)

	store, err = NewStore(lc, config.Config{Cache: config.Cache{Driver: "noop"}}, logger)
	require.NoError(t, err)
	require.IsType(t, noopStore{}, store)

	_, err = NewStore(lc, config.Config{Cache: config.Cache{Driver: "memcached"}}, logger)
	require.Error(t, err)
}
