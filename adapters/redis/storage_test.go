package redis

import (
	"context"
	"sort"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return mr, client, cleanup
}

func TestStore_SaveAndLoad(t *testing.T) {
	mr, client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "")
	ctx := context.Background()

	err := store.Save(ctx, map[string]string{
		"review.reviewed":         "false",
		"phone-1:review.reviewed": "true",
		"phone-1:review.app_id":   "APPID",
	})
	require.NoError(t, err)

	got, err := store.Load(ctx, "review.reviewed", "phone-1:review.reviewed", "phone-1:review.app_id", "phone-1:review.locale")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"review.reviewed":         "false",
		"phone-1:review.reviewed": "true",
		"phone-1:review.app_id":   "APPID",
	}, got)

	// values live in per-installation hashes
	assert.Equal(t, "true", mr.HGet("reviewkit:phone-1", "review.reviewed"))
	assert.Equal(t, "false", mr.HGet("reviewkit", "review.reviewed"))
}

func TestStore_GetSetDelete(t *testing.T) {
	_, client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "app")
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "tablet:review.app_id")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "tablet:review.app_id", "APPID"))
	v, ok, err := store.Get(ctx, "tablet:review.app_id")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "APPID", v)

	require.NoError(t, store.Delete(ctx, "tablet:review.app_id", "tablet:missing"))
	_, ok, err = store.Get(ctx, "tablet:review.app_id")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Installations(t *testing.T) {
	_, client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client, "")
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "a:review.reviewed", "true"))
	require.NoError(t, store.Set(ctx, "b:review.reviewed", "false"))
	require.NoError(t, store.Set(ctx, "review.reviewed", "false"))

	ids, err := store.Installations(ctx)
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestStore_ConnectionFailure(t *testing.T) {
	mr, client, cleanup := newTestClient(t)
	defer cleanup()
	store := NewWithClient(client, "")
	mr.Close()

	_, err := store.Load(context.Background(), "review.reviewed")
	assert.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	_, err := New(cfg)
	assert.Error(t, err)
}
