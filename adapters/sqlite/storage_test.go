package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "review.db")
	store, err := Open(path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_SaveUpsertsAndReloads(t *testing.T) {
	store, path := openTemp(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, map[string]string{"review.reviewed": "false", "review.app_id": "APPID"}))
	require.NoError(t, store.Save(ctx, map[string]string{"review.reviewed": "true"}))

	v, ok, err := store.Get(ctx, "review.reviewed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	require.NoError(t, store.Close())
	reopened, err := Open(path, Options{})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "review.reviewed", "review.app_id", "review.locale")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"review.reviewed": "true", "review.app_id": "APPID"}, got)
}

func TestStore_GetMissingAndDelete(t *testing.T) {
	store, _ := openTemp(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "a:review.first_use", "true"))
	require.NoError(t, store.Delete(ctx, "a:review.first_use"))
	_, ok, err = store.Get(ctx, "a:review.first_use")
	require.NoError(t, err)
	assert.False(t, ok)
}
