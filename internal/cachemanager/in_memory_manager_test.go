package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stylesheetKey string

type composed struct {
	ThemeID string
	CSS     string
}

func TestInMemoryCacheManager_SetThenGet(t *testing.T) {
	cache := NewInMemoryCacheManager[stylesheetKey, composed]("stylesheets", DefaultExpiration, DefaultCleanupInterval)
	want := composed{ThemeID: "gaia", CSS: "section{}"}

	cache.Set(context.Background(), "gaia", want, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "gaia")
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Equal(t, 1, cache.Len())
}

func TestInMemoryCacheManager_Miss(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("stylesheets", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "missing")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_WrongStoredType(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("stylesheets", DefaultExpiration, DefaultCleanupInterval)
	cache.cache.Set("default", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "default")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("stylesheets", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "dark", "css", 10*time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "dark")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("stylesheets", DefaultExpiration, DefaultCleanupInterval)

	_, ok := cache.GetWithRefresh(context.Background(), "light", time.Hour)
	require.False(t, ok)

	cache.Set(context.Background(), "light", "css", 50*time.Millisecond)
	got, ok := cache.GetWithRefresh(context.Background(), "light", time.Hour)
	require.True(t, ok)
	require.Equal(t, "css", got)

	time.Sleep(80 * time.Millisecond)
	_, ok = cache.Get(context.Background(), "light")
	require.True(t, ok, "refresh should have extended the ttl")
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("stylesheets", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()
	cache.Set(ctx, "a", "1", NoExpiration)
	cache.Set(ctx, "b", "2", NoExpiration)
	cache.Set(ctx, "c", "3", NoExpiration)

	cache.Delete(ctx)
	require.Equal(t, 3, cache.Len())

	cache.Delete(ctx, "a", "b")
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	cache.Flush(ctx)
	require.Zero(t, cache.Len())
}
