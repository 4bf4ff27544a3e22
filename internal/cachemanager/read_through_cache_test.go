package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCacheManager struct {
	mock.Mock
}

func (m *mockCacheManager) Get(ctx context.Context, key string) (string, bool) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1)
}

func (m *mockCacheManager) GetWithRefresh(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1)
}

func (m *mockCacheManager) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *mockCacheManager) Delete(ctx context.Context, keys ...string) {
	m.Called(ctx, keys)
}

func (m *mockCacheManager) Flush(ctx context.Context) {
	m.Called(ctx)
}

func (m *mockCacheManager) Len() int {
	return m.Called().Int(0)
}

type composeInput struct {
	ThemeID   string
	CustomCSS string
}

func compose(calls *int) func(context.Context, composeInput) (string, error) {
	return func(_ context.Context, in composeInput) (string, error) {
		*calls++
		if in.ThemeID == "" {
			return "", errors.New("theme id required")
		}
		return in.ThemeID + "|" + in.CustomCSS, nil
	}
}

func TestReadThroughCache_SkipCacheCallsLoader(t *testing.T) {
	manager := &mockCacheManager{}
	calls := 0
	rt := NewReadThroughCache[string, string, composeInput](manager, compose(&calls), true)

	got, err := rt.Get(context.Background(), "k", composeInput{ThemeID: "gaia"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "gaia|", got)
	require.Equal(t, 1, calls)
	manager.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestReadThroughCache_HitSkipsLoader(t *testing.T) {
	manager := &mockCacheManager{}
	manager.On("Get", mock.Anything, "k").Return("cached", true).Once()
	calls := 0
	rt := NewReadThroughCache[string, string, composeInput](manager, compose(&calls), false)

	got, err := rt.Get(context.Background(), "k", composeInput{ThemeID: "gaia"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "cached", got)
	require.Zero(t, calls)
	manager.AssertExpectations(t)
}

func TestReadThroughCache_MissLoadsAndStores(t *testing.T) {
	manager := &mockCacheManager{}
	manager.On("Get", mock.Anything, "k").Return("", false).Once()
	manager.On("Set", mock.Anything, "k", "dark|h1{}", time.Minute).Return().Once()
	calls := 0
	rt := NewReadThroughCache[string, string, composeInput](manager, compose(&calls), false)

	got, err := rt.Get(context.Background(), "k", composeInput{ThemeID: "dark", CustomCSS: "h1{}"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, "dark|h1{}", got)
	manager.AssertExpectations(t)
}

func TestReadThroughCache_LoaderErrorIsNotCached(t *testing.T) {
	manager := &mockCacheManager{}
	manager.On("Get", mock.Anything, "k").Return("", false).Once()
	calls := 0
	rt := NewReadThroughCache[string, string, composeInput](manager, compose(&calls), false)

	_, err := rt.Get(context.Background(), "k", composeInput{}, time.Minute)
	require.Error(t, err)
	manager.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReadThroughCache_InvalidateFlushes(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("stylesheets", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	rt := NewReadThroughCache[string, string, composeInput](cache, compose(&calls), false)
	ctx := context.Background()

	_, err := rt.Get(ctx, "k", composeInput{ThemeID: "gaia"}, time.Minute)
	require.NoError(t, err)
	_, err = rt.Get(ctx, "k", composeInput{ThemeID: "gaia"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	rt.Invalidate(ctx)
	_, err = rt.Get(ctx, "k", composeInput{ThemeID: "gaia"}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
