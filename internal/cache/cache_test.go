package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listing struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr())
	require.NoError(t, err)
	SetClient(c)
	t.Cleanup(func() {
		SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func TestCacheAside_LoadsOnceThenHits(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (*listing, error) {
		calls++
		return &listing{ID: 7, Title: "2BR Astoria"}, nil
	}

	got, err := CacheAside(ctx, PropertyKey(7), PropertyTTL, load)
	require.NoError(t, err)
	assert.Equal(t, "2BR Astoria", got.Title)

	got, err = CacheAside(ctx, PropertyKey(7), PropertyTTL, load)
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)
	assert.Equal(t, 1, calls)

	InvalidateProperty(ctx, 7)
	_, err = CacheAside(ctx, PropertyKey(7), PropertyTTL, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheAside_ErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("boom")

	_, err := CacheAside(context.Background(), PropertyKey(1), PropertyTTL, func(context.Context) (*listing, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(PropertyKey(1)))
}

func TestGetJSON_CorruptEntryIsDropped(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set(PropertyKey(3), "{not json"))

	var dest listing
	assert.False(t, GetJSON(context.Background(), PropertyKey(3), &dest))
	assert.False(t, mr.Exists(PropertyKey(3)))
}

func TestNoClient(t *testing.T) {
	SetClient(nil)
	var dest listing
	assert.False(t, GetJSON(context.Background(), "k", &dest))
	SetJSON(context.Background(), "k", dest, PropertyTTL)
	Invalidate(context.Background(), "k")
}

func TestNewClient_URL(t *testing.T) {
	c, err := NewClient("redis://localhost:6380/2")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "localhost:6380", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}

var _ redis.Hook = metricsHook{}
