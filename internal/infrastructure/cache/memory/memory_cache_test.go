package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blablablasealsaresoft/infofi/internal/application/port"
)

type payload struct {
	ETag string `json:"etag"`
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "landing:html:1", payload{ETag: "1"}))

	var got payload
	require.NoError(t, cache.Get(ctx, "landing:html:1", &got))
	require.Equal(t, "1", got.ETag)
	require.Equal(t, 1, cache.Len())
}

func TestCacheMissAndExpiry(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	cache := NewCache(time.Minute)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	var got payload
	require.ErrorIs(t, cache.Get(ctx, "absent", &got), port.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "k", payload{ETag: "k"}))
	now = now.Add(59 * time.Second)
	require.NoError(t, cache.Get(ctx, "k", &got))

	now = now.Add(time.Second)
	require.ErrorIs(t, cache.Get(ctx, "k", &got), port.ErrCacheMiss)
	require.Zero(t, cache.Len())
}

func TestCacheWithoutTTLNeverExpires(t *testing.T) {
	now := time.Now()
	cache := NewCache(0)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", payload{ETag: "k"}))
	now = now.Add(365 * 24 * time.Hour)

	var got payload
	require.NoError(t, cache.Get(ctx, "k", &got))
}

func TestCacheDeletePattern(t *testing.T) {
	cache := NewCache(time.Minute)
	ctx := context.Background()

	for _, key := range []string{"landing:html:a", "landing:html:b", "other:a"} {
		require.NoError(t, cache.Set(ctx, key, payload{ETag: key}))
	}

	require.NoError(t, cache.DeletePattern(ctx, "landing:html:*"))
	require.Equal(t, 1, cache.Len())

	require.Error(t, cache.DeletePattern(ctx, "[unterminated"))

	require.NoError(t, cache.Delete(ctx, "other:a"))
	require.Zero(t, cache.Len())
}

func TestCacheRejectsUnmarshalableValues(t *testing.T) {
	cache := NewCache(time.Minute)
	require.Error(t, cache.Set(context.Background(), "k", make(chan int)))
}
