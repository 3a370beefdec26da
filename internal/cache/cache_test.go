// SPDX-License-Identifier: MIT
package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avocast/avocast/internal/log"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set("a", "value", time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set("a", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Delete("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, log.Base())
	require.NoError(t, err)
	defer c.Close()

	c.Set("avatar:1", map[string]any{"display_name": "Ada"}, time.Minute)

	got, ok := c.Get("avatar:1")
	require.True(t, ok)
	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", m["display_name"])
}

func TestRedisCacheMiss(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, log.Base())
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCacheExpiry(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()}, log.Base())
	require.NoError(t, err)
	defer c.Close()

	c.Set("k", "v", time.Second)
	mr.FastForward(2 * time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestRedisCacheUnavailable(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"}, log.Base())
	require.Error(t, err)
}
