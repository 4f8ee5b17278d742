package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/activity-timeline/internal/core"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()

	c.Set("key1", &core.CacheEntry{
		Label:      "Work",
		Confidence: 0.8,
		Sentiment:  "positive",
	}, time.Hour)

	entry, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "key1", entry.Key)
	assert.Equal(t, "Work", entry.Label)
	assert.InDelta(t, 0.8, entry.Confidence, 1e-9)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestMemoryCacheCopiesEntries(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()

	original := &core.CacheEntry{Label: "Work"}
	c.Set("key1", original, time.Hour)
	original.Label = "mutated"

	entry, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "Work", entry.Label)

	// Mutating the returned copy does not affect the stored entry
	entry.Label = "also mutated"
	again, ok := c.Get("key1")
	require.True(t, ok)
	assert.Equal(t, "Work", again.Label)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()

	c.Set("key1", &core.CacheEntry{Label: "Work"}, -time.Second)
	_, ok := c.Get("key1")
	assert.False(t, ok)
}

func TestMemoryCacheCleanup(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()

	c.Set("expired", &core.CacheEntry{Label: "Work"}, -time.Second)
	c.Set("fresh", &core.CacheEntry{Label: "Social"}, time.Hour)

	require.NoError(t, c.Cleanup(context.Background()))

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Len(t, c.entries, 1)
	_, ok := c.entries["fresh"]
	assert.True(t, ok)
}

func TestMemoryCacheStopIdempotent(t *testing.T) {
	c := NewMemoryCache(zap.NewNop(), time.Minute)
	c.Stop()
	c.Stop()
}
