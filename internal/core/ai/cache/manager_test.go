package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finnflow/lebensessenz-kursbot/internal/infrastructure/config"
	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

func newTestManager(t *testing.T, maxSize int, ttl time.Duration) *Manager {
	t.Helper()
	m := NewManager(&config.CacheConfig{
		Enabled:         true,
		MaxSize:         maxSize,
		TTL:             ttl,
		CleanupInterval: time.Minute,
	})
	require.NotNil(t, m)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManagerDisabled(t *testing.T) {
	assert.Nil(t, NewManager(&config.CacheConfig{Enabled: false}))
}

func TestManagerSetGet(t *testing.T) {
	m := newTestManager(t, 10, time.Minute)

	require.NoError(t, m.Set("classify", "rice", `{"group":"STARCH_CARB"}`))

	got, err := m.Get("classify", "rice")
	require.NoError(t, err)
	assert.Equal(t, `{"group":"STARCH_CARB"}`, got)
}

func TestManagerMiss(t *testing.T) {
	m := newTestManager(t, 10, time.Minute)

	_, err := m.Get("classify", "unknown")
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
}

func TestManagerKeyIncludesInstruction(t *testing.T) {
	m := newTestManager(t, 10, time.Minute)

	require.NoError(t, m.Set("classify", "rice", "a"))

	_, err := m.Get("extract", "rice")
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
}

func TestManagerExpiry(t *testing.T) {
	m := newTestManager(t, 10, 10*time.Millisecond)

	require.NoError(t, m.Set("classify", "rice", "a"))
	time.Sleep(30 * time.Millisecond)

	_, err := m.Get("classify", "rice")
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
}

func TestManagerLRUEviction(t *testing.T) {
	m := newTestManager(t, 2, time.Minute)

	require.NoError(t, m.Set("classify", "rice", "a"))
	require.NoError(t, m.Set("classify", "beans", "b"))

	// rice 多一次存取，beans 成為淘汰對象
	_, err := m.Get("classify", "rice")
	require.NoError(t, err)

	require.NoError(t, m.Set("classify", "pasta", "c"))

	_, err = m.Get("classify", "rice")
	assert.NoError(t, err)
	_, err = m.Get("classify", "beans")
	assert.ErrorIs(t, err, common.ErrCacheDisabled)
	_, err = m.Get("classify", "pasta")
	assert.NoError(t, err)
}

func TestManagerStats(t *testing.T) {
	m := newTestManager(t, 10, time.Minute)

	require.NoError(t, m.Set("classify", "rice", "a"))
	_, _ = m.Get("classify", "rice")
	_, _ = m.Get("classify", "missing")

	stats := m.GetStats()
	assert.Equal(t, 1, stats["size"])
	assert.Equal(t, int64(1), stats["hits"])
	assert.Equal(t, int64(1), stats["misses"])
	assert.InDelta(t, 0.5, stats["hit_ratio"].(float64), 1e-9)
}

func TestManagerConcurrentAccess(t *testing.T) {
	m := newTestManager(t, 100, time.Minute)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("item-%d-%d", n, j)
				_ = m.Set("classify", key, "v")
				_, _ = m.Get("classify", key)
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		<-done
	}
}
