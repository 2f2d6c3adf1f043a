package cache

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/log"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_UpdateExistingKey(t *testing.T) {
	c := NewLRUCache[string](2, 0)
	c.Set("a", "one")
	c.Set("a", "uno")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "uno", v)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCacheWithClock[int](10, time.Minute, clock.Now)
	c.Set("a", 1)

	clock.Advance(30 * time.Second)
	c.Set("b", 2)

	clock.Advance(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok, "a expired")

	assert.Equal(t, 0, c.CleanExpired())
	_, ok = c.Get("b")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_NoTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCacheWithClock[int](10, 0, clock.Now)
	c.Set("a", 1)

	clock.Advance(365 * 24 * time.Hour)
	assert.Equal(t, 0, c.CleanExpired())
	_, ok := c.Get("a")
	assert.True(t, ok)
}

func TestLRUCache_DeleteAndStats(t *testing.T) {
	c := NewLRUCache[int](10, 0)
	c.Set("a", 1)
	c.Get("a")
	c.Delete("a")
	c.Get("a")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](50, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa((g*200 + i) % 100)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 50)
}

func TestJanitor(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCacheWithClock[int](10, time.Second, clock.Now)
	c.Set("a", 1)
	clock.Advance(2 * time.Second)

	j := NewJanitor(log.Discard())
	j.Register(c)
	assert.Equal(t, 1, j.Sweep())

	j.Start(context.Background(), 10*time.Millisecond)
	j.Start(context.Background(), 10*time.Millisecond)
	j.Stop()
	j.Stop()
}
