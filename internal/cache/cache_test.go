package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/squadlab/posrating/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(ttl time.Duration) (*PlayerCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewPlayerCache(ttl)
	c.now = clock.Now
	return c, clock
}

func TestPlayerCache_NewPlayerCache(t *testing.T) {
	c := NewPlayerCache(time.Minute)
	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
}

func TestPlayerCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set(core.Player{ID: 7, FirstName: "Ana", Positions: []core.Position{core.LB}})

	p, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Ana", p.FirstName)
}

func TestPlayerCache_Get_NotFound(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestPlayerCache_Expiry(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set(core.Player{ID: 7})

	clock.Advance(59 * time.Second)
	_, ok := c.Get(7)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry removed on read")
}

func TestPlayerCache_ZeroTTLDisables(t *testing.T) {
	c, _ := newTestCache(0)
	c.Set(core.Player{ID: 7})
	_, ok := c.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPlayerCache_DeleteAndReset(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set(core.Player{ID: 1})
	c.Set(core.Player{ID: 2})
	c.Set(core.Player{ID: 3})

	c.Delete(2)
	_, ok := c.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestPlayerCache_Purge(t *testing.T) {
	c, clock := newTestCache(time.Minute)
	c.Set(core.Player{ID: 1})
	clock.Advance(30 * time.Second)
	c.Set(core.Player{ID: 2})
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(2)
	assert.True(t, ok)
}

func TestPlayerCache_Concurrent(t *testing.T) {
	c := NewPlayerCache(time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(id uint) {
			defer wg.Done()
			c.Set(core.Player{ID: id})
		}(uint(i))
		go func(id uint) {
			defer wg.Done()
			c.Get(id)
		}(uint(i))
	}
	wg.Wait()

	assert.Equal(t, 100, c.Len())
}
