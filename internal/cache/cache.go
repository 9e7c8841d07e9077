package cache

import (
	"sync"
	"time"

	"github.com/squadlab/posrating/pkg/core"
)

type playerEntry struct {
	player    core.Player
	expiresAt time.Time
}

// PlayerCache caches upstream player records so repeated ratings of the same
// player within the TTL do not hit the upstream API. A TTL of zero disables
// caching.
type PlayerCache struct {
	m       sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	players map[uint]playerEntry
}

func NewPlayerCache(ttl time.Duration) *PlayerCache {
	return &PlayerCache{
		ttl:     ttl,
		now:     time.Now,
		players: make(map[uint]playerEntry),
	}
}

func (c *PlayerCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.players = make(map[uint]playerEntry)
}

// Get returns the cached player if present and not expired.
func (c *PlayerCache) Get(id uint) (core.Player, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	e, ok := c.players[id]
	if !ok {
		return core.Player{}, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.players, id)
		return core.Player{}, false
	}
	return e.player, true
}

func (c *PlayerCache) Set(p core.Player) {
	if c.ttl <= 0 {
		return
	}
	c.m.Lock()
	defer c.m.Unlock()
	c.players[p.ID] = playerEntry{player: p, expiresAt: c.now().Add(c.ttl)}
}

func (c *PlayerCache) Delete(id uint) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.players, id)
}

// Purge drops expired entries and returns how many were removed.
func (c *PlayerCache) Purge() int {
	c.m.Lock()
	defer c.m.Unlock()
	now := c.now()
	n := 0
	for id, e := range c.players {
		if !now.Before(e.expiresAt) {
			delete(c.players, id)
			n++
		}
	}
	return n
}

func (c *PlayerCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.players)
}
