package udptracker

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
)

// connectionCache remembers the most recent connection_id issued by each
// tracker address, expiring entries after ttl so callers transparently
// refresh via a new Connect exchange.
type connectionCache struct {
	mu  sync.Mutex
	clk clock.Clock
	ttl time.Duration

	entries map[string]cachedConnection
}

type cachedConnection struct {
	id       int64
	obtained time.Time
}

func newConnectionCache(clk clock.Clock, ttl time.Duration) *connectionCache {
	return &connectionCache{
		clk:     clk,
		ttl:     ttl,
		entries: make(map[string]cachedConnection),
	}
}

// Get returns the cached connection id for addr, or false if there is none
// or it has expired.
func (c *connectionCache) Get(addr string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[addr]
	if !ok {
		return 0, false
	}
	if c.clk.Now().Sub(e.obtained) >= c.ttl {
		delete(c.entries, addr)
		return 0, false
	}
	return e.id, true
}

// Set installs a freshly obtained connection id for addr.
func (c *connectionCache) Set(addr string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[addr] = cachedConnection{id: id, obtained: c.clk.Now()}
}

// Invalidate drops any cached connection for addr, forcing the next use to
// reconnect.
func (c *connectionCache) Invalidate(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, addr)
}
