package governance

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// cacheKey identifies one cached decision.
type cacheKey struct {
	agentID    uuid.UUID
	actionType string
}

type cacheEntry struct {
	decision Decision
	expires  time.Time
}

// Cache holds permission decisions keyed by (agent, action type) with a TTL.
// Entries are not invalidated implicitly: callers that change an agent's
// maturity must call Invalidate(agentID) before the next check, or stale
// decisions will be served until the TTL lapses.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache returns a decision cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached decision for (agentID, actionType), if present and
// not expired.
func (c *Cache) Get(agentID uuid.UUID, actionType string) (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey{agentID: agentID, actionType: actionType}
	e, ok := c.entries[key]
	if !ok {
		return Decision{}, false
	}
	if c.now().After(e.expires) {
		delete(c.entries, key)
		return Decision{}, false
	}
	return e.decision, true
}

// Put stores a decision for (agentID, actionType).
func (c *Cache) Put(agentID uuid.UUID, actionType string, d Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{agentID: agentID, actionType: actionType}] = cacheEntry{
		decision: d,
		expires:  c.now().Add(c.ttl),
	}
}

// Invalidate removes every cached decision for the agent. Must be called
// whenever the agent's maturity or confidence changes, before recomputing.
func (c *Cache) Invalidate(agentID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.agentID == agentID {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries (expired entries may be counted
// until their next Get).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
