package extractor

import (
	"container/list"
	"sync"
	"time"

	"github.com/robalyx/retract/internal/types"
)

type cacheEntry struct {
	key       uint64
	value     *types.ExtractedContext
	expiresAt time.Time
}

// cache is a size-bounded TTL cache that evicts the oldest inserted entry first.
type cache struct {
	mu      sync.Mutex
	entries map[uint64]*list.Element
	order   *list.List
	size    int
	ttl     time.Duration
}

func newCache(size int, ttl time.Duration) *cache {
	return &cache{
		entries: make(map[uint64]*list.Element, size),
		order:   list.New(),
		size:    size,
		ttl:     ttl,
	}
}

func (c *cache) get(key uint64, now time.Time) (*types.ExtractedContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := el.Value.(*cacheEntry)
	if !now.Before(entry.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}

	return entry.value, true
}

func (c *cache) put(key uint64, value *types.ExtractedContext, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = now.Add(c.ttl)

		return
	}

	for c.order.Len() >= c.size {
		c.removeLocked(c.order.Front())
	}

	c.entries[key] = c.order.PushBack(&cacheEntry{key: key, value: value, expiresAt: now.Add(c.ttl)})
}

// purge removes expired entries and returns how many were removed.
func (c *cache) purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0

	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if !now.Before(el.Value.(*cacheEntry).expiresAt) {
			c.removeLocked(el)
			removed++
		}

		el = next
	}

	return removed
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *cache) removeLocked(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}
