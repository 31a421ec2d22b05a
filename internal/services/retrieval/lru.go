package retrieval

import (
	"container/list"
	"sync"

	"github.com/scentlab/essentia/internal/models"
)

type cacheKey struct {
	query string
	k     int
}

type cacheEntry struct {
	key   cacheKey
	value []models.RetrievedPerfume
}

// lruCache is a bounded cache of retrieval results keyed by (query, k).
// It replaces ad-hoc memoization so that a rebuild of the index can
// invalidate it explicitly via Purge.
type lruCache struct {
	capacity int
	mu       sync.Mutex
	order    *list.List // front is most recently used
	items    map[cacheKey]*list.Element
}

func newLRUCache(capacity int) *lruCache {
	if capacity <= 0 {
		capacity = 128
	}
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[cacheKey]*list.Element, capacity),
	}
}

func (c *lruCache) get(key cacheKey) ([]models.RetrievedPerfume, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *lruCache) put(key cacheKey, value []models.RetrievedPerfume) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*cacheEntry).value = value
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

// purge drops every entry. Called whenever the index is rebuilt.
func (c *lruCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[cacheKey]*list.Element, c.capacity)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
