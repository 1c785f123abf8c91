package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a bounded cache with a per-entry TTL. When full, the least
// recently used entry is evicted.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// WithClock replaces the time source. Used by tests.
func (c *LRUCache[T]) WithClock(now func() time.Time) *LRUCache[T] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.lookupLocked(key)
	if !ok {
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return elem.Value.(*cacheItem[T]).data, true
}

// Set stores a value in the cache
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(key, data, c.now().Add(c.ttl))
}

// Update replaces the value under key with fn(old, found) in one step.
// A fresh entry gets a full TTL; an existing one keeps its expiry.
func (c *LRUCache[T]) Update(key string, fn func(old T, found bool) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	var old T
	expiresAt := c.now().Add(c.ttl)
	elem, found := c.lookupLocked(key)
	if found {
		item := elem.Value.(*cacheItem[T])
		old, expiresAt = item.data, item.expiresAt
	}
	next := fn(old, found)
	c.storeLocked(key, next, expiresAt)
	return next
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) lookupLocked(key string) (*list.Element, bool) {
	elem, exists := c.items[key]
	if !exists {
		return nil, false
	}
	if c.now().After(elem.Value.(*cacheItem[T]).expiresAt) {
		c.removeElement(elem)
		return nil, false
	}
	return elem, true
}

func (c *LRUCache[T]) storeLocked(key string, data T, expiresAt time.Time) {
	item := &cacheItem[T]{key: key, data: data, expiresAt: expiresAt}
	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)
	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

var _ Cache[int] = (*LRUCache[int])(nil)
