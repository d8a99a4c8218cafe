package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU is a fixed-capacity cache with per-entry TTL. Reads refresh recency;
// the oldest entry is evicted when capacity is exceeded.
type LRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	index   map[string]*list.Element
	order   *list.List
}

type entry[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// NewLRU creates an empty cache holding at most maxSize entries for ttl each.
func NewLRU[T any](maxSize int, ttl time.Duration) *LRU[T] {
	return &LRU[T]{
		maxSize: maxSize,
		ttl:     ttl,
		index:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.index[key]
	if !ok {
		return zero, false
	}

	ent := elem.Value.(*entry[T])
	if time.Now().After(ent.expiresAt) {
		c.remove(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return ent.data, true
}

// Set stores data under key, resetting its TTL.
func (c *LRU[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent := &entry[T]{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(c.ttl),
	}

	if elem, ok := c.index[key]; ok {
		elem.Value = ent
		c.order.MoveToFront(elem)
		return
	}

	c.index[key] = c.order.PushFront(ent)

	if c.order.Len() > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Delete removes key from the cache if present.
func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.remove(elem)
	}
}

// CleanExpired drops every expired entry and reports how many were removed.
func (c *LRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var stale []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			stale = append(stale, elem)
		}
	}
	for _, elem := range stale {
		c.remove(elem)
	}
	return len(stale)
}

// Size returns the current number of cached entries.
func (c *LRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *LRU[T]) remove(elem *list.Element) {
	delete(c.index, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
