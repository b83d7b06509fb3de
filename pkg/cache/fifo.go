package cache

import (
	"container/list"
	"sync"

	"github.com/c360/ponybridge/errors"
)

type fifoEntry[V any] struct {
	key   string
	value V
}

// fifoCache is a thread-safe bounded cache with insertion-order eviction.
// Reads and updates never change an entry's position; once more than maxSize
// entries exist the oldest inserted one is dropped.
type fifoCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = oldest
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

func newFIFOCache[V any](maxSize int, opts *cacheOptions[V]) (*fifoCache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "cache", "newFIFOCache", "max size must be positive")
	}

	metrics, err := newMetricsFromOptions(opts, "newFIFOCache")
	if err != nil {
		return nil, err
	}

	return &fifoCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element, maxSize),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

// Get retrieves a value by key without affecting eviction order.
func (c *fifoCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	element, exists := c.items[key]
	var value V
	if exists {
		value = element.Value.(*fifoEntry[V]).value
	}
	c.mu.Unlock()

	if exists {
		c.stats.Hit()
		if c.metrics != nil {
			c.metrics.recordHit()
		}
	} else {
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
	}
	return value, exists
}

// Set inserts a new entry at the back of the queue, evicting from the front when full.
// Updating an existing key keeps its original position.
func (c *fifoCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evicted []fifoEntry[V]

	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		element.Value.(*fifoEntry[V]).value = value
		c.mu.Unlock()

		c.stats.Set()
		if c.metrics != nil {
			c.metrics.recordSet()
		}
		return false, nil
	}

	c.items[key] = c.order.PushBack(&fifoEntry[V]{key: key, value: value})
	for len(c.items) > c.maxSize {
		oldest := c.order.Front()
		entry := oldest.Value.(*fifoEntry[V])
		c.order.Remove(oldest)
		delete(c.items, entry.key)
		evicted = append(evicted, *entry)
	}
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Set()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateSize(size)
	}

	// Eviction callbacks run outside the lock
	for _, entry := range evicted {
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
		if c.evictFn != nil {
			c.evictFn(entry.key, entry.value)
		}
	}

	return true, nil
}

// Delete removes an entry by key.
func (c *fifoCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return false, nil
	}
	c.order.Remove(element)
	delete(c.items, key)
	size := len(c.items)
	c.mu.Unlock()

	c.stats.Delete()
	c.stats.UpdateSize(int64(size))
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateSize(size)
	}
	return true, nil
}

// Clear removes all entries from the cache.
func (c *fifoCache[V]) Clear() error {
	c.mu.Lock()
	var evicted []fifoEntry[V]
	if c.evictFn != nil {
		evicted = make([]fifoEntry[V], 0, len(c.items))
		for element := c.order.Front(); element != nil; element = element.Next() {
			evicted = append(evicted, *element.Value.(*fifoEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
	c.mu.Unlock()

	c.stats.UpdateSize(0)
	if c.metrics != nil {
		c.metrics.updateSize(0)
	}

	for _, entry := range evicted {
		c.evictFn(entry.key, entry.value)
	}
	return nil
}

// Size returns the current number of entries in the cache.
func (c *fifoCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Capacity returns the maximum number of entries.
func (c *fifoCache[V]) Capacity() int {
	return c.maxSize
}

// Keys returns keys newest first, so the next entry to be evicted is last.
func (c *fifoCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for element := c.order.Back(); element != nil; element = element.Prev() {
		keys = append(keys, element.Value.(*fifoEntry[V]).key)
	}
	return keys
}

// Stats returns cache statistics.
func (c *fifoCache[V]) Stats() *Statistics {
	return c.stats
}

// Close is a no-op; the FIFO cache owns no goroutines.
func (c *fifoCache[V]) Close() error {
	return nil
}
