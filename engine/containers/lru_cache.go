package containers

import (
	"sync"

	"github.com/spaghettifunk/vkbinder/engine/core"
)

// KeyPolicy defines identity for cache keys that cannot rely on Go's built-in
// equality, e.g. keys with don't-care slots. Equal keys must hash equally.
type KeyPolicy[K any] interface {
	Hash(key K) uint64
	Equal(a, b K) bool
}

// LRUCache maps keys to values created on demand, keeping at most capacity
// entries. The least recently used entry is evicted first and handed to the
// eviction hook so the owner can release whatever the value holds.
//
// A single mutex guards each call, including the create callback, so at most
// one creation runs at a time per cache. A capacity of 0 disables caching:
// every GetOrCreate creates a fresh value and evicts it before returning.
type LRUCache[K any, V any] struct {
	mutex    sync.Mutex
	capacity int
	onEvict  func(key K, value V)
	nodes    *HashMap[K, *lruNode[K, V]]
	list     lruList[K, V]
	metrics  core.CacheMetrics
}

// NewLRUCache creates a cache. onEvict may be nil. Negative capacities are
// treated as 0.
func NewLRUCache[K any, V any](capacity int, policy KeyPolicy[K], onEvict func(key K, value V)) *LRUCache[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		onEvict:  onEvict,
		nodes:    NewHashMap[K, *lruNode[K, V]](policy),
	}
}

// GetOrCreate returns the cached value for key, promoting it to most recently
// used. On a miss it calls create; if create fails the cache is left exactly as
// it was and the error is returned.
func (c *LRUCache[K, V]) GetOrCreate(key K, create func(K) (V, error)) (V, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.nodes.Get(key); ok {
		c.metrics.Hit()
		c.list.MoveToFront(node)
		return node.value, nil
	}
	c.metrics.Miss()

	value, err := create(key)
	if err != nil {
		var zero V
		return zero, err
	}

	if c.capacity == 0 {
		c.evict(key, value)
		return value, nil
	}

	c.nodes.Put(key, c.list.PushFront(key, value))

	for c.list.Len() > c.capacity {
		c.removeNode(c.list.Back())
	}
	return value, nil
}

// Contains reports whether key is cached without touching its recency.
func (c *LRUCache[K, V]) Contains(key K) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.nodes.Get(key)
	return ok
}

// RemoveIf evicts every entry for which pred returns true and returns how many
// were removed.
func (c *LRUCache[K, V]) RemoveIf(pred func(K, V) bool) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for node := c.list.head; node != nil; {
		next := node.next
		if pred(node.key, node.value) {
			c.removeNode(node)
			removed++
		}
		node = next
	}
	return removed
}

// Clear evicts every entry.
func (c *LRUCache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for node := c.list.Back(); node != nil; node = c.list.Back() {
		c.removeNode(node)
	}
}

func (c *LRUCache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.list.Len()
}

func (c *LRUCache[K, V]) Capacity() int {
	return c.capacity
}

func (c *LRUCache[K, V]) Stats() core.CacheStats {
	return c.metrics.Snapshot()
}

func (c *LRUCache[K, V]) removeNode(node *lruNode[K, V]) {
	c.nodes.Delete(node.key)
	c.list.Remove(node)
	c.evict(node.key, node.value)
}

func (c *LRUCache[K, V]) evict(key K, value V) {
	c.metrics.Evict()
	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}
