// Package lru implements a bounded Least Recently Used cache whose entries
// may expire.
//
// The cache never reads the wall clock. Every lookup and insert takes the
// caller's notion of "now", so expiry follows whichever clock the caller
// runs on (a real one in production, a fake one in tests, log timestamps
// when replaying a file).
//
// Thread Safety: All methods are safe for concurrent access.
package lru

import (
	"container/list"
	"sync"
	"time"
)

const DefaultCapacity = 256

// Cache maps keys to values, evicting the least recently used key once
// capacity is exceeded.
type Cache[K comparable, V any] struct {
	capacity int
	mu       sync.Mutex
	order    *list.List // front = most recently used
	index    map[K]*list.Element
}

type item[K comparable, V any] struct {
	key      K
	value    V
	deadline time.Time // zero: never expires
}

func (it *item[K, V]) deadAt(now time.Time) bool {
	return !it.deadline.IsZero() && !now.Before(it.deadline)
}

// New creates a cache holding at most capacity keys (DefaultCapacity if
// capacity <= 0).
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[K]*list.Element, capacity),
	}
}

// Get returns the value stored under key and marks it recently used. An
// entry whose deadline is at or before now is dropped and reported missing.
func (c *Cache[K, V]) Get(key K, now time.Time) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.index[key]
	if !ok {
		return zero, false
	}
	it := elem.Value.(*item[K, V])
	if it.deadAt(now) {
		c.remove(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return it.value, true
}

// Put stores value under key until now+ttl. A ttl <= 0 stores it without a
// deadline. Storing an existing key replaces its value and deadline.
func (c *Cache[K, V]) Put(key K, value V, now time.Time, ttl time.Duration) {
	var deadline time.Time
	if ttl > 0 {
		deadline = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		it := elem.Value.(*item[K, V])
		it.value = value
		it.deadline = deadline
		c.order.MoveToFront(elem)
		return
	}

	c.index[key] = c.order.PushFront(&item[K, V]{key: key, value: value, deadline: deadline})
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}

func (c *Cache[K, V]) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.index, elem.Value.(*item[K, V]).key)
}

// Purge drops every entry dead at now and returns how many went.
func (c *Cache[K, V]) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*item[K, V]).deadAt(now) {
			c.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.remove(elem)
	}
}

// Len counts stored entries, including dead ones nobody has touched or
// purged yet.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}
