package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUCache is a size-bounded cache whose entries expire after a TTL.
// Expired entries are purged in the background by the underlying LRU.
type LRUCache[T any] struct {
	lru *expirable.LRU[string, T]
}

var _ Cache[int] = (*LRUCache[int])(nil)

// NewLRUCache creates a new LRU cache with TTL. A non-positive ttl disables
// expiry.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize <= 0 {
		maxSize = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRUCache[T]{lru: expirable.NewLRU[string, T](maxSize, nil, ttl)}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.lru.Add(key, data)
}

func (c *LRUCache[T]) Delete(key string) {
	c.lru.Remove(key)
}

func (c *LRUCache[T]) Size() int {
	return c.lru.Len()
}
