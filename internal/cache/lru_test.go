package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_GetSetDelete(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	c.Set("alice", 1)
	c.Set("bob", 2)

	v, ok := c.Get("alice")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete("alice")
	_, ok = c.Get("alice")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache[int](10, 20*time.Millisecond)
	c.Set("k", 42)

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestLRUCache_SizeFloor(t *testing.T) {
	c := NewLRUCache[int](0, 0)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprint(i), i)
	}
	assert.Equal(t, 1, c.Size())
}
