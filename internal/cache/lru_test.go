package cache

import (
	"testing"
	"time"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("get a: %d %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("missing key must not resolve")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size: %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[int](10, -time.Second) // already expired on write
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry must miss")
	}
}

func TestLRUClear(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("size after clear: %d", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatalf("clear must drop entries")
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("cache must stay usable after clear")
	}
}
