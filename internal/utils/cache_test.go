package utils

import (
	"fmt"
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := NewCache(10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("a", "alpha")
	v, ok := c.Get("a")
	if !ok || v.(string) != "alpha" {
		t.Fatalf("Get(a) = %v, %v; want alpha, true", v, ok)
	}

	c.Set("a", "beta")
	v, _ = c.Get("a")
	if v.(string) != "beta" {
		t.Fatalf("overwrite not applied, got %v", v)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d, want 1", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(3, 0)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes the eviction candidate.
	c.Get("k0")
	c.Set("k3", 3)

	if _, ok := c.Get("k1"); ok {
		t.Fatal("k1 should have been evicted")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Fatalf("%s should still be cached", key)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10, 10*time.Millisecond)
	c.Set("a", "alpha")

	if _, ok := c.Get("a"); !ok {
		t.Fatal("fresh entry should be readable")
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be dropped on read, Len = %d", c.Len())
	}
}

func TestCacheDelete(t *testing.T) {
	c := NewCache(10, 0)
	c.Set("a", 1)
	c.Delete("a")
	c.Delete("a") // second delete is a no-op

	if _, ok := c.Get("a"); ok {
		t.Fatal("deleted entry should miss")
	}
}
