package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestBoundedCache_SetAndGet(t *testing.T) {
	c := NewBoundedCache(10, time.Hour)

	if err := c.Set("key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	val, found := c.Get("key1")
	if !found {
		t.Fatal("Expected to find key1")
	}
	if string(val) != "value1" {
		t.Errorf("Expected value1, got %s", val)
	}

	if _, found := c.Get("missing"); found {
		t.Error("Expected miss for unknown key")
	}
}

func TestBoundedCache_ExpiredEntry(t *testing.T) {
	c := NewBoundedCache(10, time.Hour)

	// Negative TTL stores an already-expired entry.
	c.Set("stale", []byte("old"), -time.Second)

	if _, found := c.Get("stale"); found {
		t.Error("Expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be removed, have %d entries", c.Len())
	}
}

func TestBoundedCache_EvictsOldestWhenFull(t *testing.T) {
	c := NewBoundedCache(10, time.Hour)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key%d", i), []byte("v"), 0)
	}
	if c.Len() != 10 {
		t.Fatalf("Expected 10 entries, got %d", c.Len())
	}

	c.Set("key10", []byte("v"), 0)

	if c.Len() != 10 {
		t.Errorf("Expected cache to stay at capacity, got %d", c.Len())
	}
	if _, found := c.Get("key0"); found {
		t.Error("Expected oldest entry to be evicted")
	}
	if _, found := c.Get("key10"); !found {
		t.Error("Expected newest entry to be present")
	}
}

func TestBoundedCache_EvictsInBatches(t *testing.T) {
	c := NewBoundedCache(30, time.Hour)

	for i := 0; i < 30; i++ {
		c.Set(fmt.Sprintf("key%d", i), []byte("v"), 0)
	}
	c.Set("key30", []byte("v"), 0)

	// A tenth of the capacity (3 entries) goes in one batch, then one
	// insert lands.
	if c.Len() != 28 {
		t.Errorf("Expected 28 entries after batch eviction, got %d", c.Len())
	}
	for i := 0; i < 3; i++ {
		if _, found := c.Get(fmt.Sprintf("key%d", i)); found {
			t.Errorf("Expected key%d to be evicted", i)
		}
	}
	if _, found := c.Get("key3"); !found {
		t.Error("Expected key3 to survive the batch")
	}
}

func TestBoundedCache_UpdateDoesNotEvict(t *testing.T) {
	c := NewBoundedCache(5, time.Hour)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key%d", i), []byte("v"), 0)
	}
	c.Set("key2", []byte("updated"), 0)

	if c.Len() != 5 {
		t.Errorf("Expected 5 entries after update, got %d", c.Len())
	}
	val, found := c.Get("key2")
	if !found || string(val) != "updated" {
		t.Errorf("Expected updated value, got %s (found=%v)", val, found)
	}
	if _, found := c.Get("key0"); !found {
		t.Error("Expected no eviction on update of existing key")
	}
}

func TestBoundedCache_DeleteAndClear(t *testing.T) {
	c := NewBoundedCache(5, time.Hour)
	c.Set("key1", []byte("v"), 0)
	c.Set("key2", []byte("v"), 0)

	c.Delete("key1")
	if _, found := c.Get("key1"); found {
		t.Error("Expected deleted key to miss")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d entries", c.Len())
	}
}

func TestKey_Deterministic(t *testing.T) {
	k1 := Key("what is justice", "fingerprint")
	k2 := Key("what is justice", "fingerprint")
	if k1 != k2 {
		t.Error("Expected identical inputs to produce identical keys")
	}
}

func TestKey_PartBoundaries(t *testing.T) {
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected part boundaries to affect the key")
	}
}

func TestKey_Prefix(t *testing.T) {
	key := Key("anything")
	if len(key) < 11 || key[:11] != "scholia:v1:" {
		t.Errorf("Expected versioned prefix, got %s", key)
	}
}
