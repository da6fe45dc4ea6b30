package depot

import (
	"errors"
	"strconv"
	"testing"
)

// TestCacheBasicOperations tests the basic operations of the SimpleCache
func TestCacheBasicOperations(t *testing.T) {
	const capacity = 10
	cache := FactoryNewCache[string, string](capacity)

	items := []string{"item1", "item2", "item3", "item4", "item5"}
	indices := make([]int, len(items))

	for i, item := range items {
		index, err := cache.Register(item, item)
		if err != nil {
			t.Errorf("Failed to register item %s: %v", item, err)
		}
		indices[i] = index

		// Indices are dense and start at 0
		if index != i {
			t.Errorf("Index for item %s is %d, expected %d", item, index, i)
		}
	}

	for i, item := range items {
		index, found := cache.GetIndex(item)
		if !found {
			t.Errorf("Item %s not found in cache", item)
		}
		if index != indices[i] {
			t.Errorf("Index for item %s is %d, expected %d", item, index, indices[i])
		}
	}

	for i, item := range items {
		cachedItem := cache.GetItem(indices[i])
		if cachedItem == nil || *cachedItem != item {
			t.Errorf("Item at index %d is %v, expected %s", indices[i], cachedItem, item)
		}
	}

	for i, item := range items {
		cachedItem := cache.GetItem32(uint32(indices[i]))
		if cachedItem == nil || *cachedItem != item {
			t.Errorf("Item at index %d is %v, expected %s", indices[i], cachedItem, item)
		}
	}

	if _, found := cache.GetIndex("nonexistent"); found {
		t.Errorf("Found non-existent item in cache")
	}
	if item := cache.GetItem(len(items)); item != nil {
		t.Errorf("GetItem past the end returned %v, expected nil", *item)
	}
	if item := cache.GetItem(-1); item != nil {
		t.Errorf("GetItem(-1) returned %v, expected nil", *item)
	}
}

// TestCacheCapacity tests the cache capacity limits
func TestCacheCapacity(t *testing.T) {
	const capacity = 5
	cache := FactoryNewCache[string, int](capacity)

	for i := 1; i <= capacity; i++ {
		key := "item" + strconv.Itoa(i)
		if _, err := cache.Register(key, i); err != nil {
			t.Errorf("Failed to register item %s: %v", key, err)
		}
	}

	_, err := cache.Register("overflow", 100)
	if err == nil {
		t.Fatalf("Expected error when exceeding capacity, got nil")
	}
	var capErr CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected CapacityError, got %T", err)
	}
	if capErr.Max != capacity {
		t.Errorf("CapacityError.Max = %d, expected %d", capErr.Max, capacity)
	}
}

func TestCacheClear(t *testing.T) {
	cache := newSimpleCache[int, string](4)
	for i := 0; i < 4; i++ {
		if _, err := cache.Register(i, strconv.Itoa(i)); err != nil {
			t.Fatalf("Failed to register %d: %v", i, err)
		}
	}

	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("Len after Clear = %d, expected 0", cache.Len())
	}
	if _, found := cache.GetIndex(2); found {
		t.Errorf("Key survived Clear")
	}
	index, err := cache.Register(7, "seven")
	if err != nil {
		t.Fatalf("Register after Clear failed: %v", err)
	}
	if index != 0 {
		t.Errorf("First index after Clear = %d, expected 0", index)
	}
}
