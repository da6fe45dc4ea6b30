package depot

var _ Cache[string, any] = &SimpleCache[string, any]{}

// SimpleCache hands out dense indices for keys and stores one item per index.
// Lookup by index is a slice access; lookup by key goes through the map.
// Items never move, so pointers from GetItem stay valid until Clear.
type SimpleCache[K comparable, T any] struct {
	itemIndices map[K]int
	items       []T
	maxCapacity int
}

func newSimpleCache[K comparable, T any](capacity int) *SimpleCache[K, T] {
	return &SimpleCache[K, T]{
		itemIndices: make(map[K]int),
		items:       make([]T, 0, capacity),
		maxCapacity: capacity,
	}
}

func (c *SimpleCache[K, T]) GetIndex(key K) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

// GetItem returns nil for an index that was never handed out.
func (c *SimpleCache[K, T]) GetItem(index int) *T {
	if index < 0 || index >= len(c.items) {
		return nil
	}
	return &c.items[index]
}

func (c *SimpleCache[K, T]) GetItem32(index uint32) *T {
	return c.GetItem(int(index))
}

func (c *SimpleCache[K, T]) Register(key K, item T) (int, error) {
	if len(c.items) >= c.maxCapacity {
		return -1, CapacityError{Max: c.maxCapacity}
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[K, T]) Len() int {
	return len(c.items)
}

func (c *SimpleCache[K, T]) Clear() {
	clear(c.items)
	c.items = c.items[:0]
	clear(c.itemIndices)
}
