package depot

// column is the type-erased face of a dense component array. Only the
// registry knows T; everything structural goes through this interface and
// typed access happens at the query boundary.
type column interface {
	Len() int
	pushZero(tick Tick)
	// swapRemove drops the value at row and moves the last value into it.
	swapRemove(row int)
	// moveTo appends the value at row to dst (same element type) and
	// swap-removes it here without dropping it.
	moveTo(row int, dst column)
	ticks(row int) *ComponentTicks
	reserve(n int)
	clear()
}

type typedColumn[T any] struct {
	data      []T
	tickSlots []ComponentTicks
	drops     bool
}

var _ column = &typedColumn[struct{}]{}

func newTypedColumn[T any](capacity int) *typedColumn[T] {
	_, drops := any((*T)(nil)).(Dropper)
	return &typedColumn[T]{
		data:      make([]T, 0, capacity),
		tickSlots: make([]ComponentTicks, 0, capacity),
		drops:     drops,
	}
}

func (c *typedColumn[T]) Len() int {
	return len(c.data)
}

func (c *typedColumn[T]) pushZero(tick Tick) {
	var zero T
	c.data = append(c.data, zero)
	c.tickSlots = append(c.tickSlots, ComponentTicks{Added: tick, Changed: tick})
}

func (c *typedColumn[T]) swapRemove(row int) {
	c.drop(row)
	c.swapRemoveNoDrop(row)
}

func (c *typedColumn[T]) swapRemoveNoDrop(row int) {
	last := len(c.data) - 1
	var zero T
	c.data[row] = c.data[last]
	c.data[last] = zero
	c.data = c.data[:last]
	c.tickSlots[row] = c.tickSlots[last]
	c.tickSlots = c.tickSlots[:last]
}

func (c *typedColumn[T]) moveTo(row int, dst column) {
	d := dst.(*typedColumn[T])
	d.data = append(d.data, c.data[row])
	d.tickSlots = append(d.tickSlots, c.tickSlots[row])
	c.swapRemoveNoDrop(row)
}

func (c *typedColumn[T]) ticks(row int) *ComponentTicks {
	return &c.tickSlots[row]
}

func (c *typedColumn[T]) reserve(n int) {
	if free := cap(c.data) - len(c.data); free < n {
		data := make([]T, len(c.data), len(c.data)+n)
		copy(data, c.data)
		c.data = data
		tickSlots := make([]ComponentTicks, len(c.tickSlots), len(c.tickSlots)+n)
		copy(tickSlots, c.tickSlots)
		c.tickSlots = tickSlots
	}
}

func (c *typedColumn[T]) clear() {
	for row := range c.data {
		c.drop(row)
	}
	clear(c.data)
	c.data = c.data[:0]
	c.tickSlots = c.tickSlots[:0]
}

func (c *typedColumn[T]) drop(row int) {
	if c.drops {
		any(&c.data[row]).(Dropper).Drop()
	}
}

// get returns a pointer into the column; it stays valid until the next
// structural change to the owning table or sparse set.
func (c *typedColumn[T]) get(row int) *T {
	return &c.data[row]
}

// set writes value at row. Overwriting a value that was already there drops
// it first; a freshly pushed zero value is not dropped.
func (c *typedColumn[T]) set(row int, value T, tick Tick, fresh bool) {
	if !fresh {
		c.drop(row)
	}
	c.data[row] = value
	c.tickSlots[row].Changed = tick
}
