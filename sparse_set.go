package depot

import "iter"

// SparseSet maps small integer keys to values kept densely packed. Lookups go
// through one indirection; removal swaps the last dense value into the hole.
type SparseSet[V any] struct {
	sparse []int32
	dense  []V
	keys   []uint32
}

func NewSparseSet[V any](capacity int) *SparseSet[V] {
	return &SparseSet[V]{
		dense: make([]V, 0, capacity),
		keys:  make([]uint32, 0, capacity),
	}
}

// Insert stores value under key, overwriting any existing value.
func (s *SparseSet[V]) Insert(key uint32, value V) {
	if slot, ok := s.indexOf(key); ok {
		s.dense[slot] = value
		return
	}
	s.grow(key)
	s.sparse[key] = int32(len(s.dense))
	s.dense = append(s.dense, value)
	s.keys = append(s.keys, key)
}

func (s *SparseSet[V]) Get(key uint32) (V, bool) {
	slot, ok := s.indexOf(key)
	if !ok {
		var zero V
		return zero, false
	}
	return s.dense[slot], true
}

// GetMut returns a pointer that is valid until the next Insert or Remove.
func (s *SparseSet[V]) GetMut(key uint32) (*V, bool) {
	slot, ok := s.indexOf(key)
	if !ok {
		return nil, false
	}
	return &s.dense[slot], true
}

func (s *SparseSet[V]) Contains(key uint32) bool {
	_, ok := s.indexOf(key)
	return ok
}

func (s *SparseSet[V]) Remove(key uint32) (V, bool) {
	slot, ok := s.indexOf(key)
	if !ok {
		var zero V
		return zero, false
	}
	removed := s.dense[slot]
	last := len(s.dense) - 1
	if slot != last {
		s.dense[slot] = s.dense[last]
		s.keys[slot] = s.keys[last]
		s.sparse[s.keys[slot]] = int32(slot)
	}
	var zero V
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.keys = s.keys[:last]
	s.sparse[key] = -1
	return removed, true
}

func (s *SparseSet[V]) Len() int {
	return len(s.dense)
}

// Keys and Values share dense order.
func (s *SparseSet[V]) Keys() []uint32 {
	return s.keys
}

func (s *SparseSet[V]) Values() []V {
	return s.dense
}

func (s *SparseSet[V]) All() iter.Seq2[uint32, V] {
	return func(yield func(uint32, V) bool) {
		for slot, key := range s.keys {
			if !yield(key, s.dense[slot]) {
				return
			}
		}
	}
}

func (s *SparseSet[V]) Clear() {
	clear(s.dense)
	s.dense = s.dense[:0]
	s.keys = s.keys[:0]
	for i := range s.sparse {
		s.sparse[i] = -1
	}
}

func (s *SparseSet[V]) indexOf(key uint32) (int, bool) {
	if int(key) >= len(s.sparse) {
		return 0, false
	}
	slot := s.sparse[key]
	if slot < 0 {
		return 0, false
	}
	return int(slot), true
}

func (s *SparseSet[V]) grow(key uint32) {
	for int(key) >= len(s.sparse) {
		s.sparse = append(s.sparse, -1)
	}
}

// componentSparseSet stores one sparse-set component for every entity that
// carries it, keyed by entity index. Dense slot i of the set and row i of the
// column always belong to the same entity.
type componentSparseSet struct {
	id       ComponentID
	entities *SparseSet[Entity]
	column   column
}

func newComponentSparseSet(info *ComponentInfo, capacity int) *componentSparseSet {
	return &componentSparseSet{
		id:       info.id,
		entities: NewSparseSet[Entity](capacity),
		column:   info.newColumn(capacity),
	}
}

// insert adds a zero value for e unless it is already present. The returned
// row addresses the column.
func (s *componentSparseSet) insert(e Entity, tick Tick) (row int, added bool) {
	if row, ok := s.row(e); ok {
		return row, false
	}
	s.entities.Insert(e.Index, e)
	s.column.pushZero(tick)
	s.verify()
	return s.column.Len() - 1, true
}

func (s *componentSparseSet) row(e Entity) (int, bool) {
	slot, ok := s.entities.indexOf(e.Index)
	if !ok || s.entities.dense[slot] != e {
		return 0, false
	}
	return slot, true
}

func (s *componentSparseSet) contains(e Entity) bool {
	_, ok := s.row(e)
	return ok
}

func (s *componentSparseSet) remove(e Entity) bool {
	row, ok := s.row(e)
	if !ok {
		return false
	}
	s.entities.Remove(e.Index)
	s.column.swapRemove(row)
	s.verify()
	return true
}

func (s *componentSparseSet) Len() int {
	return s.entities.Len()
}

func (s *componentSparseSet) clear() {
	s.entities.Clear()
	s.column.clear()
}

func (s *componentSparseSet) verify() {
	if s.column.Len() != s.entities.Len() {
		panic(InvariantError{Reason: "sparse set column length does not match its entity count"})
	}
}
