package depot

// Storages owns both component backends. Tables hold table components by
// component set; sparse sets are keyed by ComponentID and created the first
// time an archetype needs one.
type Storages struct {
	Tables     *Tables
	SparseSets *SparseSet[*componentSparseSet]
}

func newStorages(components *Components) Storages {
	return Storages{
		Tables:     newTables(components, Config.tableCapacity),
		SparseSets: NewSparseSet[*componentSparseSet](MaxComponents),
	}
}

func (s *Storages) sparseSet(id ComponentID) *componentSparseSet {
	set, ok := s.SparseSets.Get(uint32(id))
	if !ok {
		panic(InvariantError{Reason: "archetype references a sparse set that was never created"})
	}
	return set
}

func (s *Storages) getOrInsertSparseSet(info *ComponentInfo) *componentSparseSet {
	if set, ok := s.SparseSets.Get(uint32(info.id)); ok {
		return set
	}
	set := newComponentSparseSet(info, Config.sparseCapacity)
	s.SparseSets.Insert(uint32(info.id), set)
	return set
}

func (s *Storages) clear() {
	s.Tables.clear()
	for _, set := range s.SparseSets.Values() {
		set.clear()
	}
}
