package depot

type fetchTerm struct {
	id       ComponentID
	write    bool
	optional bool
}

// QueryState is a built query bound to one world. It caches which archetypes
// match and only examines archetypes created since the last Update.
type QueryState struct {
	world       *World
	terms       []fetchTerm
	filter      *filterNode
	rowFiltered bool
	access      FilteredAccess

	matchedArchetypes []ArchetypeID
	matchedSet        []bool
	matchedTables     []TableID
	tableSet          []bool
	generation        int

	// dense is set when every component the query touches lives in tables,
	// so matched tables can be walked row by row.
	dense   bool
	lastRun Tick
}

func newQueryState(w *World, q *query) (*QueryState, error) {
	s := &QueryState{world: w, dense: true}
	for _, term := range q.terms {
		id, err := w.components.register(term.component.descriptor(), false)
		if err != nil {
			return nil, err
		}
		for _, prev := range s.terms {
			if prev.id == id && (prev.write || term.write) {
				name := w.components.name(id)
				return nil, ConflictingAccessError{First: name, Second: name, Components: []string{name}}
			}
		}
		s.terms = append(s.terms, fetchTerm{id: id, write: term.write, optional: term.optional})
		switch {
		case term.optional && term.write:
			s.access.access.AddWrite(id)
		case term.optional:
			s.access.access.AddRead(id)
		case term.write:
			s.access.AddWrite(id)
		default:
			s.access.AddRead(id)
		}
		if w.components.Info(id).storage != StorageTable {
			s.dense = false
		}
	}

	filter, err := q.compile(w.components)
	if err != nil {
		return nil, err
	}
	s.filter = filter
	with, without := filter.constraints(&s.access.access)
	s.access.with.union(with)
	s.access.without.union(without)
	s.access.access.markNonSend(w.components)
	s.rowFiltered = filter.hasRowFilter()
	filter.visit(func(id ComponentID) {
		if w.components.Info(id).storage != StorageTable {
			s.dense = false
		}
	})
	s.Update()
	return s, nil
}

func (s *QueryState) World() *World {
	return s.world
}

func (s *QueryState) Access() *FilteredAccess {
	return &s.access
}

// IsDense reports whether iteration walks tables directly.
func (s *QueryState) IsDense() bool {
	return s.dense
}

func (s *QueryState) LastRun() Tick {
	return s.lastRun
}

// Update matches archetypes created since the last call.
func (s *QueryState) Update() {
	all := s.world.archetypes.archetypes
	for _, arch := range all[s.generation:] {
		if s.matches(arch) {
			s.addArchetype(arch)
		}
	}
	s.generation = len(all)
}

// MatchedArchetypes is in creation order.
func (s *QueryState) MatchedArchetypes() []ArchetypeID {
	s.Update()
	return s.matchedArchetypes
}

func (s *QueryState) MatchedTables() []TableID {
	s.Update()
	return s.matchedTables
}

func (s *QueryState) Matches(id ArchetypeID) bool {
	s.Update()
	return s.matchesID(id)
}

func (s *QueryState) matchesID(id ArchetypeID) bool {
	return int(id) < len(s.matchedSet) && s.matchedSet[id]
}

func (s *QueryState) matches(arch *Archetype) bool {
	if !arch.mask.ContainsAll(s.access.with.mask) {
		return false
	}
	if len(s.access.without.ids) > 0 && arch.mask.ContainsAny(s.access.without.mask) {
		return false
	}
	return s.filter.matchArchetype(arch.mask)
}

func (s *QueryState) addArchetype(arch *Archetype) {
	s.matchedArchetypes = append(s.matchedArchetypes, arch.id)
	for len(s.matchedSet) <= int(arch.id) {
		s.matchedSet = append(s.matchedSet, false)
	}
	s.matchedSet[arch.id] = true
	for len(s.tableSet) <= int(arch.tableID) {
		s.tableSet = append(s.tableSet, false)
	}
	if !s.tableSet[arch.tableID] {
		s.tableSet[arch.tableID] = true
		s.matchedTables = append(s.matchedTables, arch.tableID)
	}
}

// Get looks e up directly. It fails with EntityNotFoundError for a dead or
// stale entity and QueryMismatchError when e does not match, including a
// change filter that its row does not pass.
func (s *QueryState) Get(e Entity) (Item, error) {
	s.Update()
	w := s.world
	loc, ok := w.entities.Get(e)
	if !ok {
		return Item{}, EntityNotFoundError{Entity: e}
	}
	if !s.matchesID(loc.Archetype) {
		return Item{}, QueryMismatchError{Entity: e}
	}
	arch := w.archetypes.Get(loc.Archetype)
	item := Item{
		state:    s,
		entity:   e,
		table:    w.storages.Tables.Get(arch.tableID),
		tableRow: arch.tableRows[loc.Row],
		tick:     w.ChangeTick(),
	}
	if s.rowFiltered && !s.filter.matchRow(arch.mask, &item, s.lastRun, item.tick) {
		return Item{}, QueryMismatchError{Entity: e}
	}
	return item, nil
}

// Cursor starts a new iteration over s.
func (s *QueryState) Cursor() *Cursor {
	return newCursor(s)
}

// Item is one matched entity during iteration. It is only valid until the
// cursor that produced it advances.
type Item struct {
	state    *QueryState
	entity   Entity
	table    *Table
	tableRow int
	tick     Tick
}

func (i Item) Entity() Entity {
	return i.entity
}

func (i *Item) componentTicks(id ComponentID) *ComponentTicks {
	col, row, ok := i.state.world.componentColumn(id, i.entity, i.table, i.tableRow)
	if !ok {
		return nil
	}
	return col.ticks(row)
}
