package depot

// AccessibleComponent is a typed handle for T. It names the component in
// spawns, inserts, removes and queries, and reads T back out of query items.
type AccessibleComponent[T any] struct {
	desc *ComponentDescriptor
}

func (c AccessibleComponent[T]) descriptor() *ComponentDescriptor {
	return c.desc
}

// Value pairs the handle with a value to store on spawn or insert.
func (c AccessibleComponent[T]) Value(v T) Component {
	return componentValue[T]{desc: c.desc, value: v}
}

// ID registers T in w if needed and returns its id.
func (c AccessibleComponent[T]) ID(w *World) (ComponentID, error) {
	return w.components.register(c.desc, false)
}

// Get returns a pointer to T for the item and marks it changed. The query
// must declare write access to T; the pointer is nil when an optional T is
// absent.
func (c AccessibleComponent[T]) Get(item Item) *T {
	col, row, ok := c.column(&item, true)
	if !ok {
		return nil
	}
	col.ticks(row).Changed = item.tick
	return col.get(row)
}

// Read returns a copy of T for the item, or the zero value when an optional T
// is absent. The query must declare read or write access to T.
func (c AccessibleComponent[T]) Read(item Item) T {
	col, row, ok := c.column(&item, false)
	if !ok {
		var zero T
		return zero
	}
	return *col.get(row)
}

// GetFromCursor retrieves T for the entity at the cursor position.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(cursor.current)
}

func (c AccessibleComponent[T]) ReadFromCursor(cursor *Cursor) T {
	return c.Read(cursor.current)
}

// GetFromCursorSafe is GetFromCursor for OptionalWrite fetches.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if v := c.Get(cursor.current); v != nil {
		return true, v
	}
	return false, nil
}

// CheckCursor reports whether the entity at the cursor position has T. It
// needs no declared access.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	item := cursor.current
	if item.state == nil {
		return false
	}
	w := item.state.world
	id, ok := w.components.lookup(c.desc.typ, false)
	if !ok {
		return false
	}
	_, _, ok = w.componentColumn(id, item.entity, item.table, item.tableRow)
	return ok
}

// GetFromEntity reads T straight from storage, outside any query. It marks T
// changed and must not race with queries that access T.
func (c AccessibleComponent[T]) GetFromEntity(w *World, e Entity) (*T, error) {
	loc, ok := w.entities.Get(e)
	if !ok {
		return nil, EntityNotFoundError{Entity: e}
	}
	id, ok := w.components.lookup(c.desc.typ, false)
	if !ok {
		return nil, ComponentNotFoundError{Entity: e, Components: []string{c.desc.typ.String()}}
	}
	arch := w.archetypes.Get(loc.Archetype)
	col, row, ok := w.componentColumn(id, e, w.storages.Tables.Get(arch.tableID), arch.tableRows[loc.Row])
	if !ok {
		return nil, ComponentNotFoundError{Entity: e, Components: []string{w.components.name(id)}}
	}
	col.ticks(row).Changed = w.ChangeTick()
	return col.(*typedColumn[T]).get(row), nil
}

func (c AccessibleComponent[T]) column(item *Item, write bool) (*typedColumn[T], int, bool) {
	s := item.state
	if s == nil {
		panic(InvariantError{Reason: "component read from an empty query item"})
	}
	w := s.world
	id, ok := w.components.lookup(c.desc.typ, false)
	declared := ok && s.access.access.HasRead(id)
	if write {
		declared = ok && s.access.access.HasWrite(id)
	}
	if !declared {
		panic(AccessError{Component: c.desc.typ.String(), Write: write})
	}
	col, row, ok := w.componentColumn(id, item.entity, item.table, item.tableRow)
	if !ok {
		return nil, 0, false
	}
	return col.(*typedColumn[T]), row, true
}

type componentValue[T any] struct {
	desc  *ComponentDescriptor
	value T
}

func (v componentValue[T]) descriptor() *ComponentDescriptor {
	return v.desc
}

func (v componentValue[T]) writeValue(col column, row int, tick Tick, fresh bool) {
	col.(*typedColumn[T]).set(row, v.value, tick, fresh)
}
