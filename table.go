package depot

import (
	"github.com/TheBitDrifter/mask"
	"github.com/rs/zerolog"
)

type TableID uint32

// EmptyTable backs every archetype without table components.
const EmptyTable TableID = 0

// Table is column-major storage for one set of table components. Row r of
// every column and of entities belongs to the same entity.
type Table struct {
	id           TableID
	mask         mask.Mask
	componentIDs []ComponentID
	columns      []column
	// columnIndex maps ComponentID to a position in columns, -1 if absent.
	columnIndex []int32
	entities    []Entity
	logger      *zerolog.Logger
}

func newTable(id TableID, ids []ComponentID, components *Components, capacity int) *Table {
	t := &Table{
		id:           id,
		componentIDs: ids,
		columns:      make([]column, len(ids)),
		entities:     make([]Entity, 0, capacity),
		logger:       components.logger,
	}
	var maxID ComponentID
	for _, cid := range ids {
		maxID = max(maxID, cid)
	}
	if len(ids) > 0 {
		t.columnIndex = make([]int32, maxID+1)
		for i := range t.columnIndex {
			t.columnIndex[i] = -1
		}
	}
	for i, cid := range ids {
		t.mask.Mark(uint32(cid))
		t.columns[i] = components.Info(cid).newColumn(capacity)
		t.columnIndex[cid] = int32(i)
	}
	return t
}

func (t *Table) ID() TableID {
	return t.id
}

func (t *Table) Len() int {
	return len(t.entities)
}

func (t *Table) Mask() mask.Mask {
	return t.mask
}

func (t *Table) Components() []ComponentID {
	return t.componentIDs
}

// Entities is in row order.
func (t *Table) Entities() []Entity {
	return t.entities
}

func (t *Table) Contains(id ComponentID) bool {
	return t.column(id) != nil
}

func (t *Table) column(id ComponentID) column {
	if int(id) >= len(t.columnIndex) {
		return nil
	}
	idx := t.columnIndex[id]
	if idx < 0 {
		return nil
	}
	return t.columns[idx]
}

// allocate appends a zero-valued row for e.
func (t *Table) allocate(e Entity, tick Tick) int {
	for _, col := range t.columns {
		col.pushZero(tick)
	}
	t.entities = append(t.entities, e)
	t.verify()
	return len(t.entities) - 1
}

func (t *Table) reserve(n int) {
	for _, col := range t.columns {
		col.reserve(n)
	}
	if free := cap(t.entities) - len(t.entities); free < n {
		entities := make([]Entity, len(t.entities), len(t.entities)+n)
		copy(entities, t.entities)
		t.entities = entities
	}
}

// swapRemove drops row and moves the last row into it. It reports the entity
// that now occupies row, if any moved.
func (t *Table) swapRemove(row int) (Entity, bool) {
	for _, col := range t.columns {
		col.swapRemove(row)
	}
	return t.removeEntity(row)
}

// moveRowTo moves row into dst. Shared columns move across, columns only dst
// has get a zero value, columns only t has are dropped. The source row is
// swap-removed.
func (t *Table) moveRowTo(row int, dst *Table, tick Tick) (newRow int, moved Entity, swapped bool) {
	e := t.entities[row]
	newRow = len(dst.entities)
	for i, cid := range t.componentIDs {
		col := t.columns[i]
		if dcol := dst.column(cid); dcol != nil {
			col.moveTo(row, dcol)
		} else {
			col.swapRemove(row)
		}
	}
	for i, cid := range dst.componentIDs {
		if t.column(cid) == nil {
			dst.columns[i].pushZero(tick)
		}
	}
	dst.entities = append(dst.entities, e)
	moved, swapped = t.removeEntity(row)
	t.verify()
	dst.verify()
	return newRow, moved, swapped
}

func (t *Table) removeEntity(row int) (Entity, bool) {
	last := len(t.entities) - 1
	swapped := row != last
	if swapped {
		t.entities[row] = t.entities[last]
	}
	t.entities = t.entities[:last]
	if swapped {
		return t.entities[row], true
	}
	return Entity{}, false
}

func (t *Table) clear() {
	for _, col := range t.columns {
		col.clear()
	}
	t.entities = t.entities[:0]
}

func (t *Table) verify() {
	for _, col := range t.columns {
		if col.Len() != len(t.entities) {
			t.logger.Error().Uint32("table", uint32(t.id)).Int("rows", len(t.entities)).Int("column_rows", col.Len()).Msg("table column length mismatch")
			panic(InvariantError{Reason: "table column length does not match row count"})
		}
	}
}

// Tables owns every table, deduplicated by component set.
type Tables struct {
	tables []*Table
	byMask map[mask.Mask]TableID
}

func newTables(components *Components, capacity int) *Tables {
	ts := &Tables{byMask: make(map[mask.Mask]TableID)}
	empty := newTable(EmptyTable, nil, components, capacity)
	ts.tables = append(ts.tables, empty)
	ts.byMask[empty.mask] = EmptyTable
	return ts
}

// getOrInsert expects ids sorted and deduplicated.
func (ts *Tables) getOrInsert(ids []ComponentID, components *Components, capacity int) (TableID, bool) {
	var key mask.Mask
	for _, cid := range ids {
		key.Mark(uint32(cid))
	}
	if id, ok := ts.byMask[key]; ok {
		return id, false
	}
	id := TableID(len(ts.tables))
	ts.tables = append(ts.tables, newTable(id, ids, components, capacity))
	ts.byMask[key] = id
	return id, true
}

func (ts *Tables) Get(id TableID) *Table {
	if int(id) >= len(ts.tables) {
		return nil
	}
	return ts.tables[id]
}

func (ts *Tables) Len() int {
	return len(ts.tables)
}

func (ts *Tables) clear() {
	for _, t := range ts.tables {
		t.clear()
	}
}
