package depot

import (
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// World owns every entity, component and resource. Structural changes
// (spawn, insert, remove, despawn) require exclusive access and fail with
// LockedStorageError while a cursor is live; use the Enqueue methods or
// Commands to defer them.
type World struct {
	entities   *Entities
	components *Components
	storages   Storages
	archetypes *Archetypes
	bundles    *Bundles
	resources  *SparseSet[resourceData]
	changeTick atomic.Uint32
	locks      atomic.Int32
	queue      *Commands
	logger     *zerolog.Logger
}

func newWorld() *World {
	logger := Config.logger
	w := &World{logger: &logger}
	w.entities = newEntities(Config.entityCapacity, w.logger)
	w.components = newComponents(w.logger)
	w.storages = newStorages(w.components)
	w.archetypes = newArchetypes()
	w.bundles = newBundles()
	w.resources = NewSparseSet[resourceData](16)
	w.changeTick.Store(1)
	w.queue = newCommands(w)
	return w
}

func (w *World) Entities() *Entities {
	return w.entities
}

func (w *World) Components() *Components {
	return w.components
}

func (w *World) Storages() *Storages {
	return &w.storages
}

func (w *World) Archetypes() *Archetypes {
	return w.archetypes
}

func (w *World) Bundles() *Bundles {
	return w.bundles
}

// Contains reports whether e is alive in w.
func (w *World) Contains(e Entity) bool {
	return w.entities.IsAlive(e)
}

func (w *World) ChangeTick() Tick {
	return Tick(w.changeTick.Load())
}

// IncrementChangeTick advances the change tick and returns the new value.
// Writes after this call are newer than anything a query has already seen.
func (w *World) IncrementChangeTick() Tick {
	return Tick(w.changeTick.Add(1))
}

func (w *World) Locked() bool {
	return w.locks.Load() > 0
}

// Lock blocks structural changes until a matching Unlock. Locks nest.
func (w *World) Lock() {
	w.locks.Add(1)
}

// Unlock releases one lock. Releasing the last lock applies every queued
// operation.
func (w *World) Unlock() error {
	n := w.locks.Add(-1)
	if n < 0 {
		w.locks.Store(0)
		return nil
	}
	if n > 0 {
		return nil
	}
	return w.Apply(w.queue)
}

// Spawn creates an entity carrying items. Bare handles start at their zero
// value.
func (w *World) Spawn(items ...Component) (Entity, error) {
	if w.Locked() {
		return Entity{}, LockedStorageError{}
	}
	b, writes, err := w.resolveBundle(items)
	if err != nil {
		return Entity{}, err
	}
	w.flush()
	e := w.entities.Alloc()
	w.spawnBundle(e, b, writes)
	return e, nil
}

// SpawnBatch creates n entities sharing the same components and values.
func (w *World) SpawnBatch(n int, items ...Component) ([]Entity, error) {
	if w.Locked() {
		return nil, LockedStorageError{}
	}
	if n < 0 {
		return nil, InvalidCountError{Count: n}
	}
	b, writes, err := w.resolveBundle(items)
	if err != nil {
		return nil, err
	}
	w.flush()
	target := w.archetypes.Get(w.insertBundleTarget(w.archetypes.Get(EmptyArchetype), b))
	w.storages.Tables.Get(target.tableID).reserve(n)
	entities := make([]Entity, n)
	for i := range entities {
		e := w.entities.Alloc()
		w.spawnInto(e, target, writes)
		entities[i] = e
	}
	return entities, nil
}

func (w *World) spawnBundle(e Entity, b *BundleInfo, writes []pendingWrite) {
	target := w.archetypes.Get(w.insertBundleTarget(w.archetypes.Get(EmptyArchetype), b))
	w.spawnInto(e, target, writes)
}

func (w *World) spawnInto(e Entity, target *Archetype, writes []pendingWrite) {
	tick := w.ChangeTick()
	loc := w.place(e, target, tick)
	w.entities.setLocation(e.Index, loc)
	w.applyWrites(e, loc, writes, nil, tick)
}

// Insert adds items to e with a single row move. A component e already has
// keeps its value unless the item carries a new one.
func (w *World) Insert(e Entity, items ...Component) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	b, writes, err := w.resolveBundle(items)
	if err != nil {
		return err
	}
	w.flush()
	loc, ok := w.entities.Get(e)
	if !ok {
		return EntityNotFoundError{Entity: e}
	}
	src := w.archetypes.Get(loc.Archetype)
	tick := w.ChangeTick()
	if target := w.insertBundleTarget(src, b); target != src.id {
		loc = w.moveEntity(e, loc, w.archetypes.Get(target), tick)
	}
	w.applyWrites(e, loc, writes, src, tick)
	return nil
}

// Remove drops comps from e with a single row move. Components e does not
// have are skipped; it is an error only if e has none of them.
func (w *World) Remove(e Entity, comps ...Component) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	b, _, err := w.resolveBundle(comps)
	if err != nil {
		return err
	}
	w.flush()
	loc, ok := w.entities.Get(e)
	if !ok {
		return EntityNotFoundError{Entity: e}
	}
	src := w.archetypes.Get(loc.Archetype)
	target := w.removeBundleTarget(src, b)
	if target == src.id {
		if len(b.componentIDs) == 0 {
			return nil
		}
		return ComponentNotFoundError{Entity: e, Components: w.components.names(b.componentIDs)}
	}
	w.moveEntity(e, loc, w.archetypes.Get(target), w.ChangeTick())
	return nil
}

// Despawn drops every component of e and frees its id. The next entity to
// reuse the index gets a higher generation.
func (w *World) Despawn(e Entity) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	w.flush()
	loc, ok := w.entities.Get(e)
	if !ok {
		return EntityNotFoundError{Entity: e}
	}
	arch := w.archetypes.Get(loc.Archetype)
	tableRow := arch.tableRows[loc.Row]
	if moved, swapped := arch.swapRemove(loc.Row); swapped {
		w.entities.setLocation(moved.Index, loc)
	}
	if moved, swapped := w.storages.Tables.Get(arch.tableID).swapRemove(tableRow); swapped {
		w.setTableRow(moved, tableRow)
	}
	for _, id := range arch.sparseComponents {
		w.storages.sparseSet(id).remove(e)
	}
	w.entities.Free(e)
	return nil
}

// Clear despawns every entity. Archetypes, tables, registrations and
// resources survive.
func (w *World) Clear() error {
	if w.Locked() {
		return LockedStorageError{}
	}
	w.flush()
	w.storages.clear()
	w.archetypes.clear()
	w.entities.freeAll()
	return nil
}

// EntityComponents lists the components of e in archetype order.
func (w *World) EntityComponents(e Entity) ([]ComponentID, error) {
	loc, ok := w.entities.Get(e)
	if !ok {
		return nil, EntityNotFoundError{Entity: e}
	}
	return w.archetypes.Get(loc.Archetype).Components(), nil
}

// EnqueueSpawn spawns now if w is unlocked. Otherwise it reserves the ids and
// spawns them when the last lock is released.
func (w *World) EnqueueSpawn(n int, items ...Component) ([]Entity, error) {
	if !w.Locked() {
		entities, err := w.SpawnBatch(n, items...)
		if err != nil {
			return nil, eris.Wrap(err, "failed to spawn entities directly")
		}
		return entities, nil
	}
	if n < 0 {
		return nil, InvalidCountError{Count: n}
	}
	entities := make([]Entity, n)
	for i := range entities {
		entities[i] = w.queue.Spawn(items...)
	}
	return entities, nil
}

func (w *World) EnqueueInsert(e Entity, items ...Component) error {
	if !w.Locked() {
		return w.Insert(e, items...)
	}
	w.queue.Insert(e, items...)
	return nil
}

func (w *World) EnqueueRemove(e Entity, comps ...Component) error {
	if !w.Locked() {
		return w.Remove(e, comps...)
	}
	w.queue.Remove(e, comps...)
	return nil
}

func (w *World) EnqueueDespawn(entities ...Entity) error {
	if !w.Locked() {
		for _, e := range entities {
			if err := w.Despawn(e); err != nil {
				return err
			}
		}
		return nil
	}
	w.queue.Despawn(entities...)
	return nil
}

// flush places every reserved entity in the empty archetype.
func (w *World) flush() {
	if !w.entities.NeedsFlush() {
		return
	}
	empty := w.archetypes.Get(EmptyArchetype)
	table := w.storages.Tables.Get(EmptyTable)
	tick := w.ChangeTick()
	w.entities.Flush(func(e Entity, loc *EntityLocation) {
		row := empty.push(e, table.allocate(e, tick))
		*loc = EntityLocation{Archetype: EmptyArchetype, Row: row}
	})
}

// place allocates storage for a new entity in arch.
func (w *World) place(e Entity, arch *Archetype, tick Tick) EntityLocation {
	tableRow := w.storages.Tables.Get(arch.tableID).allocate(e, tick)
	for _, id := range arch.sparseComponents {
		w.storages.sparseSet(id).insert(e, tick)
	}
	return EntityLocation{Archetype: arch.id, Row: arch.push(e, tableRow)}
}

// moveEntity migrates e from loc to dst in one pass. Shared components keep
// their values; components dst lacks are dropped; components only dst has
// start at their zero value.
func (w *World) moveEntity(e Entity, loc EntityLocation, dst *Archetype, tick Tick) EntityLocation {
	src := w.archetypes.Get(loc.Archetype)
	tableRow := src.tableRows[loc.Row]
	if moved, swapped := src.swapRemove(loc.Row); swapped {
		w.entities.setLocation(moved.Index, loc)
	}

	newTableRow := tableRow
	if src.tableID != dst.tableID {
		srcTable := w.storages.Tables.Get(src.tableID)
		dstTable := w.storages.Tables.Get(dst.tableID)
		var moved Entity
		var swapped bool
		newTableRow, moved, swapped = srcTable.moveRowTo(tableRow, dstTable, tick)
		if swapped {
			w.setTableRow(moved, tableRow)
		}
	}

	for _, id := range src.sparseComponents {
		if !dst.Contains(id) {
			w.storages.sparseSet(id).remove(e)
		}
	}
	for _, id := range dst.sparseComponents {
		if !src.Contains(id) {
			w.storages.sparseSet(id).insert(e, tick)
		}
	}

	newLoc := EntityLocation{Archetype: dst.id, Row: dst.push(e, newTableRow)}
	w.entities.setLocation(e.Index, newLoc)
	return newLoc
}

// setTableRow records that e now lives at row of its table.
func (w *World) setTableRow(e Entity, row int) {
	loc := w.entities.meta[e.Index].location
	w.archetypes.Get(loc.Archetype).tableRows[loc.Row] = row
}

// applyWrites stores supplied values. A component that src already carried
// has its old value dropped first; with a nil src every value is fresh.
func (w *World) applyWrites(e Entity, loc EntityLocation, writes []pendingWrite, src *Archetype, tick Tick) {
	if len(writes) == 0 {
		return
	}
	arch := w.archetypes.Get(loc.Archetype)
	table := w.storages.Tables.Get(arch.tableID)
	tableRow := arch.tableRows[loc.Row]
	for _, pw := range writes {
		col, row, ok := w.componentColumn(pw.id, e, table, tableRow)
		if !ok {
			panic(InvariantError{Reason: "inserted component has no storage in the target archetype"})
		}
		fresh := src == nil || !src.Contains(pw.id)
		pw.value.writeValue(col, row, tick, fresh)
	}
}

// componentColumn finds the column and row that hold id for e.
func (w *World) componentColumn(id ComponentID, e Entity, table *Table, tableRow int) (column, int, bool) {
	if w.components.Info(id).storage == StorageTable {
		col := table.column(id)
		if col == nil {
			return nil, 0, false
		}
		return col, tableRow, true
	}
	set, ok := w.storages.SparseSets.Get(uint32(id))
	if !ok {
		return nil, 0, false
	}
	row, ok := set.row(e)
	if !ok {
		return nil, 0, false
	}
	return set.column, row, true
}
