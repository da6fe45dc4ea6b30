package depot

import (
	"slices"

	"github.com/TheBitDrifter/mask"
	"github.com/kamstrup/intmap"
)

type ArchetypeID uint32

// EmptyArchetype holds entities with no components, including freshly
// flushed reservations.
const EmptyArchetype ArchetypeID = 0

type archetypeKey struct {
	table  mask.Mask
	sparse mask.Mask
}

// Edges memoizes structural transitions out of an archetype.
type Edges struct {
	add          *intmap.Map[ComponentID, ArchetypeID]
	remove       *intmap.Map[ComponentID, ArchetypeID]
	insertBundle *intmap.Map[BundleID, ArchetypeID]
	removeBundle *intmap.Map[BundleID, ArchetypeID]
}

func newEdges() Edges {
	return Edges{
		add:          intmap.New[ComponentID, ArchetypeID](4),
		remove:       intmap.New[ComponentID, ArchetypeID](4),
		insertBundle: intmap.New[BundleID, ArchetypeID](4),
		removeBundle: intmap.New[BundleID, ArchetypeID](4),
	}
}

// Add returns the archetype reached by adding id, if that edge was taken.
func (e *Edges) Add(id ComponentID) (ArchetypeID, bool) {
	return e.add.Get(id)
}

// Remove returns the archetype reached by removing id, if that edge was taken.
func (e *Edges) Remove(id ComponentID) (ArchetypeID, bool) {
	return e.remove.Get(id)
}

// Archetype is one unique component set. Its entities live in a single table
// (possibly shared with archetypes that differ only in sparse components)
// plus one sparse set per sparse component.
type Archetype struct {
	id               ArchetypeID
	mask             mask.Mask
	tableID          TableID
	tableComponents  []ComponentID
	sparseComponents []ComponentID
	entities         []Entity
	// tableRows[i] is the table row of entities[i].
	tableRows []int
	edges     Edges
}

func (a *Archetype) ID() ArchetypeID {
	return a.id
}

func (a *Archetype) Mask() mask.Mask {
	return a.mask
}

func (a *Archetype) TableID() TableID {
	return a.tableID
}

// Components lists table components then sparse components, each sorted.
func (a *Archetype) Components() []ComponentID {
	ids := make([]ComponentID, 0, len(a.tableComponents)+len(a.sparseComponents))
	ids = append(ids, a.tableComponents...)
	return append(ids, a.sparseComponents...)
}

func (a *Archetype) TableComponents() []ComponentID {
	return a.tableComponents
}

func (a *Archetype) SparseComponents() []ComponentID {
	return a.sparseComponents
}

func (a *Archetype) Entities() []Entity {
	return a.entities
}

func (a *Archetype) Len() int {
	return len(a.entities)
}

func (a *Archetype) Edges() *Edges {
	return &a.edges
}

func (a *Archetype) Contains(id ComponentID) bool {
	return maskHas(a.mask, id)
}

func (a *Archetype) push(e Entity, tableRow int) int {
	a.entities = append(a.entities, e)
	a.tableRows = append(a.tableRows, tableRow)
	return len(a.entities) - 1
}

// swapRemove reports the entity moved into row, if any.
func (a *Archetype) swapRemove(row int) (Entity, bool) {
	last := len(a.entities) - 1
	swapped := row != last
	if swapped {
		a.entities[row] = a.entities[last]
		a.tableRows[row] = a.tableRows[last]
	}
	a.entities = a.entities[:last]
	a.tableRows = a.tableRows[:last]
	if swapped {
		return a.entities[row], true
	}
	return Entity{}, false
}

func (a *Archetype) clear() {
	a.entities = a.entities[:0]
	a.tableRows = a.tableRows[:0]
}

// Archetypes is the archetype graph. Ids are dense and nodes are never
// removed, so cached ids and edges stay valid for the life of the world.
type Archetypes struct {
	archetypes []*Archetype
	ids        map[archetypeKey]ArchetypeID
}

func newArchetypes() *Archetypes {
	as := &Archetypes{ids: make(map[archetypeKey]ArchetypeID)}
	empty := &Archetype{id: EmptyArchetype, tableID: EmptyTable, edges: newEdges()}
	as.archetypes = append(as.archetypes, empty)
	as.ids[archetypeKey{}] = EmptyArchetype
	return as
}

func (as *Archetypes) Get(id ArchetypeID) *Archetype {
	if int(id) >= len(as.archetypes) {
		return nil
	}
	return as.archetypes[id]
}

func (as *Archetypes) Len() int {
	return len(as.archetypes)
}

// Generation increases every time an archetype is created. Queries compare
// it with the generation they last scanned.
func (as *Archetypes) Generation() int {
	return len(as.archetypes)
}

func (as *Archetypes) All() []*Archetype {
	return as.archetypes
}

func (as *Archetypes) clear() {
	for _, a := range as.archetypes {
		a.clear()
	}
}

// GetOrCreateArchetype returns the archetype holding exactly ids, creating it
// and its table on first use. Order and repetition in ids do not matter.
func (w *World) GetOrCreateArchetype(ids ...ComponentID) (ArchetypeID, error) {
	for _, id := range ids {
		info := w.components.Info(id)
		if info == nil || info.resource {
			return 0, UnregisteredComponentError{ID: id}
		}
	}
	return w.getOrCreateArchetype(ids), nil
}

func (w *World) getOrCreateArchetype(ids []ComponentID) ArchetypeID {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var key archetypeKey
	var tableIDs, sparseIDs []ComponentID
	for _, id := range sorted {
		if w.components.Info(id).storage == StorageSparseSet {
			key.sparse.Mark(uint32(id))
			sparseIDs = append(sparseIDs, id)
			continue
		}
		key.table.Mark(uint32(id))
		tableIDs = append(tableIDs, id)
	}
	as := w.archetypes
	if id, ok := as.ids[key]; ok {
		return id
	}

	tableID, created := w.storages.Tables.getOrInsert(tableIDs, w.components, Config.tableCapacity)
	if created {
		logTableCreated(w.logger, w.storages.Tables.Get(tableID), w.components)
	}
	for _, sid := range sparseIDs {
		w.storages.getOrInsertSparseSet(w.components.Info(sid))
	}

	arch := &Archetype{
		id:               ArchetypeID(len(as.archetypes)),
		tableID:          tableID,
		tableComponents:  tableIDs,
		sparseComponents: sparseIDs,
		edges:            newEdges(),
	}
	for _, id := range sorted {
		arch.mask.Mark(uint32(id))
	}
	as.archetypes = append(as.archetypes, arch)
	as.ids[key] = arch.id
	logArchetypeCreated(w.logger, arch, w.components)
	return arch.id
}

// insertBundleTarget follows or creates the edge for adding every component
// of b to src.
func (w *World) insertBundleTarget(src *Archetype, b *BundleInfo) ArchetypeID {
	if id, ok := src.edges.insertBundle.Get(b.id); ok {
		return id
	}
	if len(b.componentIDs) == 0 {
		return src.id
	}
	var target ArchetypeID
	single := len(b.componentIDs) == 1
	if id, ok := src.edges.add.Get(b.componentIDs[0]); single && ok {
		target = id
	} else {
		ids := append(src.Components(), b.componentIDs...)
		target = w.getOrCreateArchetype(ids)
	}
	src.edges.insertBundle.Put(b.id, target)
	if single && target != src.id {
		w.recordEdge(src.id, target, b.componentIDs[0])
	}
	return target
}

// removeBundleTarget follows or creates the edge for removing every component
// of b from src. Components of b that src lacks are ignored.
func (w *World) removeBundleTarget(src *Archetype, b *BundleInfo) ArchetypeID {
	if id, ok := src.edges.removeBundle.Get(b.id); ok {
		return id
	}
	if len(b.componentIDs) == 0 {
		return src.id
	}
	var target ArchetypeID
	single := len(b.componentIDs) == 1
	if id, ok := src.edges.remove.Get(b.componentIDs[0]); single && ok {
		target = id
	} else {
		ids := make([]ComponentID, 0, len(src.tableComponents)+len(src.sparseComponents))
		for _, id := range src.Components() {
			if !maskHas(b.mask, id) {
				ids = append(ids, id)
			}
		}
		target = w.getOrCreateArchetype(ids)
	}
	src.edges.removeBundle.Put(b.id, target)
	if single && target != src.id {
		w.recordEdge(target, src.id, b.componentIDs[0])
	}
	return target
}

// recordEdge stores both directions of a single-component transition.
func (w *World) recordEdge(from, to ArchetypeID, id ComponentID) {
	w.archetypes.Get(from).edges.add.Put(id, to)
	w.archetypes.Get(to).edges.remove.Put(id, from)
}

func maskHas(m mask.Mask, id ComponentID) bool {
	var bit mask.Mask
	bit.Mark(uint32(id))
	return m.ContainsAll(bit)
}
