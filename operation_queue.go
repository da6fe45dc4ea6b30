package depot

import (
	"github.com/rotisserie/eris"
)

type operationType int

const (
	opSpawn operationType = iota
	opInsert
	opRemove
	opDespawn
)

type operation struct {
	typ       operationType
	entity    Entity
	items     []Component
	cancelled bool
}

// Commands records structural changes to apply later with World.Apply.
// Spawned ids are reserved immediately, so they can be stored in components
// before they exist. A Commands value belongs to one goroutine, but any number
// of them may record spawns concurrently while the world is being read.
type Commands struct {
	world          *World
	createOps      []operation
	componentOps   []operation
	destroyOps     []operation
	pendingDestroy map[Entity]struct{}
	pendingMods    map[Entity][]int
}

func newCommands(w *World) *Commands {
	return &Commands{
		world:          w,
		pendingDestroy: make(map[Entity]struct{}),
		pendingMods:    make(map[Entity][]int),
	}
}

// Commands returns an empty command queue for w.
func (w *World) Commands() *Commands {
	return newCommands(w)
}

// Spawn reserves an entity that will carry items once applied.
func (c *Commands) Spawn(items ...Component) Entity {
	e := c.world.entities.Reserve()
	c.createOps = append(c.createOps, operation{typ: opSpawn, entity: e, items: items})
	return e
}

func (c *Commands) Insert(e Entity, items ...Component) {
	c.enqueueComponentOp(opInsert, e, items)
}

func (c *Commands) Remove(e Entity, comps ...Component) {
	c.enqueueComponentOp(opRemove, e, comps)
}

// Despawn cancels every component operation already recorded for entities.
func (c *Commands) Despawn(entities ...Entity) {
	for _, e := range entities {
		if _, queued := c.pendingDestroy[e]; queued {
			continue
		}
		c.pendingDestroy[e] = struct{}{}
		for _, idx := range c.pendingMods[e] {
			c.componentOps[idx].cancelled = true
		}
		delete(c.pendingMods, e)
		c.destroyOps = append(c.destroyOps, operation{typ: opDespawn, entity: e})
	}
}

// Len is the number of recorded operations, cancelled ones included.
func (c *Commands) Len() int {
	return len(c.createOps) + len(c.componentOps) + len(c.destroyOps)
}

func (c *Commands) enqueueComponentOp(typ operationType, e Entity, items []Component) {
	if _, destroyed := c.pendingDestroy[e]; destroyed {
		return
	}
	c.pendingMods[e] = append(c.pendingMods[e], len(c.componentOps))
	c.componentOps = append(c.componentOps, operation{typ: typ, entity: e, items: items})
}

func (c *Commands) reset() {
	c.createOps = c.createOps[:0]
	c.componentOps = c.componentOps[:0]
	c.destroyOps = c.destroyOps[:0]
	clear(c.pendingDestroy)
	clear(c.pendingMods)
}

// Apply runs the recorded spawns, then component changes, then despawns, and
// empties cmds. Operations on entities that are no longer alive are skipped.
// The first failure stops the run; the rest of cmds is discarded.
func (w *World) Apply(cmds *Commands) error {
	if w.Locked() {
		return LockedStorageError{}
	}
	if cmds.world != w {
		return eris.New("commands were recorded for a different world")
	}
	defer cmds.reset()
	w.flush()
	if cmds.Len() == 0 {
		return nil
	}

	for _, op := range cmds.createOps {
		if !w.Contains(op.entity) {
			continue
		}
		if err := w.Insert(op.entity, op.items...); err != nil {
			return eris.Wrapf(err, "failed to apply queued spawn of %v", op.entity)
		}
	}

	for _, op := range cmds.componentOps {
		if op.cancelled || !w.Contains(op.entity) {
			continue
		}
		switch op.typ {
		case opInsert:
			if err := w.Insert(op.entity, op.items...); err != nil {
				return eris.Wrapf(err, "failed to apply queued insert on %v", op.entity)
			}
		case opRemove:
			if err := w.Remove(op.entity, op.items...); err != nil {
				return eris.Wrapf(err, "failed to apply queued remove on %v", op.entity)
			}
		}
	}

	for _, op := range cmds.destroyOps {
		if !w.Contains(op.entity) {
			continue
		}
		if err := w.Despawn(op.entity); err != nil {
			return eris.Wrapf(err, "failed to apply queued despawn of %v", op.entity)
		}
	}
	return nil
}
