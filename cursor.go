package depot

import (
	"iter"
)

var _ iCursor = &Cursor{}

// Cursor walks a QueryState one entity at a time: archetype by archetype, or
// table by table on the dense path. The world is locked from the first Next
// until iteration finishes or Reset is called. Finishing an iteration
// advances the query's last-run tick, which Added and Changed compare against.
type Cursor struct {
	state   *QueryState
	world   *World
	thisRun Tick

	index  int
	row    int
	length int
	table  *Table
	arch   *Archetype

	current     Item
	initialized bool
	locked      bool
	err         error
}

func newCursor(state *QueryState) *Cursor {
	return &Cursor{
		state: state,
		world: state.world,
	}
}

func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	for {
		if c.row < c.length {
			row := c.row
			c.row++
			if c.load(row) {
				return true
			}
			continue
		}
		if !c.advance() {
			c.complete()
			return false
		}
	}
}

// Entities yields every remaining match. Breaking out early resets the
// cursor without advancing the last-run tick.
func (c *Cursor) Entities() iter.Seq2[Entity, Item] {
	return func(yield func(Entity, Item) bool) {
		for c.Next() {
			if !yield(c.current.entity, c.current) {
				c.Reset()
				return
			}
		}
	}
}

func (c *Cursor) initialize() {
	c.state.Update()
	c.world.Lock()
	c.locked = true
	c.thisRun = c.world.ChangeTick()
	c.index = -1
	c.row = 0
	c.length = 0
	c.initialized = true
}

func (c *Cursor) advance() bool {
	c.index++
	c.row = 0
	if c.state.dense {
		if c.index >= len(c.state.matchedTables) {
			return false
		}
		c.table = c.world.storages.Tables.Get(c.state.matchedTables[c.index])
		c.length = c.table.Len()
		return true
	}
	if c.index >= len(c.state.matchedArchetypes) {
		return false
	}
	c.arch = c.world.archetypes.Get(c.state.matchedArchetypes[c.index])
	c.table = c.world.storages.Tables.Get(c.arch.tableID)
	c.length = c.arch.Len()
	return true
}

// load fills current from row and applies row-level change filters.
func (c *Cursor) load(row int) bool {
	c.current = Item{state: c.state, table: c.table, tick: c.thisRun}
	m := c.table.mask
	if c.state.dense {
		c.current.entity = c.table.entities[row]
		c.current.tableRow = row
	} else {
		c.current.entity = c.arch.entities[row]
		c.current.tableRow = c.arch.tableRows[row]
		m = c.arch.mask
	}
	if !c.state.rowFiltered {
		return true
	}
	return c.state.filter.matchRow(m, &c.current, c.state.lastRun, c.thisRun)
}

func (c *Cursor) complete() {
	c.state.lastRun = c.thisRun
	c.world.IncrementChangeTick()
	c.Reset()
}

// Reset abandons the iteration and releases the world lock. Operations queued
// while locked are applied when the last lock goes; a failure there is kept
// in Err.
func (c *Cursor) Reset() {
	c.index = 0
	c.row = 0
	c.length = 0
	c.table = nil
	c.arch = nil
	c.current = Item{}
	c.initialized = false
	if c.locked {
		c.locked = false
		if err := c.world.Unlock(); err != nil {
			c.err = err
		}
	}
}

func (c *Cursor) Err() error {
	return c.err
}

// Item is the current match.
func (c *Cursor) Item() Item {
	return c.current
}

func (c *Cursor) CurrentEntity() Entity {
	return c.current.entity
}

// RemainingInStorage counts rows left in the current archetype or table,
// before change filters.
func (c *Cursor) RemainingInStorage() int {
	return c.length - c.row
}

// TotalMatched counts entities in matched archetypes, before change filters.
func (c *Cursor) TotalMatched() int {
	c.state.Update()
	total := 0
	for _, id := range c.state.matchedArchetypes {
		total += c.world.archetypes.Get(id).Len()
	}
	return total
}
