package depot

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

type entityMeta struct {
	generation uint32
	alive      bool
	location   EntityLocation
}

// Entities allocates and recycles entity identities.
//
// Reserve may be called from any number of goroutines while the rest of the
// world is only being read; every other method requires exclusive access.
type Entities struct {
	meta    []entityMeta
	pending []uint32

	// freeCursor counts down through pending as ids are reserved. Once it goes
	// negative, -freeCursor ids past the end of meta have been handed out.
	freeCursor atomic.Int64
	len        int
	logger     *zerolog.Logger
}

func newEntities(capacity int, logger *zerolog.Logger) *Entities {
	return &Entities{
		meta:   make([]entityMeta, 0, capacity),
		logger: logger,
	}
}

// Reserve hands out an id that is stable immediately but has no storage until
// the next Flush.
func (es *Entities) Reserve() Entity {
	n := es.freeCursor.Add(-1)
	if n >= 0 {
		index := es.pending[n]
		return Entity{Index: index, Generation: es.meta[index].generation}
	}
	return Entity{Index: uint32(int64(len(es.meta)) - n - 1)}
}

// ReserveN reserves n ids at once.
func (es *Entities) ReserveN(n int) []Entity {
	reserved := make([]Entity, n)
	for i := range reserved {
		reserved[i] = es.Reserve()
	}
	return reserved
}

// Alloc returns a live entity. Outstanding reservations must be flushed first.
func (es *Entities) Alloc() Entity {
	es.verifyFlushed()
	if n := len(es.pending); n > 0 {
		index := es.pending[n-1]
		es.pending = es.pending[:n-1]
		es.freeCursor.Store(int64(len(es.pending)))
		m := &es.meta[index]
		m.alive = true
		es.len++
		return Entity{Index: index, Generation: m.generation}
	}
	index := uint32(len(es.meta))
	es.meta = append(es.meta, entityMeta{alive: true})
	es.len++
	return Entity{Index: index}
}

// Free releases e and returns where it was stored. Freeing a dead or stale
// entity is a no-op that reports false.
func (es *Entities) Free(e Entity) (EntityLocation, bool) {
	es.verifyFlushed()
	if !es.IsAlive(e) {
		es.logger.Trace().Stringer("entity", e).Msg("free of dead entity ignored")
		return EntityLocation{}, false
	}
	m := &es.meta[e.Index]
	loc := m.location
	m.generation++
	m.alive = false
	m.location = EntityLocation{}
	es.pending = append(es.pending, e.Index)
	es.freeCursor.Store(int64(len(es.pending)))
	es.len--
	return loc, true
}

func (es *Entities) IsAlive(e Entity) bool {
	if int(e.Index) >= len(es.meta) {
		return false
	}
	m := es.meta[e.Index]
	return m.alive && m.generation == e.Generation
}

func (es *Entities) Get(e Entity) (EntityLocation, bool) {
	if !es.IsAlive(e) {
		return EntityLocation{}, false
	}
	return es.meta[e.Index].location, true
}

// Len is the number of live entities, excluding unflushed reservations.
func (es *Entities) Len() int {
	return es.len
}

func (es *Entities) NeedsFlush() bool {
	return es.freeCursor.Load() != int64(len(es.pending))
}

// Flush materializes every reserved id. init places the new entity in storage
// and fills in its location.
func (es *Entities) Flush(init func(Entity, *EntityLocation)) {
	cursor := es.freeCursor.Load()
	if cursor == int64(len(es.pending)) {
		return
	}
	newFree := cursor
	if cursor < 0 {
		oldLen := len(es.meta)
		newLen := oldLen + int(-cursor)
		for len(es.meta) < newLen {
			es.meta = append(es.meta, entityMeta{})
		}
		for i := oldLen; i < newLen; i++ {
			m := &es.meta[i]
			m.alive = true
			es.len++
			init(Entity{Index: uint32(i), Generation: m.generation}, &m.location)
		}
		newFree = 0
	}
	for _, index := range es.pending[newFree:] {
		m := &es.meta[index]
		m.alive = true
		es.len++
		init(Entity{Index: index, Generation: m.generation}, &m.location)
	}
	es.pending = es.pending[:newFree]
	es.freeCursor.Store(newFree)
}

func (es *Entities) setLocation(index uint32, loc EntityLocation) {
	es.meta[index].location = loc
}

// freeAll frees every live entity. Generations still advance so handles from
// before the call stay dead.
func (es *Entities) freeAll() {
	es.verifyFlushed()
	for i := range es.meta {
		m := &es.meta[i]
		if !m.alive {
			continue
		}
		m.generation++
		m.alive = false
		m.location = EntityLocation{}
		es.pending = append(es.pending, uint32(i))
	}
	es.freeCursor.Store(int64(len(es.pending)))
	es.len = 0
}

func (es *Entities) verifyFlushed() {
	if es.NeedsFlush() {
		panic(InvariantError{Reason: "entity reservations must be flushed before allocating or freeing"})
	}
}
