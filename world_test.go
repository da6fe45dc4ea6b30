package depot

import (
	"bytes"
	"math/rand"
	"reflect"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldStructuralLifecycle(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	healthComp := FactoryNewComponent[Health]()

	e, err := world.Spawn(posComp.Value(Position{X: 1, Y: 2}), velComp.Value(Velocity{X: 3}))
	require.NoError(t, err)

	loc, ok := world.Entities().Get(e)
	require.True(t, ok)
	posVel := loc.Archetype
	posVelIDs := []ComponentID{mustID[Position](t, world), mustID[Velocity](t, world)}
	for _, arch := range world.Archetypes().All() {
		if arch.ID() == posVel {
			assert.Equal(t, 1, arch.Len())
			assert.ElementsMatch(t, posVelIDs, arch.Components())
			continue
		}
		assert.Zero(t, arch.Len(), "archetype %d holds entities", arch.ID())
	}

	require.NoError(t, world.Insert(e, healthComp.Value(Health{Current: 5, Max: 10})))
	assertComponents[Position, Velocity, Health](t, world, e)

	// The old archetype survives the move, empty
	loc, _ = world.Entities().Get(e)
	assert.NotEqual(t, posVel, loc.Archetype)
	old := world.Archetypes().Get(posVel)
	require.NotNil(t, old)
	assert.Equal(t, 0, old.Len())
	assert.ElementsMatch(t, posVelIDs, old.Components())

	pos, err := posComp.GetFromEntity(world, e)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1, Y: 2}, *pos)

	require.NoError(t, world.Remove(e, velComp))
	ids, err := world.EntityComponents(e)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	_, err = velComp.GetFromEntity(world, e)
	var notFound ComponentNotFoundError
	assert.ErrorAs(t, err, &notFound)

	health, err := healthComp.GetFromEntity(world, e)
	require.NoError(t, err)
	assert.Equal(t, Health{Current: 5, Max: 10}, *health)
	pos, _ = posComp.GetFromEntity(world, e)
	assert.Equal(t, Position{X: 1, Y: 2}, *pos)

	require.NoError(t, world.Despawn(e))
	assert.False(t, world.Contains(e))
	assert.ErrorAs(t, world.Despawn(e), &EntityNotFoundError{})
	assert.ErrorAs(t, world.Insert(e, velComp), &EntityNotFoundError{})

	reused, err := world.Spawn(posComp)
	require.NoError(t, err)
	assert.Equal(t, e.Index, reused.Index)
	assert.Equal(t, e.Generation+1, reused.Generation)
	assert.False(t, world.Contains(e), "stale handle stays dead after reuse")
}

func assertComponents[A, B, C any](t *testing.T, w *World, e Entity) {
	t.Helper()
	ids, err := w.EntityComponents(e)
	require.NoError(t, err)
	want := []ComponentID{mustID[A](t, w), mustID[B](t, w), mustID[C](t, w)}
	assert.ElementsMatch(t, want, ids)
}

func TestWorldInsertOverwrite(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()

	e, err := world.Spawn(posComp.Value(Position{X: 1}))
	require.NoError(t, err)

	// A bare handle keeps the existing value
	require.NoError(t, world.Insert(e, posComp))
	pos, _ := posComp.GetFromEntity(world, e)
	assert.Equal(t, 1.0, pos.X)

	// A value overwrites it
	require.NoError(t, world.Insert(e, posComp.Value(Position{X: 7})))
	pos, _ = posComp.GetFromEntity(world, e)
	assert.Equal(t, 7.0, pos.X)
}

func TestWorldRemove(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	healthComp := FactoryNewComponent[Health]()

	e, err := world.Spawn(posComp, velComp)
	require.NoError(t, err)

	// None present
	err = world.Remove(e, healthComp)
	var notFound ComponentNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, e, notFound.Entity)
	assert.Equal(t, []string{"depot.Health"}, notFound.Components)

	// Some present
	require.NoError(t, world.Remove(e, healthComp, velComp))
	ids, _ := world.EntityComponents(e)
	assert.Equal(t, []ComponentID{mustID[Position](t, world)}, ids)

	// Nothing requested
	require.NoError(t, world.Remove(e))

	assert.ErrorAs(t, world.Remove(e, posComp, posComp), &DuplicateComponentError{})
}

func TestWorldComponentConfigMismatch(t *testing.T) {
	world := Factory.NewWorld()
	_, err := world.Spawn(FactoryNewComponent[Marker](WithStorage(StorageSparseSet)))
	require.NoError(t, err)

	_, err = world.Spawn(FactoryNewComponent[Marker]())
	var configErr ComponentConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "depot.Marker", configErr.Component)
}

func TestWorldLocked(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	e, err := world.Spawn(posComp)
	require.NoError(t, err)

	world.Lock()
	_, err = world.Spawn(posComp)
	assert.ErrorAs(t, err, &LockedStorageError{})
	_, err = world.SpawnBatch(2, posComp)
	assert.ErrorAs(t, err, &LockedStorageError{})
	assert.ErrorAs(t, world.Insert(e, posComp), &LockedStorageError{})
	assert.ErrorAs(t, world.Remove(e, posComp), &LockedStorageError{})
	assert.ErrorAs(t, world.Despawn(e), &LockedStorageError{})
	assert.ErrorAs(t, world.Clear(), &LockedStorageError{})
	assert.ErrorAs(t, world.Apply(world.Commands()), &LockedStorageError{})

	// Locks nest
	world.Lock()
	require.NoError(t, world.Unlock())
	assert.True(t, world.Locked())
	require.NoError(t, world.Unlock())
	assert.False(t, world.Locked())

	require.NoError(t, world.Despawn(e))
}

func TestWorldClear(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	markerComp := FactoryNewComponent[Marker](WithStorage(StorageSparseSet))

	entities, err := world.SpawnBatch(10, posComp, markerComp)
	require.NoError(t, err)
	require.NoError(t, InsertResource(world, Health{Max: 3}))
	archetypes := world.Archetypes().Len()

	require.NoError(t, world.Clear())

	assert.Equal(t, 0, world.Entities().Len())
	for _, e := range entities {
		assert.False(t, world.Contains(e))
	}
	assert.Equal(t, archetypes, world.Archetypes().Len(), "archetypes survive Clear")
	markerID := mustID[Marker](t, world)
	assert.Equal(t, 0, world.Storages().sparseSet(markerID).Len())
	res, ok := Resource[Health](world)
	require.True(t, ok, "resources survive Clear")
	assert.Equal(t, 3, res.Max)

	e, err := world.Spawn(posComp)
	require.NoError(t, err)
	assert.True(t, world.Contains(e))
}

func TestWorldSpawnNegativeCount(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()

	_, err := world.SpawnBatch(-1, posComp)
	var invalid InvalidCountError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, -1, invalid.Count)

	_, err = world.EnqueueSpawn(-2, posComp)
	assert.ErrorAs(t, err, &InvalidCountError{})

	world.Lock()
	_, err = world.EnqueueSpawn(-3, posComp)
	assert.ErrorAs(t, err, &InvalidCountError{})
	require.NoError(t, world.Unlock())

	assert.Equal(t, 0, world.Entities().Len())
	entities, err := world.SpawnBatch(0, posComp)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestWorldRegistryCapacity(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	e, err := world.Spawn(posComp)
	require.NoError(t, err)

	// Distinct array types fill the registry without declaring one type each
	byteType := reflect.TypeFor[byte]()
	newColumn := func(capacity int) column { return newTypedColumn[byte](capacity) }
	var last ComponentID
	for i := 1; i < MaxComponents; i++ {
		typ := reflect.ArrayOf(i, byteType)
		id, err := world.components.register(&ComponentDescriptor{
			typ:       typ,
			storage:   StorageSparseSet,
			isSend:    true,
			newColumn: newColumn,
		}, false)
		require.NoError(t, err, "type %d", i)
		last = id
	}
	require.Equal(t, MaxComponents, world.Components().Len())
	assert.Equal(t, ComponentID(MaxComponents-1), last)

	_, err = world.Spawn(FactoryNewComponent[Velocity]())
	var capacity CapacityError
	require.ErrorAs(t, err, &capacity)
	assert.Equal(t, MaxComponents, capacity.Max)
	_, err = RegisterResource[GameTime](world)
	assert.ErrorAs(t, err, &CapacityError{})

	// The highest id still fits the archetype bitset
	archID, err := world.GetOrCreateArchetype(mustID[Position](t, world), last)
	require.NoError(t, err)
	assert.True(t, world.Archetypes().Get(archID).Contains(last))
	assert.True(t, world.Contains(e))
}

func TestWorldSpawnEmpty(t *testing.T) {
	world := Factory.NewWorld()
	e, err := world.Spawn()
	require.NoError(t, err)

	loc, ok := world.Entities().Get(e)
	require.True(t, ok)
	assert.Equal(t, EmptyArchetype, loc.Archetype)

	require.NoError(t, world.Insert(e, FactoryNewComponent[Position]()))
	loc, _ = world.Entities().Get(e)
	assert.NotEqual(t, EmptyArchetype, loc.Archetype)
}

func TestWorldStats(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	_, err := world.SpawnBatch(3, posComp, velComp)
	require.NoError(t, err)
	_, err = world.Spawn(posComp)
	require.NoError(t, err)

	stats := world.Stats()
	assert.Equal(t, 4, stats.Entities)
	assert.Equal(t, 2, stats.Components)
	assert.Equal(t, world.Archetypes().Len(), len(stats.Archetypes))

	bz, err := stats.JSON()
	require.NoError(t, err)
	var decoded Stats
	require.NoError(t, json.Unmarshal(bz, &decoded))
	assert.Equal(t, stats.Entities, decoded.Entities)
	assert.True(t, bytes.Contains(bz, []byte(`"depot.Velocity"`)))
}

// TestWorldRandomMutations checks storage bookkeeping after every step of a
// long random sequence of structural changes against a simple model.
func TestWorldRandomMutations(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	healthComp := FactoryNewComponent[Health]()
	markerComp := FactoryNewComponent[Marker](WithStorage(StorageSparseSet))
	comps := []Component{posComp, velComp, healthComp, markerComp}

	type model struct {
		has map[int]bool
		tag float64
	}
	live := map[Entity]*model{}
	rng := rand.New(rand.NewSource(42))

	// Queries built up front must keep matching as archetypes appear
	queries := []struct {
		name string
		q    Query
		want func(has map[int]bool) bool
	}{
		{
			name: "position without velocity",
			q:    Factory.NewQuery().Fetch(Write(posComp)).Without(velComp),
			want: func(has map[int]bool) bool { return !has[1] },
		},
		{
			name: "marker with health",
			q:    Factory.NewQuery().Fetch(Read(markerComp)).With(healthComp),
			want: func(has map[int]bool) bool { return has[3] && has[2] },
		},
		{
			name: "velocity or marker",
			q:    Factory.NewQuery().Or(velComp, markerComp),
			want: func(has map[int]bool) bool { return has[1] || has[3] },
		},
	}
	states := make([]*QueryState, len(queries))
	for i, q := range queries {
		state, err := q.q.Build(world)
		require.NoError(t, err)
		states[i] = state
	}
	checkQueries := func(step int) {
		for i, q := range queries {
			got := map[Entity]bool{}
			for e := range states[i].Cursor().Entities() {
				require.False(t, got[e], "%s yielded %v twice at step %d", q.name, e, step)
				require.Contains(t, live, e, "%s yielded dead %v at step %d", q.name, e, step)
				got[e] = true
			}
			for e, m := range live {
				require.Equal(t, q.want(m.has), got[e], "%s on %v at step %d", q.name, e, step)
			}
		}
	}
	nextTag := 0.0

	pick := func() (Entity, *model, bool) {
		if len(live) == 0 {
			return Entity{}, nil, false
		}
		n := rng.Intn(len(live))
		for e, m := range live {
			if n == 0 {
				return e, m, true
			}
			n--
		}
		return Entity{}, nil, false
	}

	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(4); op {
		case 0:
			nextTag++
			e, err := world.Spawn(posComp.Value(Position{X: nextTag}))
			require.NoError(t, err)
			live[e] = &model{has: map[int]bool{0: true}, tag: nextTag}
		case 1:
			e, m, ok := pick()
			if !ok {
				continue
			}
			c := 1 + rng.Intn(3)
			require.NoError(t, world.Insert(e, comps[c]))
			m.has[c] = true
		case 2:
			e, m, ok := pick()
			if !ok {
				continue
			}
			c := 1 + rng.Intn(3)
			err := world.Remove(e, comps[c])
			if m.has[c] {
				require.NoError(t, err)
				delete(m.has, c)
			} else {
				require.ErrorAs(t, err, &ComponentNotFoundError{})
			}
		case 3:
			e, _, ok := pick()
			if !ok || rng.Intn(3) != 0 {
				continue
			}
			require.NoError(t, world.Despawn(e))
			delete(live, e)
		}
		verifyWorld(t, world)
		if step%25 == 0 {
			checkQueries(step)
		}
	}
	checkQueries(2000)

	require.Equal(t, len(live), world.Entities().Len())
	for e, m := range live {
		ids, err := world.EntityComponents(e)
		require.NoError(t, err)
		require.Len(t, ids, len(m.has))
		pos, err := posComp.GetFromEntity(world, e)
		require.NoError(t, err)
		require.Equal(t, m.tag, pos.X, "position of %v", e)
	}
}

// verifyWorld cross-checks entity locations, archetype rows, table rows and
// sparse set membership.
func verifyWorld(t *testing.T, w *World) {
	t.Helper()
	total := 0
	for _, arch := range w.Archetypes().All() {
		table := w.Storages().Tables.Get(arch.TableID())
		require.Equal(t, len(arch.entities), len(arch.tableRows))
		for row, e := range arch.entities {
			loc, ok := w.Entities().Get(e)
			require.True(t, ok, "%v in archetype %d is not alive", e, arch.ID())
			require.Equal(t, EntityLocation{Archetype: arch.ID(), Row: row}, loc)
			require.Equal(t, e, table.Entities()[arch.tableRows[row]])
			for _, id := range arch.SparseComponents() {
				require.True(t, w.Storages().sparseSet(id).contains(e))
			}
		}
		total += arch.Len()
	}
	require.Equal(t, w.Entities().Len(), total)

	rows := 0
	for _, table := range w.Storages().Tables.tables {
		rows += table.Len()
	}
	require.Equal(t, total, rows)
}
