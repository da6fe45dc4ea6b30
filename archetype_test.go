package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchetypeEdgesMemoized(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	healthComp := FactoryNewComponent[Health]()

	e, err := world.Spawn(posComp, velComp)
	require.NoError(t, err)
	loc, _ := world.Entities().Get(e)
	from := loc.Archetype

	require.NoError(t, world.Insert(e, healthComp))
	loc, _ = world.Entities().Get(e)
	to := loc.Archetype
	healthID, _ := ComponentIDFor[Health](world)

	got, ok := world.Archetypes().Get(from).Edges().Add(healthID)
	require.True(t, ok, "add edge recorded")
	assert.Equal(t, to, got)
	got, ok = world.Archetypes().Get(to).Edges().Remove(healthID)
	require.True(t, ok, "reverse remove edge recorded")
	assert.Equal(t, from, got)

	// Walking the recorded edge back creates nothing new
	before := world.Archetypes().Len()
	require.NoError(t, world.Remove(e, healthComp))
	loc, _ = world.Entities().Get(e)
	assert.Equal(t, from, loc.Archetype)
	assert.Equal(t, before, world.Archetypes().Len())

	// Same archetype reached again for a different entity uses the cache
	other, err := world.Spawn(velComp, posComp)
	require.NoError(t, err)
	require.NoError(t, world.Insert(other, healthComp))
	loc, _ = world.Entities().Get(other)
	assert.Equal(t, to, loc.Archetype)
	assert.Equal(t, before, world.Archetypes().Len())
}

func TestArchetypeBundleEdges(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	healthComp := FactoryNewComponent[Health]()

	b1, err := world.Bundle(velComp, healthComp)
	require.NoError(t, err)
	b2, err := world.Bundle(healthComp, velComp)
	require.NoError(t, err)
	assert.Equal(t, b1.ID(), b2.ID(), "bundle cached by component set")

	e, err := world.Spawn(posComp)
	require.NoError(t, err)
	require.NoError(t, world.Insert(e, velComp, healthComp))

	loc, _ := world.Entities().Get(e)
	src := world.Archetypes().Get(EmptyArchetype)
	target, ok := src.edges.insertBundle.Get(b1.ID())
	assert.False(t, ok, "empty archetype never took the bundle edge")
	assert.Zero(t, target)

	posLoc, _ := world.GetOrCreateArchetype(mustID[Position](t, world))
	target, ok = world.Archetypes().Get(posLoc).edges.insertBundle.Get(b1.ID())
	require.True(t, ok)
	assert.Equal(t, loc.Archetype, target)

	// An empty bundle is the identity
	empty, err := world.Bundle()
	require.NoError(t, err)
	assert.Equal(t, loc.Archetype, world.insertBundleTarget(world.Archetypes().Get(loc.Archetype), empty))
	assert.Equal(t, loc.Archetype, world.removeBundleTarget(world.Archetypes().Get(loc.Archetype), empty))
}

func mustID[T any](t *testing.T, w *World) ComponentID {
	t.Helper()
	id, ok := ComponentIDFor[T](w)
	require.True(t, ok, "component not registered")
	return id
}
