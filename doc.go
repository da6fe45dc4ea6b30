/*
Package depot provides the storage and query core of an Entity-Component-System.

Entities are generational ids. Components are typed values attached to
entities; each unique combination of components is an archetype, and the
archetypes form a graph whose add and remove edges are memoized so repeated
structural changes skip set lookups. Component data lives either in
column tables (one per table-component set, fast to iterate) or in
per-component sparse sets (cheap to add and remove).

Core Concepts:

  - Entity: An index plus a generation. Stale handles are detected, never reused.
  - Component: A typed value. Storage type is chosen per component.
  - Archetype: The set of components some entities carry, plus where they live.
  - Query: Fetch terms and filters, built once into a cached QueryState.
  - AccessSet: Rejects queries and resources that could alias-mutate data.
  - Commands: Deferred structural changes with ids reserved up front.

Basic Usage:

	world := depot.Factory.NewWorld()

	position := depot.FactoryNewComponent[Position]()
	velocity := depot.FactoryNewComponent[Velocity]()

	world.SpawnBatch(100, position, velocity.Value(Velocity{X: 1}))

	state, _ := depot.Factory.NewQuery().
		Fetch(depot.Write(position), depot.Read(velocity)).
		Build(world)

	cursor := state.Cursor()
	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.ReadFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Structural changes fail with LockedStorageError while a cursor is live. The
Enqueue methods on World and the Commands queue defer them instead.
*/
package depot
