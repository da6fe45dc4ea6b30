package depot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accessNone = iota
	accessRead
	accessWrite
)

func buildAccess(modes [3]int) Access {
	var a Access
	for id, mode := range modes {
		switch mode {
		case accessRead:
			a.AddRead(ComponentID(id))
		case accessWrite:
			a.AddWrite(ComponentID(id))
		}
	}
	return a
}

func allModes() [][3]int {
	var out [][3]int
	for i := 0; i < 27; i++ {
		out = append(out, [3]int{i % 3, (i / 3) % 3, i / 9})
	}
	return out
}

func TestAccessCompatibilityExhaustive(t *testing.T) {
	for _, ma := range allModes() {
		for _, mb := range allModes() {
			a, b := buildAccess(ma), buildAccess(mb)

			want := true
			var conflicts []ComponentID
			for id := 0; id < 3; id++ {
				if (ma[id] == accessWrite && mb[id] != accessNone) || (mb[id] == accessWrite && ma[id] != accessNone) {
					want = false
					conflicts = append(conflicts, ComponentID(id))
				}
			}

			require.Equal(t, want, a.IsCompatible(&b), "%v vs %v", ma, mb)
			require.Equal(t, want, b.IsCompatible(&a), "%v vs %v reversed", ma, mb)
			if want {
				require.Empty(t, a.Conflicts(&b))
			} else {
				require.Equal(t, conflicts, a.Conflicts(&b), "%v vs %v", ma, mb)
			}
		}
	}
}

func TestAccessReadAllWriteAll(t *testing.T) {
	var reader, writer, readsAll, exclusive, empty Access
	reader.AddRead(1)
	writer.AddWrite(2)
	readsAll.ReadAll()
	exclusive.WriteAll()

	assert.True(t, readsAll.IsCompatible(&reader))
	assert.False(t, readsAll.IsCompatible(&writer))
	assert.Equal(t, []ComponentID{2}, readsAll.Conflicts(&writer))
	assert.False(t, exclusive.IsCompatible(&reader))
	assert.False(t, reader.IsCompatible(&exclusive))
	assert.True(t, exclusive.IsCompatible(&empty))
	assert.True(t, readsAll.HasRead(99))
	assert.False(t, readsAll.HasWrite(99))
	assert.True(t, exclusive.HasWrite(99))
	assert.True(t, reader.IsReadOnly())
	assert.False(t, writer.IsReadOnly())

	reader.Extend(&writer)
	assert.Equal(t, []ComponentID{1, 2}, reader.Reads())
	assert.Equal(t, []ComponentID{2}, reader.Writes())
}

func TestFilteredAccessDisjoint(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()
	healthComp := FactoryNewComponent[Health]()

	tests := []struct {
		name       string
		first      Query
		second     Query
		compatible bool
	}{
		{
			name:       "Both write position",
			first:      Factory.NewQuery().Fetch(Write(posComp)),
			second:     Factory.NewQuery().Fetch(Write(posComp)),
			compatible: false,
		},
		{
			name:       "With and without velocity",
			first:      Factory.NewQuery().Fetch(Write(posComp)).With(velComp),
			second:     Factory.NewQuery().Fetch(Write(posComp)).Without(velComp),
			compatible: true,
		},
		{
			name:       "Fetched velocity against without velocity",
			first:      Factory.NewQuery().Fetch(Write(posComp), Read(velComp)),
			second:     Factory.NewQuery().Fetch(Read(posComp)).Not(velComp),
			compatible: true,
		},
		{
			name:       "Optional fetch proves nothing",
			first:      Factory.NewQuery().Fetch(Write(posComp), OptionalRead(velComp)),
			second:     Factory.NewQuery().Fetch(Read(posComp)).Without(velComp),
			compatible: false,
		},
		{
			// Every branch of the Or requires a component the second query
			// excludes, but only constraints shared by all branches count.
			name:       "Or branches are not intersected with without",
			first:      Factory.NewQuery().Fetch(Write(posComp)).Or(With(velComp), With(healthComp)),
			second:     Factory.NewQuery().Fetch(Write(posComp)).Without(velComp, healthComp),
			compatible: false,
		},
		{
			name:       "Or sharing a required component",
			first:      Factory.NewQuery().Fetch(Write(posComp)).Or(And(velComp, healthComp), With(velComp)),
			second:     Factory.NewQuery().Fetch(Write(posComp)).Without(velComp),
			compatible: true,
		},
		{
			name:       "Changed reads its component",
			first:      Factory.NewQuery().Fetch(Read(posComp)).Changed(velComp),
			second:     Factory.NewQuery().Fetch(Write(velComp)),
			compatible: false,
		},
		{
			name:       "Readers share",
			first:      Factory.NewQuery().Fetch(Read(posComp), Read(velComp)),
			second:     Factory.NewQuery().Fetch(Read(posComp)),
			compatible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, err := tt.first.Build(world)
			require.NoError(t, err)
			second, err := tt.second.Build(world)
			require.NoError(t, err)

			assert.Equal(t, tt.compatible, first.Access().IsCompatible(second.Access()))
			assert.Equal(t, tt.compatible, second.Access().IsCompatible(first.Access()))

			err = CheckConflicts(first, second)
			if tt.compatible {
				assert.NoError(t, err)
				return
			}
			var conflict ConflictingAccessError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, "query 0", conflict.First)
			assert.Equal(t, "query 1", conflict.Second)
			assert.NotEmpty(t, conflict.Components)
		})
	}
}

func TestAccessSetBind(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	velComp := FactoryNewComponent[Velocity]()

	movement, err := Factory.NewQuery().Fetch(Write(posComp), Read(velComp)).Build(world)
	require.NoError(t, err)
	render, err := Factory.NewQuery().Fetch(Read(posComp)).Build(world)
	require.NoError(t, err)
	physics, err := Factory.NewQuery().Fetch(Write(velComp)).Build(world)
	require.NoError(t, err)

	set := Factory.NewAccessSet(world)
	require.NoError(t, set.BindQuery("movement", movement))

	err = set.BindQuery("render", render)
	var conflict ConflictingAccessError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, ConflictingAccessError{
		First:      "movement",
		Second:     "render",
		Components: []string{"depot.Position"},
	}, conflict)
	assert.Equal(t, "movement conflicts with render on: depot.Position", err.Error())

	err = set.BindQuery("physics", physics)
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"depot.Velocity"}, conflict.Components)
	assert.Equal(t, 1, set.Len(), "rejected accesses are not bound")

	combined := set.Combined()
	assert.True(t, combined.Access().HasWrite(mustID[Position](t, world)))
	assert.False(t, combined.Access().HasWrite(mustID[Velocity](t, world)))
}

func TestAccessSetExclusive(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	reader, err := Factory.NewQuery().Fetch(Read(posComp)).Build(world)
	require.NoError(t, err)

	set := NewAccessSet(world)
	require.NoError(t, set.Bind("exclusive", ExclusiveAccess()))
	require.NoError(t, set.Bind("nothing", FilteredAccess{}))

	err = set.BindQuery("reader", reader)
	var conflict ConflictingAccessError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"depot.Position"}, conflict.Components)

	// Exclusive access conflicts with a read-all access without naming components
	var all FilteredAccess
	all.Access().ReadAll()
	err = set.Bind("all", all)
	require.ErrorAs(t, err, &conflict)
	assert.Empty(t, conflict.Components)
	assert.Equal(t, "exclusive conflicts with all: exclusive world access", err.Error())
}

func TestResourceAccess(t *testing.T) {
	world := Factory.NewWorld()
	healthComp := FactoryNewComponent[Health]()

	write, err := ResourceAccess[Health](world, true)
	require.NoError(t, err)
	read, err := ResourceAccess[Health](world, false)
	require.NoError(t, err)
	components, err := Factory.NewQuery().Fetch(Write(healthComp)).Build(world)
	require.NoError(t, err)

	assert.False(t, write.IsCompatible(&read))
	assert.True(t, write.IsCompatible(components.Access()), "resource and component of one type are distinct")

	set := NewAccessSet(world)
	require.NoError(t, set.Bind("res", read))
	require.NoError(t, set.BindQuery("query", components))
	require.ErrorAs(t, set.Bind("res mut", write), &ConflictingAccessError{})
}

func TestAccessNonSend(t *testing.T) {
	world := Factory.NewWorld()
	posComp := FactoryNewComponent[Position]()
	nameComp := FactoryNewComponent[Name](NonSend())

	tests := []struct {
		name string
		q    Query
		send bool
	}{
		{"Send components only", Factory.NewQuery().Fetch(Write(posComp)), true},
		{"Fetches non-send", Factory.NewQuery().Fetch(Read(posComp), Read(nameComp)), false},
		{"Optional non-send", Factory.NewQuery().Fetch(Read(posComp), OptionalWrite(nameComp)), false},
		{"Changed reads non-send", Factory.NewQuery().Fetch(Read(posComp)).Changed(nameComp), false},
		{"Presence filter only", Factory.NewQuery().Fetch(Read(posComp)).Without(nameComp), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := tt.q.Build(world)
			require.NoError(t, err)
			assert.Equal(t, tt.send, state.Access().Access().IsSend())
		})
	}

	sendOnly, err := Factory.NewQuery().Fetch(Write(posComp)).Build(world)
	require.NoError(t, err)
	local, err := Factory.NewQuery().Fetch(Read(nameComp)).Build(world)
	require.NoError(t, err)

	set := NewAccessSet(world)
	require.NoError(t, set.BindQuery("send", sendOnly))
	combined := set.Combined()
	assert.True(t, combined.Access().IsSend())
	require.NoError(t, set.BindQuery("local", local))
	combined = set.Combined()
	assert.False(t, combined.Access().IsSend(), "non-send survives merging")
}
