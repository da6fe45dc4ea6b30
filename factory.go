package depot

type factory struct{}

var Factory factory

// NewWorld creates an empty world using the current Config.
func (f factory) NewWorld() *World {
	return newWorld()
}

func (f factory) NewQuery() Query {
	return newQuery()
}

func (f factory) NewCursor(state *QueryState) *Cursor {
	return newCursor(state)
}

func (f factory) NewAccessSet(w *World) *AccessSet {
	return NewAccessSet(w)
}

// FactoryNewComponent creates a handle for T. Every handle for T names the
// same component, and a world rejects handles whose options disagree with
// the first registration.
func FactoryNewComponent[T any](opts ...ComponentOption) AccessibleComponent[T] {
	return AccessibleComponent[T]{desc: newDescriptor[T](opts...)}
}

func FactoryNewCache[K comparable, T any](cap int) Cache[K, T] {
	return newSimpleCache[K, T](cap)
}
