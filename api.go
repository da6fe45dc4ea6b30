package depot

import "iter"

// Component is anything that names a component type: a handle from
// FactoryNewComponent or a value built from one with Value.
type Component interface {
	descriptor() *ComponentDescriptor
}

// valueWriter is implemented by components that carry a value to store.
type valueWriter interface {
	Component
	writeValue(col column, row int, tick Tick, fresh bool)
}

// Query is a query under construction. Every filter added with its methods
// must hold for an archetype to match.
type Query interface {
	QueryNode
	Fetch(terms ...FetchTerm) Query
	And(items ...any) Query
	Or(items ...any) Query
	Not(items ...any) Query
	With(components ...Component) Query
	Without(components ...Component) Query
	Added(components ...Component) Query
	Changed(components ...Component) Query
	Build(w *World) (*QueryState, error)
}

// QueryNode is one node of a filter tree. Nodes are built with And, Or, Not,
// With, Without, Added and Changed, and compiled against a world on Build.
type QueryNode interface {
	compile(c *Components) (*filterNode, error)
}

type iCursor interface {
	Entities() iter.Seq2[Entity, Item]
	Next() bool
}

type Cache[K comparable, T any] interface {
	GetIndex(K) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(K, T) (int, error)
}
