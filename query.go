package depot

import (
	"github.com/TheBitDrifter/mask"
	"github.com/rotisserie/eris"
)

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
	OpAdded
	OpChanged
)

// FetchTerm binds one component to a query's items.
type FetchTerm struct {
	component Component
	write     bool
	optional  bool
}

// Read fetches c immutably; matching entities must have it.
func Read(c Component) FetchTerm {
	return FetchTerm{component: c}
}

// Write fetches c mutably; matching entities must have it.
func Write(c Component) FetchTerm {
	return FetchTerm{component: c, write: true}
}

// OptionalRead fetches c immutably when present without requiring it.
func OptionalRead(c Component) FetchTerm {
	return FetchTerm{component: c, optional: true}
}

func OptionalWrite(c Component) FetchTerm {
	return FetchTerm{component: c, write: true, optional: true}
}

type compositeNode struct {
	op         Operation
	children   []QueryNode
	components []Component
	invalid    []any
}

type query struct {
	terms   []FetchTerm
	filters []QueryNode
}

func newQuery() Query {
	return &query{}
}

func newCompositeNode(op Operation, items []any) *compositeNode {
	n := &compositeNode{op: op}
	for _, item := range items {
		switch v := item.(type) {
		case Component:
			n.components = append(n.components, v)
		case []Component:
			n.components = append(n.components, v...)
		case QueryNode:
			n.children = append(n.children, v)
		default:
			n.invalid = append(n.invalid, v)
		}
	}
	return n
}

// And matches when every component is present and every child matches.
func And(items ...any) QueryNode {
	return newCompositeNode(OpAnd, items)
}

// Or matches when any component is present or any child matches.
func Or(items ...any) QueryNode {
	return newCompositeNode(OpOr, items)
}

// Not matches when no component is present and no child matches.
func Not(items ...any) QueryNode {
	return newCompositeNode(OpNot, items)
}

func With(components ...Component) QueryNode {
	return &compositeNode{op: OpAnd, components: components}
}

func Without(components ...Component) QueryNode {
	return &compositeNode{op: OpNot, components: components}
}

// Added matches entities whose components were all added since the query
// last finished iterating.
func Added(components ...Component) QueryNode {
	return &compositeNode{op: OpAdded, components: components}
}

// Changed matches entities whose components were all written since the query
// last finished iterating. Insertion counts as a write.
func Changed(components ...Component) QueryNode {
	return &compositeNode{op: OpChanged, components: components}
}

func (n *compositeNode) compile(c *Components) (*filterNode, error) {
	if len(n.invalid) > 0 {
		return nil, eris.Errorf("unsupported query item of type %T", n.invalid[0])
	}
	f := &filterNode{op: n.op}
	for _, comp := range n.components {
		id, err := c.register(comp.descriptor(), false)
		if err != nil {
			return nil, err
		}
		f.mask.Mark(uint32(id))
		f.ids = append(f.ids, id)
	}
	for _, child := range n.children {
		compiled, err := child.compile(c)
		if err != nil {
			return nil, err
		}
		f.children = append(f.children, compiled)
	}
	return f, nil
}

func (q *query) Fetch(terms ...FetchTerm) Query {
	q.terms = append(q.terms, terms...)
	return q
}

func (q *query) And(items ...any) Query {
	q.filters = append(q.filters, And(items...))
	return q
}

func (q *query) Or(items ...any) Query {
	q.filters = append(q.filters, Or(items...))
	return q
}

func (q *query) Not(items ...any) Query {
	q.filters = append(q.filters, Not(items...))
	return q
}

func (q *query) With(components ...Component) Query {
	q.filters = append(q.filters, With(components...))
	return q
}

func (q *query) Without(components ...Component) Query {
	q.filters = append(q.filters, Without(components...))
	return q
}

func (q *query) Added(components ...Component) Query {
	q.filters = append(q.filters, Added(components...))
	return q
}

func (q *query) Changed(components ...Component) Query {
	q.filters = append(q.filters, Changed(components...))
	return q
}

// compile ANDs the query's filters. A query nested in another contributes
// only its filters.
func (q *query) compile(c *Components) (*filterNode, error) {
	root := &filterNode{op: OpAnd}
	for _, node := range q.filters {
		compiled, err := node.compile(c)
		if err != nil {
			return nil, err
		}
		root.children = append(root.children, compiled)
	}
	return root, nil
}

func (q *query) Build(w *World) (*QueryState, error) {
	return newQueryState(w, q)
}

// filterNode is a QueryNode resolved to component ids for one world.
type filterNode struct {
	op       Operation
	mask     mask.Mask
	ids      []ComponentID
	children []*filterNode
}

func (n *filterNode) matchArchetype(m mask.Mask) bool {
	switch n.op {
	case OpAnd, OpAdded, OpChanged:
		if !m.ContainsAll(n.mask) {
			return false
		}
		for _, child := range n.children {
			if !child.matchArchetype(m) {
				return false
			}
		}
		return true

	case OpOr:
		if len(n.ids) > 0 && m.ContainsAny(n.mask) {
			return true
		}
		for _, child := range n.children {
			if child.matchArchetype(m) {
				return true
			}
		}
		return false

	case OpNot:
		if len(n.ids) > 0 && m.ContainsAny(n.mask) {
			return false
		}
		for _, child := range n.children {
			if child.matchArchetype(m) {
				return false
			}
		}
		return true
	}
	return false
}

// matchRow is matchArchetype with change ticks checked for item's row.
func (n *filterNode) matchRow(m mask.Mask, item *Item, lastRun, thisRun Tick) bool {
	switch n.op {
	case OpAdded, OpChanged:
		if !m.ContainsAll(n.mask) {
			return false
		}
		for _, id := range n.ids {
			ticks := item.componentTicks(id)
			if ticks == nil {
				return false
			}
			if n.op == OpAdded && !ticks.IsAdded(lastRun, thisRun) {
				return false
			}
			if n.op == OpChanged && !ticks.IsChanged(lastRun, thisRun) {
				return false
			}
		}
		fallthrough

	case OpAnd:
		if !m.ContainsAll(n.mask) {
			return false
		}
		for _, child := range n.children {
			if !child.matchRow(m, item, lastRun, thisRun) {
				return false
			}
		}
		return true

	case OpOr:
		if len(n.ids) > 0 && m.ContainsAny(n.mask) {
			return true
		}
		for _, child := range n.children {
			if child.matchRow(m, item, lastRun, thisRun) {
				return true
			}
		}
		return false

	case OpNot:
		if len(n.ids) > 0 && m.ContainsAny(n.mask) {
			return false
		}
		for _, child := range n.children {
			if child.matchRow(m, item, lastRun, thisRun) {
				return false
			}
		}
		return true
	}
	return false
}

func (n *filterNode) hasRowFilter() bool {
	if n.op == OpAdded || n.op == OpChanged {
		return true
	}
	for _, child := range n.children {
		if child.hasRowFilter() {
			return true
		}
	}
	return false
}

// visit calls fn for every component id in the tree.
func (n *filterNode) visit(fn func(ComponentID)) {
	for _, id := range n.ids {
		fn(id)
	}
	for _, child := range n.children {
		child.visit(fn)
	}
}

// constraints returns the components an entity must have and must lack for
// the tree to match, and records change-filter reads in access. An Or only
// guarantees what all of its branches guarantee, so a filter like
// Or(With(A), With(B)) yields no constraint even when every branch would
// prove two queries disjoint.
func (n *filterNode) constraints(access *Access) (with, without componentSet) {
	switch n.op {
	case OpAnd, OpAdded, OpChanged:
		for _, id := range n.ids {
			with.add(id)
			if n.op != OpAnd {
				access.AddRead(id)
			}
		}
		for _, child := range n.children {
			cw, cwo := child.constraints(access)
			with.union(cw)
			without.union(cwo)
		}

	case OpOr:
		first := true
		branch := func(bw, bwo componentSet) {
			if first {
				with, without = bw.clone(), bwo.clone()
				first = false
				return
			}
			with = with.intersect(bw)
			without = without.intersect(bwo)
		}
		for _, id := range n.ids {
			var bw componentSet
			bw.add(id)
			branch(bw, componentSet{})
		}
		for _, child := range n.children {
			branch(child.constraints(access))
		}

	case OpNot:
		for _, id := range n.ids {
			without.add(id)
		}
		for _, child := range n.children {
			child.constraints(access)
		}
	}
	return with, without
}
