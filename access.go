package depot

import (
	"slices"
	"strconv"

	"github.com/TheBitDrifter/mask"
)

// componentSet is a bitset of component ids plus the ids themselves, so
// conflicts can be listed without walking all bits.
type componentSet struct {
	mask mask.Mask
	ids  []ComponentID
}

func (s *componentSet) add(id ComponentID) {
	if s.has(id) {
		return
	}
	s.mask.Mark(uint32(id))
	s.ids = append(s.ids, id)
}

func (s *componentSet) has(id ComponentID) bool {
	return maskHas(s.mask, id)
}

func (s *componentSet) union(other componentSet) {
	for _, id := range other.ids {
		s.add(id)
	}
}

func (s componentSet) intersect(other componentSet) componentSet {
	var out componentSet
	for _, id := range s.ids {
		if other.has(id) {
			out.add(id)
		}
	}
	return out
}

func (s componentSet) overlaps(other componentSet) bool {
	for _, id := range s.ids {
		if other.has(id) {
			return true
		}
	}
	return false
}

func (s componentSet) clone() componentSet {
	return componentSet{mask: s.mask, ids: slices.Clone(s.ids)}
}

// Access is the set of components something reads and writes. Writes imply
// reads.
type Access struct {
	readsAndWrites componentSet
	writes         componentSet
	readsAll       bool
	writesAll      bool
	nonSend        bool
}

func (a *Access) AddRead(id ComponentID) {
	a.readsAndWrites.add(id)
}

func (a *Access) AddWrite(id ComponentID) {
	a.readsAndWrites.add(id)
	a.writes.add(id)
}

// ReadAll marks access to every component, present and future.
func (a *Access) ReadAll() {
	a.readsAll = true
}

// WriteAll marks exclusive access to the whole world.
func (a *Access) WriteAll() {
	a.readsAll = true
	a.writesAll = true
}

func (a *Access) HasRead(id ComponentID) bool {
	return a.readsAll || a.readsAndWrites.has(id)
}

func (a *Access) HasWrite(id ComponentID) bool {
	return a.writesAll || a.writes.has(id)
}

func (a *Access) hasAnyRead() bool {
	return a.readsAll || len(a.readsAndWrites.ids) > 0
}

func (a *Access) hasAnyWrite() bool {
	return a.writesAll || len(a.writes.ids) > 0
}

// Reads lists every component read or written.
func (a *Access) Reads() []ComponentID {
	return a.readsAndWrites.ids
}

func (a *Access) Writes() []ComponentID {
	return a.writes.ids
}

func (a *Access) IsReadOnly() bool {
	return !a.hasAnyWrite()
}

func (a *Access) Extend(other *Access) {
	a.readsAndWrites.union(other.readsAndWrites)
	a.writes.union(other.writes)
	a.readsAll = a.readsAll || other.readsAll
	a.writesAll = a.writesAll || other.writesAll
	a.nonSend = a.nonSend || other.nonSend
}

// IsSend reports whether the access may be held off the world's goroutine.
// It is false once any NonSend component or resource is touched.
func (a *Access) IsSend() bool {
	return !a.nonSend
}

func (a *Access) markNonSend(components *Components) {
	for _, id := range a.readsAndWrites.ids {
		if info := components.Info(id); info != nil && !info.isSend {
			a.nonSend = true
			return
		}
	}
}

// IsCompatible reports whether a and other may be held at the same time:
// neither writes anything the other touches.
func (a *Access) IsCompatible(other *Access) bool {
	if a.writesAll {
		return !other.hasAnyRead()
	}
	if other.writesAll {
		return !a.hasAnyRead()
	}
	if a.readsAll {
		return !other.hasAnyWrite()
	}
	if other.readsAll {
		return !a.hasAnyWrite()
	}
	return !a.writes.overlaps(other.readsAndWrites) && !other.writes.overlaps(a.readsAndWrites)
}

// Conflicts lists the components a and other cannot share. It is empty when
// they are compatible, and also when the conflict is exclusive world access
// rather than specific components.
func (a *Access) Conflicts(other *Access) []ComponentID {
	if a.IsCompatible(other) {
		return nil
	}
	var out componentSet
	switch {
	case a.writesAll:
		out.union(other.readsAndWrites)
	case other.writesAll:
		out.union(a.readsAndWrites)
	case a.readsAll:
		out.union(other.writes)
	case other.readsAll:
		out.union(a.writes)
	default:
		out.union(a.writes.intersect(other.readsAndWrites))
		out.union(other.writes.intersect(a.readsAndWrites))
	}
	slices.Sort(out.ids)
	return out.ids
}

// FilteredAccess is an Access narrowed by the components an entity must have
// (with) or must lack (without) for the access to touch it.
type FilteredAccess struct {
	access  Access
	with    componentSet
	without componentSet
}

func (f *FilteredAccess) Access() *Access {
	return &f.access
}

// AddRead declares a read of a required component.
func (f *FilteredAccess) AddRead(id ComponentID) {
	f.access.AddRead(id)
	f.AddWith(id)
}

// AddWrite declares a write of a required component.
func (f *FilteredAccess) AddWrite(id ComponentID) {
	f.access.AddWrite(id)
	f.AddWith(id)
}

func (f *FilteredAccess) AddWith(id ComponentID) {
	f.with.add(id)
}

func (f *FilteredAccess) AddWithout(id ComponentID) {
	f.without.add(id)
}

func (f *FilteredAccess) With() []ComponentID {
	return f.with.ids
}

func (f *FilteredAccess) Without() []ComponentID {
	return f.without.ids
}

func (f *FilteredAccess) Extend(other *FilteredAccess) {
	f.access.Extend(&other.access)
	f.with.union(other.with)
	f.without.union(other.without)
}

// IsDisjoint reports whether no entity can satisfy both filters.
func (f *FilteredAccess) IsDisjoint(other *FilteredAccess) bool {
	return f.with.overlaps(other.without) || f.without.overlaps(other.with)
}

func (f *FilteredAccess) IsCompatible(other *FilteredAccess) bool {
	return f.access.IsCompatible(&other.access) || f.IsDisjoint(other)
}

func (f *FilteredAccess) Conflicts(other *FilteredAccess) []ComponentID {
	if f.IsDisjoint(other) {
		return nil
	}
	return f.access.Conflicts(&other.access)
}

// ExclusiveAccess conflicts with every other non-empty access.
func ExclusiveAccess() FilteredAccess {
	var f FilteredAccess
	f.access.WriteAll()
	return f
}

type boundAccess struct {
	name   string
	access FilteredAccess
}

// AccessSet collects accesses that will be held at the same time and rejects
// any pair that could alias-mutate a component or resource. The check is on
// component types; two queries whose archetypes never overlap in practice
// still conflict unless their filters prove it.
type AccessSet struct {
	world *World
	bound []boundAccess
}

func NewAccessSet(w *World) *AccessSet {
	return &AccessSet{world: w}
}

// Bind adds access under name, or returns ConflictingAccessError naming the
// first access it conflicts with.
func (s *AccessSet) Bind(name string, access FilteredAccess) error {
	for i := range s.bound {
		b := &s.bound[i]
		if b.access.IsCompatible(&access) {
			continue
		}
		conflicts := b.access.Conflicts(&access)
		return ConflictingAccessError{
			First:      b.name,
			Second:     name,
			Components: s.world.components.names(conflicts),
		}
	}
	s.bound = append(s.bound, boundAccess{name: name, access: access})
	return nil
}

func (s *AccessSet) BindQuery(name string, q *QueryState) error {
	return s.Bind(name, q.access)
}

func (s *AccessSet) Len() int {
	return len(s.bound)
}

// Combined is the union of everything bound so far.
func (s *AccessSet) Combined() FilteredAccess {
	var combined FilteredAccess
	for i := range s.bound {
		combined.access.Extend(&s.bound[i].access.access)
	}
	return combined
}

// CheckConflicts binds states in order, naming them by position, and returns
// the first conflict.
func CheckConflicts(states ...*QueryState) error {
	if len(states) == 0 {
		return nil
	}
	set := NewAccessSet(states[0].world)
	for i, state := range states {
		if err := set.BindQuery(queryName(i), state); err != nil {
			return err
		}
	}
	return nil
}

func queryName(i int) string {
	return "query " + strconv.Itoa(i)
}
