package depot

import "fmt"

// Entity is a lightweight identity with no inherent data. Index is recycled
// after despawn; Generation tells a recycled index apart from its previous
// owners.
type Entity struct {
	Index      uint32
	Generation uint32
}

// EntityLocation points at an entity's slot in the archetype graph.
// Row indexes the archetype's entity list, not the backing table.
type EntityLocation struct {
	Archetype ArchetypeID
	Row       int
}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.Index, e.Generation)
}
