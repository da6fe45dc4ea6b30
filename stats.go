package depot

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// Stats is a point-in-time summary of a world for diagnostics. It is not a
// serialization of the world.
type Stats struct {
	Entities   int              `json:"entities"`
	Components int              `json:"components"`
	Resources  int              `json:"resources"`
	Tables     int              `json:"tables"`
	Bundles    int              `json:"bundles"`
	ChangeTick Tick             `json:"change_tick"`
	Archetypes []ArchetypeStats `json:"archetypes"`
}

type ArchetypeStats struct {
	ID         ArchetypeID `json:"id"`
	Table      TableID     `json:"table"`
	Components []string    `json:"components"`
	Entities   int         `json:"entities"`
}

func (w *World) Stats() Stats {
	s := Stats{
		Entities:   w.entities.Len(),
		Components: w.components.Len(),
		Resources:  w.resources.Len(),
		Tables:     w.storages.Tables.Len(),
		Bundles:    w.bundles.Len(),
		ChangeTick: w.ChangeTick(),
		Archetypes: make([]ArchetypeStats, 0, w.archetypes.Len()),
	}
	for _, arch := range w.archetypes.All() {
		s.Archetypes = append(s.Archetypes, ArchetypeStats{
			ID:         arch.id,
			Table:      arch.tableID,
			Components: w.components.names(arch.Components()),
			Entities:   arch.Len(),
		})
	}
	return s
}

func (s Stats) JSON() ([]byte, error) {
	bz, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "failed to marshal world stats")
	}
	return bz, nil
}
