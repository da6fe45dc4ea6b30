package depot

import (
	"github.com/rs/zerolog"
)

func loadComponentIntoArray(components *Components, id ComponentID, arr *zerolog.Array) *zerolog.Array {
	dict := zerolog.Dict()
	dict = dict.Uint32("component_id", uint32(id))
	dict = dict.Str("component_name", components.name(id))
	return arr.Dict(dict)
}

func loadComponentsToEvent(event *zerolog.Event, ids []ComponentID, components *Components) *zerolog.Event {
	event.Int("total_components", len(ids))
	arr := zerolog.Arr()
	for _, id := range ids {
		arr = loadComponentIntoArray(components, id, arr)
	}
	return event.Array("components", arr)
}

func logComponentRegistered(logger *zerolog.Logger, info *ComponentInfo) {
	logger.Debug().
		Uint32("component_id", uint32(info.id)).
		Str("component_name", info.name).
		Str("storage", info.storage.String()).
		Bool("resource", info.resource).
		Msg("component registered")
}

func logArchetypeCreated(logger *zerolog.Logger, arch *Archetype, components *Components) {
	event := logger.Debug()
	if event == nil {
		return
	}
	event = event.Uint32("archetype_id", uint32(arch.id)).Uint32("table_id", uint32(arch.tableID))
	loadComponentsToEvent(event, arch.Components(), components).Msg("archetype created")
}

func logTableCreated(logger *zerolog.Logger, t *Table, components *Components) {
	event := logger.Debug()
	if event == nil {
		return
	}
	event = event.Uint32("table_id", uint32(t.id))
	loadComponentsToEvent(event, t.componentIDs, components).Msg("table created")
}
