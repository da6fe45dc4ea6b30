package depot

import (
	"slices"

	"github.com/TheBitDrifter/mask"
)

type BundleID uint32

// BundleInfo is a resolved set of components that are inserted or removed
// together in one row move.
type BundleInfo struct {
	id           BundleID
	componentIDs []ComponentID
	mask         mask.Mask
}

func (b *BundleInfo) ID() BundleID {
	return b.id
}

// Components is sorted by ComponentID.
func (b *BundleInfo) Components() []ComponentID {
	return b.componentIDs
}

// Bundles caches one BundleInfo per component set, so every ordering of the
// same components resolves to the same bundle and the same archetype edges.
type Bundles struct {
	infos  []*BundleInfo
	byMask map[mask.Mask]BundleID
}

func newBundles() *Bundles {
	return &Bundles{byMask: make(map[mask.Mask]BundleID)}
}

func (bs *Bundles) Get(id BundleID) *BundleInfo {
	if int(id) >= len(bs.infos) {
		return nil
	}
	return bs.infos[id]
}

func (bs *Bundles) Len() int {
	return len(bs.infos)
}

// getOrInsert expects ids without duplicates.
func (bs *Bundles) getOrInsert(ids []ComponentID) *BundleInfo {
	var key mask.Mask
	for _, id := range ids {
		key.Mark(uint32(id))
	}
	if id, ok := bs.byMask[key]; ok {
		return bs.infos[id]
	}
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	info := &BundleInfo{
		id:           BundleID(len(bs.infos)),
		componentIDs: sorted,
		mask:         key,
	}
	bs.infos = append(bs.infos, info)
	bs.byMask[key] = info.id
	return info
}

// pendingWrite is a value supplied with a component, applied after the row
// for it exists.
type pendingWrite struct {
	id    ComponentID
	value valueWriter
}

// Bundle resolves items to a cached BundleInfo, registering component types
// on first use.
func (w *World) Bundle(items ...Component) (*BundleInfo, error) {
	b, _, err := w.resolveBundle(items)
	return b, err
}

func (w *World) resolveBundle(items []Component) (*BundleInfo, []pendingWrite, error) {
	ids := make([]ComponentID, 0, len(items))
	var writes []pendingWrite
	for _, item := range items {
		id, err := w.components.register(item.descriptor(), false)
		if err != nil {
			return nil, nil, err
		}
		if slices.Contains(ids, id) {
			return nil, nil, DuplicateComponentError{Component: w.components.name(id)}
		}
		ids = append(ids, id)
		if v, ok := item.(valueWriter); ok {
			writes = append(writes, pendingWrite{id: id, value: v})
		}
	}
	return w.bundles.getOrInsert(ids), writes, nil
}
