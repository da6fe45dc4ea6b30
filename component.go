package depot

import (
	"reflect"

	"github.com/TheBitDrifter/mask"
	"github.com/rs/zerolog"
)

// MaxComponents bounds the number of component and resource types a World can
// register; it is the width of the component bitsets. Build with the m256,
// m512 or m1024 tag to widen it.
const MaxComponents = mask.MaxBits

// ComponentID is a dense per-world index for a component or resource type.
type ComponentID uint32

// StorageType selects which backend stores a component.
type StorageType uint8

const (
	// StorageTable keeps the component in the archetype's column table.
	StorageTable StorageType = iota
	// StorageSparseSet keeps the component in a per-component sparse set so
	// adding and removing it never moves table rows.
	StorageSparseSet
)

func (s StorageType) String() string {
	switch s {
	case StorageTable:
		return "table"
	case StorageSparseSet:
		return "sparse_set"
	}
	return "unknown"
}

// Dropper is implemented (on the pointer type) by components that need to
// release something when their value leaves storage.
type Dropper interface {
	Drop()
}

// ComponentDescriptor is everything the registry needs to know about a type
// before it has an id.
type ComponentDescriptor struct {
	typ       reflect.Type
	storage   StorageType
	isSend    bool
	newColumn func(capacity int) column
}

type ComponentOption func(*ComponentDescriptor)

// WithStorage overrides Config's default storage type for one component.
func WithStorage(storage StorageType) ComponentOption {
	return func(d *ComponentDescriptor) {
		d.storage = storage
	}
}

// NonSend marks a component that must only be touched from the goroutine that
// owns the world. Accesses touching it report false from IsSend.
func NonSend() ComponentOption {
	return func(d *ComponentDescriptor) {
		d.isSend = false
	}
}

func newDescriptor[T any](opts ...ComponentOption) *ComponentDescriptor {
	d := &ComponentDescriptor{
		typ:     reflect.TypeFor[T](),
		storage: Config.defaultStorage,
		isSend:  true,
		newColumn: func(capacity int) column {
			return newTypedColumn[T](capacity)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *ComponentDescriptor) Type() reflect.Type {
	return d.typ
}

func (d *ComponentDescriptor) StorageType() StorageType {
	return d.storage
}

// ComponentInfo is the registry's immutable record for one type.
type ComponentInfo struct {
	id        ComponentID
	name      string
	typ       reflect.Type
	size      uintptr
	align     uintptr
	storage   StorageType
	isSend    bool
	hasDrop   bool
	resource  bool
	newColumn func(capacity int) column
}

func (i *ComponentInfo) ID() ComponentID          { return i.id }
func (i *ComponentInfo) Name() string             { return i.name }
func (i *ComponentInfo) Type() reflect.Type       { return i.typ }
func (i *ComponentInfo) Size() uintptr            { return i.size }
func (i *ComponentInfo) Align() uintptr           { return i.align }
func (i *ComponentInfo) StorageType() StorageType { return i.storage }
func (i *ComponentInfo) IsSend() bool             { return i.isSend }
func (i *ComponentInfo) HasDrop() bool            { return i.hasDrop }
func (i *ComponentInfo) IsResource() bool         { return i.resource }

type registryKey struct {
	typ      reflect.Type
	resource bool
}

// Components is the per-world registry. Ids are handed out densely in
// registration order and index straight into the info table.
type Components struct {
	cache  *SimpleCache[registryKey, ComponentInfo]
	logger *zerolog.Logger
}

func newComponents(logger *zerolog.Logger) *Components {
	return &Components{
		cache:  newSimpleCache[registryKey, ComponentInfo](MaxComponents),
		logger: logger,
	}
}

// RegisterComponent returns T's id in w, registering it on first use.
func RegisterComponent[T any](w *World, opts ...ComponentOption) (ComponentID, error) {
	return w.components.register(newDescriptor[T](opts...), false)
}

// ComponentIDFor looks T up without registering it.
func ComponentIDFor[T any](w *World) (ComponentID, bool) {
	return w.components.lookup(reflect.TypeFor[T](), false)
}

func (c *Components) register(d *ComponentDescriptor, resource bool) (ComponentID, error) {
	key := registryKey{typ: d.typ, resource: resource}
	if idx, ok := c.cache.GetIndex(key); ok {
		info := c.cache.GetItem(idx)
		if !resource && info.storage != d.storage {
			return 0, ComponentConfigError{
				Component: info.name,
				Reason:    "registered with storage " + info.storage.String() + ", requested " + d.storage.String(),
			}
		}
		if info.isSend != d.isSend {
			return 0, ComponentConfigError{Component: info.name, Reason: "send marker differs from first registration"}
		}
		return info.id, nil
	}

	_, drops := reflect.New(d.typ).Interface().(Dropper)
	info := ComponentInfo{
		id:        ComponentID(c.cache.Len()),
		name:      d.typ.String(),
		typ:       d.typ,
		size:      d.typ.Size(),
		align:     uintptr(d.typ.Align()),
		storage:   d.storage,
		isSend:    d.isSend,
		hasDrop:   drops,
		resource:  resource,
		newColumn: d.newColumn,
	}
	idx, err := c.cache.Register(key, info)
	if err != nil {
		return 0, err
	}
	logComponentRegistered(c.logger, &info)
	return ComponentID(idx), nil
}

func (c *Components) lookup(typ reflect.Type, resource bool) (ComponentID, bool) {
	idx, ok := c.cache.GetIndex(registryKey{typ: typ, resource: resource})
	return ComponentID(idx), ok
}

// Info is an O(1) lookup; it returns nil for an unknown id.
func (c *Components) Info(id ComponentID) *ComponentInfo {
	return c.cache.GetItem32(uint32(id))
}

func (c *Components) Len() int {
	return c.cache.Len()
}

func (c *Components) name(id ComponentID) string {
	if info := c.Info(id); info != nil {
		return info.name
	}
	return "unknown"
}

func (c *Components) names(ids []ComponentID) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = c.name(id)
	}
	return names
}
