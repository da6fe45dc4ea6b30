package depot

import "reflect"

type resourceData struct {
	value any
	ticks ComponentTicks
}

// RegisterResource returns T's resource id, registering it on first use.
// Resources share the ComponentID space with components but never collide
// with a component of the same type.
func RegisterResource[T any](w *World, opts ...ComponentOption) (ComponentID, error) {
	return w.components.register(newDescriptor[T](opts...), true)
}

// InsertResource stores value as w's T. An existing T is dropped and
// overwritten in place, so pointers from Resource stay valid.
func InsertResource[T any](w *World, value T) error {
	id, err := ensureResource[T](w)
	if err != nil {
		return err
	}
	tick := w.ChangeTick()
	if data, ok := w.resources.GetMut(uint32(id)); ok {
		ptr := data.value.(*T)
		if d, ok := any(ptr).(Dropper); ok {
			d.Drop()
		}
		*ptr = value
		data.ticks.Changed = tick
		return nil
	}
	stored := value
	w.resources.Insert(uint32(id), resourceData{
		value: &stored,
		ticks: ComponentTicks{Added: tick, Changed: tick},
	})
	return nil
}

func Resource[T any](w *World) (*T, bool) {
	data, ok := resourceFor[T](w)
	if !ok {
		return nil, false
	}
	return data.value.(*T), true
}

func ContainsResource[T any](w *World) bool {
	_, ok := resourceFor[T](w)
	return ok
}

// ResourceTicks reports when T was inserted and last overwritten.
func ResourceTicks[T any](w *World) (ComponentTicks, bool) {
	data, ok := resourceFor[T](w)
	if !ok {
		return ComponentTicks{}, false
	}
	return data.ticks, true
}

// RemoveResource hands T back to the caller without dropping it.
func RemoveResource[T any](w *World) (T, bool) {
	var zero T
	id, ok := resourceID[T](w)
	if !ok {
		return zero, false
	}
	data, ok := w.resources.Remove(uint32(id))
	if !ok {
		return zero, false
	}
	return *data.value.(*T), true
}

// ResourceAccess declares read or write access to T for binding in an
// AccessSet.
func ResourceAccess[T any](w *World, write bool) (FilteredAccess, error) {
	id, err := ensureResource[T](w)
	if err != nil {
		return FilteredAccess{}, err
	}
	var access FilteredAccess
	if write {
		access.access.AddWrite(id)
	} else {
		access.access.AddRead(id)
	}
	access.access.markNonSend(w.components)
	return access, nil
}

// ensureResource keeps the options T was first registered with.
func ensureResource[T any](w *World) (ComponentID, error) {
	if id, ok := resourceID[T](w); ok {
		return id, nil
	}
	return RegisterResource[T](w)
}

func resourceID[T any](w *World) (ComponentID, bool) {
	return w.components.lookup(reflect.TypeFor[T](), true)
}

func resourceFor[T any](w *World) (*resourceData, bool) {
	id, ok := resourceID[T](w)
	if !ok {
		return nil, false
	}
	return w.resources.GetMut(uint32(id))
}
