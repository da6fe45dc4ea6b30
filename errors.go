package depot

import (
	"fmt"
	"strings"
)

type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "world storage is locked by a live cursor"
}

type EntityNotFoundError struct {
	Entity Entity
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity %v does not exist or has been despawned", e.Entity)
}

type ComponentNotFoundError struct {
	Entity     Entity
	Components []string
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("entity %v has none of the components: %s", e.Entity, strings.Join(e.Components, ", "))
}

type DuplicateComponentError struct {
	Component string
}

func (e DuplicateComponentError) Error() string {
	return fmt.Sprintf("component appears more than once in bundle: %s", e.Component)
}

// ComponentConfigError reports a type registered twice with incompatible
// metadata.
type ComponentConfigError struct {
	Component string
	Reason    string
}

func (e ComponentConfigError) Error() string {
	return fmt.Sprintf("incompatible registration of %s: %s", e.Component, e.Reason)
}

type UnregisteredComponentError struct {
	ID ComponentID
}

func (e UnregisteredComponentError) Error() string {
	return fmt.Sprintf("component id %d is not registered", e.ID)
}

type InvalidCountError struct {
	Count int
}

func (e InvalidCountError) Error() string {
	return fmt.Sprintf("cannot spawn a negative number of entities: %d", e.Count)
}

type CapacityError struct {
	Max int
}

func (e CapacityError) Error() string {
	return fmt.Sprintf("registry at maximum capacity (%d)", e.Max)
}

// ConflictingAccessError is returned when two accesses bound together could
// alias-mutate the same component or resource.
type ConflictingAccessError struct {
	First, Second string
	Components    []string
}

func (e ConflictingAccessError) Error() string {
	if len(e.Components) == 0 {
		return fmt.Sprintf("%s conflicts with %s: exclusive world access", e.First, e.Second)
	}
	return fmt.Sprintf("%s conflicts with %s on: %s", e.First, e.Second, strings.Join(e.Components, ", "))
}

type QueryMismatchError struct {
	Entity Entity
}

func (e QueryMismatchError) Error() string {
	return fmt.Sprintf("entity %v does not match query", e.Entity)
}

// AccessError is raised (as a panic) when a component is fetched through a
// query that never declared access to it.
type AccessError struct {
	Component string
	Write     bool
}

func (e AccessError) Error() string {
	mode := "read"
	if e.Write {
		mode = "write"
	}
	return fmt.Sprintf("query did not declare %s access to %s", mode, e.Component)
}

// InvariantError is raised (as a panic) when storage bookkeeping is corrupt.
type InvariantError struct {
	Reason string
}

func (e InvariantError) Error() string {
	return "storage invariant violated: " + e.Reason
}
