// Package ecs provides the entity/component store the simulation runs on:
// named entities carrying at most one component of each type, matchers for
// querying them, and collectors that record component additions and removals
// for reactive processors.
//
// A Context is driven from a single goroutine. It is not safe for concurrent use.
package ecs

import (
	"fmt"
	"sort"
)

// ComponentType names a component kind. Presence of a type on an entity is meaningful.
type ComponentType string

// Component is a typed record attached to an entity.
type Component interface {
	ComponentType() ComponentType
}

// EntityID is the stable numeric identity of an entity within its Context.
type EntityID uint64

// Entity is an identity with a set of attached components.
type Entity struct {
	id         EntityID
	name       string
	ctx        *Context
	components map[ComponentType]Component
	alive      bool
}

// ID returns the entity's creation-ordered identifier.
func (e *Entity) ID() EntityID { return e.id }

// Name returns the unique entity name.
func (e *Entity) Name() string { return e.name }

// Alive reports whether the entity has not been destroyed.
func (e *Entity) Alive() bool { return e.alive }

// Has reports whether the entity carries every given component type.
func (e *Entity) Has(types ...ComponentType) bool {
	for _, t := range types {
		if _, ok := e.components[t]; !ok {
			return false
		}
	}
	return true
}

// HasAny reports whether the entity carries at least one of the given types.
func (e *Entity) HasAny(types ...ComponentType) bool {
	for _, t := range types {
		if _, ok := e.components[t]; ok {
			return true
		}
	}
	return false
}

// Get returns the component of type t.
func (e *Entity) Get(t ComponentType) (Component, bool) {
	c, ok := e.components[t]
	return c, ok
}

// Add attaches c.
//
// Precondition: the entity must be alive.
// Postcondition: Returns an error if a component of the same type is already attached.
func (e *Entity) Add(c Component) error {
	if !e.alive {
		return fmt.Errorf("entity %q is destroyed", e.name)
	}
	t := c.ComponentType()
	if _, exists := e.components[t]; exists {
		return fmt.Errorf("entity %q already has component %s", e.name, t)
	}
	e.components[t] = c
	e.ctx.notify(e, t, Added)
	return nil
}

// Replace attaches c, overwriting any existing component of the same type.
// Replacement is reported to Added collectors like an addition.
func (e *Entity) Replace(c Component) {
	if !e.alive {
		return
	}
	t := c.ComponentType()
	e.components[t] = c
	e.ctx.notify(e, t, Added)
}

// Remove detaches the component of type t.
//
// Postcondition: Returns true if a component was removed.
func (e *Entity) Remove(t ComponentType) bool {
	if _, ok := e.components[t]; !ok {
		return false
	}
	delete(e.components, t)
	e.ctx.notify(e, t, Removed)
	return true
}

// Types returns the attached component types in sorted order.
func (e *Entity) Types() []ComponentType {
	out := make([]ComponentType, 0, len(e.components))
	for t := range e.components {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Components returns the attached components ordered by type.
func (e *Entity) Components() []Component {
	types := e.Types()
	out := make([]Component, 0, len(types))
	for _, t := range types {
		out = append(out, e.components[t])
	}
	return out
}

// Get returns the component of T's type attached to e, typed as T.
// T's ComponentType must be callable on its zero value.
func Get[T Component](e *Entity) (T, bool) {
	var zero T
	c, ok := e.components[zero.ComponentType()]
	if !ok {
		return zero, false
	}
	typed, ok := c.(T)
	return typed, ok
}

// MustGet is Get for components the caller's matcher guarantees.
func MustGet[T Component](e *Entity) T {
	c, ok := Get[T](e)
	if !ok {
		var zero T
		panic(fmt.Sprintf("ecs: entity %q has no %s", e.name, zero.ComponentType()))
	}
	return c
}
