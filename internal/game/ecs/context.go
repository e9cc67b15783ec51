package ecs

import "fmt"

// Context owns every entity of one game.
type Context struct {
	nextID     EntityID
	entities   []*Entity
	byName     map[string]*Entity
	collectors []*Collector
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{byName: make(map[string]*Entity)}
}

// CreateEntity creates a new entity named name.
//
// Precondition: name must be non-empty and unused.
// Postcondition: Returns the entity or an error if the name is taken.
func (c *Context) CreateEntity(name string) (*Entity, error) {
	if name == "" {
		return nil, fmt.Errorf("entity name must not be empty")
	}
	if _, exists := c.byName[name]; exists {
		return nil, fmt.Errorf("entity %q already exists", name)
	}
	c.nextID++
	e := &Entity{
		id:         c.nextID,
		name:       name,
		ctx:        c,
		components: make(map[ComponentType]Component),
		alive:      true,
	}
	c.entities = append(c.entities, e)
	c.byName[name] = e
	return e, nil
}

// DestroyEntity removes every component of e, reporting each removal, then
// drops e from the context.
//
// Postcondition: e.Alive() is false and Entity(e.Name()) no longer finds it.
func (c *Context) DestroyEntity(e *Entity) {
	if e == nil || !e.alive {
		return
	}
	for _, t := range e.Types() {
		e.Remove(t)
	}
	e.alive = false
	delete(c.byName, e.name)
	for i, other := range c.entities {
		if other == e {
			c.entities = append(c.entities[:i], c.entities[i+1:]...)
			break
		}
	}
}

// Entity returns the live entity named name.
func (c *Context) Entity(name string) (*Entity, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// Entities returns every live entity in creation order.
func (c *Context) Entities() []*Entity {
	return append([]*Entity(nil), c.entities...)
}

// Query returns the live entities matching m in creation order.
func (c *Context) Query(m Matcher) []*Entity {
	var out []*Entity
	for _, e := range c.entities {
		if m.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// First returns the first live entity matching m.
func (c *Context) First(m Matcher) (*Entity, bool) {
	for _, e := range c.entities {
		if m.Matches(e) {
			return e, true
		}
	}
	return nil, false
}

// NewCollector registers and returns an active collector of event on trigger.
func (c *Context) NewCollector(trigger ComponentType, event GroupEvent) *Collector {
	col := &Collector{
		trigger: trigger,
		event:   event,
		active:  true,
		seen:    make(map[EntityID]bool),
	}
	c.collectors = append(c.collectors, col)
	return col
}

func (c *Context) notify(e *Entity, t ComponentType, ev GroupEvent) {
	for _, col := range c.collectors {
		col.observe(e, t, ev)
	}
}
