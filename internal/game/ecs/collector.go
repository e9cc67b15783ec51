package ecs

// GroupEvent selects which component changes a Collector records.
type GroupEvent int

const (
	// Added records attachment or replacement of the trigger type.
	Added GroupEvent = iota + 1
	// Removed records detachment of the trigger type.
	Removed
	// AddedOrRemoved records both.
	AddedOrRemoved
)

// Collector accumulates the entities whose trigger component changed since the
// last Drain, in first-change order.
type Collector struct {
	trigger   ComponentType
	event     GroupEvent
	active    bool
	collected []*Entity
	seen      map[EntityID]bool
}

// Trigger returns the watched component type.
func (c *Collector) Trigger() ComponentType { return c.trigger }

// Activate resumes recording.
func (c *Collector) Activate() { c.active = true }

// Deactivate stops recording and discards anything collected.
func (c *Collector) Deactivate() {
	c.active = false
	c.Clear()
}

// Clear discards collected entities without deactivating.
func (c *Collector) Clear() {
	c.collected = nil
	c.seen = make(map[EntityID]bool)
}

// Len returns the number of collected entities.
func (c *Collector) Len() int { return len(c.collected) }

// Drain returns the collected entities and resets the collector.
func (c *Collector) Drain() []*Entity {
	out := c.collected
	c.Clear()
	return out
}

func (c *Collector) observe(e *Entity, t ComponentType, ev GroupEvent) {
	if !c.active || t != c.trigger {
		return
	}
	if c.event != AddedOrRemoved && c.event != ev {
		return
	}
	if c.seen[e.id] {
		return
	}
	c.seen[e.id] = true
	c.collected = append(c.collected, e)
}
