package ecs

// Matcher selects entities by component presence.
type Matcher struct {
	AllOf  []ComponentType
	AnyOf  []ComponentType
	NoneOf []ComponentType
}

// AllOf is shorthand for a Matcher requiring every type.
func AllOf(types ...ComponentType) Matcher {
	return Matcher{AllOf: types}
}

// Without returns a copy of m that additionally excludes types.
func (m Matcher) Without(types ...ComponentType) Matcher {
	m.NoneOf = append(append([]ComponentType(nil), m.NoneOf...), types...)
	return m
}

// Matches reports whether e satisfies m.
func (m Matcher) Matches(e *Entity) bool {
	if e == nil || !e.alive {
		return false
	}
	if !e.Has(m.AllOf...) {
		return false
	}
	if len(m.AnyOf) > 0 && !e.HasAny(m.AnyOf...) {
		return false
	}
	return !e.HasAny(m.NoneOf...)
}
