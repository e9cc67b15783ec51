// Package world is the spatial index of a game: the directed stage graph and
// which actors stand in which stage, in the order they entered.
package world

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknownStage is returned for stage names not in the index.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrUnknownActor is returned for actors not placed in any stage.
	ErrUnknownActor = errors.New("actor not placed")
	// ErrNoRoute is returned when the destination is not in the origin's outbound graph.
	ErrNoRoute = errors.New("no route")
)

// Index provides thread-safe access to stage connectivity and occupancy.
type Index struct {
	mu        sync.RWMutex
	stages    map[string][]string // stage → outbound stages
	stageOf   map[string]string   // actor → stage
	occupants map[string][]string // stage → actors in entry order
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		stages:    make(map[string][]string),
		stageOf:   make(map[string]string),
		occupants: make(map[string][]string),
	}
}

// AddStage registers a stage and its outbound graph.
//
// Precondition: name must be non-empty.
// Postcondition: Returns an error if the stage already exists.
func (x *Index) AddStage(name string, outbound []string) error {
	if name == "" {
		return errors.New("stage name must not be empty")
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, exists := x.stages[name]; exists {
		return fmt.Errorf("duplicate stage %q", name)
	}
	x.stages[name] = append([]string{}, outbound...)
	return nil
}

// RemoveStage drops a stage with no occupants.
func (x *Index) RemoveStage(name string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if len(x.occupants[name]) > 0 {
		return fmt.Errorf("stage %q still has occupants", name)
	}
	delete(x.stages, name)
	delete(x.occupants, name)
	return nil
}

// Validate checks that every outbound target resolves to a known stage.
//
// Postcondition: Returns nil if all targets resolve, or an error naming the first dangling one.
func (x *Index) Validate() error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, name := range sortedKeys(x.stages) {
		for _, target := range x.stages[name] {
			if _, ok := x.stages[target]; !ok {
				return fmt.Errorf("stage %q: outbound %w %q", name, ErrUnknownStage, target)
			}
		}
	}
	return nil
}

// HasStage reports whether name is a known stage.
func (x *Index) HasStage(name string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.stages[name]
	return ok
}

// Stages returns every stage name, sorted.
func (x *Index) Stages() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return sortedKeys(x.stages)
}

// Outbound returns the stages reachable from name in one move.
func (x *Index) Outbound(name string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]string(nil), x.stages[name]...)
}

// CanReach reports whether to is in the outbound graph of from.
func (x *Index) CanReach(from, to string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for _, s := range x.stages[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Place puts an actor into a stage for the first time.
//
// Precondition: stage must exist; actor must not be placed.
func (x *Index) Place(actor, stage string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if _, ok := x.stages[stage]; !ok {
		return fmt.Errorf("placing %q: %w %q", actor, ErrUnknownStage, stage)
	}
	if cur, ok := x.stageOf[actor]; ok {
		return fmt.Errorf("actor %q already in stage %q", actor, cur)
	}
	x.stageOf[actor] = stage
	x.occupants[stage] = append(x.occupants[stage], actor)
	return nil
}

// Move transfers an actor along the stage graph. The actor joins the tail of
// the destination's entry order.
//
// Postcondition: Returns the departed stage, or an error leaving the actor in place.
func (x *Index) Move(actor, to string) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	from, ok := x.stageOf[actor]
	if !ok {
		return "", fmt.Errorf("moving %q: %w", actor, ErrUnknownActor)
	}
	if _, ok := x.stages[to]; !ok {
		return from, fmt.Errorf("moving %q: %w %q", actor, ErrUnknownStage, to)
	}
	if !contains(x.stages[from], to) {
		return from, fmt.Errorf("moving %q from %q to %q: %w", actor, from, to, ErrNoRoute)
	}
	x.relocateLocked(actor, from, to)
	return from, nil
}

// Teleport moves an actor to any known stage regardless of the graph.
func (x *Index) Teleport(actor, to string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	from, ok := x.stageOf[actor]
	if !ok {
		return fmt.Errorf("teleporting %q: %w", actor, ErrUnknownActor)
	}
	if _, ok := x.stages[to]; !ok {
		return fmt.Errorf("teleporting %q: %w %q", actor, ErrUnknownStage, to)
	}
	x.relocateLocked(actor, from, to)
	return nil
}

// Remove takes an actor out of the world.
//
// Postcondition: Returns the stage it left, or "" if it was not placed.
func (x *Index) Remove(actor string) string {
	x.mu.Lock()
	defer x.mu.Unlock()
	from, ok := x.stageOf[actor]
	if !ok {
		return ""
	}
	delete(x.stageOf, actor)
	x.occupants[from] = without(x.occupants[from], actor)
	return from
}

// StageOf returns the stage holding actor.
func (x *Index) StageOf(actor string) (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	s, ok := x.stageOf[actor]
	return s, ok
}

// ActorsIn returns the actors in stage in entry order.
func (x *Index) ActorsIn(stage string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]string(nil), x.occupants[stage]...)
}

// CoResident reports whether a and b stand in the same stage.
func (x *Index) CoResident(a, b string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	sa, okA := x.stageOf[a]
	sb, okB := x.stageOf[b]
	return okA && okB && sa == sb
}

// Actors returns every placed actor, sorted.
func (x *Index) Actors() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return sortedKeys(x.stageOf)
}

func (x *Index) relocateLocked(actor, from, to string) {
	x.occupants[from] = without(x.occupants[from], actor)
	x.occupants[to] = append(x.occupants[to], actor)
	x.stageOf[actor] = to
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
