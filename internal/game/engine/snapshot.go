package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/save"
)

// Snapshot captures the persistent state of the game. Tick-scoped
// components are left out.
//
// Postcondition: Equal game states yield equal snapshots.
func (g *Game) Snapshot() (save.Snapshot, error) {
	s := save.Snapshot{
		Runtime: save.Runtime{
			Game:       g.cfg.Name,
			Version:    g.bp.Version,
			Round:      g.round,
			NextGUID:   g.nextGUID,
			Entities:   []string{},
			Occupants:  []save.StageOccupants{},
			Players:    []save.PlayerBinding{},
			Spawns:     append([]save.SpawnRecord{}, g.spawns...),
			RoundRobin: []save.Cursor{},
			Blueprint:  g.bp,
		},
		Entities:      []save.EntityDump{},
		ChatHistories: []agent.HistoryDump{},
		Props:         append([]files.PropFile{}, g.files.AllProps()...),
		ActorArchives: []files.ActorArchive{},
		StageArchives: []files.StageArchive{},
	}
	for _, e := range g.entities.Entities() {
		s.Runtime.Entities = append(s.Runtime.Entities, e.Name())
		dump := save.EntityDump{Name: e.Name(), Components: []component.Encoded{}}
		for _, c := range e.Components() {
			if !component.Persistent(c.ComponentType()) {
				continue
			}
			enc, err := component.Encode(c)
			if err != nil {
				return save.Snapshot{}, fmt.Errorf("snapshot %q: %w", e.Name(), err)
			}
			dump.Components = append(dump.Components, enc)
		}
		s.Entities = append(s.Entities, dump)
		if p, ok := ecs.Get[component.Player](e); ok {
			s.Runtime.Players = append(s.Runtime.Players, save.PlayerBinding{Player: p.Name, Actor: e.Name()})
		}
	}
	for _, stage := range g.world.Stages() {
		s.Runtime.Occupants = append(s.Runtime.Occupants, save.StageOccupants{
			Stage:  stage,
			Actors: append([]string{}, g.world.ActorsIn(stage)...),
		})
	}
	stages := make([]string, 0, len(g.cursors))
	for stage := range g.cursors {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		s.Runtime.RoundRobin = append(s.Runtime.RoundRobin, *g.cursors[stage])
	}
	for _, name := range g.agents.Names() {
		if d, ok := g.agents.Dump(name); ok {
			s.ChatHistories = append(s.ChatHistories, d)
		}
	}
	for _, owner := range g.files.ArchiveOwners() {
		s.ActorArchives = append(s.ActorArchives, g.files.ActorArchives(owner)...)
		s.StageArchives = append(s.StageArchives, g.files.StageArchives(owner)...)
	}
	s.Normalize()
	return s, nil
}

// CheckInvariants verifies the world after a tick: actor placement matches
// the stage index and stage tag, props have existing owners, hit points are
// clamped, an actor at zero hit points is dead, no actor is in two death
// states, and no action is pending.
func (g *Game) CheckInvariants() error {
	var errs []error
	for _, e := range g.entities.Query(actorMatcher) {
		name := e.Name()
		stage, ok := g.world.StageOf(name)
		if !ok {
			errs = append(errs, fmt.Errorf("actor %q is not placed", name))
		} else {
			if !g.world.HasStage(stage) {
				errs = append(errs, fmt.Errorf("actor %q stands in unknown stage %q", name, stage))
			}
			if a := ecs.MustGet[component.Actor](e); a.CurrentStage != stage {
				errs = append(errs, fmt.Errorf("actor %q current stage %q, index says %q", name, a.CurrentStage, stage))
			}
			if tag, ok := ecs.Get[component.StageTag](e); !ok || tag.Stage != stage {
				errs = append(errs, fmt.Errorf("actor %q stage tag does not match %q", name, stage))
			}
		}
		if attrs, ok := ecs.Get[component.Attributes](e); ok && attrs != attrs.Clamp() {
			errs = append(errs, fmt.Errorf("actor %q hit points %d out of [0, %d]", name, attrs.HP, attrs.MaxHP))
		}
		states := 0
		for _, t := range []ecs.ComponentType{component.TypeCorpse, component.TypeDestroy, action.DeadAction.ComponentType()} {
			if e.Has(t) {
				states++
			}
		}
		if states > 1 {
			errs = append(errs, fmt.Errorf("actor %q is in %d death states", name, states))
		}
		if attrs, ok := ecs.Get[component.Attributes](e); ok && attrs.HP <= 0 && states == 0 {
			errs = append(errs, fmt.Errorf("actor %q has no hit points but is not dead", name))
		}
	}
	for _, owner := range g.files.PropOwners() {
		if _, ok := g.entities.Entity(owner); !ok {
			errs = append(errs, fmt.Errorf("props owned by missing entity %q", owner))
		}
	}
	for _, e := range g.entities.Entities() {
		if kinds := action.Pending(e); len(kinds) > 0 {
			errs = append(errs, fmt.Errorf("entity %q has pending actions %v", e.Name(), kinds))
		}
	}
	return errors.Join(errs...)
}
