package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
)

// Processor is one named step of the tick pipeline. A processor implements
// at least one of Initializer, Executor, AsyncExecutor, TearDowner, or
// Reactive.
type Processor interface {
	Name() string
}

// Initializer runs once before the first tick.
type Initializer interface {
	Initialize(ctx context.Context)
}

// Executor runs synchronously every tick.
type Executor interface {
	Execute(ctx context.Context)
}

// AsyncExecutor fans out to agents and returns once every request settled.
// Entity state is only mutated after the fan-out returns.
type AsyncExecutor interface {
	ExecuteAsync(ctx context.Context)
}

// TearDowner runs once when the game shuts down.
type TearDowner interface {
	TearDown(ctx context.Context)
}

// Reactive processors receive the entities that gained their trigger
// component since they last ran.
type Reactive interface {
	Trigger() ecs.ComponentType
	Filter(e *ecs.Entity) bool
	React(ctx context.Context, entities []*ecs.Entity)
}

// Final marks a processor that still runs when a tick short-circuits.
type Final interface {
	Final() bool
}

type step struct {
	proc      Processor
	collector *ecs.Collector
}

// Scheduler runs the processors of one game in pipeline order.
type Scheduler struct {
	g      *Game
	steps  []*step
	logger *zap.Logger
}

func newScheduler(g *Game) *Scheduler {
	s := &Scheduler{g: g, logger: g.logger.Named("scheduler")}
	for _, p := range pipeline(g) {
		st := &step{proc: p}
		if r, ok := p.(Reactive); ok {
			st.collector = g.entities.NewCollector(r.Trigger(), ecs.Added)
		}
		s.steps = append(s.steps, st)
	}
	return s
}

// pipeline returns every processor in authoritative order.
func pipeline(g *Game) []Processor {
	return []Processor{
		&beginProcessor{g: g},
		&preActionProcessor{g: g, logger: g.logger.Named("pre_action")},
		&connectProcessor{g: g, logger: g.logger.Named("agent_connect")},
		&strategyProcessor{g: g},
		&stagePlanningProcessor{g: g, logger: g.logger.Named("stage_planning")},
		&worldPlanningProcessor{g: g, logger: g.logger.Named("world_planning")},
		&actorPlanningProcessor{g: g, logger: g.logger.Named("actor_planning")},
		&playerInputProcessor{g: g, logger: g.logger.Named("player_input")},

		newRuleProcessor(g, action.StageNarrateAction),
		newRuleProcessor(g, action.TagAction),
		newRuleProcessor(g, action.PerceptionAction),
		newRuleProcessor(g, action.CheckStatusAction),
		newRuleProcessor(g, action.WhisperAction),
		newRuleProcessor(g, action.SpeakAction),
		newRuleProcessor(g, action.AnnounceAction),
		newRuleProcessor(g, action.MindVoiceAction),
		newRuleProcessor(g, action.PickUpPropAction),
		newRuleProcessor(g, action.GivePropAction),
		newRuleProcessor(g, action.StealPropAction),
		newRuleProcessor(g, action.EquipPropAction),
		newRuleProcessor(g, action.SelectAction),
		newRuleProcessor(g, action.SkillAction),
		newRuleProcessor(g, action.TurnAction),
		newRuleProcessor(g, action.DamageAction),
		newRuleProcessor(g, action.DeadAction),
		newRuleProcessor(g, action.GoToAction),
		&archiveProcessor{g: g},
		&postActionProcessor{g: g, logger: g.logger.Named("post_action")},

		&postPlanningProcessor{g: g},
		&endProcessor{g: g, logger: g.logger.Named("end")},
		&destroyProcessor{g: g, logger: g.logger.Named("destroy")},
		&saveProcessor{g: g, logger: g.logger.Named("save")},
	}
}

func (s *Scheduler) initialize(ctx context.Context) {
	for _, st := range s.steps {
		if p, ok := st.proc.(Initializer); ok {
			p.Initialize(ctx)
			s.g.flushEvents()
		}
	}
}

// tick runs one pass of the pipeline. Once exit is requested only Final
// processors run.
func (s *Scheduler) tick(ctx context.Context) {
	for _, st := range s.steps {
		if s.g.WillExit() && !isFinal(st.proc) {
			continue
		}
		s.run(ctx, st)
		s.g.flushEvents()
	}
	for _, st := range s.steps {
		if st.collector != nil {
			st.collector.Clear()
		}
	}
	if s.g.WillExit() {
		for _, e := range s.g.entities.Entities() {
			action.Clear(e)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, st *step) {
	start := time.Now()
	switch p := st.proc.(type) {
	case Reactive:
		var matched []*ecs.Entity
		for _, e := range st.collector.Drain() {
			if e.Alive() && e.Has(p.Trigger()) && p.Filter(e) {
				matched = append(matched, e)
			}
		}
		if len(matched) == 0 {
			return
		}
		p.React(ctx, matched)
	case AsyncExecutor:
		p.ExecuteAsync(ctx)
	case Executor:
		p.Execute(ctx)
	default:
		return
	}
	s.logger.Debug("processor ran",
		zap.String("processor", st.proc.Name()),
		zap.Int("round", s.g.round),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Scheduler) tearDown(ctx context.Context) {
	for i := len(s.steps) - 1; i >= 0; i-- {
		if p, ok := s.steps[i].proc.(TearDowner); ok {
			p.TearDown(ctx)
		}
	}
	s.g.flushEvents()
}

func isFinal(p Processor) bool {
	f, ok := p.(Final)
	return ok && f.Final()
}
