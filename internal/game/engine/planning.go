package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/prompt"
)

// applyPlan validates an agent response and attaches its actions to e.
// A structurally invalid response is rolled back out of the agent's history.
//
// Postcondition: Returns false if the response was rejected.
func (g *Game) applyPlan(e *ecs.Entity, raw string, permitted action.Set, logger *zap.Logger) bool {
	plan, err := action.ParsePlan(e.Name(), raw, permitted)
	if err != nil {
		removed := g.agents.RemoveLastConversation(e.Name())
		logger.Warn("plan rejected",
			zap.String("agent", e.Name()),
			zap.Int("rolled_back", len(removed)),
			zap.Error(err),
		)
		return false
	}
	for _, a := range plan.Actions {
		a.Source = e.Name()
		action.Attach(e, a)
	}
	logger.Debug("plan accepted", zap.String("agent", e.Name()), zap.Any("kinds", plan.Kinds()))
	return true
}

// stagePlanningProcessor asks every permitted stage what happens in it.
// Narration is applied before actor planning so actors see it this round.
type stagePlanningProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *stagePlanningProcessor) Name() string { return "stage_planning" }

func (p *stagePlanningProcessor) ExecuteAsync(ctx context.Context) {
	g := p.g
	stages := g.entities.Query(ecs.AllOf(component.TypeStage, component.TypePlanningAllowed))
	if len(stages) == 0 {
		return
	}
	names := make([]string, 0, len(stages))
	for _, e := range stages {
		names = append(names, e.Name())
	}
	g.chaos.OnStagePlanning(g, names)

	tasks := make([]*agent.Task, 0, len(stages))
	for _, e := range stages {
		var actors []prompt.ActorView
		for _, a := range g.occupants(e.Name()) {
			actors = append(actors, g.actorView(a))
		}
		t := agent.NewTask(e.Name(), prompt.StagePlan(prompt.StagePlanInput{
			Round:     g.round,
			Stage:     e.Name(),
			Narration: g.narration(e.Name()),
			Actors:    actors,
			Props:     propViews(g.files.Props(e.Name())),
			Permitted: action.StagePermitted.Names(),
		}))
		if canned, ok := g.chaos.HackStagePlanning(g, e.Name(), t.Prompt); ok {
			t.UseCanned(canned)
		}
		tasks = append(tasks, t)
	}
	g.agents.Gather(ctx, tasks)

	for i, t := range tasks {
		if !t.OK() {
			continue
		}
		e := stages[i]
		if !g.applyPlan(e, t.Response, action.StagePermitted, p.logger) {
			continue
		}
		g.adjudicate(e, action.StageNarrateAction)
	}
}

// worldPlanningProcessor asks world systems for global announcements and tags.
type worldPlanningProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *worldPlanningProcessor) Name() string { return "world_planning" }

func (p *worldPlanningProcessor) ExecuteAsync(ctx context.Context) {
	g := p.g
	systems := g.entities.Query(ecs.AllOf(component.TypeWorld, component.TypePlanningAllowed))
	if len(systems) == 0 {
		return
	}
	layout := make(map[string][]string)
	for _, s := range g.world.Stages() {
		layout[s] = g.world.ActorsIn(s)
	}
	tasks := make([]*agent.Task, 0, len(systems))
	for _, e := range systems {
		tasks = append(tasks, agent.NewTask(e.Name(), prompt.WorldPlan(prompt.WorldPlanInput{
			Round:     g.round,
			Name:      e.Name(),
			Stages:    layout,
			Permitted: action.WorldPermitted.Names(),
		})))
	}
	g.agents.Gather(ctx, tasks)
	for i, t := range tasks {
		if t.OK() {
			g.applyPlan(systems[i], t.Response, action.WorldPermitted, p.logger)
		}
	}
}

// actorPlanningProcessor asks every permitted, non-player actor for its
// actions this round.
type actorPlanningProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *actorPlanningProcessor) Name() string { return "actor_planning" }

func (p *actorPlanningProcessor) ExecuteAsync(ctx context.Context) {
	g := p.g
	var actors []*ecs.Entity
	for _, e := range g.entities.Query(ecs.AllOf(component.TypeActor, component.TypePlanningAllowed)) {
		if g.isLiving(e) && !g.isPlayerActor(e.Name()) {
			actors = append(actors, e)
		}
	}
	if len(actors) == 0 {
		return
	}
	names := make([]string, 0, len(actors))
	for _, e := range actors {
		names = append(names, e.Name())
	}
	g.chaos.OnActorPlanning(g, names)

	tasks := make([]*agent.Task, 0, len(actors))
	for _, e := range actors {
		stage := g.stageOf(e)
		t := agent.NewTask(e.Name(), prompt.ActorPlan(prompt.ActorPlanInput{
			Round:     g.round,
			Stage:     stage,
			Narration: g.narration(stage),
			Outbound:  g.world.Outbound(stage),
			Props:     propViews(g.files.Props(stage)),
			Others:    g.otherViews(stage, e.Name()),
			Self:      g.sheet(e),
			Permitted: action.ActorPermitted.Names(),
		}))
		if canned, ok := g.chaos.HackActorPlanning(g, e.Name(), t.Prompt); ok {
			t.UseCanned(canned)
		}
		tasks = append(tasks, t)
	}
	g.agents.Gather(ctx, tasks)
	for i, t := range tasks {
		if t.OK() {
			g.applyPlan(actors[i], t.Response, action.ActorPermitted, p.logger)
		}
	}
}
