package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/chaos"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/player"
	"github.com/cory-johannsen/agentrpg/internal/game/prompt"
	"github.com/cory-johannsen/agentrpg/internal/game/save"
)

type beginProcessor struct {
	g *Game
}

func (p *beginProcessor) Name() string { return "begin" }

func (p *beginProcessor) Execute(context.Context) {
	p.g.round++
	p.g.events = nil
	p.g.logger.Debug("round begins", zap.Int("round", p.g.round))
}

// preActionProcessor promotes kick-offs and refills spawners.
type preActionProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *preActionProcessor) Name() string { return "pre_action" }

func (p *preActionProcessor) Execute(context.Context) {
	for _, e := range p.g.entities.Query(ecs.AllOf(component.TypePlanningAllowed)) {
		p.logger.Warn("planning permission left over from previous round", zap.String("entity", e.Name()))
		e.Remove(component.TypePlanningAllowed)
	}
	p.g.promoteKickOffs(p.logger)
	p.g.refillSpawners(p.logger)
}

// promoteKickOffs delivers kick-off content to every entity whose agent is
// connected, or whose actor is player-controlled, and has not received it.
func (g *Game) promoteKickOffs(logger *zap.Logger) {
	pending := ecs.AllOf(component.TypeKickOff).Without(component.TypeKickOffDone, component.TypeCorpse)
	for _, e := range g.entities.Query(pending) {
		if !e.Has(component.TypeAgentConnected) && !g.isPlayerActor(e.Name()) {
			continue
		}
		text := g.kickOffText(e.Name(), ecs.MustGet[component.KickOff](e))
		if g.agents.Has(e.Name()) {
			if err := g.agents.AppendHuman(e.Name(), text); err != nil {
				logger.Warn("appending kick-off", zap.String("entity", e.Name()), zap.Error(err))
			}
		}
		if p, ok := g.players.ByActor(e.Name()); ok {
			p.Deliver(player.TagKickOff, e.Name(), stripTag(text))
		}
		e.Replace(component.KickOffDone{})
		logger.Debug("kick-off delivered", zap.String("entity", e.Name()))
	}
}

// refillSpawners creates missing spawns: on first sight of a spawner slot,
// and again respawn_rounds after its actor died.
func (g *Game) refillSpawners(logger *zap.Logger) {
	for _, stage := range g.entities.Query(ecs.AllOf(component.TypeStage, component.TypeSpawner)) {
		for _, spName := range ecs.MustGet[component.Spawner](stage).Names {
			model, ok := g.bp.Database.Spawner(spName)
			if !ok {
				logger.Warn("unknown spawner", zap.String("stage", stage.Name()), zap.String("spawner", spName))
				continue
			}
			for _, proto := range model.ActorPrototype {
				i := g.spawnSlot(stage.Name(), spName, proto.Name)
				rec := g.spawns[i]
				if rec.Actor != "" {
					if _, alive := g.livingActor(rec.Actor); alive {
						continue
					}
					if model.RespawnRounds <= 0 || g.round < rec.DiedRound+model.RespawnRounds {
						continue
					}
				}
				if err := g.spawn(i, proto); err != nil {
					logger.Warn("spawning actor", zap.String("spawner", spName), zap.String("prototype", proto.Name), zap.Error(err))
				}
			}
		}
	}
}

func (g *Game) spawnSlot(stage, spawner, prototype string) int {
	for i, r := range g.spawns {
		if r.Stage == stage && r.Spawner == spawner && r.Prototype == prototype {
			return i
		}
	}
	g.spawns = append(g.spawns, save.SpawnRecord{Stage: stage, Spawner: spawner, Prototype: prototype})
	return len(g.spawns) - 1
}

func (g *Game) spawn(slot int, proto blueprint.ActorInstance) error {
	rec := &g.spawns[slot]
	guid := g.newGUID()
	name := proto.Name
	if _, taken := g.entities.Entity(name); taken {
		name = fmt.Sprintf("%s#%d", proto.Name, guid)
	}
	e, err := g.createActor(name, proto, rec.Stage, guid)
	if err != nil {
		return err
	}
	e.Replace(component.SpawnedBy{Spawner: rec.Spawner})
	rec.Actor = name
	rec.DiedRound = 0
	g.emit(player.TagStage, rec.Stage, prompt.Spawned(name, rec.Stage), append(g.occupantNames(rec.Stage, name), rec.Stage)...)
	g.logger.Info("actor spawned", zap.String("actor", name), zap.String("stage", rec.Stage), zap.String("spawner", rec.Spawner))
	return nil
}

func (g *Game) markSpawnDead(actor string) {
	for i := range g.spawns {
		if g.spawns[i].Actor == actor && g.spawns[i].DiedRound == 0 {
			g.spawns[i].DiedRound = g.round
		}
	}
}

// connectProcessor probes every agent that has not answered yet.
type connectProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *connectProcessor) Name() string { return "agent_connect" }

func (p *connectProcessor) Initialize(ctx context.Context) { p.connect(ctx) }

func (p *connectProcessor) ExecuteAsync(ctx context.Context) { p.connect(ctx) }

func (p *connectProcessor) connect(ctx context.Context) {
	var names []string
	for _, e := range p.g.entities.Entities() {
		if e.HasAny(component.TypeAgentConnected, component.TypeCorpse) || p.g.isPlayerActor(e.Name()) || !p.g.agents.Has(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return
	}
	for _, name := range p.g.agents.Connect(ctx, names) {
		if e, ok := p.g.entities.Entity(name); ok {
			e.Replace(component.AgentConnected{})
			p.logger.Info("agent connected", zap.String("agent", name))
		}
	}
}

// strategyProcessor grants planning permission: every ready stage and world
// system, and round_robin_size actors per stage in entry order.
type strategyProcessor struct {
	g *Game
}

func (p *strategyProcessor) Name() string { return "planning_strategy" }

func (p *strategyProcessor) Execute(context.Context) {
	g := p.g
	for _, e := range g.entities.Query(worldMatcher) {
		if g.readyToPlan(e) {
			e.Replace(component.PlanningAllowed{})
		}
	}
	for _, stage := range g.world.Stages() {
		var eligible []*ecs.Entity
		for _, e := range g.occupants(stage) {
			if !g.isPlayerActor(e.Name()) && g.readyToPlan(e) {
				eligible = append(eligible, e)
			}
		}
		if se, ok := g.entities.Entity(stage); ok && g.readyToPlan(se) && len(g.occupants(stage)) > 0 {
			se.Replace(component.PlanningAllowed{})
		}
		if len(eligible) == 0 {
			continue
		}
		cur := g.cursor(stage)
		start := cur.Next % len(eligible)
		for i, e := range eligible {
			if cur.Last != "" && e.Name() == cur.Last {
				start = (i + 1) % len(eligible)
				break
			}
		}
		n := min(g.cfg.RoundRobinSize, len(eligible))
		for k := 0; k < n; k++ {
			e := eligible[(start+k)%len(eligible)]
			e.Replace(component.PlanningAllowed{})
			cur.Last = e.Name()
		}
		cur.Next = (start + n) % len(eligible)
	}
}

func (g *Game) readyToPlan(e *ecs.Entity) bool {
	return e.Has(component.TypeAgentConnected, component.TypeKickOffDone) && !e.Has(component.TypeCorpse) && g.agents.Has(e.Name())
}

func (g *Game) cursor(stage string) *save.Cursor {
	c, ok := g.cursors[stage]
	if !ok {
		c = &save.Cursor{Stage: stage}
		g.cursors[stage] = c
	}
	return c
}

// postActionProcessor drops action components nothing consumed and the
// per-tick stage entry records.
type postActionProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *postActionProcessor) Name() string { return "post_action" }

func (p *postActionProcessor) Execute(context.Context) {
	for _, e := range p.g.entities.Entities() {
		if kinds := action.Clear(e); len(kinds) > 0 {
			p.logger.Warn("unadjudicated actions dropped", zap.String("entity", e.Name()), zap.Any("kinds", kinds))
		}
		e.Remove(component.TypeEnterStage)
	}
}

type postPlanningProcessor struct {
	g *Game
}

func (p *postPlanningProcessor) Name() string { return "post_planning" }

func (p *postPlanningProcessor) Execute(context.Context) {
	for _, e := range p.g.entities.Query(ecs.AllOf(component.TypePlanningAllowed)) {
		e.Remove(component.TypePlanningAllowed)
	}
}

// endProcessor notifies round observers and checks world invariants.
type endProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *endProcessor) Name() string { return "end" }

func (p *endProcessor) Execute(context.Context) {
	if obs, ok := p.g.chaos.(chaos.RoundObserver); ok {
		obs.OnRoundEnd(p.g)
	}
	if err := p.g.CheckInvariants(); err != nil {
		p.logger.Error("world invariant violated", zap.Int("round", p.g.round), zap.Error(err))
	}
	p.logger.Debug("round ends",
		zap.Int("round", p.g.round),
		zap.Int("entities", len(p.g.entities.Entities())),
		zap.Int("actors", len(p.g.world.Actors())),
	)
}

// destroyProcessor removes every entity marked for removal this round.
type destroyProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *destroyProcessor) Name() string { return "destroy" }

func (p *destroyProcessor) Final() bool { return true }

func (p *destroyProcessor) Execute(context.Context) {
	for _, e := range p.g.entities.Query(ecs.AllOf(component.TypeDestroy)) {
		p.g.destroyEntity(e, p.logger)
	}
}

// destroyEntity removes e from the world. An actor's remaining props are
// dropped in its last stage so every prop keeps a living owner.
func (g *Game) destroyEntity(e *ecs.Entity, logger *zap.Logger) {
	name := e.Name()
	if e.Has(component.TypeActor) {
		stage := g.world.Remove(name)
		if stage == "" {
			stage = ecs.MustGet[component.Actor](e).CurrentStage
		}
		for _, prop := range g.files.Props(name) {
			if err := g.files.TransferProp(name, stage, prop.Name()); err != nil {
				logger.Warn("dropping prop of destroyed actor", zap.String("actor", name), zap.String("prop", prop.Name()), zap.Error(err))
				if _, err := g.files.RemoveProp(name, prop.Name()); err != nil {
					logger.Warn("removing prop", zap.String("prop", prop.Name()), zap.Error(err))
				}
			}
		}
		g.files.ForgetActor(name)
		g.markSpawnDead(name)
	}
	g.files.DropOwner(name)
	g.agents.Unregister(name)
	if p, ok := g.players.ByActor(name); ok {
		p.End()
	}
	g.entities.DestroyEntity(e)
	logger.Info("entity destroyed", zap.String("entity", name), zap.Int("round", g.round))
}

// saveProcessor writes a snapshot every save_every_rounds rounds.
type saveProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *saveProcessor) Name() string { return "save" }

func (p *saveProcessor) Final() bool { return true }

func (p *saveProcessor) Execute(ctx context.Context) {
	g := p.g
	n := g.cfg.SaveEveryRounds
	if g.saver == nil || n <= 0 || g.round%n != 0 || g.WillExit() {
		return
	}
	snap, err := g.Snapshot()
	if err != nil {
		p.logger.Error("building snapshot", zap.Error(err))
		return
	}
	if err := g.saver.Save(ctx, snap); err != nil {
		p.logger.Error("saving game", zap.Int("round", g.round), zap.Error(err))
		return
	}
	p.logger.Info("game saved", zap.Int("round", g.round))
}
