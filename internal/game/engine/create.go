package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/save"
)

// New builds a game from a validated blueprint: world systems, stages, then
// actors in the order their stages list them.
//
// Precondition: deps.Logger must be non-nil.
// Postcondition: Returns a game at round 0, or an error if the blueprint is
// inconsistent.
func New(bp *blueprint.Blueprint, deps Deps) (*Game, error) {
	g, err := newGame(bp, deps)
	if err != nil {
		return nil, err
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	g.round = bp.SaveRound
	g.chaos.OnPreCreateWorld(g)
	g.nextGUID = maxGUID(bp) + 1

	for _, w := range bp.WorldSystems {
		if err := g.createWorldSystem(w); err != nil {
			return nil, err
		}
	}
	for _, s := range bp.Stages {
		if err := g.createStage(s); err != nil {
			return nil, err
		}
	}
	if err := g.world.Validate(); err != nil {
		return nil, fmt.Errorf("stage graph: %w", err)
	}
	instances := make(map[string]blueprint.ActorInstance, len(bp.Actors)+len(bp.Players))
	for _, a := range bp.Players {
		instances[a.Name] = a
	}
	for _, a := range bp.Actors {
		instances[a.Name] = a
	}
	for _, s := range bp.Stages {
		for _, ref := range s.Actors {
			inst := instances[ref.Name]
			if _, err := g.createActor(inst.Name, inst, s.Name, inst.GUID); err != nil {
				return nil, err
			}
		}
	}
	g.seedArchives()
	g.chaos.OnPostCreateWorld(g)
	g.logger.Info("world created",
		zap.String("game", g.cfg.Name),
		zap.String("version", bp.Version),
		zap.Int("entities", len(g.entities.Entities())),
	)
	return g, nil
}

func (g *Game) createWorldSystem(inst blueprint.WorldSystemInstance) error {
	model, ok := g.bp.Database.WorldSystemModel(inst.Name)
	if !ok {
		return fmt.Errorf("world system %q has no prototype", inst.Name)
	}
	e, err := g.entities.CreateEntity(inst.Name)
	if err != nil {
		return err
	}
	e.Replace(component.World{Name: inst.Name})
	e.Replace(component.GUID{Value: inst.GUID})
	e.Replace(component.KickOff{Content: fmt.Sprintf("You keep the rules of %s.", g.cfg.Name)})
	return g.registerAgent(inst.Name, model.URL, "")
}

func (g *Game) createStage(inst blueprint.StageInstance) error {
	model, ok := g.bp.Database.StageModel(inst.Name)
	if !ok {
		return fmt.Errorf("stage %q has no prototype", inst.Name)
	}
	e, err := g.entities.CreateEntity(inst.Name)
	if err != nil {
		return err
	}
	e.Replace(component.Stage{Name: inst.Name})
	e.Replace(component.GUID{Value: inst.GUID})
	e.Replace(component.StageGraph{Outbound: append([]string{}, model.StageGraph...)})
	e.Replace(component.Narration{Text: model.KickOffMessage})
	e.Replace(component.KickOff{Content: model.KickOffMessage})
	if len(inst.Spawners) > 0 {
		e.Replace(component.Spawner{Names: append([]string{}, inst.Spawners...)})
	}
	if err := g.world.AddStage(inst.Name, model.StageGraph); err != nil {
		return err
	}
	for _, p := range inst.Props {
		if err := g.giveProp(inst.Name, p, p.GUID); err != nil {
			return err
		}
	}
	return g.registerAgent(inst.Name, model.URL, model.SystemPrompt)
}

// createActor creates entity name from the actor prototype inst names and
// places it at the tail of stage.
func (g *Game) createActor(name string, inst blueprint.ActorInstance, stage string, guid int) (*ecs.Entity, error) {
	model, ok := g.bp.Database.ActorModel(inst.Name)
	if !ok {
		return nil, fmt.Errorf("actor %q has no prototype", inst.Name)
	}
	e, err := g.entities.CreateEntity(name)
	if err != nil {
		return nil, err
	}
	e.Replace(component.Actor{Name: name, CurrentStage: stage})
	e.Replace(component.StageTag{Stage: stage})
	e.Replace(component.GUID{Value: guid})
	e.Replace(component.Attributes{
		MaxHP:   blueprint.Attr(model.Attributes, blueprint.AttrMaxHP),
		HP:      blueprint.Attr(model.Attributes, blueprint.AttrHP),
		Damage:  blueprint.Attr(model.Attributes, blueprint.AttrDamage),
		Defense: blueprint.Attr(model.Attributes, blueprint.AttrDefense),
	}.Clamp())
	e.Replace(component.BaseForm{Text: model.Body})
	e.Replace(component.KickOff{Content: model.KickOffMessage})
	for _, p := range inst.Props {
		pguid := p.GUID
		if name != inst.Name || pguid == 0 {
			pguid = g.newGUID()
		}
		if err := g.giveProp(name, p, pguid); err != nil {
			return nil, err
		}
	}
	for _, eq := range inst.Equipped {
		p, ok := g.files.GetProp(name, eq)
		if !ok {
			continue
		}
		switch p.Kind() {
		case files.KindWeapon:
			e.Replace(component.CurrentWeapon{Prop: eq})
		case files.KindClothes:
			e.Replace(component.CurrentClothes{Prop: eq})
		}
	}
	e.Replace(component.Appearance{Text: g.appearanceOf(e)})
	if err := g.world.Place(name, stage); err != nil {
		return nil, err
	}
	if err := g.registerAgent(name, model.URL, ""); err != nil {
		return nil, err
	}
	return e, nil
}

// propFile builds the file for a prop instance from its prototype.
func (g *Game) propFile(inst blueprint.PropInstance, guid int) (files.PropFile, error) {
	m, ok := g.bp.Database.PropModel(inst.Name)
	if !ok {
		return files.PropFile{}, fmt.Errorf("%w: no prototype for %q", files.ErrPropNotFound, inst.Name)
	}
	return files.PropFile{
		Def: files.PropDef{
			Name:        m.Name,
			Codename:    m.Codename,
			Description: m.Description,
			Kind:        files.PropKind(m.Type),
			Attributes: files.PropAttributes{
				MaxHP:   blueprint.Attr(m.Attributes, blueprint.AttrMaxHP),
				HP:      blueprint.Attr(m.Attributes, blueprint.AttrHP),
				Damage:  blueprint.Attr(m.Attributes, blueprint.AttrDamage),
				Defense: blueprint.Attr(m.Attributes, blueprint.AttrDefense),
			},
			Appearance: m.Appearance,
		},
		Instance: files.PropInstance{Name: inst.Name, GUID: guid, Count: inst.Count},
	}, nil
}

func (g *Game) giveProp(owner string, inst blueprint.PropInstance, guid int) error {
	pf, err := g.propFile(inst, guid)
	if err != nil {
		return err
	}
	return g.files.AddProp(owner, pf)
}

// registerAgent registers the agent of an entity. Entities without an
// endpoint have no agent and never plan.
func (g *Game) registerAgent(name, url, systemPrompt string) error {
	if url == "" {
		return nil
	}
	t, err := g.transports(name, url)
	if err != nil {
		return fmt.Errorf("agent %q: %w", name, err)
	}
	if err := g.agents.Register(name, url, t); err != nil {
		return err
	}
	if systemPrompt != "" {
		return g.agents.AppendSystem(name, systemPrompt)
	}
	return nil
}

// seedArchives gives every actor knowledge of its stage and co-located actors,
// plus the archives its prototype lists.
func (g *Game) seedArchives() {
	for _, e := range g.entities.Query(actorMatcher) {
		if model, ok := g.bp.Database.ActorModel(e.Name()); ok {
			for _, name := range model.ActorArchives {
				if other, ok := g.entities.Entity(name); ok && other.Has(component.TypeActor) {
					g.learnActor(e.Name(), other)
				}
			}
			for _, name := range model.StageArchives {
				if stage, ok := g.entities.Entity(name); ok && stage.Has(component.TypeStage) {
					g.learnStage(e.Name(), stage)
				}
			}
		}
	}
	g.refreshArchives()
}

func maxGUID(bp *blueprint.Blueprint) int {
	m := 0
	see := func(v int) {
		if v > m {
			m = v
		}
	}
	actors := func(list []blueprint.ActorInstance) {
		for _, a := range list {
			see(a.GUID)
			for _, p := range a.Props {
				see(p.GUID)
			}
		}
	}
	actors(bp.Players)
	actors(bp.Actors)
	for _, s := range bp.Stages {
		see(s.GUID)
		for _, p := range s.Props {
			see(p.GUID)
		}
	}
	for _, w := range bp.WorldSystems {
		see(w.GUID)
	}
	for _, sp := range bp.Database.Spawners {
		actors(sp.ActorPrototype)
	}
	return m
}

// Restore rebuilds a game from a snapshot. Agents whose history is missing
// from the snapshot are registered empty and reported to the chaos system.
//
// Postcondition: Snapshot of the returned game equals s.
func Restore(s save.Snapshot, deps Deps) (*Game, error) {
	if s.Runtime.Blueprint == nil {
		return nil, errors.New("restore: snapshot has no blueprint")
	}
	g, err := newGame(s.Runtime.Blueprint, deps)
	if err != nil {
		return nil, err
	}
	g.round = s.Runtime.Round
	g.nextGUID = s.Runtime.NextGUID
	g.spawns = append(g.spawns, s.Runtime.Spawns...)
	for _, c := range s.Runtime.RoundRobin {
		cur := c
		g.cursors[c.Stage] = &cur
	}

	for _, dump := range s.Entities {
		e, err := g.entities.CreateEntity(dump.Name)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		for _, enc := range dump.Components {
			c, err := component.Decode(enc)
			if err != nil {
				return nil, fmt.Errorf("restore %q: %w", dump.Name, err)
			}
			e.Replace(c)
		}
	}
	for _, e := range g.entities.Query(stageMatcher) {
		graph, _ := ecs.Get[component.StageGraph](e)
		if err := g.world.AddStage(e.Name(), graph.Outbound); err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
	}
	for _, occ := range s.Runtime.Occupants {
		for _, actor := range occ.Actors {
			if err := g.world.Place(actor, occ.Stage); err != nil {
				return nil, fmt.Errorf("restore: %w", err)
			}
		}
	}

	for _, p := range s.Props {
		if err := g.files.AddProp(p.Owner, p); err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
	}
	for _, a := range s.ActorArchives {
		g.files.SetActorArchive(a)
	}
	for _, a := range s.StageArchives {
		g.files.SetStageArchive(a)
	}

	histories := make(map[string]int, len(s.ChatHistories))
	for i, h := range s.ChatHistories {
		histories[h.Name] = i
	}
	for _, e := range g.entities.Entities() {
		url := g.agentURL(e.Name())
		if i, ok := histories[e.Name()]; ok {
			url = s.ChatHistories[i].URL
		}
		if url == "" {
			continue
		}
		if err := g.registerAgent(e.Name(), url, ""); err != nil {
			return nil, err
		}
		i, ok := histories[e.Name()]
		if !ok {
			g.logger.Warn("chat history missing from save", zap.String("agent", e.Name()))
			g.chaos.OnReadMemoryFailed(g, e.Name())
		} else if err := g.agents.SetHistory(e.Name(), s.ChatHistories[i].ChatHistory); err != nil {
			return nil, err
		}
		if e.Has(component.TypeAgentConnected) {
			g.agents.MarkConnected(e.Name())
		}
	}
	g.logger.Info("world restored",
		zap.String("game", g.cfg.Name),
		zap.Int("round", g.round),
		zap.Int("entities", len(s.Entities)),
	)
	return g, nil
}

// agentURL resolves the endpoint declared by an entity's prototype.
func (g *Game) agentURL(name string) string {
	db := g.bp.Database
	for _, sp := range g.spawns {
		if sp.Actor == name {
			if m, ok := db.ActorModel(sp.Prototype); ok {
				return m.URL
			}
		}
	}
	if m, ok := db.ActorModel(name); ok {
		return m.URL
	}
	if m, ok := db.StageModel(name); ok {
		return m.URL
	}
	if m, ok := db.WorldSystemModel(name); ok {
		return m.URL
	}
	return ""
}
