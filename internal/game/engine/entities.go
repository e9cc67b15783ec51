package engine

import (
	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/prompt"
)

var (
	actorMatcher = ecs.AllOf(component.TypeActor)
	stageMatcher = ecs.AllOf(component.TypeStage)
	worldMatcher = ecs.AllOf(component.TypeWorld)
)

// isLiving reports whether e is an actor that is neither dead nor marked
// for removal.
func (g *Game) isLiving(e *ecs.Entity) bool {
	if e == nil || !e.Alive() || !e.Has(component.TypeActor) {
		return false
	}
	return !e.HasAny(component.TypeCorpse, component.TypeDestroy, action.DeadAction.ComponentType())
}

func (g *Game) isPlayer(e *ecs.Entity) bool {
	return e.Has(component.TypePlayer)
}

// livingActor returns the living actor named name.
func (g *Game) livingActor(name string) (*ecs.Entity, bool) {
	e, ok := g.entities.Entity(name)
	if !ok || !g.isLiving(e) {
		return nil, false
	}
	return e, true
}

// stageOf returns the name of the stage actor e stands in.
func (g *Game) stageOf(e *ecs.Entity) string {
	if s, ok := g.world.StageOf(e.Name()); ok {
		return s
	}
	if a, ok := ecs.Get[component.Actor](e); ok {
		return a.CurrentStage
	}
	return ""
}

// occupants returns the living actors in stage in entry order.
func (g *Game) occupants(stage string) []*ecs.Entity {
	var out []*ecs.Entity
	for _, name := range g.world.ActorsIn(stage) {
		if e, ok := g.livingActor(name); ok {
			out = append(out, e)
		}
	}
	return out
}

// occupantNames returns every actor placed in stage, except the excluded
// names.
func (g *Game) occupantNames(stage string, except ...string) []string {
	skip := make(map[string]bool, len(except))
	for _, n := range except {
		skip[n] = true
	}
	var out []string
	for _, n := range g.world.ActorsIn(stage) {
		if !skip[n] {
			out = append(out, n)
		}
	}
	return out
}

func (g *Game) kickOffText(name string, kc component.KickOff) string {
	return prompt.KickOff(name, kc.Content, g.bp.AboutGame)
}

func (g *Game) narration(stage string) string {
	if e, ok := g.entities.Entity(stage); ok {
		if n, ok := ecs.Get[component.Narration](e); ok {
			return n.Text
		}
	}
	return ""
}

func (g *Game) actorView(e *ecs.Entity) prompt.ActorView {
	v := prompt.ActorView{Name: e.Name()}
	if a, ok := ecs.Get[component.Appearance](e); ok {
		v.Appearance = a.Text
	}
	if attrs, ok := ecs.Get[component.Attributes](e); ok {
		v.HealthPercent = attrs.HealthPercent()
	}
	return v
}

// otherViews returns the views of every living actor in stage except self.
func (g *Game) otherViews(stage, self string) []prompt.ActorView {
	var out []prompt.ActorView
	for _, e := range g.occupants(stage) {
		if e.Name() != self {
			out = append(out, g.actorView(e))
		}
	}
	return out
}

func propViews(props []files.PropFile) []prompt.PropView {
	out := make([]prompt.PropView, 0, len(props))
	for _, p := range props {
		out = append(out, prompt.PropView{
			Name:        p.Name(),
			Kind:        string(p.Kind()),
			Count:       p.Instance.Count,
			Description: p.Def.Description,
		})
	}
	return out
}

func (g *Game) sheet(e *ecs.Entity) prompt.Sheet {
	s := prompt.Sheet{Name: e.Name(), Inventory: propViews(g.files.Props(e.Name()))}
	if attrs, ok := ecs.Get[component.Attributes](e); ok {
		s.HP, s.MaxHP, s.Damage, s.Defense = attrs.HP, attrs.MaxHP, attrs.Damage, attrs.Defense
	}
	if w, ok := ecs.Get[component.CurrentWeapon](e); ok {
		s.Weapon = w.Prop
	}
	if c, ok := ecs.Get[component.CurrentClothes](e); ok {
		s.Clothes = c.Prop
	}
	if sc, ok := ecs.Get[component.SkillCandidates](e); ok {
		s.SkillCandidates = append([]string(nil), sc.Skills...)
	}
	return s
}

// perception renders what actor e perceives of its current stage.
func (g *Game) perception(e *ecs.Entity) string {
	stage := g.stageOf(e)
	return prompt.Perception(stage, g.narration(stage), g.otherViews(stage, e.Name()), propViews(g.files.Props(stage)))
}

// appearanceOf combines a base form with the appearance of worn clothes.
func (g *Game) appearanceOf(e *ecs.Entity) string {
	base := ""
	if b, ok := ecs.Get[component.BaseForm](e); ok {
		base = b.Text
	}
	c, ok := ecs.Get[component.CurrentClothes](e)
	if !ok {
		return base
	}
	p, ok := g.files.GetProp(e.Name(), c.Prop)
	if !ok || p.Def.Appearance == "" {
		return base
	}
	if base == "" {
		return p.Def.Appearance
	}
	return base + " " + p.Def.Appearance
}
