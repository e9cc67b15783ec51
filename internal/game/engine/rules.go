package engine

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/config"
	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/player"
	"github.com/cory-johannsen/agentrpg/internal/game/prompt"
)

var rules = map[action.Kind]rule{
	action.StageNarrateAction: {
		filter:   isStage,
		validate: nonEmpty,
		commit: func(_ *Game, e *ecs.Entity, m *move) error {
			e.Replace(component.Narration{Text: m.message})
			return nil
		},
	},
	action.TagAction: {
		validate: nonEmpty,
		commit: func(_ *Game, e *ecs.Entity, m *move) error {
			tags, _ := ecs.Get[component.Tags](e)
			values := append(append([]string(nil), tags.Values...), m.message)
			slices.Sort(values)
			e.Replace(component.Tags{Values: slices.Compact(values)})
			return nil
		},
	},
	action.PerceptionAction: {
		filter:   isLivingActor,
		once:     true,
		validate: noValue,
		emit: func(g *Game, e *ecs.Entity, _ move) {
			g.emit(player.TagStage, g.stageOf(e), g.perception(e), e.Name())
		},
	},
	action.CheckStatusAction: {
		filter:   isLivingActor,
		once:     true,
		validate: noValue,
		emit: func(g *Game, e *ecs.Entity, _ move) {
			g.emit(player.TagActor, e.Name(), prompt.TagSelf+" "+prompt.SheetText(g.sheet(e)), e.Name())
		},
	},
	action.WhisperAction: {
		filter:   isSpeaker,
		validate: validateWhisper,
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.Whisper(e.Name(), m.target.Name(), m.message), m.target.Name(), e.Name())
		},
	},
	action.SpeakAction: {
		filter:   isLivingActor,
		validate: validateSpeak,
		emit: func(g *Game, e *ecs.Entity, m move) {
			stage := g.stageOf(e)
			g.emit(player.TagActor, e.Name(), prompt.Speak(e.Name(), m.target.Name(), m.message), g.audience(stage)...)
		},
	},
	action.AnnounceAction: {
		validate: nonEmpty,
		emit:     emitAnnounce,
	},
	action.MindVoiceAction: {
		filter:   isLivingActor,
		validate: nonEmpty,
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.MindVoice(m.message), e.Name())
		},
	},
	action.PickUpPropAction: {
		filter:   isLivingActor,
		validate: validatePickUp,
		commit: func(g *Game, e *ecs.Entity, m *move) error {
			return g.files.TransferProp(m.from, e.Name(), m.prop.Name())
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.PickUp(e.Name(), m.prop.Name(), m.from), g.audience(m.from)...)
		},
	},
	action.GivePropAction: {
		filter:   isLivingActor,
		validate: validateGive,
		commit: func(g *Game, e *ecs.Entity, m *move) error {
			g.unequip(e, m.prop.Name())
			return g.files.TransferProp(e.Name(), m.target.Name(), m.prop.Name())
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.Give(e.Name(), m.target.Name(), m.prop.Name()), e.Name(), m.target.Name())
		},
	},
	action.StealPropAction: {
		filter:   isLivingActor,
		validate: validateSteal,
		commit: func(g *Game, e *ecs.Entity, m *move) error {
			g.unequip(m.target, m.prop.Name())
			return g.files.TransferProp(m.target.Name(), e.Name(), m.prop.Name())
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.Steal(e.Name(), m.target.Name(), m.prop.Name()), e.Name())
		},
	},
	action.EquipPropAction: {
		filter:   isLivingActor,
		validate: validateEquip,
		commit: func(g *Game, e *ecs.Entity, m *move) error {
			if m.prop.Kind() == files.KindWeapon {
				e.Replace(component.CurrentWeapon{Prop: m.prop.Name()})
				return nil
			}
			e.Replace(component.CurrentClothes{Prop: m.prop.Name()})
			e.Replace(component.Appearance{Text: g.appearanceOf(e)})
			return nil
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			slot := "weapon"
			if m.prop.Kind() == files.KindClothes {
				slot = "clothes"
			}
			g.emit(player.TagActor, e.Name(), prompt.Equip(e.Name(), m.prop.Name(), slot), e.Name())
		},
	},
	action.SelectAction: {
		filter:   isLivingActor,
		validate: validateSelect,
		commit: func(_ *Game, e *ecs.Entity, m *move) error {
			sc, _ := ecs.Get[component.SkillCandidates](e)
			if !slices.Contains(sc.Skills, m.prop.Name()) {
				sc.Skills = append(append([]string(nil), sc.Skills...), m.prop.Name())
			}
			e.Replace(sc)
			return nil
		},
		emit: func(g *Game, e *ecs.Entity, _ move) {
			sc, _ := ecs.Get[component.SkillCandidates](e)
			g.emit(player.TagActor, e.Name(), prompt.Selected(sc.Skills), e.Name())
		},
	},
	action.SkillAction: {
		filter:   isLivingActor,
		validate: validateSkill,
		commit: func(g *Game, e *ecs.Entity, m *move) error {
			action.Attach(m.target, action.New(action.DamageAction, e.Name(),
				action.FormatTargetMessage(e.Name(), strconv.Itoa(m.amount))))
			if sc, ok := ecs.Get[component.SkillCandidates](e); ok {
				sc.Skills = slices.DeleteFunc(append([]string(nil), sc.Skills...), func(s string) bool { return s == m.prop.Name() })
				e.Replace(sc)
			}
			return nil
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.Skill(e.Name(), m.prop.Name(), m.target.Name(), m.message), g.audience(g.stageOf(e))...)
		},
	},
	action.TurnAction: {
		filter: isLivingActor,
		once:   true,
		validate: func(_ *Game, _ *ecs.Entity, a action.Action, _ string) (move, error) {
			return move{message: strings.Join(a.Values, " ")}, nil
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagActor, e.Name(), prompt.Turn(m.message), e.Name())
		},
	},
	action.DamageAction: {
		filter:   isLivingActor,
		validate: validateDamage,
		commit:   commitDamage,
		emit: func(g *Game, e *ecs.Entity, m move) {
			attrs := ecs.MustGet[component.Attributes](e)
			g.emit(player.TagActor, m.source, prompt.Damage(m.source, e.Name(), m.amount, attrs.HP, attrs.MaxHP), g.audience(g.stageOf(e))...)
		},
	},
	action.DeadAction: {
		filter: func(_ *Game, e *ecs.Entity) bool {
			return e.Has(component.TypeActor) && !e.HasAny(component.TypeCorpse, component.TypeDestroy)
		},
		once: true,
		validate: func(_ *Game, _ *ecs.Entity, a action.Action, _ string) (move, error) {
			return move{source: a.Source}, nil
		},
		commit: commitDead,
		emit: func(g *Game, e *ecs.Entity, _ move) {
			g.emit(player.TagStage, g.stageOf(e), prompt.Dead(e.Name()), g.audience(g.stageOf(e))...)
		},
	},
	action.GoToAction: {
		filter:   isLivingActor,
		validate: validateGoTo,
		commit: func(g *Game, e *ecs.Entity, m *move) error {
			from, err := g.world.Move(e.Name(), m.to)
			if err != nil {
				return err
			}
			e.Replace(component.Actor{Name: e.Name(), CurrentStage: m.to})
			e.Replace(component.StageTag{Stage: m.to})
			e.Replace(component.EnterStage{From: from, To: m.to})
			return nil
		},
		emit: func(g *Game, e *ecs.Entity, m move) {
			g.emit(player.TagStage, m.from, prompt.Leave(e.Name(), m.from, m.to), g.audience(m.from)...)
			g.emit(player.TagStage, m.to, prompt.Enter(e.Name(), m.to, m.from), g.audience(m.to, e.Name())...)
			g.emit(player.TagStage, m.to, prompt.Arrived(m.from, m.to, g.perception(e)), e.Name())
		},
		rejected: func(g *Game, e *ecs.Entity, value string) {
			g.emit(player.TagSystem, "", prompt.GoToFailed(g.stageOf(e), strings.TrimSpace(value)), e.Name())
		},
	},
}

func isStage(_ *Game, e *ecs.Entity) bool { return e.Has(component.TypeStage) }

func isLivingActor(g *Game, e *ecs.Entity) bool { return g.isLiving(e) }

func isSpeaker(g *Game, e *ecs.Entity) bool { return e.Has(component.TypeStage) || g.isLiving(e) }

func noValue(*Game, *ecs.Entity, action.Action, string) (move, error) { return move{}, nil }

func nonEmpty(_ *Game, _ *ecs.Entity, _ action.Action, value string) (move, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return move{}, errors.New("empty value")
	}
	return move{message: v}, nil
}

// audience lists a stage's occupants, minus except, followed by the stage.
func (g *Game) audience(stage string, except ...string) []string {
	return append(g.occupantNames(stage, except...), stage)
}

// fellow resolves a living actor standing in the same stage as e.
func (g *Game) fellow(e *ecs.Entity, name string) (*ecs.Entity, error) {
	t, ok := g.livingActor(name)
	if !ok {
		return nil, fmt.Errorf("no living actor named %q", name)
	}
	if t == e {
		return nil, errors.New("cannot target yourself")
	}
	if !g.world.CoResident(e.Name(), name) {
		return nil, fmt.Errorf("%s is not here", name)
	}
	return t, nil
}

// acquaintance is fellow restricted to actors e has an archive of.
func (g *Game) acquaintance(e *ecs.Entity, name string) (*ecs.Entity, error) {
	t, err := g.fellow(e, name)
	if err != nil {
		return nil, err
	}
	if !g.files.KnowsActor(e.Name(), name) {
		return nil, fmt.Errorf("%s does not know %s", e.Name(), name)
	}
	return t, nil
}

func validateSpeak(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	target, msg, ok := action.ParseTargetMessage(value)
	if !ok {
		return move{}, fmt.Errorf("malformed target in %q", value)
	}
	t, err := g.acquaintance(e, target)
	if err != nil {
		return move{}, err
	}
	return move{target: t, message: msg}, nil
}

// validateWhisper also lets a stage whisper to anyone standing in it.
func validateWhisper(g *Game, e *ecs.Entity, a action.Action, value string) (move, error) {
	if !e.Has(component.TypeStage) {
		return validateSpeak(g, e, a, value)
	}
	target, msg, ok := action.ParseTargetMessage(value)
	if !ok {
		return move{}, fmt.Errorf("malformed target in %q", value)
	}
	t, ok := g.livingActor(target)
	if !ok || g.stageOf(t) != e.Name() {
		return move{}, fmt.Errorf("%s is not in %s", target, e.Name())
	}
	return move{target: t, message: msg}, nil
}

// emitAnnounce routes by speaker kind: an actor reaches its stage, a stage
// its occupants, a world system every actor.
func emitAnnounce(g *Game, e *ecs.Entity, m move) {
	switch {
	case e.Has(component.TypeWorld):
		g.emit(player.TagStage, e.Name(), prompt.Announce(e.Name(), "the world", m.message), g.world.Actors()...)
	case e.Has(component.TypeStage):
		g.emit(player.TagStage, e.Name(), prompt.Announce(e.Name(), e.Name(), m.message), g.occupantNames(e.Name())...)
	case g.isLiving(e):
		stage := g.stageOf(e)
		g.emit(player.TagActor, e.Name(), prompt.Announce(e.Name(), stage, m.message), g.audience(stage, e.Name())...)
	}
}

func validatePickUp(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	name := strings.TrimSpace(value)
	stage := g.stageOf(e)
	p, ok := g.files.GetProp(stage, name)
	if !ok {
		return move{}, fmt.Errorf("%w: %q in %s", files.ErrPropNotFound, name, stage)
	}
	if p.Kind() != files.KindConsumable && g.files.HasProp(e.Name(), name) {
		return move{}, fmt.Errorf("%w: %q", files.ErrPropExists, name)
	}
	return move{prop: p, from: stage}, nil
}

func validateGive(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	target, item, ok := action.ParseTargetMessage(value)
	if !ok {
		return move{}, fmt.Errorf("malformed target in %q", value)
	}
	t, err := g.fellow(e, target)
	if err != nil {
		return move{}, err
	}
	p, ok := g.files.GetProp(e.Name(), item)
	if !ok {
		return move{}, fmt.Errorf("%w: %q owned by %s", files.ErrPropNotFound, item, e.Name())
	}
	return move{target: t, prop: p}, nil
}

func validateSteal(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	target, item, ok := action.ParseTargetMessage(value)
	if !ok {
		return move{}, fmt.Errorf("malformed target in %q", value)
	}
	t, err := g.fellow(e, target)
	if err != nil {
		return move{}, err
	}
	p, ok := g.files.GetProp(target, item)
	if !ok {
		return move{}, fmt.Errorf("%w: %q owned by %s", files.ErrPropNotFound, item, target)
	}
	return move{target: t, prop: p}, nil
}

// validateEquip accepts owned weapons and clothes; any other kind is refused.
func validateEquip(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	name := strings.TrimSpace(value)
	p, ok := g.files.GetProp(e.Name(), name)
	if !ok {
		return move{}, fmt.Errorf("%w: %q owned by %s", files.ErrPropNotFound, name, e.Name())
	}
	if !p.Kind().Equippable() {
		return move{}, fmt.Errorf("%q is a %s and cannot be equipped", name, p.Kind())
	}
	return move{prop: p}, nil
}

func validateSelect(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	name := strings.TrimSpace(value)
	p, ok := g.files.GetProp(e.Name(), name)
	if !ok || p.Kind() != files.KindSkill {
		return move{}, fmt.Errorf("%s has no skill %q", e.Name(), name)
	}
	return move{prop: p}, nil
}

// validateSkill resolves "@target>skill[>message]" and computes the damage:
// the actor's own damage plus its weapon's plus the skill's.
func validateSkill(g *Game, e *ecs.Entity, a action.Action, value string) (move, error) {
	target, rest, ok := action.ParseTargetMessage(value)
	if !ok {
		return move{}, fmt.Errorf("malformed target in %q", value)
	}
	skill, msg, _ := strings.Cut(rest, action.Separator)
	m, err := validateSelect(g, e, a, skill)
	if err != nil {
		return move{}, err
	}
	t, err := g.fellow(e, target)
	if err != nil {
		return move{}, err
	}
	m.target = t
	m.message = strings.TrimSpace(msg)
	m.amount = m.prop.Def.Attributes.Damage
	if attrs, ok := ecs.Get[component.Attributes](e); ok {
		m.amount += attrs.Damage
	}
	if w, ok := ecs.Get[component.CurrentWeapon](e); ok {
		if wp, ok := g.files.GetProp(e.Name(), w.Prop); ok {
			m.amount += wp.Def.Attributes.Damage
		}
	}
	return m, nil
}

func validateDamage(_ *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	attacker, raw, ok := action.ParseTargetMessage(value)
	if !ok {
		return move{}, fmt.Errorf("malformed damage %q", value)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return move{}, fmt.Errorf("damage amount %q is not a non-negative integer", raw)
	}
	if e.HasAny(component.TypeCorpse, component.TypeDestroy, action.DeadAction.ComponentType()) {
		return move{}, fmt.Errorf("%s is already down", e.Name())
	}
	return move{source: attacker, amount: n}, nil
}

// commitDamage subtracts the amount reduced by defense and worn clothes.
// A living target left at zero hit points, even by a zero-damage hit, is
// marked dead at the attacker's hand.
func commitDamage(g *Game, e *ecs.Entity, m *move) error {
	attrs := ecs.MustGet[component.Attributes](e)
	defense := attrs.Defense
	if c, ok := ecs.Get[component.CurrentClothes](e); ok {
		if cp, ok := g.files.GetProp(e.Name(), c.Prop); ok {
			defense += cp.Def.Attributes.Defense
		}
	}
	m.amount = max(0, m.amount-defense)
	attrs.HP -= m.amount
	attrs = attrs.Clamp()
	e.Replace(attrs)
	if attrs.HP == 0 {
		action.Attach(e, action.New(action.DeadAction, m.source))
	}
	return nil
}

// commitDead loots the victim, clears its pending actions, and applies the
// dead policy.
func commitDead(g *Game, e *ecs.Entity, m *move) error {
	victim := e.Name()
	if killer, ok := g.livingActor(m.source); ok && killer != e {
		for _, p := range g.files.Props(victim) {
			if !p.Kind().Lootable() {
				continue
			}
			g.unequip(e, p.Name())
			if err := g.files.TransferProp(victim, killer.Name(), p.Name()); err != nil {
				g.logger.Warn("looting prop", zap.String("killer", killer.Name()), zap.String("prop", p.Name()), zap.Error(err))
				continue
			}
			g.emit(player.TagActor, killer.Name(), prompt.Loot(killer.Name(), victim, p.Name()), killer.Name())
		}
	}
	action.Clear(e)
	attrs := ecs.MustGet[component.Attributes](e)
	attrs.HP = 0
	e.Replace(attrs)
	if g.cfg.DeadPolicy == config.DeadPolicyCorpse {
		e.Replace(component.Corpse{Round: g.round})
		g.markSpawnDead(victim)
	} else {
		e.Replace(component.Destroy{})
	}
	if p, ok := g.players.ByActor(victim); ok {
		p.Deliver(player.TagSystem, "", "You died.")
		p.End()
	}
	g.logger.Info("actor died", zap.String("actor", victim), zap.String("killer", m.source), zap.Int("round", g.round))
	return nil
}

func validateGoTo(g *Game, e *ecs.Entity, _ action.Action, value string) (move, error) {
	to := strings.TrimSpace(value)
	from := g.stageOf(e)
	switch {
	case to == from:
		return move{}, fmt.Errorf("already in %s", to)
	case !g.world.HasStage(to):
		return move{}, fmt.Errorf("unknown stage %q", to)
	case !g.world.CanReach(from, to):
		return move{}, fmt.Errorf("%s does not lead to %s", from, to)
	}
	return move{from: from, to: to}, nil
}

// unequip clears whichever slot holds prop.
func (g *Game) unequip(e *ecs.Entity, prop string) {
	if w, ok := ecs.Get[component.CurrentWeapon](e); ok && w.Prop == prop {
		e.Remove(component.TypeCurrentWeapon)
	}
	if c, ok := ecs.Get[component.CurrentClothes](e); ok && c.Prop == prop {
		e.Remove(component.TypeCurrentClothes)
		e.Replace(component.Appearance{Text: g.appearanceOf(e)})
	}
}
