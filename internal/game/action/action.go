// Package action defines the intent components agents and players attach to
// entities, the per-agent-kind permitted action sets, and the structural
// parser for LLM plan responses.
package action

import (
	"strings"

	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
)

// Kind names an action variant. It is also the component type of the action
// and the key used in plan JSON.
type Kind string

const (
	SpeakAction        Kind = "SpeakAction"
	WhisperAction      Kind = "WhisperAction"
	AnnounceAction     Kind = "AnnounceAction"
	MindVoiceAction    Kind = "MindVoiceAction"
	GoToAction         Kind = "GoToAction"
	PickUpPropAction   Kind = "PickUpPropAction"
	GivePropAction     Kind = "GivePropAction"
	StealPropAction    Kind = "StealPropAction"
	EquipPropAction    Kind = "EquipPropAction"
	SkillAction        Kind = "SkillAction"
	SelectAction       Kind = "SelectAction"
	TurnAction         Kind = "TurnAction"
	StageNarrateAction Kind = "StageNarrateAction"
	TagAction          Kind = "TagAction"
	DamageAction       Kind = "DamageAction"
	DeadAction         Kind = "DeadAction"
	PerceptionAction   Kind = "PerceptionAction"
	CheckStatusAction  Kind = "CheckStatusAction"
)

// All lists every kind in adjudication order.
var All = []Kind{
	StageNarrateAction,
	TagAction,
	PerceptionAction,
	CheckStatusAction,
	WhisperAction,
	SpeakAction,
	AnnounceAction,
	MindVoiceAction,
	PickUpPropAction,
	GivePropAction,
	StealPropAction,
	EquipPropAction,
	SelectAction,
	SkillAction,
	TurnAction,
	DamageAction,
	DeadAction,
	GoToAction,
}

// ComponentType returns the ECS component type carrying actions of kind k.
func (k Kind) ComponentType() ecs.ComponentType { return ecs.ComponentType(k) }

// Targeted reports whether values of kind k must use the "@target>message" form.
func (k Kind) Targeted() bool {
	switch k {
	case SpeakAction, WhisperAction, GivePropAction, StealPropAction, SkillAction, DamageAction:
		return true
	}
	return false
}

// Action is an intent awaiting adjudication.
type Action struct {
	Kind   Kind     `json:"kind"`
	Source string   `json:"source"`
	Values []string `json:"values"`
}

// ComponentType implements ecs.Component.
func (a Action) ComponentType() ecs.ComponentType { return a.Kind.ComponentType() }

// New returns an action of kind k from source.
func New(k Kind, source string, values ...string) Action {
	return Action{Kind: k, Source: source, Values: append([]string(nil), values...)}
}

// Of returns the action of kind k attached to e.
func Of(e *ecs.Entity, k Kind) (Action, bool) {
	c, ok := e.Get(k.ComponentType())
	if !ok {
		return Action{}, false
	}
	a, ok := c.(Action)
	return a, ok
}

// Attach adds a to e, appending to the values of an action of the same kind
// already attached this tick.
func Attach(e *ecs.Entity, a Action) {
	if prev, ok := Of(e, a.Kind); ok {
		prev.Values = append(prev.Values, a.Values...)
		e.Replace(prev)
		return
	}
	e.Replace(a)
}

// Clear removes every action component from e.
//
// Postcondition: Returns the kinds that were present.
func Clear(e *ecs.Entity) []Kind {
	var removed []Kind
	for _, k := range All {
		if e.Remove(k.ComponentType()) {
			removed = append(removed, k)
		}
	}
	return removed
}

// Pending returns every action kind attached to e.
func Pending(e *ecs.Entity) []Kind {
	var out []Kind
	for _, k := range All {
		if e.Has(k.ComponentType()) {
			out = append(out, k)
		}
	}
	return out
}

// Separator splits a target-bearing value into target and message.
const Separator = ">"

// ParseTargetMessage splits "@target>message".
//
// Postcondition: ok is false if the value lacks the leading "@", the
// separator, or a target name.
func ParseTargetMessage(value string) (target, message string, ok bool) {
	if !strings.HasPrefix(value, "@") {
		return "", "", false
	}
	idx := strings.Index(value, Separator)
	if idx < 0 {
		return "", "", false
	}
	target = strings.TrimSpace(value[1:idx])
	if target == "" {
		return "", "", false
	}
	return target, strings.TrimSpace(value[idx+len(Separator):]), true
}

// FormatTargetMessage builds "@target>message".
func FormatTargetMessage(target, message string) string {
	return "@" + target + Separator + message
}
