package action

import "sort"

// Set is a set of permitted action kinds.
type Set map[Kind]bool

// NewSet returns a Set of kinds.
func NewSet(kinds ...Kind) Set {
	s := make(Set, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// Names returns the kinds in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// ActorPermitted are the kinds an actor agent may plan.
var ActorPermitted = NewSet(
	SpeakAction,
	WhisperAction,
	AnnounceAction,
	MindVoiceAction,
	GoToAction,
	PickUpPropAction,
	GivePropAction,
	StealPropAction,
	EquipPropAction,
	SkillAction,
	SelectAction,
	TurnAction,
	TagAction,
	PerceptionAction,
	CheckStatusAction,
)

// StagePermitted are the kinds a stage agent may plan.
var StagePermitted = NewSet(
	StageNarrateAction,
	AnnounceAction,
	WhisperAction,
	TagAction,
)

// WorldPermitted are the kinds a world-system agent may plan.
var WorldPermitted = NewSet(
	AnnounceAction,
	TagAction,
)
