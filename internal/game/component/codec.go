package component

import (
	"encoding/json"
	"fmt"

	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
)

// Encoded is the profile-dump form of one component.
type Encoded struct {
	Type ecs.ComponentType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

type decoder func(json.RawMessage) (ecs.Component, error)

var decoders = map[ecs.ComponentType]decoder{}

func register[T ecs.Component]() {
	var zero T
	decoders[zero.ComponentType()] = func(raw json.RawMessage) (ecs.Component, error) {
		var c T
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func init() {
	register[World]()
	register[Stage]()
	register[Actor]()
	register[Player]()
	register[KickOff]()
	register[KickOffDone]()
	register[AgentConnected]()
	register[Destroy]()
	register[GUID]()
	register[Attributes]()
	register[Appearance]()
	register[BaseForm]()
	register[StageGraph]()
	register[Narration]()
	register[StageTag]()
	register[CurrentWeapon]()
	register[CurrentClothes]()
	register[PlanningAllowed]()
	register[EnterStage]()
	register[SkillCandidates]()
	register[Spawner]()
	register[SpawnedBy]()
	register[Corpse]()
	register[Tags]()
}

// Encode converts c to its profile-dump form.
func Encode(c ecs.Component) (Encoded, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return Encoded{}, fmt.Errorf("encoding component %s: %w", c.ComponentType(), err)
	}
	return Encoded{Type: c.ComponentType(), Data: raw}, nil
}

// Decode rebuilds a component from its profile-dump form.
//
// Postcondition: Returns an error for types without a registered decoder.
func Decode(enc Encoded) (ecs.Component, error) {
	dec, ok := decoders[enc.Type]
	if !ok {
		return nil, fmt.Errorf("unknown component type %q", enc.Type)
	}
	c, err := dec(enc.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding component %s: %w", enc.Type, err)
	}
	return c, nil
}

// Persistent reports whether t belongs in an entity profile dump.
// Tick-scoped scheduling components are not saved.
func Persistent(t ecs.ComponentType) bool {
	switch t {
	case TypePlanningAllowed, TypeEnterStage, TypeDestroy:
		return false
	}
	_, ok := decoders[t]
	return ok
}
