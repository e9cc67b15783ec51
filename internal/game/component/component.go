// Package component defines the non-action components attached to simulation
// entities and their JSON codec for entity profile dumps.
package component

import "github.com/cory-johannsen/agentrpg/internal/game/ecs"

// Component type names.
const (
	TypeWorld           ecs.ComponentType = "World"
	TypeStage           ecs.ComponentType = "Stage"
	TypeActor           ecs.ComponentType = "Actor"
	TypePlayer          ecs.ComponentType = "Player"
	TypeKickOff         ecs.ComponentType = "KickOff"
	TypeKickOffDone     ecs.ComponentType = "KickOffDone"
	TypeAgentConnected  ecs.ComponentType = "AgentConnected"
	TypeDestroy         ecs.ComponentType = "Destroy"
	TypeGUID            ecs.ComponentType = "GUID"
	TypeAttributes      ecs.ComponentType = "Attributes"
	TypeAppearance      ecs.ComponentType = "Appearance"
	TypeBaseForm        ecs.ComponentType = "BaseForm"
	TypeStageGraph      ecs.ComponentType = "StageGraph"
	TypeNarration       ecs.ComponentType = "Narration"
	TypeStageTag        ecs.ComponentType = "StageTag"
	TypeCurrentWeapon   ecs.ComponentType = "CurrentWeapon"
	TypeCurrentClothes  ecs.ComponentType = "CurrentClothes"
	TypePlanningAllowed ecs.ComponentType = "PlanningAllowed"
	TypeEnterStage      ecs.ComponentType = "EnterStage"
	TypeSkillCandidates ecs.ComponentType = "SkillCandidates"
	TypeSpawner         ecs.ComponentType = "Spawner"
	TypeSpawnedBy       ecs.ComponentType = "SpawnedBy"
	TypeCorpse          ecs.ComponentType = "Corpse"
	TypeTags            ecs.ComponentType = "Tags"
)

// World marks a world-system entity: a global rule agent with no location.
type World struct {
	Name string `json:"name"`
}

func (World) ComponentType() ecs.ComponentType { return TypeWorld }

// Stage marks a location entity.
type Stage struct {
	Name string `json:"name"`
}

func (Stage) ComponentType() ecs.ComponentType { return TypeStage }

// Actor marks an entity inhabiting exactly one stage.
type Actor struct {
	Name         string `json:"name"`
	CurrentStage string `json:"current_stage"`
}

func (Actor) ComponentType() ecs.ComponentType { return TypeActor }

// Player binds an actor to a player proxy.
type Player struct {
	Name string `json:"name"`
}

func (Player) ComponentType() ecs.ComponentType { return TypePlayer }

// KickOff holds the message that starts an entity's conversation.
type KickOff struct {
	Content string `json:"content"`
}

func (KickOff) ComponentType() ecs.ComponentType { return TypeKickOff }

// KickOffDone marks an entity whose kick-off content has been delivered.
type KickOffDone struct{}

func (KickOffDone) ComponentType() ecs.ComponentType { return TypeKickOffDone }

// AgentConnected marks an entity whose agent endpoint answered a probe.
type AgentConnected struct{}

func (AgentConnected) ComponentType() ecs.ComponentType { return TypeAgentConnected }

// Destroy marks an entity for removal in this tick's teardown.
type Destroy struct{}

func (Destroy) ComponentType() ecs.ComponentType { return TypeDestroy }

// GUID is the entity's game-unique number.
type GUID struct {
	Value int `json:"value"`
}

func (GUID) ComponentType() ecs.ComponentType { return TypeGUID }

// Attributes holds combat statistics.
type Attributes struct {
	MaxHP   int `json:"max_hp"`
	HP      int `json:"hp"`
	Damage  int `json:"damage"`
	Defense int `json:"defense"`
}

func (Attributes) ComponentType() ecs.ComponentType { return TypeAttributes }

// Clamp returns a with HP bounded to [0, MaxHP].
func (a Attributes) Clamp() Attributes {
	if a.MaxHP < 0 {
		a.MaxHP = 0
	}
	if a.HP < 0 {
		a.HP = 0
	}
	if a.HP > a.MaxHP {
		a.HP = a.MaxHP
	}
	return a
}

// HealthPercent returns HP as a whole percentage of MaxHP.
func (a Attributes) HealthPercent() int {
	if a.MaxHP <= 0 {
		return 0
	}
	return a.HP * 100 / a.MaxHP
}

// Appearance is how others perceive the entity.
type Appearance struct {
	Text string `json:"text"`
}

func (Appearance) ComponentType() ecs.ComponentType { return TypeAppearance }

// BaseForm is the entity's body description before equipment.
type BaseForm struct {
	Text string `json:"text"`
}

func (BaseForm) ComponentType() ecs.ComponentType { return TypeBaseForm }

// StageGraph lists the stages reachable from a stage in one move.
type StageGraph struct {
	Outbound []string `json:"outbound"`
}

func (StageGraph) ComponentType() ecs.ComponentType { return TypeStageGraph }

// Narration is a stage's current description of itself.
type Narration struct {
	Text string `json:"text"`
}

func (Narration) ComponentType() ecs.ComponentType { return TypeNarration }

// StageTag mirrors the actor's current stage for membership queries.
type StageTag struct {
	Stage string `json:"stage"`
}

func (StageTag) ComponentType() ecs.ComponentType { return TypeStageTag }

// CurrentWeapon names the equipped weapon prop.
type CurrentWeapon struct {
	Prop string `json:"prop"`
}

func (CurrentWeapon) ComponentType() ecs.ComponentType { return TypeCurrentWeapon }

// CurrentClothes names the equipped clothes prop.
type CurrentClothes struct {
	Prop string `json:"prop"`
}

func (CurrentClothes) ComponentType() ecs.ComponentType { return TypeCurrentClothes }

// PlanningAllowed grants an entity a planning request this tick.
type PlanningAllowed struct{}

func (PlanningAllowed) ComponentType() ecs.ComponentType { return TypePlanningAllowed }

// EnterStage records a stage entry during the current tick.
type EnterStage struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (EnterStage) ComponentType() ecs.ComponentType { return TypeEnterStage }

// SkillCandidates is the queue of skills an actor selected for later use.
type SkillCandidates struct {
	Skills []string `json:"skills"`
}

func (SkillCandidates) ComponentType() ecs.ComponentType { return TypeSkillCandidates }

// Spawner lists the spawner definitions attached to a stage.
type Spawner struct {
	Names []string `json:"names"`
}

func (Spawner) ComponentType() ecs.ComponentType { return TypeSpawner }

// SpawnedBy links a spawned actor to its spawner.
type SpawnedBy struct {
	Spawner string `json:"spawner"`
}

func (SpawnedBy) ComponentType() ecs.ComponentType { return TypeSpawnedBy }

// Corpse marks a dead actor kept in the world.
type Corpse struct {
	Round int `json:"round"`
}

func (Corpse) ComponentType() ecs.ComponentType { return TypeCorpse }

// Tags are free-form labels an agent attached to its own entity.
type Tags struct {
	Values []string `json:"values"`
}

func (Tags) ComponentType() ecs.ComponentType { return TypeTags }
