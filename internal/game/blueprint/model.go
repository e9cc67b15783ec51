// Package blueprint loads the versioned JSON world blueprint a game is built from.
package blueprint

// Attribute slots of the integer attribute lists in actor, stage, and prop prototypes.
const (
	AttrMaxHP = iota
	AttrHP
	AttrDamage
	AttrDefense
)

// PropInstance places a copy of a prop prototype.
type PropInstance struct {
	Name  string `json:"name"`
	GUID  int    `json:"guid"`
	Count int    `json:"count"`
}

// ActorInstance places an actor prototype. Equipped names props from Props.
type ActorInstance struct {
	Name     string         `json:"name"`
	GUID     int            `json:"guid"`
	Props    []PropInstance `json:"props"`
	Equipped []string       `json:"actor_current_using_prop"`
}

// ActorRef names an actor instance inside a stage instance.
type ActorRef struct {
	Name string `json:"name"`
}

// StageInstance places a stage prototype with its contents.
type StageInstance struct {
	Name     string         `json:"name"`
	GUID     int            `json:"guid"`
	Props    []PropInstance `json:"props"`
	Actors   []ActorRef     `json:"actors"`
	Spawners []string       `json:"spawners"`
}

// WorldSystemInstance places a world-system prototype.
type WorldSystemInstance struct {
	Name string `json:"name"`
	GUID int    `json:"guid"`
}

// ActorModel is an actor prototype.
type ActorModel struct {
	Name           string   `json:"name"`
	Codename       string   `json:"codename"`
	URL            string   `json:"url"`
	KickOffMessage string   `json:"kick_off_message"`
	ActorArchives  []string `json:"actor_archives"`
	StageArchives  []string `json:"stage_archives"`
	Attributes     []int    `json:"attributes"`
	Body           string   `json:"body"`
}

// StageModel is a stage prototype.
type StageModel struct {
	Name           string   `json:"name"`
	Codename       string   `json:"codename"`
	SystemPrompt   string   `json:"system_prompt"`
	URL            string   `json:"url"`
	KickOffMessage string   `json:"kick_off_message"`
	StageGraph     []string `json:"stage_graph"`
	Attributes     []int    `json:"attributes"`
}

// PropModel is a prop prototype.
type PropModel struct {
	Name        string `json:"name"`
	Codename    string `json:"codename"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Attributes  []int  `json:"attributes"`
	Appearance  string `json:"appearance"`
}

// WorldSystemModel is a world-system prototype.
type WorldSystemModel struct {
	Name     string `json:"name"`
	Codename string `json:"codename"`
	URL      string `json:"url"`
}

// SpawnerModel keeps one actor alive per prototype in the stages that list it.
// A destroyed spawn is recreated RespawnRounds rounds later; 0 disables respawn.
type SpawnerModel struct {
	Name           string          `json:"name"`
	ActorPrototype []ActorInstance `json:"actor_prototype"`
	RespawnRounds  int             `json:"respawn_rounds"`
}

// Database holds every prototype.
type Database struct {
	Actors       []ActorModel       `json:"actors"`
	Stages       []StageModel       `json:"stages"`
	Props        []PropModel        `json:"props"`
	WorldSystems []WorldSystemModel `json:"world_systems"`
	Spawners     []SpawnerModel     `json:"spawners"`
}

// Blueprint is a complete world description.
type Blueprint struct {
	SaveRound    int                   `json:"save_round"`
	Players      []ActorInstance       `json:"players"`
	Actors       []ActorInstance       `json:"actors"`
	Stages       []StageInstance       `json:"stages"`
	WorldSystems []WorldSystemInstance `json:"world_systems"`
	Database     Database              `json:"database"`
	AboutGame    string                `json:"about_game"`
	Version      string                `json:"version"`
}

// Attr returns the attribute at slot i, or 0 if the list is short.
func Attr(list []int, i int) int {
	if i < 0 || i >= len(list) {
		return 0
	}
	return list[i]
}

// ActorModel returns the prototype named name.
func (db Database) ActorModel(name string) (ActorModel, bool) {
	for _, m := range db.Actors {
		if m.Name == name {
			return m, true
		}
	}
	return ActorModel{}, false
}

// StageModel returns the prototype named name.
func (db Database) StageModel(name string) (StageModel, bool) {
	for _, m := range db.Stages {
		if m.Name == name {
			return m, true
		}
	}
	return StageModel{}, false
}

// PropModel returns the prototype named name.
func (db Database) PropModel(name string) (PropModel, bool) {
	for _, m := range db.Props {
		if m.Name == name {
			return m, true
		}
	}
	return PropModel{}, false
}

// WorldSystemModel returns the prototype named name.
func (db Database) WorldSystemModel(name string) (WorldSystemModel, bool) {
	for _, m := range db.WorldSystems {
		if m.Name == name {
			return m, true
		}
	}
	return WorldSystemModel{}, false
}

// Spawner returns the spawner named name.
func (db Database) Spawner(name string) (SpawnerModel, bool) {
	for _, m := range db.Spawners {
		if m.Name == name {
			return m, true
		}
	}
	return SpawnerModel{}, false
}
