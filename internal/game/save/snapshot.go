// Package save persists game snapshots: the runtime directory layout, zip
// archives of it, and compressed single-file round dumps.
package save

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
)

// StageOccupants lists a stage's actors in entry order.
type StageOccupants struct {
	Stage  string   `json:"stage"`
	Actors []string `json:"actors"`
}

// PlayerBinding ties a player name to the actor it controls.
type PlayerBinding struct {
	Player string `json:"player"`
	Actor  string `json:"actor"`
}

// SpawnRecord tracks one spawner slot: which actor fills it and when it died.
type SpawnRecord struct {
	Stage     string `json:"stage"`
	Spawner   string `json:"spawner"`
	Prototype string `json:"prototype"`
	Actor     string `json:"actor"`
	DiedRound int    `json:"died_round"`
}

// Cursor is a stage's round-robin planning position.
type Cursor struct {
	Stage string `json:"stage"`
	Next  int    `json:"next"`
	Last  string `json:"last"`
}

// Runtime is the evolving world model stored as runtime.json.
type Runtime struct {
	Game       string               `json:"game"`
	Version    string               `json:"version"`
	Round      int                  `json:"round"`
	NextGUID   int                  `json:"next_guid"`
	Entities   []string             `json:"entities"`
	Occupants  []StageOccupants     `json:"occupants"`
	Players    []PlayerBinding      `json:"players"`
	Spawns     []SpawnRecord        `json:"spawns"`
	RoundRobin []Cursor             `json:"round_robin"`
	Blueprint  *blueprint.Blueprint `json:"blueprint"`
}

// EntityDump is the component snapshot of one entity.
type EntityDump struct {
	Name       string              `json:"name"`
	Components []component.Encoded `json:"components"`
}

// Snapshot is the complete persisted state of a game.
type Snapshot struct {
	Runtime       Runtime              `json:"runtime"`
	Entities      []EntityDump         `json:"entities"`
	ChatHistories []agent.HistoryDump  `json:"chat_histories"`
	Props         []files.PropFile     `json:"props"`
	ActorArchives []files.ActorArchive `json:"actor_archives"`
	StageArchives []files.StageArchive `json:"stage_archives"`
}

// Normalize sorts every order-free collection so equal states compare equal.
// Entities keep creation order.
func (s *Snapshot) Normalize() {
	sort.SliceStable(s.ChatHistories, func(i, j int) bool { return s.ChatHistories[i].Name < s.ChatHistories[j].Name })
	sort.SliceStable(s.Props, func(i, j int) bool {
		a, b := s.Props[i], s.Props[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Name() < b.Name()
	})
	sort.SliceStable(s.ActorArchives, func(i, j int) bool {
		a, b := s.ActorArchives[i], s.ActorArchives[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Name < b.Name
	})
	sort.SliceStable(s.StageArchives, func(i, j int) bool {
		a, b := s.StageArchives[i], s.StageArchives[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Name < b.Name
	})
	for i := range s.Entities {
		c := s.Entities[i].Components
		sort.SliceStable(c, func(a, b int) bool { return c[a].Type < c[b].Type })
		for j := range c {
			c[j].Data = compact(c[j].Data)
		}
	}
}

// Normalized returns a normalized copy of s. The collections of s are left
// untouched.
func (s *Snapshot) Normalized() Snapshot {
	out := *s
	out.ChatHistories = slices.Clone(s.ChatHistories)
	out.Props = slices.Clone(s.Props)
	out.ActorArchives = slices.Clone(s.ActorArchives)
	out.StageArchives = slices.Clone(s.StageArchives)
	out.Entities = slices.Clone(s.Entities)
	for i := range out.Entities {
		out.Entities[i].Components = slices.Clone(out.Entities[i].Components)
	}
	out.Normalize()
	return out
}

// compact strips insignificant whitespace so re-read component data compares equal.
func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return json.RawMessage(buf.Bytes())
}

// Marshal renders the snapshot as indented JSON after normalizing it.
//
// Postcondition: Equal states produce identical bytes.
func Marshal(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s.Normalized(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Unmarshal parses Marshal output.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	s.Normalize()
	return s, nil
}
