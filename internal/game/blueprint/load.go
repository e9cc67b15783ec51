package blueprint

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaText string

var (
	// ErrVersionMismatch is returned when the blueprint's version tag differs from the expected one.
	ErrVersionMismatch = errors.New("blueprint version mismatch")
	// ErrInvalid wraps schema and cross-reference failures.
	ErrInvalid = errors.New("invalid blueprint")
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("blueprint.schema.json", schemaText)
	})
	return schema, schemaErr
}

// Load reads, schema-checks, decodes, and validates the blueprint at path.
//
// Precondition: expectedVersion must be non-empty.
// Postcondition: Returns the blueprint, or an error wrapping os.ErrNotExist,
// ErrVersionMismatch, or ErrInvalid.
func Load(path, expectedVersion string) (*Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint %s: %w", path, err)
	}
	return Parse(data, expectedVersion)
}

// Parse is Load for an in-memory document.
func Parse(data []byte, expectedVersion string) (*Blueprint, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling blueprint schema: %w", err)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrInvalid, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var bp Blueprint
	if err := json.Unmarshal(data, &bp); err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", ErrInvalid, err)
	}
	if bp.Version != expectedVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrVersionMismatch, bp.Version, expectedVersion)
	}
	if err := bp.Validate(); err != nil {
		return nil, err
	}
	return &bp, nil
}

// Validate checks every cross reference of the blueprint.
//
// Postcondition: Returns nil, or an ErrInvalid error listing every violation.
func (bp *Blueprint) Validate() error {
	var errs []string
	add := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	names := make(map[string]string)
	claim := func(name, kind string) {
		if prev, ok := names[name]; ok {
			add("%s %q duplicates %s name", kind, name, prev)
			return
		}
		names[name] = kind
	}

	checkActor := func(kind string, a ActorInstance) {
		if _, ok := bp.Database.ActorModel(a.Name); !ok {
			add("%s %q has no actor prototype", kind, a.Name)
		}
		owned := make(map[string]bool)
		for _, p := range a.Props {
			owned[p.Name] = true
			if _, ok := bp.Database.PropModel(p.Name); !ok {
				add("%s %q: prop %q has no prototype", kind, a.Name, p.Name)
			}
		}
		for _, e := range a.Equipped {
			if !owned[e] {
				add("%s %q equips unowned prop %q", kind, a.Name, e)
			}
		}
	}

	actorKinds := make(map[string]string)
	for _, p := range bp.Players {
		claim(p.Name, "player")
		checkActor("player", p)
		actorKinds[p.Name] = "player"
	}
	for _, a := range bp.Actors {
		claim(a.Name, "actor")
		checkActor("actor", a)
		actorKinds[a.Name] = "actor"
	}

	stageNames := make(map[string]bool)
	for _, s := range bp.Stages {
		claim(s.Name, "stage")
		stageNames[s.Name] = true
	}

	placed := make(map[string]string)
	for _, s := range bp.Stages {
		model, ok := bp.Database.StageModel(s.Name)
		if !ok {
			add("stage %q has no stage prototype", s.Name)
		}
		for _, target := range model.StageGraph {
			if !stageNames[target] {
				add("stage %q: stage graph names unknown stage %q", s.Name, target)
			}
		}
		for _, p := range s.Props {
			if _, ok := bp.Database.PropModel(p.Name); !ok {
				add("stage %q: prop %q has no prototype", s.Name, p.Name)
			}
		}
		for _, ref := range s.Actors {
			if _, ok := actorKinds[ref.Name]; !ok {
				add("stage %q lists unknown actor %q", s.Name, ref.Name)
				continue
			}
			if prev, ok := placed[ref.Name]; ok {
				add("actor %q placed in both %q and %q", ref.Name, prev, s.Name)
				continue
			}
			placed[ref.Name] = s.Name
		}
		for _, sp := range s.Spawners {
			if _, ok := bp.Database.Spawner(sp); !ok {
				add("stage %q lists unknown spawner %q", s.Name, sp)
			}
		}
	}
	for name, kind := range actorKinds {
		if _, ok := placed[name]; !ok {
			add("%s %q is not placed in any stage", kind, name)
		}
	}

	for _, w := range bp.WorldSystems {
		claim(w.Name, "world system")
		if _, ok := bp.Database.WorldSystemModel(w.Name); !ok {
			add("world system %q has no prototype", w.Name)
		}
	}

	for _, sp := range bp.Database.Spawners {
		for _, proto := range sp.ActorPrototype {
			checkActor("spawner "+sp.Name+" prototype", proto)
		}
	}

	for _, m := range bp.Database.Actors {
		if Attr(m.Attributes, AttrMaxHP) <= 0 || Attr(m.Attributes, AttrHP) <= 0 {
			add("actor prototype %q must start with positive max_hp and hp, got %v", m.Name, m.Attributes)
		}
	}

	for _, p := range bp.Database.Props {
		if len(p.Attributes) > 4 {
			add("prop %q has %d attributes", p.Name, len(p.Attributes))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}
