package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/config"
	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/chaos"
)

// worldBuilder assembles small blueprints for engine tests.
type worldBuilder struct {
	bp   *blueprint.Blueprint
	guid int
}

func newWorldBuilder() *worldBuilder {
	return &worldBuilder{bp: &blueprint.Blueprint{Version: "test", AboutGame: "A test world."}}
}

func (w *worldBuilder) nextGUID() int {
	w.guid++
	return w.guid
}

// stage adds a stage with an agent and edges to outbound.
func (w *worldBuilder) stage(name string, outbound ...string) *worldBuilder {
	w.bp.Database.Stages = append(w.bp.Database.Stages, blueprint.StageModel{
		Name:           name,
		URL:            "test://" + name,
		KickOffMessage: "You are " + name + ".",
		StageGraph:     outbound,
	})
	w.bp.Stages = append(w.bp.Stages, blueprint.StageInstance{Name: name, GUID: w.nextGUID()})
	return w
}

// actor adds an agent-driven actor standing in stage. attrs are
// [max_hp, hp, damage, defense].
func (w *worldBuilder) actor(name, stage string, attrs []int, props ...string) *worldBuilder {
	w.bp.Database.Actors = append(w.bp.Database.Actors, blueprint.ActorModel{
		Name:           name,
		URL:            "test://" + name,
		KickOffMessage: "You are " + name + ".",
		Attributes:     attrs,
		Body:           name + " looks ordinary.",
	})
	w.bp.Actors = append(w.bp.Actors, w.instance(name, props))
	w.place(name, stage)
	return w
}

// player adds a player actor without an agent.
func (w *worldBuilder) player(name, stage string, attrs []int, props ...string) *worldBuilder {
	w.bp.Database.Actors = append(w.bp.Database.Actors, blueprint.ActorModel{
		Name:           name,
		KickOffMessage: "You are " + name + ".",
		Attributes:     attrs,
	})
	w.bp.Players = append(w.bp.Players, w.instance(name, props))
	w.place(name, stage)
	return w
}

func (w *worldBuilder) instance(name string, props []string) blueprint.ActorInstance {
	inst := blueprint.ActorInstance{Name: name, GUID: w.nextGUID()}
	for _, p := range props {
		inst.Props = append(inst.Props, blueprint.PropInstance{Name: p, GUID: w.nextGUID(), Count: 1})
	}
	return inst
}

func (w *worldBuilder) place(actor, stage string) {
	for i := range w.bp.Stages {
		if w.bp.Stages[i].Name == stage {
			w.bp.Stages[i].Actors = append(w.bp.Stages[i].Actors, blueprint.ActorRef{Name: actor})
			return
		}
	}
	panic("unknown stage " + stage)
}

// equip marks an owned prop as equipped from the start.
func (w *worldBuilder) equip(actor, prop string) *worldBuilder {
	for _, list := range []*[]blueprint.ActorInstance{&w.bp.Actors, &w.bp.Players} {
		for i := range *list {
			if (*list)[i].Name == actor {
				(*list)[i].Equipped = append((*list)[i].Equipped, prop)
			}
		}
	}
	return w
}

// prop adds a prop prototype.
func (w *worldBuilder) prop(name, kind string, attrs []int, appearance string) *worldBuilder {
	w.bp.Database.Props = append(w.bp.Database.Props, blueprint.PropModel{
		Name:        name,
		Description: "A " + name + ".",
		Type:        kind,
		Attributes:  attrs,
		Appearance:  appearance,
	})
	return w
}

// floor drops a prop in stage.
func (w *worldBuilder) floor(stage, prop string) *worldBuilder {
	for i := range w.bp.Stages {
		if w.bp.Stages[i].Name == stage {
			w.bp.Stages[i].Props = append(w.bp.Stages[i].Props, blueprint.PropInstance{Name: prop, GUID: w.nextGUID(), Count: 1})
		}
	}
	return w
}

func (w *worldBuilder) worldSystem(name string) *worldBuilder {
	w.bp.Database.WorldSystems = append(w.bp.Database.WorldSystems, blueprint.WorldSystemModel{Name: name, URL: "test://" + name})
	w.bp.WorldSystems = append(w.bp.WorldSystems, blueprint.WorldSystemInstance{Name: name, GUID: w.nextGUID()})
	return w
}

// spawner adds a spawner in stage that keeps one actor of prototype alive.
func (w *worldBuilder) spawner(stage, name, prototype string, attrs []int, respawnRounds int) *worldBuilder {
	w.bp.Database.Actors = append(w.bp.Database.Actors, blueprint.ActorModel{
		Name:           prototype,
		URL:            "test://" + prototype,
		KickOffMessage: "You are " + prototype + ".",
		Attributes:     attrs,
	})
	w.bp.Database.Spawners = append(w.bp.Database.Spawners, blueprint.SpawnerModel{
		Name:           name,
		ActorPrototype: []blueprint.ActorInstance{{Name: prototype}},
		RespawnRounds:  respawnRounds,
	})
	for i := range w.bp.Stages {
		if w.bp.Stages[i].Name == stage {
			w.bp.Stages[i].Spawners = append(w.bp.Stages[i].Spawners, name)
		}
	}
	return w
}

func (w *worldBuilder) build() *blueprint.Blueprint { return w.bp }

// invocations records which agents reached their transport.
type invocations struct {
	mu    sync.Mutex
	names []string
}

func (r *invocations) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

// take returns the recorded names among only and resets the record.
func (r *invocations) take(only ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[string]bool, len(only))
	for _, n := range only {
		keep[n] = true
	}
	var out []string
	for _, n := range r.names {
		if len(only) == 0 || keep[n] {
			out = append(out, n)
		}
	}
	r.names = nil
	return out
}

// tb is satisfied by *testing.T and *rapid.T.
type tb interface {
	require.TestingT
	Helper()
}

type harness struct {
	g     *Game
	chaos *chaos.Scripted
	logs  *observer.ObservedLogs
	calls *invocations
	deps  Deps

	mu      sync.Mutex
	answers map[string]string
}

func testConfig() config.GameConfig {
	return config.GameConfig{
		Name:           "test",
		Version:        "test",
		RoundRobinSize: 10,
		DeadPolicy:     config.DeadPolicyDestroy,
	}
}

// newHarness builds a game whose agents answer "{}" unless a canned response
// is queued on the returned chaos system.
func newHarness(t tb, bp *blueprint.Blueprint, cfg config.GameConfig) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	h := &harness{
		chaos:   chaos.NewScripted(chaos.Script{}),
		logs:    logs,
		calls:   &invocations{},
		answers: make(map[string]string),
	}
	h.deps = Deps{
		Config: cfg,
		Chaos:  h.chaos,
		Logger: zap.New(core),
		Transports: func(name, _ string) (agent.Transport, error) {
			return &agent.FuncTransport{InvokeFn: func(context.Context, agent.Request) (agent.Response, error) {
				h.calls.add(name)
				return agent.Response{Output: h.answer(name)}, nil
			}}, nil
		},
	}
	g, err := New(bp, h.deps)
	require.NoError(t, err)
	h.g = g
	return h
}

// respond makes name's transport answer output on every request.
func (h *harness) respond(name, output string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.answers[name] = output
}

func (h *harness) answer(name string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.answers[name]; ok {
		return out
	}
	return "{}"
}

func (h *harness) tick(t tb, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, h.g.Tick(context.Background()))
	}
}

// heard reports whether name's chat history holds a message containing line.
func (h *harness) heard(name, line string) bool {
	for _, m := range h.g.Agents().History(name) {
		if strings.Contains(m.Content, line) {
			return true
		}
	}
	return false
}

func (h *harness) stageOf(t tb, actor string) string {
	t.Helper()
	stage, ok := h.g.World().StageOf(actor)
	require.True(t, ok, "actor %s is not placed", actor)
	return stage
}
