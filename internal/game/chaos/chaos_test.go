package chaos_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/config"
	"github.com/cory-johannsen/agentrpg/internal/game/chaos"
)

type fakeHost struct {
	round  int
	agents *agent.Registry
}

func (h *fakeHost) Round() int              { return h.round }
func (h *fakeHost) Agents() *agent.Registry { return h.agents }

func newHost(t *testing.T, names ...string) *fakeHost {
	t.Helper()
	reg := agent.NewRegistry(agent.Options{}, zaptest.NewLogger(t))
	for _, n := range names {
		require.NoError(t, reg.Register(n, "test://"+n, agent.Static("{}")))
	}
	return &fakeHost{round: 1, agents: reg}
}

func seed(t *testing.T, h *fakeHost, name string) {
	t.Helper()
	require.NoError(t, h.agents.Append(name,
		agent.Message{Role: agent.RoleSystem, Content: "you are " + name},
		agent.Message{Role: agent.RoleHuman, Content: "<%plan> round 1"},
		agent.Message{Role: agent.RoleAI, Content: `{"SpeakAction":["@Guard>hi"]}`},
	))
}

func TestInert_NoEffects(t *testing.T) {
	h := newHost(t, "Innkeeper")
	seed(t, h, "Innkeeper")
	var s chaos.System = chaos.Inert{}
	s.OnPreCreateWorld(h)
	s.OnPostCreateWorld(h)
	s.OnReadMemoryFailed(h, "Innkeeper")
	s.OnStagePlanning(h, []string{"Tavern"})
	s.OnActorPlanning(h, []string{"Innkeeper"})
	_, ok := s.HackActorPlanning(h, "Innkeeper", "p")
	assert.False(t, ok)
	_, ok = s.HackStagePlanning(h, "Tavern", "p")
	assert.False(t, ok)
	assert.Len(t, h.agents.History("Innkeeper"), 3)
}

func TestScripted_CannedResponsesConsumedInOrder(t *testing.T) {
	h := newHost(t)
	s := chaos.NewScripted(chaos.Script{
		ActorResponses: map[string][]string{"Innkeeper": {"one", "two"}},
	})
	s.QueueStage("Tavern", "narrate")

	r, ok := s.HackActorPlanning(h, "Innkeeper", "p")
	require.True(t, ok)
	assert.Equal(t, "one", r)
	assert.Equal(t, []string{"Innkeeper", "Tavern"}, s.Remaining())

	r, ok = s.HackActorPlanning(h, "Innkeeper", "p")
	require.True(t, ok)
	assert.Equal(t, "two", r)

	_, ok = s.HackActorPlanning(h, "Innkeeper", "p")
	assert.False(t, ok)

	r, ok = s.HackStagePlanning(h, "Tavern", "p")
	require.True(t, ok)
	assert.Equal(t, "narrate", r)
	assert.Empty(t, s.Remaining())
}

func TestScripted_CorruptionAppliesInRound(t *testing.T) {
	h := newHost(t, "Innkeeper", "Guard")
	seed(t, h, "Innkeeper")
	seed(t, h, "Guard")
	s := chaos.NewScripted(chaos.Script{})
	s.AddCorruption(chaos.Corruption{Round: 2, Agent: "Innkeeper", DropLast: true})
	s.AddCorruption(chaos.Corruption{Agent: "Guard", Replace: map[string]string{"hi": "bye"}})

	s.OnActorPlanning(h, []string{"Innkeeper", "Guard"})
	assert.Len(t, h.agents.History("Innkeeper"), 3)
	assert.Contains(t, h.agents.History("Guard")[2].Content, "bye")

	h.round = 2
	s.OnActorPlanning(h, []string{"Innkeeper"})
	assert.Len(t, h.agents.History("Innkeeper"), 1)

	assert.Equal(t, []string{"actor_planning:1", "actor_planning:2"}, s.Calls())
}

func TestScripted_MemoryFallbackAndObserver(t *testing.T) {
	h := newHost(t, "Innkeeper")
	s := chaos.NewScripted(chaos.Script{MemoryFallback: map[string]string{"Innkeeper": "you forgot"}})
	s.OnPreCreateWorld(h)
	s.OnReadMemoryFailed(h, "Innkeeper")
	s.OnRoundEnd(h)

	hist := h.agents.History("Innkeeper")
	require.Len(t, hist, 1)
	assert.Equal(t, agent.RoleSystem, hist[0].Role)
	assert.Equal(t, "you forgot", hist[0].Content)
	assert.Equal(t, []string{"pre_create_world", "read_memory_failed:Innkeeper", "round_end:1"}, s.Calls())
}

func TestParseScript(t *testing.T) {
	s, err := chaos.ParseScript([]byte(`
actor_responses:
  Innkeeper:
    - '{"SpeakAction":["@Wanderer>Welcome"]}'
corruptions:
  - round: 3
    agent: Guard
    exclude: ["<%event>"]
`))
	require.NoError(t, err)
	assert.Len(t, s.ActorResponses["Innkeeper"], 1)
	require.Len(t, s.Corruptions, 1)
	assert.Equal(t, 3, s.Corruptions[0].Round)
	assert.Equal(t, []string{"<%event>"}, s.Corruptions[0].Exclude)

	_, err = chaos.ParseScript([]byte("corruptions:\n  - round: 1\n"))
	assert.ErrorContains(t, err, "no agent")

	_, err = chaos.ParseScript([]byte("actor_responses: [1, 2"))
	assert.Error(t, err)
}

func TestLuaSystem_Hooks(t *testing.T) {
	h := newHost(t, "Innkeeper")
	seed(t, h, "Innkeeper")
	s, err := chaos.NewLuaSystemFromString(`
		rounds = {}
		function hack_actor_planning(round, actor, prompt)
			if actor == "Innkeeper" and round == 1 then
				return '{"AnnounceAction":["Closing time"]}'
			end
			return nil
		end
		function on_actor_planning(round, actors)
			for _, a in ipairs(actors) do
				engine.replace_chat_history(a, {["Guard"] = "Wanderer"})
			end
		end
		function on_read_memory_failed(name)
			engine.append_system(name, "memory lost at round " .. engine.round())
		end
	`, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	r, ok := s.HackActorPlanning(h, "Innkeeper", "prompt")
	require.True(t, ok)
	assert.Equal(t, `{"AnnounceAction":["Closing time"]}`, r)

	_, ok = s.HackStagePlanning(h, "Tavern", "prompt")
	assert.False(t, ok)

	s.OnActorPlanning(h, []string{"Innkeeper"})
	assert.Contains(t, h.agents.History("Innkeeper")[2].Content, "@Wanderer>hi")

	s.OnReadMemoryFailed(h, "Innkeeper")
	hist := h.agents.History("Innkeeper")
	assert.Equal(t, "memory lost at round 1", hist[len(hist)-1].Content)

	h.round = 2
	_, ok = s.HackActorPlanning(h, "Innkeeper", "prompt")
	assert.False(t, ok)
}

func TestLuaSystem_RunawayHookIsContained(t *testing.T) {
	h := newHost(t)
	s, err := chaos.NewLuaSystemFromString(`
		function hack_stage_planning(round, stage, prompt)
			while true do end
		end
	`, 1000, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.HackStagePlanning(h, "Tavern", "p")
	assert.False(t, ok)
}

func TestNew_SelectsByMode(t *testing.T) {
	s, err := chaos.New(config.ChaosConfig{Mode: config.ChaosInert}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, chaos.Inert{}, s)

	dir := t.TempDir()
	yml := filepath.Join(dir, "chaos.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("stage_responses: {}\n"), 0644))
	s, err = chaos.New(config.ChaosConfig{Mode: config.ChaosScripted, ScriptPath: yml}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &chaos.Scripted{}, s)

	lua := filepath.Join(dir, "chaos.lua")
	require.NoError(t, os.WriteFile(lua, []byte("function on_round_end(r) end\n"), 0644))
	s, err = chaos.New(config.ChaosConfig{Mode: config.ChaosLua, ScriptPath: lua}, zap.NewNop())
	require.NoError(t, err)
	_, isObserver := s.(chaos.RoundObserver)
	assert.True(t, isObserver)

	_, err = chaos.New(config.ChaosConfig{Mode: config.ChaosScripted, ScriptPath: filepath.Join(dir, "missing.yaml")}, zap.NewNop())
	assert.Error(t, err)
}

func TestShippedScriptsLoad(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "configs", "chaos")

	data, err := os.ReadFile(filepath.Join(dir, "amnesia.yaml"))
	require.NoError(t, err)
	s, err := chaos.ParseScript(data)
	require.NoError(t, err)
	assert.Len(t, s.Corruptions, 2)
	assert.Contains(t, s.MemoryFallback, "Guard")

	l, err := chaos.NewLuaSystem(filepath.Join(dir, "hooks.lua"), 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer l.Close()

	h := newHost(t, "Innkeeper")
	h.round = 3
	r, ok := l.HackActorPlanning(h, "Innkeeper", "prompt")
	require.True(t, ok)
	assert.Contains(t, r, "AnnounceAction")
}
