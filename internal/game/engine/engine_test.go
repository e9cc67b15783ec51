package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/agentrpg/internal/config"
	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/prompt"
)

var commoner = []int{20, 20, 2, 0}

// tavern: S1 <-> S2, S3 unreachable from S1.
func tavern() *worldBuilder {
	return newWorldBuilder().
		stage("S1", "S2").
		stage("S2", "S1").
		stage("S3", "S2").
		prop("sword", string(files.KindWeapon), []int{0, 0, 5, 0}, "").
		prop("cloak", string(files.KindClothes), []int{0, 0, 0, 1}, "wrapped in a grey cloak").
		prop("fireball", string(files.KindSkill), []int{0, 0, 50, 0}, "").
		prop("bread", string(files.KindConsumable), nil, "")
}

func TestNew_BuildsWorld(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner, "sword").
		equip("A", "sword").
		actor("B", "S1", commoner).
		actor("C", "S2", commoner).
		floor("S1", "bread").
		build()
	h := newHarness(t, bp, testConfig())

	assert.Equal(t, []string{"A", "B"}, h.g.World().ActorsIn("S1"))
	assert.Equal(t, []string{"C"}, h.g.World().ActorsIn("S2"))
	a, ok := h.g.Entities().Entity("A")
	require.True(t, ok)
	assert.Equal(t, "sword", ecs.MustGet[component.CurrentWeapon](a).Prop)
	assert.True(t, h.g.Files().HasProp("S1", "bread"))
	assert.True(t, h.g.Files().KnowsActor("A", "B"))
	assert.False(t, h.g.Files().KnowsActor("A", "C"))
	assert.Equal(t, []string{"pre_create_world", "post_create_world"}, h.chaos.Calls())
	assert.NoError(t, h.g.CheckInvariants())
}

func TestNew_RejectsInvalidBlueprint(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner).build()
	bp.Stages[1].Actors = append(bp.Stages[1].Actors, bp.Stages[0].Actors[0])
	deps := newHarness(t, tavern().build(), testConfig()).deps
	_, err := New(bp, deps)
	assert.ErrorIs(t, err, blueprint.ErrInvalid)
}

func TestTick_KickOffPrecedesPlanning(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner).build()
	h := newHarness(t, bp, testConfig())
	h.tick(t, 1)

	hist := h.g.Agents().History("A")
	require.NotEmpty(t, hist)
	assert.Contains(t, hist[0].Content, prompt.TagKickOff)
	a, _ := h.g.Entities().Entity("A")
	assert.True(t, a.Has(component.TypeKickOffDone, component.TypeAgentConnected))
	assert.Equal(t, []string{"A"}, h.calls.take("A"))
}

func TestSpeak_RoutesToStageOnly(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner).
		actor("C", "S2", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"SpeakAction":["@B>hello there"]}`)
	h.tick(t, 1)

	line := prompt.Speak("A", "B", "hello there")
	assert.True(t, h.heard("A", line))
	assert.True(t, h.heard("B", line))
	assert.True(t, h.heard("S1", line))
	assert.False(t, h.heard("C", line))
	assert.False(t, h.heard("S2", line))
	assert.NoError(t, h.g.CheckInvariants())
}

func TestGoTo_UnreachableRejectedOthersCommit(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"GoToAction":["S3"],"SpeakAction":["@B>stay"]}`)
	h.tick(t, 1)

	assert.Equal(t, "S1", h.stageOf(t, "A"))
	assert.True(t, h.heard("B", prompt.Speak("A", "B", "stay")))
	assert.True(t, h.heard("A", prompt.GoToFailed("S1", "S3")))

	rejected := h.logs.FilterMessage("semantic error").FilterField(zap.String("action", string(action.GoToAction)))
	require.Equal(t, 1, rejected.Len())
	assert.Equal(t, zapcore.DebugLevel, rejected.All()[0].Level)
	assert.Equal(t, "adjudicate", rejected.All()[0].LoggerName)
	assert.NoError(t, h.g.CheckInvariants())
}

func TestGoTo_MovesAndAnnounces(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner).
		actor("C", "S2", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"GoToAction":["S2"]}`)
	h.tick(t, 1)

	assert.Equal(t, "S2", h.stageOf(t, "A"))
	assert.Equal(t, []string{"C", "A"}, h.g.World().ActorsIn("S2"))
	assert.True(t, h.heard("B", prompt.Leave("A", "S1", "S2")))
	assert.True(t, h.heard("C", prompt.Enter("A", "S2", "S1")))
	assert.False(t, h.heard("A", prompt.Enter("A", "S2", "S1")))
	assert.True(t, h.g.Files().KnowsActor("A", "C"))
	assert.True(t, h.g.Files().KnowsStage("A", "S2"))

	a, _ := h.g.Entities().Entity("A")
	assert.Equal(t, "S2", ecs.MustGet[component.Actor](a).CurrentStage)
	assert.False(t, a.Has(component.TypeEnterStage), "entry records last one tick")
	assert.NoError(t, h.g.CheckInvariants())
}

func TestPickUpThenEquip_SameTick(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		floor("S1", "sword").
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"PickUpPropAction":["sword"],"EquipPropAction":["sword"]}`)
	h.tick(t, 1)

	assert.False(t, h.g.Files().HasProp("S1", "sword"))
	assert.True(t, h.g.Files().HasProp("A", "sword"))
	a, _ := h.g.Entities().Entity("A")
	w, ok := ecs.Get[component.CurrentWeapon](a)
	require.True(t, ok)
	assert.Equal(t, "sword", w.Prop)
	assert.NoError(t, h.g.CheckInvariants())
}

func TestEquip_ClothesChangeAppearance(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner, "cloak").build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"EquipPropAction":["cloak"]}`)
	h.tick(t, 1)

	a, _ := h.g.Entities().Entity("A")
	assert.Equal(t, "A looks ordinary. wrapped in a grey cloak", ecs.MustGet[component.Appearance](a).Text)
}

func TestEquip_NonEquippableIsSemanticError(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner, "bread").build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"EquipPropAction":["bread"]}`)
	h.tick(t, 1)

	a, _ := h.g.Entities().Entity("A")
	assert.False(t, a.HasAny(component.TypeCurrentWeapon, component.TypeCurrentClothes))
	assert.Equal(t, 1, h.logs.FilterMessage("semantic error").Len())
}

func TestGive_TransfersAndUnequips(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner, "sword").
		equip("A", "sword").
		actor("B", "S1", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"GivePropAction":["@B>sword"]}`)
	h.tick(t, 1)

	assert.True(t, h.g.Files().HasProp("B", "sword"))
	a, _ := h.g.Entities().Entity("A")
	assert.False(t, a.Has(component.TypeCurrentWeapon))
	assert.True(t, h.heard("B", prompt.Give("A", "B", "sword")))
}

func TestSkill_FatalDamageLootsAndDestroys(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner, "fireball", "sword").
		equip("A", "sword").
		actor("B", "S1", []int{10, 10, 1, 0}, "cloak").
		equip("B", "cloak").
		actor("C", "S1", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"SkillAction":["@B>fireball>burn"]}`)
	h.tick(t, 1)

	_, ok := h.g.Entities().Entity("B")
	assert.False(t, ok, "destroyed at end of tick")
	assert.Equal(t, []string{"A", "C"}, h.g.World().ActorsIn("S1"))
	assert.True(t, h.g.Files().HasProp("A", "cloak"), "clothes are looted")
	assert.False(t, h.g.Agents().Has("B"))
	assert.False(t, h.g.Files().KnowsActor("A", "B"))

	// 50 skill + 2 actor + 5 sword, less 1 defense from the cloak.
	assert.True(t, h.heard("C", prompt.Damage("A", "B", 56, 0, 10)))
	assert.True(t, h.heard("C", prompt.Dead("B")))
	assert.True(t, h.heard("A", prompt.Loot("A", "B", "cloak")))
	assert.Equal(t, 1, h.logs.FilterMessage("actor died").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("entity destroyed").Len())
	assert.NoError(t, h.g.CheckInvariants())
}

func TestDamage_LivingActorAtZeroHitPointsDies(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner, "fireball").
		actor("Z", "S1", []int{10, 10, 1, 100}).
		build()
	h := newHarness(t, bp, testConfig())
	z, ok := h.g.Entities().Entity("Z")
	require.True(t, ok)
	attrs := ecs.MustGet[component.Attributes](z)
	attrs.HP = 0
	z.Replace(attrs)

	h.chaos.QueueActor("A", `{"SkillAction":["@Z>fireball"]}`)
	h.tick(t, 1)

	_, ok = h.g.Entities().Entity("Z")
	assert.False(t, ok, "a hit that deals nothing still finishes an actor at zero")
	assert.Zero(t, h.logs.FilterMessage("semantic error").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("actor died").Len())
	assert.NoError(t, h.g.CheckInvariants())
}

func TestDead_CorpsePolicyKeepsEntity(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner, "fireball").
		actor("B", "S1", []int{10, 10, 1, 0}).
		build()
	cfg := testConfig()
	cfg.DeadPolicy = config.DeadPolicyCorpse
	h := newHarness(t, bp, cfg)
	h.chaos.QueueActor("A", `{"SkillAction":["@B>fireball"]}`)
	h.tick(t, 1)

	b, ok := h.g.Entities().Entity("B")
	require.True(t, ok)
	assert.True(t, b.Has(component.TypeCorpse))
	assert.Equal(t, 0, ecs.MustGet[component.Attributes](b).HP)

	before := len(h.g.Agents().History("B"))
	h.chaos.QueueActor("A", `{"SpeakAction":["@B>still there?"]}`)
	h.tick(t, 1)
	assert.Len(t, h.g.Agents().History("B"), before, "corpses neither plan nor hear")
	assert.Equal(t, 1, h.logs.FilterMessage("semantic error").Len())
}

func TestSteal_TakesFromFellow(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner, "bread").
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"StealPropAction":["@B>bread"]}`)
	h.tick(t, 1)

	assert.True(t, h.g.Files().HasProp("A", "bread"))
	assert.False(t, h.g.Files().HasProp("B", "bread"))
	assert.True(t, h.heard("A", prompt.Steal("A", "B", "bread")))
	assert.False(t, h.heard("B", prompt.Steal("A", "B", "bread")))
}

func TestStructuralFailure_PopsHistory(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `I would like to speak to B.`)
	h.tick(t, 1)

	for _, m := range h.g.Agents().History("A") {
		assert.NotContains(t, m.Content, "I would like to speak")
		assert.NotContains(t, m.Content, prompt.TagPlan)
	}
	assert.True(t, h.heard("B", prompt.TagPlan), "B's exchange is kept")
	require.Equal(t, 1, h.logs.FilterMessage("plan rejected").Len())
	assert.Equal(t, zapcore.WarnLevel, h.logs.FilterMessage("plan rejected").All()[0].Level)

	a, _ := h.g.Entities().Entity("A")
	assert.Empty(t, action.Pending(a))
}

func TestPlan_UnpermittedActionRejectsWholePlan(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueActor("A", `{"SpeakAction":["@B>hi"],"StageNarrateAction":["rain"]}`)
	h.tick(t, 1)

	assert.False(t, h.heard("B", prompt.Speak("A", "B", "hi")))
	assert.Equal(t, 1, h.logs.FilterMessage("plan rejected").Len())
}

func TestRoundRobin_LateArrivalJoinsRotation(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner).
		actor("B", "S1", commoner).
		actor("C", "S1", commoner).
		actor("D", "S2", commoner).
		build()
	cfg := testConfig()
	cfg.RoundRobinSize = 1
	h := newHarness(t, bp, cfg)
	h.chaos.QueueActor("D", `{"GoToAction":["S1"]}`)

	var order []string
	for i := 0; i < 5; i++ {
		h.tick(t, 1)
		order = append(order, h.calls.take("A", "B", "C", "D")...)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "A"}, order)
}

func TestStageNarration_VisibleToActorsSameTick(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner).build()
	h := newHarness(t, bp, testConfig())
	h.chaos.QueueStage("S1", `{"StageNarrateAction":["Rain drums on the roof."]}`)
	h.tick(t, 1)

	s1, _ := h.g.Entities().Entity("S1")
	assert.Equal(t, "Rain drums on the roof.", ecs.MustGet[component.Narration](s1).Text)
	assert.True(t, h.heard("A", "Rain drums on the roof."), "actor prompt carries the narration")
}

func TestWorldSystem_AnnouncesEverywhere(t *testing.T) {
	bp := tavern().
		worldSystem("Keeper").
		actor("A", "S1", commoner).
		actor("C", "S2", commoner).
		build()
	h := newHarness(t, bp, testConfig())
	h.respond("Keeper", `{"AnnounceAction":["The gates close at dusk."]}`)
	h.tick(t, 1)

	line := prompt.Announce("Keeper", "the world", "The gates close at dusk.")
	assert.True(t, h.heard("A", line))
	assert.True(t, h.heard("C", line))
}

func TestTick_AfterExitReturnsGameOver(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner).build()
	h := newHarness(t, bp, testConfig())
	h.tick(t, 1)
	h.g.RequestExit()
	assert.ErrorIs(t, h.g.Tick(context.Background()), ErrGameOver)
	assert.Equal(t, 1, h.g.Round())
}

func TestRun_StopsAtMaxRounds(t *testing.T) {
	bp := tavern().actor("A", "S1", commoner).build()
	cfg := testConfig()
	cfg.MaxRounds = 3
	h := newHarness(t, bp, cfg)
	require.NoError(t, h.g.Run(context.Background()))
	assert.Equal(t, 3, h.g.Round())
	assert.True(t, h.g.WillExit())
	assert.Contains(t, h.chaos.Calls(), "round_end:3")
}

func TestSpawner_RefillsAfterRespawnDelay(t *testing.T) {
	bp := tavern().
		actor("A", "S1", commoner, "fireball").
		spawner("S1", "rats", "Rat", []int{1, 1, 0, 0}, 2).
		build()
	h := newHarness(t, bp, testConfig())

	h.tick(t, 1)
	_, ok := h.g.livingActor("Rat")
	require.True(t, ok, "spawned on first sight")

	h.chaos.QueueActor("A", `{"SkillAction":["@Rat>fireball"]}`)
	h.tick(t, 1)
	_, ok = h.g.livingActor("Rat")
	require.False(t, ok)

	h.tick(t, 1)
	_, ok = h.g.livingActor("Rat")
	assert.False(t, ok, "respawn waits")
	h.tick(t, 1)
	_, ok = h.g.livingActor("Rat")
	assert.True(t, ok)
	assert.NoError(t, h.g.CheckInvariants())
}
