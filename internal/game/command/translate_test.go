package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/agentrpg/internal/game/action"
)

func TestTranslate_SelfActions(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		line   string
		kind   action.Kind
		values []string
	}{
		{"/goto Square", action.GoToAction, []string{"Square"}},
		{"/speak @Innkeeper>An ale, please", action.SpeakAction, []string{"@Innkeeper>An ale, please"}},
		{"/whisper @Guard>psst", action.WhisperAction, []string{"@Guard>psst"}},
		{"/announce Drinks on me!", action.AnnounceAction, []string{"Drinks on me!"}},
		{"/think something is off", action.MindVoiceAction, []string{"something is off"}},
		{"/pickup ale", action.PickUpPropAction, []string{"ale"}},
		{"/give @Innkeeper/coin", action.GivePropAction, []string{"@Innkeeper>coin"}},
		{"/steal @Guard/spear", action.StealPropAction, []string{"@Guard>spear"}},
		{"/equip cleaver", action.EquipPropAction, []string{"cleaver"}},
		{"/skill @Rat/Cleave", action.SkillAction, []string{"@Rat>Cleave"}},
		{"/look", action.PerceptionAction, nil},
		{"/status", action.CheckStatusAction, nil},
		{"/wait", action.TurnAction, nil},
		{"/wait resting", action.TurnAction, []string{"resting"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			in, err := r.Translate(tt.line, "Wanderer")
			require.NoError(t, err)
			assert.Equal(t, ControlNone, in.Control)
			assert.Equal(t, "Wanderer", in.Target)
			assert.Equal(t, tt.kind, in.Action.Kind)
			assert.Equal(t, "Wanderer", in.Action.Source)
			if tt.values == nil {
				assert.Empty(t, in.Action.Values)
			} else {
				assert.Equal(t, tt.values, in.Action.Values)
			}
		})
	}
}

func TestTranslate_KillTargetsVictim(t *testing.T) {
	r := DefaultRegistry()
	in, err := r.Translate("/kill Rat", "Wanderer")
	require.NoError(t, err)
	assert.Equal(t, "Rat", in.Target)
	assert.Equal(t, action.DeadAction, in.Action.Kind)
	assert.Equal(t, "Wanderer", in.Action.Source)
}

func TestTranslate_Controls(t *testing.T) {
	r := DefaultRegistry()
	in, err := r.Translate("/quit", "Wanderer")
	require.NoError(t, err)
	assert.Equal(t, ControlQuit, in.Control)

	in, err = r.Translate("/?", "Wanderer")
	require.NoError(t, err)
	assert.Equal(t, ControlHelp, in.Control)
}

func TestTranslate_Unknown(t *testing.T) {
	r := DefaultRegistry()
	_, err := r.Translate("/fly north", "Wanderer")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = r.Translate("hello there", "Wanderer")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestTranslate_Usage(t *testing.T) {
	r := DefaultRegistry()
	for _, line := range []string{
		"/goto",
		"/speak Innkeeper hello",
		"/speak @>hello",
		"/give Innkeeper coin",
		"/give @Innkeeper/",
		"/steal @/spear",
		"/skill @Rat",
		"/kill",
	} {
		_, err := r.Translate(line, "Wanderer")
		assert.ErrorIs(t, err, ErrUsage, line)
	}
}
