package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
)

func TestAttributesClamp(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := Attributes{
			MaxHP: rapid.IntRange(-10, 500).Draw(t, "max"),
			HP:    rapid.IntRange(-500, 1000).Draw(t, "hp"),
		}.Clamp()
		assert.GreaterOrEqual(t, a.HP, 0)
		assert.LessOrEqual(t, a.HP, a.MaxHP)
		assert.GreaterOrEqual(t, a.MaxHP, 0)
	})
}

func TestHealthPercent(t *testing.T) {
	assert.Equal(t, 50, Attributes{MaxHP: 10, HP: 5}.HealthPercent())
	assert.Equal(t, 0, Attributes{}.HealthPercent())
}

func TestCodec_RestoresTypedComponent(t *testing.T) {
	enc, err := Encode(Actor{Name: "A", CurrentStage: "S1"})
	require.NoError(t, err)
	assert.Equal(t, TypeActor, enc.Type)

	c, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, Actor{Name: "A", CurrentStage: "S1"}, c)

	_, err = Decode(Encoded{Type: "SpeakAction", Data: []byte(`{}`)})
	assert.Error(t, err)
}

func TestPersistent(t *testing.T) {
	assert.True(t, Persistent(TypeAttributes))
	assert.False(t, Persistent(TypePlanningAllowed))
	assert.False(t, Persistent(TypeDestroy))
	assert.False(t, Persistent(ecs.ComponentType("SpeakAction")))
}
