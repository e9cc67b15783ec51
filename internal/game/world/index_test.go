package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	x := NewIndex()
	require.NoError(t, x.AddStage("S1", []string{"S2"}))
	require.NoError(t, x.AddStage("S2", []string{"S1", "S3"}))
	require.NoError(t, x.AddStage("S3", nil))
	require.NoError(t, x.Validate())
	return x
}

func TestAddStage_Duplicate(t *testing.T) {
	x := newTestIndex(t)
	assert.Error(t, x.AddStage("S1", nil))
	assert.Error(t, x.AddStage("", nil))
}

func TestValidate_DanglingOutbound(t *testing.T) {
	x := NewIndex()
	require.NoError(t, x.AddStage("S1", []string{"Nowhere"}))
	assert.ErrorIs(t, x.Validate(), ErrUnknownStage)
}

func TestPlaceAndMove(t *testing.T) {
	x := newTestIndex(t)
	require.NoError(t, x.Place("A", "S1"))
	require.NoError(t, x.Place("B", "S1"))
	assert.Error(t, x.Place("A", "S2"))

	assert.True(t, x.CoResident("A", "B"))
	assert.Equal(t, []string{"A", "B"}, x.ActorsIn("S1"))

	from, err := x.Move("A", "S2")
	require.NoError(t, err)
	assert.Equal(t, "S1", from)
	assert.Equal(t, []string{"B"}, x.ActorsIn("S1"))
	assert.Equal(t, []string{"A"}, x.ActorsIn("S2"))

	_, err = x.Move("B", "S3")
	assert.ErrorIs(t, err, ErrNoRoute)
	s, _ := x.StageOf("B")
	assert.Equal(t, "S1", s)

	_, err = x.Move("Z", "S2")
	assert.ErrorIs(t, err, ErrUnknownActor)
}

func TestMove_JoinsTailOfEntryOrder(t *testing.T) {
	x := newTestIndex(t)
	require.NoError(t, x.Place("C", "S2"))
	require.NoError(t, x.Place("A", "S1"))
	_, err := x.Move("A", "S2")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, x.ActorsIn("S2"))
}

func TestRemoveAndTeleport(t *testing.T) {
	x := newTestIndex(t)
	require.NoError(t, x.Place("A", "S1"))
	require.NoError(t, x.Teleport("A", "S3"))
	assert.Equal(t, "S3", x.Remove("A"))
	assert.Equal(t, "", x.Remove("A"))
	assert.Empty(t, x.ActorsIn("S3"))
	assert.True(t, x.CanReach("S2", "S3"))
	assert.False(t, x.CanReach("S1", "S3"))
}

func TestPropertyOccupancyConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := NewIndex()
		stages := []string{"S1", "S2", "S3", "S4"}
		for i, s := range stages {
			_ = x.AddStage(s, []string{stages[(i+1)%len(stages)], stages[(i+2)%len(stages)]})
		}
		actors := []string{"A", "B", "C", "D", "E"}
		for _, a := range actors {
			_ = x.Place(a, rapid.SampledFrom(stages).Draw(t, "start"))
		}
		n := rapid.IntRange(0, 40).Draw(t, "moves")
		for i := 0; i < n; i++ {
			a := rapid.SampledFrom(actors).Draw(t, "actor")
			to := rapid.SampledFrom(stages).Draw(t, "to")
			before, _ := x.StageOf(a)
			_, err := x.Move(a, to)
			after, _ := x.StageOf(a)
			if err != nil {
				assert.Equal(t, before, after)
			} else {
				assert.Equal(t, to, after)
			}
		}
		total := 0
		for _, s := range stages {
			for _, a := range x.ActorsIn(s) {
				cur, ok := x.StageOf(a)
				require.True(t, ok)
				assert.Equal(t, s, cur)
				total++
			}
		}
		assert.Equal(t, len(actors), total)
	})
}
