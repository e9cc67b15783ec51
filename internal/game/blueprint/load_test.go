package blueprint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Tavern(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "tavern.json"), "0.0.1")
	require.NoError(t, err)

	assert.Len(t, bp.Players, 1)
	assert.Len(t, bp.Actors, 2)
	assert.Len(t, bp.Stages, 2)

	guard, ok := bp.Database.ActorModel("Guard")
	require.True(t, ok)
	assert.Equal(t, 120, Attr(guard.Attributes, AttrMaxHP))
	assert.Equal(t, 6, Attr(guard.Attributes, AttrDefense))
	assert.Equal(t, 0, Attr(guard.Attributes, 9))

	sp, ok := bp.Database.Spawner("rats")
	require.True(t, ok)
	assert.Equal(t, 3, sp.RespawnRounds)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "0.0.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_VersionMismatch(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "tavern.json"), "9.9.9")
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestParse_SchemaViolation(t *testing.T) {
	_, err := Parse([]byte(`{"players": [], "actors": [], "stages": [], "world_systems": [], "database": {"actors": [], "stages": [], "props": [{"name": "x", "type": "Bogus"}]}, "about_game": "", "version": "0.0.1"}`), "0.0.1")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte(`{"version": "0.0.1"}`), "0.0.1")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte(`not json`), "0.0.1")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate_CrossReferences(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "tavern.json"), "0.0.1")
	require.NoError(t, err)

	bp.Stages[1].Actors = append(bp.Stages[1].Actors, ActorRef{Name: "Innkeeper"})
	bp.Actors[0].Equipped = append(bp.Actors[0].Equipped, "spear")
	bp.Database.Stages[0].StageGraph = append(bp.Database.Stages[0].StageGraph, "Cellar")

	err = bp.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `actor "Innkeeper" placed in both "Tavern" and "Square"`)
	assert.Contains(t, err.Error(), `equips unowned prop "spear"`)
	assert.Contains(t, err.Error(), `unknown stage "Cellar"`)
}

func TestValidate_UnplacedActor(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "tavern.json"), "0.0.1")
	require.NoError(t, err)
	bp.Stages[1].Actors = nil

	assert.ErrorContains(t, bp.Validate(), `actor "Guard" is not placed`)
}

func TestValidate_ActorPrototypeNeedsHitPoints(t *testing.T) {
	bp, err := Load(filepath.Join("testdata", "tavern.json"), "0.0.1")
	require.NoError(t, err)
	for i, m := range bp.Database.Actors {
		switch m.Name {
		case "Guard":
			bp.Database.Actors[i].Attributes = []int{10, 0, 1, 0}
		case "Rat":
			bp.Database.Actors[i].Attributes = nil
		}
	}

	err = bp.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `actor prototype "Guard" must start with positive max_hp and hp`)
	assert.Contains(t, err.Error(), `actor prototype "Rat" must start with positive max_hp and hp`)
}
