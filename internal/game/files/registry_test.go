package files

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"
)

func sword() PropFile {
	return PropFile{
		Def:      PropDef{Name: "sword", Kind: KindWeapon, Attributes: PropAttributes{Damage: 5}},
		Instance: PropInstance{Name: "sword", GUID: 1, Count: 1},
	}
}

func potion(n int) PropFile {
	return PropFile{
		Def:      PropDef{Name: "potion", Kind: KindConsumable},
		Instance: PropInstance{Name: "potion", GUID: 2, Count: n},
	}
}

func TestAddProp_ConsumablesStack(t *testing.T) {
	r := NewRegistry(nil, zaptest.NewLogger(t))
	require.NoError(t, r.AddProp("A", potion(2)))
	require.NoError(t, r.AddProp("A", potion(3)))

	p, ok := r.GetProp("A", "potion")
	require.True(t, ok)
	assert.Equal(t, 5, p.Instance.Count)
	assert.Equal(t, "A", p.Owner)

	require.NoError(t, r.AddProp("A", sword()))
	assert.ErrorIs(t, r.AddProp("A", sword()), ErrPropExists)
}

func TestTransferProp(t *testing.T) {
	r := NewRegistry(nil, zaptest.NewLogger(t))
	require.NoError(t, r.AddProp("S1", sword()))

	require.NoError(t, r.TransferProp("S1", "A", "sword"))
	assert.False(t, r.HasProp("S1", "sword"))
	p, ok := r.GetProp("A", "sword")
	require.True(t, ok)
	assert.Equal(t, "A", p.Owner)

	err := r.TransferProp("S1", "A", "sword")
	assert.True(t, errors.Is(err, ErrPropNotFound))
}

func TestTransferProp_FailedAddRestores(t *testing.T) {
	r := NewRegistry(nil, zaptest.NewLogger(t))
	require.NoError(t, r.AddProp("A", sword()))
	require.NoError(t, r.AddProp("B", sword()))

	assert.ErrorIs(t, r.TransferProp("A", "B", "sword"), ErrPropExists)
	assert.True(t, r.HasProp("A", "sword"))
	assert.True(t, r.HasProp("B", "sword"))
}

func TestPropsOfKind(t *testing.T) {
	r := NewRegistry(nil, zaptest.NewLogger(t))
	require.NoError(t, r.AddProp("A", sword()))
	require.NoError(t, r.AddProp("A", potion(1)))

	weapons := r.PropsOfKind("A", KindWeapon)
	require.Len(t, weapons, 1)
	assert.Equal(t, "sword", weapons[0].Name())
	assert.Equal(t, []string{"potion", "sword"}, names(r.Props("A")))
}

func TestArchives(t *testing.T) {
	r := NewRegistry(nil, zaptest.NewLogger(t))
	r.SetActorArchive(ActorArchive{Owner: "A", Name: "B", Appearance: "tall"})
	r.SetStageArchive(StageArchive{Owner: "A", Name: "S1", Narration: "dim", Tags: []string{"inn"}})

	assert.True(t, r.KnowsActor("A", "B"))
	assert.False(t, r.KnowsActor("B", "A"))
	assert.True(t, r.KnowsStage("A", "S1"))
	assert.Equal(t, []string{"A"}, r.ArchiveOwners())

	a, ok := r.ActorArchive("A", "B")
	require.True(t, ok)
	assert.Equal(t, "tall", a.Appearance)
	st, ok := r.StageArchive("A", "S1")
	require.True(t, ok)
	assert.Equal(t, []string{"inn"}, st.Tags)

	r.ForgetActor("B")
	assert.False(t, r.KnowsActor("A", "B"))
}

func TestDirWriter_WritesLayout(t *testing.T) {
	root := t.TempDir()
	r := NewRegistry(DirWriter{Root: root}, zaptest.NewLogger(t))

	require.NoError(t, r.AddProp("A", sword()))
	r.SetActorArchive(ActorArchive{Owner: "A", Name: "B"})
	r.SetStageArchive(StageArchive{Owner: "A", Name: "S1"})

	assert.FileExists(t, filepath.Join(root, "A", "props", "sword.json"))
	assert.FileExists(t, filepath.Join(root, "A", "actor_archives", "B.json"))
	assert.FileExists(t, filepath.Join(root, "A", "stage_archives", "S1.json"))

	require.NoError(t, r.TransferProp("A", "B", "sword"))
	assert.NoFileExists(t, filepath.Join(root, "A", "props", "sword.json"))
	assert.FileExists(t, filepath.Join(root, "B", "props", "sword.json"))
}

type failingWriter struct{}

func (failingWriter) WriteProp(PropFile) error             { return errors.New("disk full") }
func (failingWriter) DeleteProp(string, string) error      { return errors.New("disk full") }
func (failingWriter) WriteActorArchive(ActorArchive) error { return errors.New("disk full") }
func (failingWriter) WriteStageArchive(StageArchive) error { return errors.New("disk full") }

func TestWriteFailureIsLoggedNotFatal(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRegistry(failingWriter{}, zap.New(core))

	require.NoError(t, r.AddProp("A", sword()))
	require.NoError(t, r.TransferProp("A", "B", "sword"))
	assert.True(t, r.HasProp("B", "sword"))
	assert.Equal(t, 3, logs.Len())
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "a_b", SafeName("a/b"))
	assert.Equal(t, "_", SafeName(" "))
	assert.NotContains(t, SafeName("../etc"), "..")
}

func TestPropertyEveryPropHasExactlyOneOwner(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry(nil, zap.NewNop())
		owners := []string{"S1", "A", "B", "C"}
		props := []string{"sword", "shield", "cloak"}
		for i, p := range props {
			require.NoError(t, r.AddProp("S1", PropFile{
				Def:      PropDef{Name: p, Kind: KindNonConsumable},
				Instance: PropInstance{Name: p, GUID: i + 1},
			}))
		}
		moves := rapid.IntRange(0, 30).Draw(t, "moves")
		for i := 0; i < moves; i++ {
			from := rapid.SampledFrom(owners).Draw(t, "from")
			to := rapid.SampledFrom(owners).Draw(t, "to")
			p := rapid.SampledFrom(props).Draw(t, "prop")
			_ = r.TransferProp(from, to, p)
		}
		for _, p := range props {
			count := 0
			for _, o := range owners {
				if r.HasProp(o, p) {
					count++
				}
			}
			assert.Equal(t, 1, count, "prop %s", p)
		}
	})
}

func names(ps []PropFile) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Name())
	}
	return out
}
