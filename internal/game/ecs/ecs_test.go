package ecs_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
)

type health struct{ HP int }

func (health) ComponentType() ecs.ComponentType { return "health" }

type tag struct{}

func (tag) ComponentType() ecs.ComponentType { return "tag" }

type marker struct{ Label string }

func (marker) ComponentType() ecs.ComponentType { return "marker" }

func TestCreateEntity_RejectsDuplicateName(t *testing.T) {
	ctx := ecs.NewContext()
	_, err := ctx.CreateEntity("A")
	require.NoError(t, err)
	_, err = ctx.CreateEntity("A")
	assert.Error(t, err)
	_, err = ctx.CreateEntity("")
	assert.Error(t, err)
}

func TestAdd_AtMostOnePerType(t *testing.T) {
	ctx := ecs.NewContext()
	e, _ := ctx.CreateEntity("A")
	require.NoError(t, e.Add(health{HP: 3}))
	assert.Error(t, e.Add(health{HP: 4}))

	h, ok := ecs.Get[health](e)
	require.True(t, ok)
	assert.Equal(t, 3, h.HP)

	e.Replace(health{HP: 9})
	assert.Equal(t, 9, ecs.MustGet[health](e).HP)
}

func TestQuery_MatcherAndCreationOrder(t *testing.T) {
	ctx := ecs.NewContext()
	for _, n := range []string{"C", "A", "B"} {
		e, _ := ctx.CreateEntity(n)
		_ = e.Add(health{})
		if n != "A" {
			_ = e.Add(tag{})
		}
	}

	names := func(es []*ecs.Entity) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.Name())
		}
		return out
	}

	assert.Equal(t, []string{"C", "A", "B"}, names(ctx.Query(ecs.AllOf("health"))))
	assert.Equal(t, []string{"C", "B"}, names(ctx.Query(ecs.AllOf("health", "tag"))))
	assert.Equal(t, []string{"A"}, names(ctx.Query(ecs.AllOf("health").Without("tag"))))
	assert.Equal(t, []string{"C", "B"}, names(ctx.Query(ecs.Matcher{AnyOf: []ecs.ComponentType{"tag", "marker"}})))
}

func TestCollector_AddedAndRemoved(t *testing.T) {
	ctx := ecs.NewContext()
	added := ctx.NewCollector("tag", ecs.Added)
	removed := ctx.NewCollector("tag", ecs.Removed)

	a, _ := ctx.CreateEntity("A")
	b, _ := ctx.CreateEntity("B")
	_ = b.Add(tag{})
	_ = a.Add(tag{})
	_ = a.Add(health{})

	got := added.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Name())
	assert.Equal(t, "A", got[1].Name())
	assert.Equal(t, 0, added.Len())

	a.Remove("tag")
	assert.Equal(t, 1, removed.Len())
	assert.Equal(t, 0, added.Len())
}

func TestCollector_DeactivatedIgnoresChanges(t *testing.T) {
	ctx := ecs.NewContext()
	col := ctx.NewCollector("tag", ecs.Added)
	col.Deactivate()

	e, _ := ctx.CreateEntity("A")
	_ = e.Add(tag{})
	assert.Equal(t, 0, col.Len())

	col.Activate()
	e.Replace(tag{})
	assert.Equal(t, 1, col.Len())
}

func TestDestroyEntity(t *testing.T) {
	ctx := ecs.NewContext()
	removed := ctx.NewCollector("marker", ecs.Removed)
	e, _ := ctx.CreateEntity("A")
	_ = e.Add(marker{Label: "x"})

	ctx.DestroyEntity(e)

	assert.False(t, e.Alive())
	_, ok := ctx.Entity("A")
	assert.False(t, ok)
	assert.Empty(t, ctx.Entities())
	assert.Equal(t, 1, removed.Len())
	assert.Error(t, e.Add(tag{}))

	// the name is free again
	_, err := ctx.CreateEntity("A")
	assert.NoError(t, err)
}

func TestPropertyAtMostOneComponentPerType(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := ecs.NewContext()
		e, _ := ctx.CreateEntity("E")
		present := map[ecs.ComponentType]bool{}

		ops := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 50).Draw(t, "ops")
		for i, op := range ops {
			var c ecs.Component
			switch op % 3 {
			case 0:
				c = health{HP: i}
			case 1:
				c = tag{}
			default:
				c = marker{Label: fmt.Sprint(i)}
			}
			switch {
			case op < 3:
				err := e.Add(c)
				if present[c.ComponentType()] {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
				present[c.ComponentType()] = true
			case op == 3:
				e.Replace(c)
				present[c.ComponentType()] = true
			default:
				assert.Equal(t, present[c.ComponentType()], e.Remove(c.ComponentType()))
				delete(present, c.ComponentType())
			}
			assert.Len(t, e.Types(), len(present))
		}
	})
}
