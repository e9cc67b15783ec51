package engine

import (
	"context"
	"slices"

	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
)

// archiveProcessor refreshes what every actor knows about its stage and the
// actors standing in it, after movement settled.
type archiveProcessor struct {
	g *Game
}

func (p *archiveProcessor) Name() string { return "archive_update" }

func (p *archiveProcessor) Execute(context.Context) { p.g.refreshArchives() }

func (g *Game) refreshArchives() {
	for _, stage := range g.world.Stages() {
		se, stageOK := g.entities.Entity(stage)
		present := g.occupants(stage)
		for _, e := range present {
			if stageOK {
				g.learnStage(e.Name(), se)
			}
			for _, other := range present {
				if other != e {
					g.learnActor(e.Name(), other)
				}
			}
		}
	}
}

// learnActor records owner's view of other. Unchanged archives are not
// rewritten.
func (g *Game) learnActor(owner string, other *ecs.Entity) {
	a := files.ActorArchive{Owner: owner, Name: other.Name()}
	if ap, ok := ecs.Get[component.Appearance](other); ok {
		a.Appearance = ap.Text
	}
	if prev, ok := g.files.ActorArchive(owner, a.Name); ok && prev == a {
		return
	}
	g.files.SetActorArchive(a)
}

func (g *Game) learnStage(owner string, stage *ecs.Entity) {
	a := files.StageArchive{Owner: owner, Name: stage.Name(), Narration: g.narration(stage.Name())}
	if t, ok := ecs.Get[component.Tags](stage); ok {
		a.Tags = t.Values
	}
	if prev, ok := g.files.StageArchive(owner, a.Name); ok && prev.Narration == a.Narration && slices.Equal(prev.Tags, a.Tags) {
		return
	}
	g.files.SetStageArchive(a)
}
