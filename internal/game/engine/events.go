package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/player"
	"github.com/cory-johannsen/agentrpg/internal/game/prompt"
)

// event is one line routed to a set of recipients when the current
// processor finishes.
type event struct {
	tag     player.Tag
	sender  string
	content string
	to      []string
}

// emit queues content for every named recipient.
func (g *Game) emit(tag player.Tag, sender, content string, to ...string) {
	if len(to) == 0 {
		return
	}
	g.events = append(g.events, event{tag: tag, sender: sender, content: content, to: to})
}

// flushEvents appends queued lines to recipient chat histories and player
// inboxes, in queue order. An entity's history only receives lines after its
// kick-off was delivered.
func (g *Game) flushEvents() {
	events := g.events
	g.events = nil
	for _, ev := range events {
		seen := make(map[string]bool, len(ev.to))
		for _, name := range ev.to {
			if seen[name] {
				continue
			}
			seen[name] = true
			if e, ok := g.entities.Entity(name); ok && e.Has(component.TypeKickOffDone) && !e.Has(component.TypeCorpse) && g.agents.Has(name) {
				if err := g.agents.AppendHuman(name, ev.content); err != nil {
					g.logger.Warn("delivering event", zap.String("recipient", name), zap.Error(err))
				}
			}
			if p, ok := g.players.ByActor(name); ok && !p.Over() {
				p.Deliver(ev.tag, ev.sender, stripTag(ev.content))
			}
		}
	}
}

// stripTag removes the leading history tag from a line rendered for a player.
func stripTag(content string) string {
	for _, tag := range []string{prompt.TagEvent, prompt.TagSelf, prompt.TagPerceived, prompt.TagKickOff, prompt.TagPlan} {
		if strings.HasPrefix(content, tag) {
			return strings.TrimSpace(strings.TrimPrefix(content, tag))
		}
	}
	return content
}

// tell queues a SYSTEM line for the player bound to actor, if any.
func (g *Game) tell(actor, content string) {
	if p, ok := g.players.ByActor(actor); ok {
		p.Deliver(player.TagSystem, "", content)
	}
}
