package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/game/action"
	"github.com/cory-johannsen/agentrpg/internal/game/command"
	"github.com/cory-johannsen/agentrpg/internal/game/player"
)

// playerInputProcessor turns each player's queued command lines into
// action components on the player's actor.
type playerInputProcessor struct {
	g      *Game
	logger *zap.Logger
}

func (p *playerInputProcessor) Name() string { return "player_input" }

func (p *playerInputProcessor) Execute(context.Context) {
	g := p.g
	for _, proxy := range g.players.Proxies() {
		lines := proxy.Drain()
		if len(lines) == 0 || proxy.Over() {
			continue
		}
		self, ok := g.livingActor(proxy.Actor())
		if !ok {
			proxy.Deliver(player.TagSystem, "", "You can no longer act.")
			continue
		}
		for _, line := range lines {
			if proxy.Over() {
				break
			}
			intent, err := g.commands.Translate(line, self.Name())
			if err != nil {
				p.logger.Debug("command rejected", zap.String("player", proxy.Name()), zap.String("line", line), zap.Error(err))
				proxy.Deliver(player.TagSystem, "", err.Error())
				continue
			}
			switch intent.Control {
			case command.ControlQuit:
				p.quit(proxy)
				continue
			case command.ControlHelp:
				proxy.Deliver(player.TagSystem, "", g.commands.HelpText())
				continue
			}
			target := self
			if intent.Target != self.Name() {
				t, ok := g.livingActor(intent.Target)
				if !ok {
					proxy.Deliver(player.TagSystem, "", fmt.Sprintf("There is no living actor named %s.", intent.Target))
					continue
				}
				target = t
			}
			action.Attach(target, intent.Action)
		}
	}
}

// quit ends a player's session; the game exits once no player is left.
func (p *playerInputProcessor) quit(proxy *player.Proxy) {
	proxy.Deliver(player.TagSystem, "", "Farewell.")
	proxy.End()
	p.logger.Info("player quit", zap.String("player", proxy.Name()))
	for _, other := range p.g.players.Proxies() {
		if !other.Over() {
			return
		}
	}
	p.g.RequestExit()
}

// TearDown tells every remaining player the game is over.
func (p *playerInputProcessor) TearDown(context.Context) {
	for _, proxy := range p.g.players.Proxies() {
		if proxy.Over() {
			continue
		}
		proxy.Deliver(player.TagSystem, "", "The game is over.")
		proxy.End()
	}
}
