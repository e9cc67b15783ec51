// Package engine runs the tick pipeline: planning through agents, player
// input, adjudication of action components, and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/config"
	"github.com/cory-johannsen/agentrpg/internal/game/blueprint"
	"github.com/cory-johannsen/agentrpg/internal/game/chaos"
	"github.com/cory-johannsen/agentrpg/internal/game/command"
	"github.com/cory-johannsen/agentrpg/internal/game/component"
	"github.com/cory-johannsen/agentrpg/internal/game/ecs"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
	"github.com/cory-johannsen/agentrpg/internal/game/player"
	"github.com/cory-johannsen/agentrpg/internal/game/save"
	"github.com/cory-johannsen/agentrpg/internal/game/world"
)

// Saver persists snapshots.
type Saver interface {
	Save(ctx context.Context, s save.Snapshot) error
}

// TransportFactory builds the transport for an agent endpoint.
type TransportFactory func(name, url string) (agent.Transport, error)

// Deps are the collaborators a Game is built with.
type Deps struct {
	Config     config.GameConfig
	Agents     agent.Options
	Transports TransportFactory
	Chaos      chaos.System
	Files      files.Writer
	Saver      Saver
	Commands   *command.Registry
	Logger     *zap.Logger
}

// ErrGameOver is returned by Tick after the game has been asked to exit.
var ErrGameOver = errors.New("game over")

// Game owns every piece of simulation state. It is driven from one
// goroutine; only the player proxies and RequestExit are safe to use from
// others.
type Game struct {
	cfg        config.GameConfig
	bp         *blueprint.Blueprint
	entities   *ecs.Context
	agents     *agent.Registry
	files      *files.Registry
	world      *world.Index
	players    *player.Manager
	commands   *command.Registry
	chaos      chaos.System
	saver      Saver
	transports TransportFactory
	logger     *zap.Logger

	round       int
	nextGUID    int
	willExit    atomic.Bool
	events      []event
	spawns      []save.SpawnRecord
	cursors     map[string]*save.Cursor
	scheduler   *Scheduler
	initialized bool
}

var _ chaos.Host = (*Game)(nil)

func newGame(bp *blueprint.Blueprint, deps Deps) (*Game, error) {
	if bp == nil {
		return nil, errors.New("engine: blueprint must not be nil")
	}
	if deps.Logger == nil {
		return nil, errors.New("engine: logger must not be nil")
	}
	if deps.Chaos == nil {
		deps.Chaos = chaos.Inert{}
	}
	if deps.Commands == nil {
		deps.Commands = command.DefaultRegistry()
	}
	if deps.Transports == nil {
		deps.Transports = func(_, url string) (agent.Transport, error) {
			return agent.NewTransport(url, agent.TransportOptions{})
		}
	}
	if deps.Config.RoundRobinSize < 1 {
		deps.Config.RoundRobinSize = 1
	}
	if deps.Config.DeadPolicy == "" {
		deps.Config.DeadPolicy = config.DeadPolicyDestroy
	}
	logger := deps.Logger
	g := &Game{
		cfg:        deps.Config,
		bp:         bp,
		entities:   ecs.NewContext(),
		agents:     agent.NewRegistry(deps.Agents, logger.Named("agent")),
		files:      files.NewRegistry(deps.Files, logger.Named("files")),
		world:      world.NewIndex(),
		players:    player.NewManager(),
		commands:   deps.Commands,
		chaos:      deps.Chaos,
		saver:      deps.Saver,
		transports: deps.Transports,
		logger:     logger,
		cursors:    make(map[string]*save.Cursor),
	}
	g.scheduler = newScheduler(g)
	return g, nil
}

// Round returns the number of the current or last completed tick.
func (g *Game) Round() int { return g.round }

// Agents returns the agent registry.
func (g *Game) Agents() *agent.Registry { return g.agents }

// Entities returns the ECS context.
func (g *Game) Entities() *ecs.Context { return g.entities }

// Files returns the prop and archive registry.
func (g *Game) Files() *files.Registry { return g.files }

// World returns the spatial index.
func (g *Game) World() *world.Index { return g.world }

// Players returns the player manager.
func (g *Game) Players() *player.Manager { return g.players }

// Commands returns the command registry.
func (g *Game) Commands() *command.Registry { return g.commands }

// Blueprint returns the blueprint the game was built from.
func (g *Game) Blueprint() *blueprint.Blueprint { return g.bp }

// Name returns the configured game name.
func (g *Game) Name() string { return g.cfg.Name }

// RequestExit makes the next phase boundary short-circuit to teardown.
// Safe for concurrent use.
func (g *Game) RequestExit() { g.willExit.Store(true) }

// WillExit reports whether exit was requested.
func (g *Game) WillExit() bool { return g.willExit.Load() }

// Initialize runs every processor's one-time initialization. Tick calls it
// on first use.
func (g *Game) Initialize(ctx context.Context) {
	if g.initialized {
		return
	}
	g.initialized = true
	g.scheduler.initialize(ctx)
}

// Tick runs one round of the pipeline.
//
// Postcondition: Returns ErrGameOver if exit had already been requested.
func (g *Game) Tick(ctx context.Context) error {
	if g.WillExit() {
		return ErrGameOver
	}
	g.Initialize(ctx)
	g.scheduler.tick(ctx)
	return nil
}

// Run ticks until ctx is cancelled, exit is requested, or max_rounds is
// reached, sleeping tick_interval between rounds.
func (g *Game) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			g.RequestExit()
		}
		if err := g.Tick(ctx); err != nil {
			if errors.Is(err, ErrGameOver) {
				return nil
			}
			return err
		}
		if g.cfg.MaxRounds > 0 && g.round >= g.cfg.MaxRounds {
			g.logger.Info("max rounds reached", zap.Int("round", g.round))
			g.RequestExit()
			return nil
		}
		if g.cfg.TickInterval > 0 {
			select {
			case <-ctx.Done():
				g.RequestExit()
			case <-time.After(g.cfg.TickInterval):
			}
		}
	}
}

// Shutdown runs teardown: a final save through the configured Saver.
func (g *Game) Shutdown(ctx context.Context) error {
	g.RequestExit()
	g.scheduler.tearDown(ctx)
	if g.saver == nil {
		return nil
	}
	snap, err := g.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot on shutdown: %w", err)
	}
	if err := g.saver.Save(ctx, snap); err != nil {
		return fmt.Errorf("save on shutdown: %w", err)
	}
	return nil
}

// Join binds player name to a player actor declared by the blueprint.
//
// Postcondition: Returns the proxy, or an error if the actor is unknown, not
// a player actor, dead, or already bound.
func (g *Game) Join(name, actorName string) (*player.Proxy, error) {
	if !g.isPlayerActor(actorName) {
		return nil, fmt.Errorf("%q is not a player actor", actorName)
	}
	e, ok := g.entities.Entity(actorName)
	if !ok || !g.isLiving(e) {
		return nil, fmt.Errorf("player actor %q is not in the world", actorName)
	}
	p, err := g.players.Join(name, actorName)
	if err != nil {
		return nil, err
	}
	e.Replace(component.Player{Name: name})
	if e.Has(component.TypeKickOffDone) {
		if kc, ok := ecs.Get[component.KickOff](e); ok {
			p.Deliver(player.TagKickOff, actorName, g.kickOffText(actorName, kc))
		}
	}
	g.logger.Info("player joined", zap.String("player", name), zap.String("actor", actorName))
	return p, nil
}

// Leave unbinds a player.
func (g *Game) Leave(name string) error {
	p, ok := g.players.Get(name)
	if !ok {
		return fmt.Errorf("player %q not found", name)
	}
	if e, ok := g.entities.Entity(p.Actor()); ok {
		e.Remove(component.TypePlayer)
	}
	return g.players.Leave(name)
}

func (g *Game) isPlayerActor(name string) bool {
	for _, p := range g.bp.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (g *Game) newGUID() int {
	id := g.nextGUID
	g.nextGUID++
	return id
}
