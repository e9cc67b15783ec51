// Package chaos defines the fault-injection hooks the engine calls at fixed
// points of world creation and planning, plus inert, scripted, and Lua
// implementations.
package chaos

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/config"
)

// Host is the view of a running game exposed to chaos hooks.
type Host interface {
	// Round returns the current round number.
	Round() int
	// Agents returns the agent registry holding every chat history.
	Agents() *agent.Registry
}

// System is the set of injection points. Every hook must be safe to call
// from the tick goroutine; none are called concurrently.
type System interface {
	// OnPreCreateWorld runs before blueprint entities are created.
	OnPreCreateWorld(h Host)
	// OnPostCreateWorld runs after the world exists and archives are seeded.
	OnPostCreateWorld(h Host)
	// OnReadMemoryFailed runs when an agent's saved history could not be read.
	OnReadMemoryFailed(h Host, agentName string)
	// OnStagePlanning runs before stage planning requests are built.
	OnStagePlanning(h Host, stages []string)
	// OnActorPlanning runs before actor planning requests are built.
	OnActorPlanning(h Host, actors []string)
	// HackStagePlanning may return a canned response for a stage's request.
	HackStagePlanning(h Host, stage, prompt string) (string, bool)
	// HackActorPlanning may return a canned response for an actor's request.
	HackActorPlanning(h Host, actor, prompt string) (string, bool)
}

// RoundObserver is optionally implemented by a System to observe the end of every tick.
type RoundObserver interface {
	OnRoundEnd(h Host)
}

// Inert implements System with no effects.
type Inert struct{}

var _ System = Inert{}

func (Inert) OnPreCreateWorld(Host)                                 {}
func (Inert) OnPostCreateWorld(Host)                                {}
func (Inert) OnReadMemoryFailed(Host, string)                       {}
func (Inert) OnStagePlanning(Host, []string)                        {}
func (Inert) OnActorPlanning(Host, []string)                        {}
func (Inert) HackStagePlanning(Host, string, string) (string, bool) { return "", false }
func (Inert) HackActorPlanning(Host, string, string) (string, bool) { return "", false }

// New builds the System selected by cfg.
//
// Postcondition: Returns an error if a scripted or Lua script cannot be loaded.
func New(cfg config.ChaosConfig, logger *zap.Logger) (System, error) {
	switch cfg.Mode {
	case config.ChaosInert, "":
		return Inert{}, nil
	case config.ChaosScripted:
		s, err := LoadScript(cfg.ScriptPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.ChaosLua:
		s, err := NewLuaSystem(cfg.ScriptPath, cfg.InstructionLimit, logger.Named("chaos"))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown chaos mode %q", cfg.Mode)
	}
}
