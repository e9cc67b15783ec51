package chaos

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/agentrpg/internal/scripting"
)

// Lua hook names. A script defines any subset as global functions.
const (
	HookPreCreateWorld    = "on_pre_create_world"
	HookPostCreateWorld   = "on_post_create_world"
	HookReadMemoryFailed  = "on_read_memory_failed"
	HookStagePlanning     = "on_stage_planning"
	HookActorPlanning     = "on_actor_planning"
	HookHackStagePlanning = "hack_stage_planning"
	HookHackActorPlanning = "hack_actor_planning"
	HookRoundEnd          = "on_round_end"
)

// LuaSystem dispatches every hook to a sandboxed Lua script. Scripts reach the
// game through the engine table:
//
//	engine.round()
//	engine.exclude_chat_history(name, {tags})      -> removed count
//	engine.replace_chat_history(name, {old = new}) -> replaced count
//	engine.remove_last_conversation(name)          -> removed count
//	engine.append_system(name, text)
type LuaSystem struct {
	vm     *scripting.VM
	logger *zap.Logger

	mu   sync.Mutex
	host Host
}

var (
	_ System        = (*LuaSystem)(nil)
	_ RoundObserver = (*LuaSystem)(nil)
)

// NewLuaSystem loads the script at path (file or directory) into a sandbox
// limited to instLimit opcodes per hook call.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns an error if the script cannot be loaded.
func NewLuaSystem(path string, instLimit int, logger *zap.Logger) (*LuaSystem, error) {
	s := newLuaSystem(instLimit, logger)
	if err := s.vm.LoadPath(path); err != nil {
		s.vm.Close()
		return nil, fmt.Errorf("loading chaos script: %w", err)
	}
	return s, nil
}

// NewLuaSystemFromString is NewLuaSystem for an in-memory script.
func NewLuaSystemFromString(src string, instLimit int, logger *zap.Logger) (*LuaSystem, error) {
	s := newLuaSystem(instLimit, logger)
	if err := s.vm.LoadString(src); err != nil {
		s.vm.Close()
		return nil, fmt.Errorf("loading chaos script: %w", err)
	}
	return s, nil
}

func newLuaSystem(instLimit int, logger *zap.Logger) *LuaSystem {
	s := &LuaSystem{vm: scripting.NewVM(instLimit, logger), logger: logger}
	s.vm.Register("round", func(L *lua.LState) int {
		h := s.currentHost()
		if h == nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(h.Round()))
		return 1
	})
	s.vm.Register("exclude_chat_history", func(L *lua.LState) int {
		n := 0
		if h := s.currentHost(); h != nil {
			n = h.Agents().ExcludeChatHistory(L.CheckString(1), scripting.StringList(L.Get(2)))
		}
		L.Push(lua.LNumber(n))
		return 1
	})
	s.vm.Register("replace_chat_history", func(L *lua.LState) int {
		n := 0
		if h := s.currentHost(); h != nil {
			n = h.Agents().ReplaceChatHistory(L.CheckString(1), scripting.StringMap(L.Get(2)))
		}
		L.Push(lua.LNumber(n))
		return 1
	})
	s.vm.Register("remove_last_conversation", func(L *lua.LState) int {
		n := 0
		if h := s.currentHost(); h != nil {
			n = len(h.Agents().RemoveLastConversation(L.CheckString(1)))
		}
		L.Push(lua.LNumber(n))
		return 1
	})
	s.vm.Register("append_system", func(L *lua.LState) int {
		if h := s.currentHost(); h != nil {
			if err := h.Agents().AppendSystem(L.CheckString(1), L.CheckString(2)); err != nil {
				s.logger.Warn("chaos: append_system failed", zap.Error(err))
			}
		}
		return 0
	})
	return s
}

// Close releases the Lua VM.
func (s *LuaSystem) Close() {
	s.vm.Close()
}

func (s *LuaSystem) currentHost() Host {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

// call binds h for the duration of the hook.
func (s *LuaSystem) call(h Host, hook string, args ...lua.LValue) lua.LValue {
	if !s.vm.Has(hook) {
		return lua.LNil
	}
	s.mu.Lock()
	s.host = h
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.host = nil
		s.mu.Unlock()
	}()
	ret, err := s.vm.Call(hook, args...)
	if err != nil {
		return lua.LNil
	}
	return ret
}

func (s *LuaSystem) round(h Host) lua.LValue { return lua.LNumber(h.Round()) }

func (s *LuaSystem) OnPreCreateWorld(h Host) {
	s.call(h, HookPreCreateWorld, s.round(h))
}

func (s *LuaSystem) OnPostCreateWorld(h Host) {
	s.call(h, HookPostCreateWorld, s.round(h))
}

func (s *LuaSystem) OnReadMemoryFailed(h Host, agentName string) {
	s.call(h, HookReadMemoryFailed, lua.LString(agentName))
}

func (s *LuaSystem) OnStagePlanning(h Host, stages []string) {
	s.call(h, HookStagePlanning, s.round(h), scripting.ListOf(s.vm.State(), stages))
}

func (s *LuaSystem) OnActorPlanning(h Host, actors []string) {
	s.call(h, HookActorPlanning, s.round(h), scripting.ListOf(s.vm.State(), actors))
}

func (s *LuaSystem) HackStagePlanning(h Host, stage, prompt string) (string, bool) {
	return asResponse(s.call(h, HookHackStagePlanning, s.round(h), lua.LString(stage), lua.LString(prompt)))
}

func (s *LuaSystem) HackActorPlanning(h Host, actor, prompt string) (string, bool) {
	return asResponse(s.call(h, HookHackActorPlanning, s.round(h), lua.LString(actor), lua.LString(prompt)))
}

// OnRoundEnd implements RoundObserver.
func (s *LuaSystem) OnRoundEnd(h Host) {
	s.call(h, HookRoundEnd, s.round(h))
}

func asResponse(v lua.LValue) (string, bool) {
	if str, ok := v.(lua.LString); ok {
		return string(str), true
	}
	return "", false
}
