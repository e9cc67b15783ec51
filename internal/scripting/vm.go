package scripting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// VM is one sandboxed LState with a fresh instruction budget per call.
// All methods are safe for concurrent use; calls are serialized.
type VM struct {
	mu     sync.Mutex
	L      *lua.LState
	cancel context.CancelFunc
	limit  int
	logger *zap.Logger
}

// NewVM creates an empty sandboxed VM with an `engine` table for host functions.
//
// Precondition: logger must be non-nil.
func NewVM(instLimit int, logger *zap.Logger) *VM {
	L, cancel := NewSandboxedState(instLimit)
	L.SetGlobal("engine", L.NewTable())
	return &VM{L: L, cancel: cancel, limit: normalizeLimit(instLimit), logger: logger}
}

// Register exposes fn to scripts as engine.<name>.
func (v *VM) Register(name string, fn lua.LGFunction) {
	v.mu.Lock()
	defer v.mu.Unlock()
	tbl, ok := v.L.GetGlobal("engine").(*lua.LTable)
	if !ok {
		tbl = v.L.NewTable()
		v.L.SetGlobal("engine", tbl)
	}
	v.L.SetField(tbl, name, v.L.NewFunction(fn))
}

// LoadPath executes a .lua file, or every *.lua file of a directory in
// lexicographic order.
//
// Postcondition: Returns an error on read failure, Lua load failure, or budget exhaustion.
func (v *VM) LoadPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("scripting: stat %q: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("scripting: reading script dir %q: %w", path, err)
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, f := range files {
		v.refill()
		if err := v.L.DoFile(f); err != nil {
			return fmt.Errorf("scripting: loading %q: %w", f, err)
		}
	}
	return nil
}

// LoadString executes src in the VM.
func (v *VM) LoadString(src string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refill()
	if err := v.L.DoString(src); err != nil {
		return fmt.Errorf("scripting: loading chunk: %w", err)
	}
	return nil
}

// Has reports whether a global function named hook is defined.
func (v *VM) Has(hook string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// Call invokes the global function hook. Returns (LNil, nil) if the hook is
// not defined. Lua runtime errors, including budget exhaustion, are logged at
// Warn level and returned.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (v *VM) Call(hook string, args ...lua.LValue) (lua.LValue, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}
	v.refill()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		v.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, err
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases the LState.
func (v *VM) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	v.L.Close()
}

// refill installs a fresh instruction budget. Caller holds mu.
func (v *VM) refill() {
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := newCountingContext(v.limit)
	v.L.SetContext(ctx)
	v.cancel = cancel
}

// StringList converts a Lua array of strings; other values are skipped.
func StringList(v lua.LValue) []string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	tbl.ForEach(func(_, val lua.LValue) {
		if s, ok := val.(lua.LString); ok {
			out = append(out, string(s))
		}
	})
	return out
}

// StringMap converts a Lua table of string keys to string values.
func StringMap(v lua.LValue) map[string]string {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	out := make(map[string]string)
	tbl.ForEach(func(k, val lua.LValue) {
		ks, kok := k.(lua.LString)
		vs, vok := val.(lua.LString)
		if kok && vok {
			out[string(ks)] = string(vs)
		}
	})
	return out
}

// ListOf builds a Lua array from strs.
func ListOf(L *lua.LState, strs []string) *lua.LTable {
	tbl := L.NewTable()
	for _, s := range strs {
		tbl.Append(lua.LString(s))
	}
	return tbl
}

// State exposes the LState for building argument values.
// Callers must not run code on it outside Call.
func (v *VM) State() *lua.LState {
	return v.L
}
