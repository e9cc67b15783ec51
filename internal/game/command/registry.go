package command

import (
	"fmt"
	"sort"
	"strings"
)

// knownHandlers lists every handler Translate understands.
var knownHandlers = map[string]bool{
	HandlerGoTo: true, HandlerSpeak: true, HandlerWhisper: true, HandlerAnnounce: true,
	HandlerThink: true, HandlerPickUp: true, HandlerGive: true, HandlerSteal: true,
	HandlerEquip: true, HandlerSkill: true, HandlerKill: true, HandlerLook: true,
	HandlerStatus: true, HandlerWait: true, HandlerQuit: true, HandlerHelp: true,
}

// Registry maps command names and aliases to Command definitions.
// Names are stored lowercased; lookups fold case.
type Registry struct {
	byName  map[string]*Command
	aliasOf map[string]string
}

// NewRegistry creates a Registry populated with cmds.
//
// Precondition: No two commands may share a name or alias, and every
// command must name a known handler.
// Postcondition: Returns a Registry, or an error naming the first offending command.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]*Command, len(cmds)),
		aliasOf: make(map[string]string),
	}
	taken := func(key string) (string, bool) {
		if _, ok := r.byName[key]; ok {
			return key, true
		}
		owner, ok := r.aliasOf[key]
		return owner, ok
	}

	for i := range cmds {
		cmd := &cmds[i]
		name := strings.ToLower(cmd.Name)
		if name == "" {
			return nil, fmt.Errorf("command %d has no name", i)
		}
		if !knownHandlers[cmd.Handler] {
			return nil, fmt.Errorf("command %q: unknown handler %q", name, cmd.Handler)
		}
		if owner, ok := taken(name); ok {
			return nil, fmt.Errorf("command %q collides with %q", name, owner)
		}
		cmd.Name = name
		r.byName[name] = cmd

		for _, alias := range cmd.Aliases {
			alias = strings.ToLower(alias)
			if owner, ok := taken(alias); ok {
				return nil, fmt.Errorf("alias %q of %q collides with %q", alias, name, owner)
			}
			r.aliasOf[alias] = name
		}
	}
	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias, ignoring case.
//
// Postcondition: Returns (command, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Command, bool) {
	key := strings.ToLower(input)
	if cmd, ok := r.byName[key]; ok {
		return cmd, true
	}
	if name, ok := r.aliasOf[key]; ok {
		return r.byName[name], true
	}
	return nil, false
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, 0, len(r.byName))
	for _, cmd := range r.byName {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CommandsByCategory returns commands grouped by category, each group sorted by name.
func (r *Registry) CommandsByCategory() map[string][]*Command {
	out := make(map[string][]*Command)
	for _, cmd := range r.Commands() {
		out[cmd.Category] = append(out[cmd.Category], cmd)
	}
	return out
}
