package player

import (
	"fmt"
	"sync"
)

// Manager tracks every joined player in join order.
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	proxies map[string]*Proxy
	byActor map[string]string
	order   []string
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		proxies: make(map[string]*Proxy),
		byActor: make(map[string]string),
	}
}

// Join registers player name bound to actor.
//
// Precondition: name and actor must be non-empty.
// Postcondition: Returns the created Proxy, or an error if the name or actor is already taken.
func (m *Manager) Join(name, actor string) (*Proxy, error) {
	if name == "" || actor == "" {
		return nil, fmt.Errorf("player and actor names must be non-empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.proxies[name]; exists {
		return nil, fmt.Errorf("player %q already joined", name)
	}
	if other, exists := m.byActor[actor]; exists {
		return nil, fmt.Errorf("actor %q already bound to player %q", actor, other)
	}
	p := NewProxy(name, actor)
	m.proxies[name] = p
	m.byActor[actor] = name
	m.order = append(m.order, name)
	return p, nil
}

// Leave removes a player and ends its proxy.
//
// Postcondition: Returns an error if the player is not found.
func (m *Manager) Leave(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, exists := m.proxies[name]
	if !exists {
		return fmt.Errorf("player %q not found", name)
	}
	p.End()
	delete(m.proxies, name)
	delete(m.byActor, p.actor)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the proxy for player name.
func (m *Manager) Get(name string) (*Proxy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proxies[name]
	return p, ok
}

// ByActor returns the proxy bound to the named actor.
func (m *Manager) ByActor(actor string) (*Proxy, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.byActor[actor]
	if !ok {
		return nil, false
	}
	return m.proxies[name], true
}

// Proxies returns every proxy in join order.
func (m *Manager) Proxies() []*Proxy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Proxy, 0, len(m.order))
	for _, n := range m.order {
		out = append(out, m.proxies[n])
	}
	return out
}

// Count returns the number of joined players.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.proxies)
}

// Broadcast delivers a message to every joined player.
func (m *Manager) Broadcast(tag Tag, sender, content string) {
	for _, p := range m.Proxies() {
		p.Deliver(tag, sender, content)
	}
}
