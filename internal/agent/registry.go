package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrAgentNotFound is returned for operations on unregistered agents.
var ErrAgentNotFound = errors.New("agent not found")

// Agent is a named conversational endpoint with its chat history.
type Agent struct {
	Name      string
	URL       string
	transport Transport
	history   *ChatHistory
	connected bool
}

// Connected reports whether the agent answered a probe.
func (a *Agent) Connected() bool { return a.connected }

// Options configures a Registry.
type Options struct {
	// RequestTimeout bounds each Invoke; 0 means no deadline.
	RequestTimeout time.Duration
	// ProbeTimeout bounds each Probe; 0 means no deadline.
	ProbeTimeout time.Duration
}

// Registry maps agent names to endpoints and chat histories. Chat histories
// are only mutated here.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
	order  []string
	opts   Options
	logger *zap.Logger
}

// NewRegistry returns an empty Registry.
//
// Precondition: logger must be non-nil.
func NewRegistry(opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		agents: make(map[string]*Agent),
		opts:   opts,
		logger: logger,
	}
}

// Register adds an agent.
//
// Precondition: name must be non-empty; t must be non-nil.
// Postcondition: Returns an error if name is already registered.
func (r *Registry) Register(name, url string, t Transport) error {
	if name == "" {
		return errors.New("agent name must not be empty")
	}
	if t == nil {
		return fmt.Errorf("agent %q: transport must not be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent.Registry: agent %q already registered", name)
	}
	r.agents[name] = &Agent{Name: name, URL: url, transport: t, history: NewChatHistory()}
	r.order = append(r.order, name)
	return nil
}

// Unregister removes an agent and its history.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.agents[name]; !ok {
		return
	}
	delete(r.agents, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[name]
	return ok
}

// Names returns registered agent names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// URL returns the endpoint URL of name.
func (r *Registry) URL(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return "", false
	}
	return a.URL, true
}

// Connected reports whether name answered a probe.
func (r *Registry) Connected(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return ok && a.connected
}

// MarkConnected sets the connection flag of name without probing.
func (r *Registry) MarkConnected(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[name]; ok {
		a.connected = true
	}
}

// Append adds messages to the history of name.
func (r *Registry) Append(name string, msgs ...Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrAgentNotFound, name)
	}
	a.history.Append(msgs...)
	return nil
}

// AppendHuman adds a human message to the history of name.
func (r *Registry) AppendHuman(name, content string) error {
	return r.Append(name, Message{Role: RoleHuman, Content: content})
}

// AppendSystem adds a system message to the history of name.
func (r *Registry) AppendSystem(name, content string) error {
	return r.Append(name, Message{Role: RoleSystem, Content: content})
}

// History returns a copy of the history of name.
func (r *Registry) History(name string) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil
	}
	return a.history.Messages()
}

// SetHistory overwrites the history of name.
func (r *Registry) SetHistory(name string, msgs []Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrAgentNotFound, name)
	}
	a.history = NewChatHistory(msgs...)
	return nil
}

// RemoveLastConversation pops the trailing human/ai exchange of name.
//
// Postcondition: Returns the removed messages.
func (r *Registry) RemoveLastConversation(name string) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[name]
	if !ok {
		return nil
	}
	return a.history.PopLastExchange()
}

// ExcludeChatHistory drops messages of name containing any excluded tag.
func (r *Registry) ExcludeChatHistory(name string, excludedTags []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[name]
	if !ok {
		return 0
	}
	return a.history.Exclude(excludedTags)
}

// ReplaceChatHistory substitutes literal substrings in the history of name.
func (r *Registry) ReplaceChatHistory(name string, replacements map[string]string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[name]
	if !ok {
		return 0
	}
	return a.history.Replace(replacements)
}

// Connect probes every named agent not yet connected, concurrently.
//
// Postcondition: Returns the names that connected during this call, in the
// order given. Probe failures are logged.
func (r *Registry) Connect(ctx context.Context, names []string) []string {
	type probe struct {
		name string
		t    Transport
		err  error
	}
	var probes []*probe
	r.mu.RLock()
	for _, n := range names {
		if a, ok := r.agents[n]; ok && !a.connected {
			probes = append(probes, &probe{name: n, t: a.transport})
		}
	}
	r.mu.RUnlock()

	var g errgroup.Group
	for _, p := range probes {
		g.Go(func() error {
			pctx, cancel := withOptionalTimeout(ctx, r.opts.ProbeTimeout)
			defer cancel()
			p.err = p.t.Probe(pctx)
			return nil
		})
	}
	_ = g.Wait()

	var connected []string
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range probes {
		if p.err != nil {
			r.logger.Warn("agent probe failed", zap.String("agent", p.name), zap.Error(p.err))
			continue
		}
		if a, ok := r.agents[p.name]; ok {
			a.connected = true
			connected = append(connected, p.name)
		}
	}
	return connected
}

// HistoryDump is the persisted form of one agent's chat history.
type HistoryDump struct {
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ChatHistory []Message `json:"chat_history"`
}

// Dump returns the persisted form of name.
func (r *Registry) Dump(name string) (HistoryDump, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return HistoryDump{}, false
	}
	msgs := a.history.Messages()
	if msgs == nil {
		msgs = []Message{}
	}
	return HistoryDump{Name: a.Name, URL: a.URL, ChatHistory: msgs}, true
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
