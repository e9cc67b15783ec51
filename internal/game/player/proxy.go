// Package player bridges external player input to the engine: a queue of
// pending commands and an inbox of rendered messages per player.
package player

import (
	"sync"
)

// Tag classifies an inbox message.
type Tag string

const (
	TagSystem  Tag = "SYSTEM"
	TagActor   Tag = "ACTOR"
	TagStage   Tag = "STAGE"
	TagKickOff Tag = "KICKOFF"
	TagTip     Tag = "TIP"
)

// ClientMessage is one entry in a player's inbox.
type ClientMessage struct {
	Tag     Tag    `json:"tag"`
	Sender  string `json:"sender"`
	Index   int    `json:"index"`
	Content string `json:"content"`
}

// Proxy is one joined player bound to an actor entity.
// All methods are safe for concurrent use.
type Proxy struct {
	name  string
	actor string

	mu      sync.Mutex
	queue   []string
	inbox   []ClientMessage
	next    int
	over    bool
	sub     *Subscription
	dropped int
}

// NewProxy creates a proxy for player name bound to actor.
func NewProxy(name, actor string) *Proxy {
	return &Proxy{name: name, actor: actor}
}

// Name returns the player's name.
func (p *Proxy) Name() string { return p.name }

// Actor returns the bound actor's entity name.
func (p *Proxy) Actor() string { return p.actor }

// Enqueue appends a raw command line for the next player-input phase.
func (p *Proxy) Enqueue(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(p.queue, line)
}

// Drain removes and returns every queued command in arrival order.
func (p *Proxy) Drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.queue
	p.queue = nil
	return out
}

// Pending reports the number of queued commands.
func (p *Proxy) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Deliver appends a message to the inbox and pushes it to the live subscription if any.
//
// Postcondition: Returns the stored message; its Index is one greater than the previous message's.
func (p *Proxy) Deliver(tag Tag, sender, content string) ClientMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := ClientMessage{Tag: tag, Sender: sender, Index: p.next, Content: content}
	p.next++
	p.inbox = append(p.inbox, msg)
	if p.sub != nil {
		if err := p.sub.Push(msg); err != nil {
			p.dropped++
		}
	}
	return msg
}

// Inbox returns a copy of every message with Index >= since.
func (p *Proxy) Inbox(since int) []ClientMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ClientMessage
	for _, m := range p.inbox {
		if m.Index >= since {
			out = append(out, m)
		}
	}
	return out
}

// Subscribe attaches a live subscription, replacing and closing any previous one.
func (p *Proxy) Subscribe(bufferSize int) *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		_ = p.sub.Close()
	}
	p.sub = NewSubscription(p.name, bufferSize)
	return p.sub
}

// Dropped returns how many pushes the live subscription refused.
func (p *Proxy) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Over reports whether the player has quit or lost their actor.
func (p *Proxy) Over() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.over
}

// End marks the proxy over and closes its subscription.
func (p *Proxy) End() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.over = true
	if p.sub != nil {
		_ = p.sub.Close()
	}
}
