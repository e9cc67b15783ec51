package player

import (
	"fmt"
	"sync"
)

// Subscription routes inbox messages to a Go channel for a live client.
type Subscription struct {
	name   string
	events chan ClientMessage
	mu     sync.Mutex
	closed bool
}

// NewSubscription creates a Subscription for the named player.
//
// Precondition: name must be non-empty.
// Postcondition: Returns a Subscription with an open events channel.
func NewSubscription(name string, bufferSize int) *Subscription {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Subscription{
		name:   name,
		events: make(chan ClientMessage, bufferSize),
	}
}

// Name returns the subscribed player's name.
func (s *Subscription) Name() string {
	return s.name
}

// Push sends msg to the events channel without blocking.
//
// Postcondition: msg is enqueued, or an error is returned if the subscription is closed or full.
func (s *Subscription) Push(msg ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("subscription %s is closed", s.name)
	}
	select {
	case s.events <- msg:
		return nil
	default:
		return fmt.Errorf("subscription %s event buffer full", s.name)
	}
}

// Events returns the read-only events channel.
func (s *Subscription) Events() <-chan ClientMessage {
	return s.events
}

// Close marks the subscription as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (s *Subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// IsClosed reports whether the subscription has been closed.
func (s *Subscription) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
