// Package identitystate tracks which identity each browser client is signed in
// as and fans sign-in/sign-out transitions out to subscribers. Identity
// provider adapters share it so every provider reports state the same way.
package identitystate

import (
	"context"
	"sync"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// Hub holds per-client sign-in state.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	current *domainauth.Identity
	subs    map[*subscriber]struct{}
}

type subscriber struct {
	mu     sync.Mutex
	queue  []domainauth.StateChange
	signal chan struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

func (h *Hub) clientLocked(id string) *client {
	c, ok := h.clients[id]
	if !ok {
		c = &client{subs: make(map[*subscriber]struct{})}
		h.clients[id] = c
	}
	return c
}

// Set records the identity for clientID (nil signs out) and notifies subscribers.
func (h *Hub) Set(clientID string, id *domainauth.Identity) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := h.clientLocked(clientID)
	if id != nil {
		cp := *id
		id = &cp
	}
	c.current = id
	for s := range c.subs {
		s.push(domainauth.StateChange{Identity: id})
	}
	if id == nil && len(c.subs) == 0 {
		delete(h.clients, clientID)
	}
}

// Subscribe delivers the current state for clientID and then every later
// change, in order. The channel closes when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, clientID string) <-chan domainauth.StateChange {
	s := &subscriber{signal: make(chan struct{}, 1)}
	out := make(chan domainauth.StateChange)

	h.mu.Lock()
	c := h.clientLocked(clientID)
	s.push(domainauth.StateChange{Identity: c.current})
	c.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		defer close(out)
		defer h.unsubscribe(clientID, s)
		for {
			for {
				sc, ok := s.pop()
				if !ok {
					break
				}
				select {
				case out <- sc:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-s.signal:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Subscribers returns the number of live subscriptions for clientID.
func (h *Hub) Subscribers(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[clientID]; ok {
		return len(c.subs)
	}
	return 0
}

func (h *Hub) unsubscribe(clientID string, s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	delete(c.subs, s)
	if c.current == nil && len(c.subs) == 0 {
		delete(h.clients, clientID)
	}
}

func (s *subscriber) push(sc domainauth.StateChange) {
	s.mu.Lock()
	s.queue = append(s.queue, sc)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) pop() (domainauth.StateChange, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return domainauth.StateChange{}, false
	}
	sc := s.queue[0]
	s.queue = s.queue[1:]
	return sc, true
}
