package dom

import (
	"context"
	"sync"
)

// Hub fans mutation notifications out to subscriptions. Drivers embed one
// and call Notify for every observed mutation batch. The zero value is
// ready to use.
type Hub struct {
	mu   sync.Mutex
	subs map[*hubSub]struct{}
	idle func()
}

// OnIdle registers fn to run each time the last subscription disconnects.
// fn runs outside the hub lock.
func (h *Hub) OnIdle(fn func()) {
	h.mu.Lock()
	h.idle = fn
	h.mu.Unlock()
}

// Subscribe returns a subscription that is disconnected when ctx ends or
// Disconnect is called. Notifications are coalesced when the subscriber
// falls behind by more than the buffer.
func (h *Hub) Subscribe(ctx context.Context) Subscription {
	s := &hubSub{hub: h, ch: make(chan struct{}, 64), done: make(chan struct{})}
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[*hubSub]struct{})
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Disconnect()
		case <-s.done:
		}
	}()
	return s
}

// Notify delivers one notification to every subscription without blocking.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of connected subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

type hubSub struct {
	hub  *Hub
	ch   chan struct{}
	once sync.Once
	done chan struct{}
}

func (s *hubSub) C() <-chan struct{} { return s.ch }

func (s *hubSub) Disconnect() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs, s)
		var idle func()
		if len(h.subs) == 0 {
			idle = h.idle
		}
		h.mu.Unlock()
		close(s.done)
		if idle != nil {
			idle()
		}
	})
}
