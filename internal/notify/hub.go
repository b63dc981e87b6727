// Package notify broadcasts payload-less change events. Subscribers learn
// that something changed for a user and re-fetch what they display.
package notify

import (
	"context"
	"sync"
)

type Kind string

const (
	CartChanged    Kind = "cart.changed"
	SessionChanged Kind = "session.changed"
)

type Event struct {
	Kind   Kind   `json:"kind"`
	UserID string `json:"-"`
}

// Notifier is called only after the mutation it reports has completed.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

type NotifierFunc func(ctx context.Context, ev Event)

func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Multi fans an event out to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

const subscriberBuffer = 8

type subscriber struct {
	ch chan Event
}

// Hub is the in-process observable for per-user changes.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*subscriber]struct{}{}}
}

// Subscribe returns the user's event stream and a cancel func that closes it.
// After Close the stream comes back already closed.
func (h *Hub) Subscribe(userID string) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s.ch, func() {}
	}
	if h.subs[userID] == nil {
		h.subs[userID] = map[*subscriber]struct{}{}
	}
	h.subs[userID][s] = struct{}{}

	return s.ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[userID][s]; !ok {
			return
		}
		delete(h.subs[userID], s)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		close(s.ch)
	}
}

// Close ends every open stream; used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for s := range set {
			close(s.ch)
		}
	}
	h.subs = map[string]map[*subscriber]struct{}{}
}

// Notify never blocks: a subscriber with a full buffer already has a
// pending re-fetch queued, so the event is dropped for it.
func (h *Hub) Notify(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.UserID] {
		select {
		case s.ch <- ev:
		default:
		}
	}
}

func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
