package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"reviewkit/core"
	"reviewkit/engine"
)

// Filter selects which events a subscriber receives. Nil accepts all.
type Filter func(core.Event) bool

// ForInstallation accepts only events of one installation.
func ForInstallation(id string) Filter {
	return func(ev core.Event) bool { return ev.Installation == id }
}

type subscriber struct {
	ch     chan core.Event
	filter Filter
}

// Hub broadcasts review events to live subscribers such as WebSocket clients.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Attach forwards every event published on bus to the hub.
func (h *Hub) Attach(bus *engine.EventBus) (detach func()) {
	return bus.SubscribeAll(func(ctx context.Context, ev core.Event) { h.Broadcast(ctx, ev) })
}

func (h *Hub) Subscribe(buffer int, filter Filter) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, filter: filter}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Subscribers reports the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers ev to matching subscribers. Slow subscribers miss events
// rather than block the publisher.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.filter != nil && !s.filter(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default: /* drop if full */
		}
	}
}

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
