package session

import (
	"sync"

	"codeberg.org/snonux/korengpro/internal/playback"
)

// Hub fans events out to subscribers. Slow subscribers miss events instead
// of blocking the sequencer. Events older than the last published one are
// dropped so subscribers never see a stale state last.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan playback.Event]struct{}
	last   uint64
	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan playback.Event]struct{})}
}

// Subscribe returns a channel of events and a func to unsubscribe.
// The channel is closed on unsubscribe or when the hub closes.
func (h *Hub) Subscribe(buffer int) (<-chan playback.Event, func()) {
	ch := make(chan playback.Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Publish delivers ev to every subscriber with room in its buffer. It
// reports false when ev was dropped as stale.
func (h *Hub) Publish(ev playback.Event) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ev.Seq != 0 {
		if ev.Seq <= h.last {
			return false
		}
		h.last = ev.Seq
	}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return true
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
