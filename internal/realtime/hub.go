package realtime

import (
	"sync"

	"github.com/sudo-init-do/nearbuy/internal/metrics"
)

// Filter selects changes on one table where column equals value.
type Filter struct {
	Table  string
	Column string
	Value  string
}

func (f Filter) Match(c Change) bool {
	if f.Table != c.Table {
		return false
	}
	return f.Column == "" || c.Value(f.Column) == f.Value
}

// Subscription receives matching changes on C until it is closed.
type Subscription struct {
	C <-chan Change

	ch     chan Change
	filter Filter
	hub    *Hub
	once   sync.Once
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub delivers changes to subscribers. Publishing never blocks: a change
// that does not fit a subscriber's buffer is dropped for that subscriber.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a filter with a buffer of size buf.
func (h *Hub) Subscribe(f Filter, buf int) *Subscription {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Change, buf)
	s := &Subscription{C: ch, ch: ch, filter: f, hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
	h.mu.Unlock()
}

// Publish fans c out to every matching subscriber and returns how many
// received it.
func (h *Hub) Publish(c Change) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs {
		if !s.filter.Match(c) {
			continue
		}
		select {
		case s.ch <- c:
			delivered++
			metrics.RealtimeEvents.WithLabelValues(c.Table, "delivered").Inc()
		default:
			metrics.RealtimeEvents.WithLabelValues(c.Table, "dropped").Inc()
		}
	}
	return delivered
}

// Len is the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
