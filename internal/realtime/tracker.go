package realtime

import (
	"sync"
	"time"
)

type orderState struct {
	status    string
	updatedAt time.Time
}

// StatusTracker remembers the latest status seen per order so repeated or
// out-of-order events are applied at most once.
type StatusTracker struct {
	mu     sync.Mutex
	orders map[string]orderState
}

func NewStatusTracker() *StatusTracker {
	return &StatusTracker{orders: make(map[string]orderState)}
}

// Apply records status for orderID and reports whether it is new. An event
// older than the one already applied, or repeating its status, is ignored.
func (t *StatusTracker) Apply(orderID, status string, updatedAt time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.orders[orderID]
	if ok {
		if updatedAt.Before(cur.updatedAt) {
			return false
		}
		if cur.status == status {
			if updatedAt.After(cur.updatedAt) {
				cur.updatedAt = updatedAt
				t.orders[orderID] = cur
			}
			return false
		}
	}
	t.orders[orderID] = orderState{status: status, updatedAt: updatedAt}
	return true
}

// Status returns the last applied status for orderID.
func (t *StatusTracker) Status(orderID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.orders[orderID]
	return s.status, ok
}
