package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sudo-init-do/nearbuy/internal/alerts"
	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

type memState struct {
	orders  map[string]Order
	items   map[string][]Item
	history map[string][]HistoryEntry
	stock   map[string]int
}

func (s memState) clone() memState {
	out := memState{
		orders:  make(map[string]Order, len(s.orders)),
		items:   make(map[string][]Item, len(s.items)),
		history: make(map[string][]HistoryEntry, len(s.history)),
		stock:   make(map[string]int, len(s.stock)),
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.items {
		out.items[k] = append([]Item(nil), v...)
	}
	for k, v := range s.history {
		out.history[k] = append([]HistoryEntry(nil), v...)
	}
	for k, v := range s.stock {
		out.stock[k] = v
	}
	return out
}

// memStore keeps orders in memory. A transaction works on a copy of the
// state that replaces it only when fn succeeds.
type memStore struct {
	mu      sync.Mutex
	sellers map[string]*marketplace.Seller
	state   memState
	seq     int

	insertErr error
	// raced, when set, is written over an order right after LockOrder reads
	// it, as a writer that did not take the lock would.
	raced Status
}

func newMemStore(sellers ...*marketplace.Seller) *memStore {
	m := &memStore{
		sellers: map[string]*marketplace.Seller{},
		state:   memState{}.clone(),
	}
	for _, s := range sellers {
		m.sellers[s.ID] = s
	}
	return m
}

func (m *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m, state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *memStore) history(orderID string) []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.history[orderID]
}

func (m *memStore) order(orderID string) (Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[orderID]
	return o, ok
}

type memTx struct {
	store *memStore
	state memState
}

func (t *memTx) Seller(_ context.Context, sellerID string) (*marketplace.Seller, error) {
	s, ok := t.store.sellers[sellerID]
	if !ok {
		return nil, apperr.NotFound("shop not found")
	}
	return s, nil
}

func (t *memTx) InsertOrder(_ context.Context, o NewOrder) (string, error) {
	if t.store.insertErr != nil {
		return "", t.store.insertErr
	}
	seller := t.store.sellers[o.SellerID]
	t.store.seq++
	id := fmt.Sprintf("order-%d", t.store.seq)
	now := time.Now()
	t.state.orders[id] = Order{
		ID:                id,
		OrderNumber:       fmt.Sprintf("NB-%06d", t.store.seq),
		CustomerID:        o.CustomerID,
		SellerID:          o.SellerID,
		ShopName:          seller.ShopName,
		SellerUserID:      seller.UserID,
		DeliveryType:      o.DeliveryType,
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryLatitude:  o.DeliveryLatitude,
		DeliveryLongitude: o.DeliveryLongitude,
		Subtotal:          o.Subtotal,
		DeliveryFee:       o.DeliveryFee,
		Total:             o.Total,
		Notes:             o.Notes,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return id, nil
}

func (t *memTx) InsertItems(_ context.Context, orderID string, items []cart.Item) error {
	for i, it := range items {
		productID := it.ProductID
		t.state.items[orderID] = append(t.state.items[orderID], Item{
			ID:           fmt.Sprintf("%s-item-%d", orderID, i),
			ProductID:    &productID,
			ProductName:  it.Name,
			ProductPrice: it.Price,
			Quantity:     it.Quantity,
			Subtotal:     it.LineTotal(),
		})
	}
	return nil
}

func (t *memTx) DecrementStock(_ context.Context, items []cart.Item) error {
	for _, it := range items {
		if t.state.stock[it.ProductID] < it.Quantity {
			return apperr.Conflict("", "not enough stock left for "+it.Name)
		}
		t.state.stock[it.ProductID] -= it.Quantity
	}
	return nil
}

func (t *memTx) LockOrder(_ context.Context, orderID string) (*Order, error) {
	o, ok := t.state.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	if t.store.raced != "" {
		raced := o
		raced.Status = t.store.raced
		t.state.orders[orderID] = raced
	}
	return &o, nil
}

func (t *memTx) SwapStatus(_ context.Context, orderID string, from, to Status) (bool, error) {
	o, ok := t.state.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	t.state.orders[orderID] = o
	return true, nil
}

func (t *memTx) InsertHistory(_ context.Context, orderID string, status Status, note, changedBy string) error {
	by := changedBy
	t.state.history[orderID] = append(t.state.history[orderID], HistoryEntry{
		Status: status, Note: note, ChangedBy: &by, CreatedAt: time.Now(),
	})
	return nil
}

func (t *memTx) LoadOrder(_ context.Context, orderID string) (*Order, error) {
	o, ok := t.state.orders[orderID]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	o.Items = t.state.items[orderID]
	o.History = t.state.history[orderID]
	return &o, nil
}

type sentStatus struct {
	mu   sync.Mutex
	sent []alerts.OrderStatusChangedPayload
}

func (s *sentStatus) OrderStatusChanged(_ context.Context, p alerts.OrderStatusChangedPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, p)
	return nil
}

func (s *sentStatus) SellerApproved(context.Context, alerts.SellerApprovedPayload) error { return nil }

func (s *sentStatus) statuses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, p := range s.sent {
		out[i] = p.Status
	}
	return out
}
