package cart

import (
	"context"
	"sync"

	"github.com/sudo-init-do/nearbuy/internal/kv"
)

// Store persists each user's cart as JSON under cart:<user>.
type Store struct {
	kv kv.Store

	// serializes read-modify-write per process
	mu sync.Mutex
}

func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

// Load returns the user's cart, empty when none is stored.
func (s *Store) Load(ctx context.Context, userID string) (*Cart, error) {
	c := &Cart{}
	if _, err := kv.GetJSON(ctx, s.kv, kv.CartKey(userID), c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update loads the cart, applies fn and saves the result. Nothing is saved
// when fn returns an error.
func (s *Store) Update(ctx context.Context, userID string, fn func(*Cart) error) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return c, s.kv.Delete(ctx, kv.CartKey(userID))
	}
	return c, kv.SetJSON(ctx, s.kv, kv.CartKey(userID), c)
}

// ClearSeller drops the seller partition of the user's cart.
func (s *Store) ClearSeller(ctx context.Context, userID, sellerID string) error {
	_, err := s.Update(ctx, userID, func(c *Cart) error {
		c.ClearSellerItems(sellerID)
		return nil
	})
	return err
}
