package orders

import (
	"context"

	"github.com/sudo-init-do/nearbuy/internal/alerts"
	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/metrics"
)

// Lifecycle moves orders between statuses.
type Lifecycle struct {
	store  Store
	alerts alerts.Enqueuer
}

func NewLifecycle(store Store, enq alerts.Enqueuer) *Lifecycle {
	return &Lifecycle{store: store, alerts: enq}
}

// Advance moves a seller's order to the next fulfilment step.
func (l *Lifecycle) Advance(ctx context.Context, sellerUserID, orderID, note string) (*Order, error) {
	return l.apply(ctx, orderID, sellerUserID, ActionAdvance, note, func(o *Order) error {
		if o.SellerUserID != sellerUserID {
			return apperr.NotFound("order not found or not yours")
		}
		return nil
	})
}

// Cancel cancels a pending order on behalf of its customer or its seller.
func (l *Lifecycle) Cancel(ctx context.Context, userID, orderID, note string) (*Order, error) {
	return l.apply(ctx, orderID, userID, ActionCancel, note, func(o *Order) error {
		if o.CustomerID != userID && o.SellerUserID != userID {
			return apperr.NotFound("order not found or not yours")
		}
		return nil
	})
}

// apply locks the order, checks the caller, and swaps the status only if it
// is still the one that was read. A history entry is written in the same
// transaction.
func (l *Lifecycle) apply(ctx context.Context, orderID, actorID string, action Action, note string, authorize func(*Order) error) (*Order, error) {
	var order *Order
	err := l.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(o); err != nil {
			return err
		}
		to, err := target(o.Status, action)
		if err != nil {
			return err
		}

		swapped, err := tx.SwapStatus(ctx, o.ID, o.Status, to)
		if err != nil {
			return apperr.FromPg(err, "order not found")
		}
		if !swapped {
			return apperr.Conflict(apperr.CodeIllegalTransition, "order status changed, reload and try again")
		}
		if note == "" {
			note = defaultNote(to)
		}
		if err := tx.InsertHistory(ctx, o.ID, to, note, actorID); err != nil {
			return err
		}
		o.Status = to
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(order.Status)).Inc()
	notifyStatus(ctx, l.alerts, order, actorID)
	return order, nil
}

func defaultNote(s Status) string {
	switch s {
	case StatusAccepted:
		return "Order accepted by shop"
	case StatusPacked:
		return "Order packed"
	case StatusOutForDelivery:
		return "Order out for delivery"
	case StatusDelivered:
		return "Order delivered"
	case StatusCancelled:
		return "Order cancelled"
	}
	return ""
}
