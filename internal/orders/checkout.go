package orders

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/alerts"
	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/geo"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
	"github.com/sudo-init-do/nearbuy/internal/metrics"
)

// PlaceOrderInput is what the customer chooses at checkout.
type PlaceOrderInput struct {
	DeliveryType      marketplace.DeliveryType `json:"delivery_type" validate:"required"`
	DeliveryAddress   string                   `json:"delivery_address" validate:"max=500"`
	DeliveryLatitude  *float64                 `json:"delivery_latitude"`
	DeliveryLongitude *float64                 `json:"delivery_longitude"`
	Notes             string                   `json:"notes" validate:"max=500"`
}

// Checkout turns a seller partition of a cart into an order.
type Checkout struct {
	store          Store
	carts          *cart.Store
	fee            decimal.Decimal
	decrementStock bool
	alerts         alerts.Enqueuer
}

// CheckoutOptions configure pricing and stock handling.
type CheckoutOptions struct {
	DeliveryFee    decimal.Decimal
	DecrementStock bool
}

func NewCheckout(store Store, carts *cart.Store, enq alerts.Enqueuer, opts CheckoutOptions) *Checkout {
	return &Checkout{
		store:          store,
		carts:          carts,
		fee:            opts.DeliveryFee,
		decrementStock: opts.DecrementStock,
		alerts:         enq,
	}
}

// checkPlaceable validates an order against the shop before anything is written.
func checkPlaceable(seller *marketplace.Seller, items []cart.Item, in PlaceOrderInput) error {
	if len(items) == 0 {
		return apperr.Validation("your cart has no items from this shop")
	}
	if !seller.Listable() {
		return apperr.Validation("this shop is not accepting orders")
	}
	if !seller.IsOpen {
		return apperr.Validation("this shop is currently closed")
	}
	if !in.DeliveryType.Valid() {
		return apperr.Validation("unsupported delivery type")
	}
	if !seller.Offers(in.DeliveryType) {
		return apperr.Validation(fmt.Sprintf("%s does not offer %s", seller.ShopName, strings.ReplaceAll(string(in.DeliveryType), "_", " ")))
	}
	if in.DeliveryType != marketplace.DeliveryPickup && strings.TrimSpace(in.DeliveryAddress) == "" {
		return apperr.Validation("delivery address is required")
	}
	if (in.DeliveryLatitude == nil) != (in.DeliveryLongitude == nil) {
		return apperr.Validation("delivery latitude and longitude must be given together")
	}
	if in.DeliveryLatitude != nil && !(geo.Point{Lat: *in.DeliveryLatitude, Lng: *in.DeliveryLongitude}).Valid() {
		return apperr.Validation("delivery coordinates are out of range")
	}
	return nil
}

// Quote prices the customer's partition for sellerID without placing it.
func (ch *Checkout) Quote(ctx context.Context, customerID, sellerID string, d marketplace.DeliveryType) (Totals, error) {
	c, err := ch.carts.Load(ctx, customerID)
	if err != nil {
		return Totals{}, err
	}
	return Quote(c.SellerItems(sellerID), d, ch.fee), nil
}

// PlaceOrder writes the order, its items and its first history entry in one
// transaction, then clears the seller partition of the customer's cart.
func (ch *Checkout) PlaceOrder(ctx context.Context, customerID, sellerID string, in PlaceOrderInput) (*Order, error) {
	c, err := ch.carts.Load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	items := c.SellerItems(sellerID)

	var order *Order
	err = ch.store.InTx(ctx, func(tx Tx) error {
		seller, err := tx.Seller(ctx, sellerID)
		if err != nil {
			return err
		}
		if err := checkPlaceable(seller, items, in); err != nil {
			return err
		}
		totals := Quote(items, in.DeliveryType, ch.fee)

		var address *string
		if a := strings.TrimSpace(in.DeliveryAddress); a != "" && in.DeliveryType != marketplace.DeliveryPickup {
			address = &a
		}

		orderID, err := tx.InsertOrder(ctx, NewOrder{
			CustomerID:        customerID,
			SellerID:          sellerID,
			DeliveryType:      in.DeliveryType,
			DeliveryAddress:   address,
			DeliveryLatitude:  in.DeliveryLatitude,
			DeliveryLongitude: in.DeliveryLongitude,
			Subtotal:          totals.Subtotal,
			DeliveryFee:       totals.DeliveryFee,
			Total:             totals.Total,
			Notes:             strings.TrimSpace(in.Notes),
		})
		if err != nil {
			return apperr.FromPg(err, "")
		}
		if err := tx.InsertItems(ctx, orderID, items); err != nil {
			return apperr.FromPg(err, "")
		}

		if ch.decrementStock {
			if err := tx.DecrementStock(ctx, items); err != nil {
				return err
			}
		}

		if err := tx.InsertHistory(ctx, orderID, StatusPending, "Order placed", customerID); err != nil {
			return err
		}

		order, err = tx.LoadOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersPlaced.Inc()
	metrics.StatusTransitions.WithLabelValues(string(StatusPending)).Inc()

	if err := ch.carts.ClearSeller(ctx, customerID, sellerID); err != nil {
		log.Printf("[checkout] order %s placed but cart partition not cleared: %v", order.OrderNumber, err)
	}
	notifyStatus(ctx, ch.alerts, order, customerID)
	return order, nil
}

// notifyStatus enqueues the status change for the counterparty. Failures are
// logged only.
func notifyStatus(ctx context.Context, enq alerts.Enqueuer, o *Order, changedBy string) {
	if enq == nil || o == nil {
		return
	}
	err := enq.OrderStatusChanged(ctx, alerts.OrderStatusChangedPayload{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerID:   o.CustomerID,
		SellerID:     o.SellerID,
		SellerUserID: o.SellerUserID,
		Status:       string(o.Status),
		ChangedBy:    changedBy,
	})
	if err != nil {
		log.Printf("[notify][ERROR] enqueue order %s status %s: %v", o.OrderNumber, o.Status, err)
	}
}
