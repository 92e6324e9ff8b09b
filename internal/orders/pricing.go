package orders

import (
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

// Totals is the price breakdown of an order.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

// Quote prices items for a delivery type. Pickup is free, every other
// delivery type costs the flat fee.
func Quote(items []cart.Item, d marketplace.DeliveryType, fee decimal.Decimal) Totals {
	subtotal := cart.Subtotal(items)
	deliveryFee := decimal.Zero
	if d != marketplace.DeliveryPickup {
		deliveryFee = fee
	}
	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Total:       subtotal.Add(deliveryFee),
	}
}
