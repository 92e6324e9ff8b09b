// Package cart holds a customer's pending line items, partitioned by seller.
package cart

import (
	"github.com/shopspring/decimal"
)

// Item is a cart line. Seller fields and the price/stock snapshot are fixed
// when the item is first added.
type Item struct {
	ProductID  string          `json:"product_id"`
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	ImageURL   string          `json:"image_url,omitempty"`
	Unit       string          `json:"unit"`
	Stock      int             `json:"stock"`
	Quantity   int             `json:"quantity"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is an ordered list of items, at most one per product. Every item's
// quantity is within [1, Stock].
type Cart struct {
	Items []Item `json:"items"`
}

// SellerGroup is the cart partition for one seller.
type SellerGroup struct {
	SellerID   string          `json:"seller_id"`
	SellerName string          `json:"seller_name"`
	Items      []Item          `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func clamp(qty, stock int) int {
	if stock < 0 {
		stock = 0
	}
	return max(0, min(qty, stock))
}

func (c *Cart) index(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem adds item, or increments the existing entry for the same product.
// The quantity is clamped to the stock snapshot and a quantity below 1 counts
// as 1. Returns the resulting quantity, 0 when nothing could be added.
func (c *Cart) AddItem(item Item) int {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	if i := c.index(item.ProductID); i >= 0 {
		existing := &c.Items[i]
		existing.Quantity = clamp(existing.Quantity+item.Quantity, existing.Stock)
		return existing.Quantity
	}
	item.Quantity = clamp(item.Quantity, item.Stock)
	if item.Quantity == 0 {
		return 0
	}
	c.Items = append(c.Items, item)
	return item.Quantity
}

// UpdateQuantity sets the quantity of productID, clamped to [0, stock].
// Zero removes the item. Reports whether the product was in the cart.
func (c *Cart) UpdateQuantity(productID string, qty int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	qty = clamp(qty, c.Items[i].Stock)
	if qty == 0 {
		c.removeAt(i)
		return true
	}
	c.Items[i].Quantity = qty
	return true
}

// RemoveItem drops productID. Reports whether it was present.
func (c *Cart) RemoveItem(productID string) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// ClearSellerItems drops every item of sellerID.
func (c *Cart) ClearSellerItems(sellerID string) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.SellerID != sellerID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

// Clear empties the cart across every seller.
func (c *Cart) Clear() {
	c.Items = nil
}

// SellerItems returns a copy of the items belonging to sellerID.
func (c *Cart) SellerItems(sellerID string) []Item {
	var out []Item
	for _, it := range c.Items {
		if it.SellerID == sellerID {
			out = append(out, it)
		}
	}
	return out
}

// Subtotal is the sum of price × quantity over all items.
func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.Items)
}

// Subtotal sums price × quantity over items.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Count is the total number of units in the cart.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Sellers groups the cart by seller in order of first appearance.
func (c *Cart) Sellers() []SellerGroup {
	var groups []SellerGroup
	pos := map[string]int{}
	for _, it := range c.Items {
		i, ok := pos[it.SellerID]
		if !ok {
			i = len(groups)
			pos[it.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: it.SellerID, SellerName: it.SellerName})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	for i := range groups {
		groups[i].Subtotal = Subtotal(groups[i].Items)
	}
	return groups
}
