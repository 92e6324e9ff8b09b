package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

// Order is one checkout against one seller.
type Order struct {
	ID                string                   `json:"id"`
	OrderNumber       string                   `json:"order_number"`
	CustomerID        string                   `json:"customer_id"`
	CustomerName      string                   `json:"customer_name,omitempty"`
	SellerID          string                   `json:"seller_id"`
	ShopName          string                   `json:"shop_name"`
	SellerUserID      string                   `json:"-"`
	DeliveryType      marketplace.DeliveryType `json:"delivery_type"`
	DeliveryAddress   *string                  `json:"delivery_address"`
	DeliveryLatitude  *float64                 `json:"delivery_latitude"`
	DeliveryLongitude *float64                 `json:"delivery_longitude"`
	Subtotal          decimal.Decimal          `json:"subtotal"`
	DeliveryFee       decimal.Decimal          `json:"delivery_fee"`
	Total             decimal.Decimal          `json:"total"`
	Notes             string                   `json:"notes"`
	Status            Status                   `json:"status"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`

	Items   []Item         `json:"items,omitempty"`
	History []HistoryEntry `json:"history,omitempty"`
}

// Item is the snapshot of a product at order time.
type Item struct {
	ID           string          `json:"id"`
	ProductID    *string         `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// HistoryEntry records one status change.
type HistoryEntry struct {
	Status    Status    `json:"status"`
	Note      string    `json:"note"`
	ChangedBy *string   `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}
