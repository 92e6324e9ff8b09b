package marketplace

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryType is a value of the delivery_type enum.
type DeliveryType string

const (
	DeliverySelf       DeliveryType = "self_delivery"
	DeliveryThirdParty DeliveryType = "third_party"
	DeliveryPickup     DeliveryType = "customer_pickup"
)

var DeliveryTypes = []DeliveryType{DeliverySelf, DeliveryThirdParty, DeliveryPickup}

func (d DeliveryType) Valid() bool { return slices.Contains(DeliveryTypes, d) }

// Shop categories of the shop_category enum.
var Categories = []string{"grocery", "medical", "electronics", "clothing", "food", "services", "other"}

func ValidCategory(c string) bool { return slices.Contains(Categories, c) }

// Seller is a shop.
type Seller struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	ShopName        string         `json:"shop_name"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Address         string         `json:"address"`
	Phone           string         `json:"phone"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	OpeningTime     *string        `json:"opening_time"`
	ClosingTime     *string        `json:"closing_time"`
	DeliveryOptions []DeliveryType `json:"delivery_options"`
	ImagePath       *string        `json:"-"`
	ImageURL        string         `json:"image_url,omitempty"`
	IsApproved      bool           `json:"is_approved"`
	IsActive        bool           `json:"is_active"`
	IsOpen          bool           `json:"is_open"`
	Rating          float64        `json:"rating"`
	ReviewCount     int            `json:"review_count"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Offers reports whether the shop advertises delivery type d.
func (s *Seller) Offers(d DeliveryType) bool {
	return slices.Contains(s.DeliveryOptions, d)
}

// Listable reports whether customers can see and order from the shop.
func (s *Seller) Listable() bool {
	return s.IsApproved && s.IsActive
}

// ShopListing is a seller with its distance from the caller, when known.
type ShopListing struct {
	Seller
	DistanceKm *float64 `json:"distance_km"`
}

// Product belongs to exactly one seller.
type Product struct {
	ID            string           `json:"id"`
	SellerID      string           `json:"seller_id"`
	ShopName      string           `json:"shop_name,omitempty"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	Stock         int              `json:"stock"`
	Unit          string           `json:"unit"`
	Category      string           `json:"category"`
	ImagePath     *string          `json:"-"`
	ImageURL      string           `json:"image_url,omitempty"`
	IsAvailable   bool             `json:"is_available"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// DiscountPercent is the whole-percent saving against OriginalPrice, 0 if none.
func (p *Product) DiscountPercent() int {
	if p.OriginalPrice == nil || !p.OriginalPrice.GreaterThan(p.Price) {
		return 0
	}
	saving := p.OriginalPrice.Sub(p.Price).Div(*p.OriginalPrice).Mul(decimal.NewFromInt(100))
	return int(saving.Round(0).IntPart())
}

// WishlistEntry is a saved product.
type WishlistEntry struct {
	ID        string    `json:"id"`
	Product   Product   `json:"product"`
	CreatedAt time.Time `json:"created_at"`
}
