// Package seed provisions demo sellers from an embedded fixture.
package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sudo-init-do/nearbuy/internal/geo"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

//go:embed demo_sellers.yaml
var demoSellers []byte

// Fixture is a set of demo shops.
type Fixture struct {
	Sellers []DemoSeller `yaml:"sellers"`
}

type DemoSeller struct {
	Email           string        `yaml:"email"`
	Password        string        `yaml:"password"`
	FullName        string        `yaml:"full_name"`
	ShopName        string        `yaml:"shop_name"`
	Description     string        `yaml:"description"`
	Category        string        `yaml:"category"`
	Address         string        `yaml:"address"`
	Phone           string        `yaml:"phone"`
	Latitude        float64       `yaml:"latitude"`
	Longitude       float64       `yaml:"longitude"`
	OpeningTime     string        `yaml:"opening_time"`
	ClosingTime     string        `yaml:"closing_time"`
	DeliveryOptions []string      `yaml:"delivery_options"`
	Products        []DemoProduct `yaml:"products"`
}

type DemoProduct struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description"`
	Price         string `yaml:"price"`
	OriginalPrice string `yaml:"original_price"`
	Stock         int    `yaml:"stock"`
	Unit          string `yaml:"unit"`
	Category      string `yaml:"category"`
}

// Default returns the embedded demo fixture.
func Default() (*Fixture, error) {
	return Parse(demoSellers)
}

// Parse decodes and validates a fixture.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every seller and product before anything is written.
func (f *Fixture) Validate() error {
	if len(f.Sellers) == 0 {
		return fmt.Errorf("fixture has no sellers")
	}
	seen := map[string]bool{}
	for i := range f.Sellers {
		s := &f.Sellers[i]
		s.Email = strings.ToLower(strings.TrimSpace(s.Email))
		if s.Email == "" || !strings.Contains(s.Email, "@") {
			return fmt.Errorf("seller %d: invalid email %q", i, s.Email)
		}
		if seen[s.Email] {
			return fmt.Errorf("seller %d: duplicate email %s", i, s.Email)
		}
		seen[s.Email] = true
		if s.ShopName == "" {
			return fmt.Errorf("%s: shop_name is required", s.Email)
		}
		if !marketplace.ValidCategory(s.Category) {
			return fmt.Errorf("%s: unknown category %q", s.Email, s.Category)
		}
		if !(geo.Point{Lat: s.Latitude, Lng: s.Longitude}).Valid() {
			return fmt.Errorf("%s: coordinates out of range", s.Email)
		}
		if len(s.DeliveryOptions) == 0 {
			return fmt.Errorf("%s: at least one delivery option is required", s.Email)
		}
		for _, d := range s.DeliveryOptions {
			if !marketplace.DeliveryType(d).Valid() {
				return fmt.Errorf("%s: unknown delivery option %q", s.Email, d)
			}
		}
		for j, p := range s.Products {
			if _, _, err := p.prices(); err != nil {
				return fmt.Errorf("%s product %d (%s): %w", s.Email, j, p.Name, err)
			}
			if p.Name == "" || p.Stock < 0 {
				return fmt.Errorf("%s product %d: name and non-negative stock are required", s.Email, j)
			}
		}
	}
	return nil
}

func (p DemoProduct) prices() (decimal.Decimal, decimal.NullDecimal, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil || !price.IsPositive() {
		return decimal.Decimal{}, decimal.NullDecimal{}, fmt.Errorf("price must be a positive number")
	}
	var original decimal.NullDecimal
	if p.OriginalPrice != "" {
		o, err := decimal.NewFromString(p.OriginalPrice)
		if err != nil || o.LessThan(price) {
			return decimal.Decimal{}, decimal.NullDecimal{}, fmt.Errorf("original_price must be at least price")
		}
		original = decimal.NewNullDecimal(o)
	}
	return price, original, nil
}
