package marketplace

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/kv"
	"github.com/sudo-init-do/nearbuy/internal/middleware"
)

func km(v float64) *float64 { return &v }

func TestSortByDistance(t *testing.T) {
	shops := []ShopListing{
		{Seller: Seller{ShopName: "Zed Stores"}},
		{Seller: Seller{ShopName: "Far Mart"}, DistanceKm: km(12)},
		{Seller: Seller{ShopName: "apna bazaar"}},
		{Seller: Seller{ShopName: "Near Kirana"}, DistanceKm: km(0.4)},
		{Seller: Seller{ShopName: "Mid Chemist"}, DistanceKm: km(3)},
	}
	SortByDistance(shops)

	var names []string
	for _, s := range shops {
		names = append(names, s.ShopName)
	}
	assert.Equal(t, []string{"Near Kirana", "Mid Chemist", "Far Mart", "apna bazaar", "Zed Stores"}, names)

	within := FilterWithin(shops, 5)
	require.Len(t, within, 2)
	assert.Equal(t, "Mid Chemist", within[1].ShopName)
}

func TestFilterWithinZeroKeepsAll(t *testing.T) {
	shops := []ShopListing{{}, {DistanceKm: km(100)}}
	assert.Len(t, FilterWithin(shops, 0), 2)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateProduct(t *testing.T) {
	orig := func(s string) *decimal.Decimal { d := dec(s); return &d }

	tests := []struct {
		name string
		p    Product
		msg  string
	}{
		{"ok", Product{Name: "Rice", Price: dec("60"), Stock: 4}, ""},
		{"ok with discount", Product{Name: "Rice", Price: dec("60"), OriginalPrice: orig("75"), Stock: 0}, ""},
		{"missing name", Product{Price: dec("60")}, "name is required"},
		{"zero price", Product{Name: "Rice", Price: dec("0")}, "price must be greater than 0"},
		{"negative price", Product{Name: "Rice", Price: dec("-1")}, "price must be greater than 0"},
		{"original below price", Product{Name: "Rice", Price: dec("60"), OriginalPrice: orig("50")}, "original price must not be below the selling price"},
		{"negative stock", Product{Name: "Rice", Price: dec("60"), Stock: -1}, "stock must not be negative"},
		{"fractional paise", Product{Name: "Rice", Price: dec("60.005")}, "prices can have at most two decimal places"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(&tt.p)
			if tt.msg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestProductRequestApply(t *testing.T) {
	p := Product{Name: "Rice", Price: dec("60"), OriginalPrice: func() *decimal.Decimal { d := dec("70"); return &d }(), Stock: 3, Unit: "kg"}
	name := "  Basmati Rice "
	stock := 10
	req := ProductRequest{Name: &name, Stock: &stock, ClearOriginal: true}
	req.apply(&p)

	assert.Equal(t, "Basmati Rice", p.Name)
	assert.Equal(t, 10, p.Stock)
	assert.Nil(t, p.OriginalPrice)
	assert.Equal(t, "kg", p.Unit)
	assert.True(t, p.Price.Equal(dec("60")))
}

func TestDiscountPercent(t *testing.T) {
	o := dec("80")
	p := Product{Price: dec("60"), OriginalPrice: &o}
	assert.Equal(t, 25, p.DiscountPercent())

	p.OriginalPrice = nil
	assert.Zero(t, p.DiscountPercent())
}

func TestPushRecent(t *testing.T) {
	var list []string
	list = PushRecent(list, "milk")
	list = PushRecent(list, "  bread  ")
	list = PushRecent(list, "MILK")
	list = PushRecent(list, "   ")
	assert.Equal(t, []string{"MILK", "bread"}, list)

	for i := 0; i < 15; i++ {
		list = PushRecent(list, string(rune('a'+i)))
	}
	assert.Len(t, list, MaxRecentSearches)
	assert.Equal(t, "o", list[0])
}

func TestRecentSearchesStore(t *testing.T) {
	ctx := context.Background()
	r := NewRecentSearches(kv.NewMemory())

	terms, err := r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, terms)

	require.NoError(t, r.Add(ctx, "u1", "atta"))
	require.NoError(t, r.Add(ctx, "u1", "dal"))
	terms, err = r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"dal", "atta"}, terms)

	require.NoError(t, r.Clear(ctx, "u1"))
	terms, err = r.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestSellerRequestCheck(t *testing.T) {
	lat := 19.1
	req := SellerRequest{
		ShopName:        " Kirana ",
		Latitude:        &lat,
		DeliveryOptions: []DeliveryType{DeliveryPickup, DeliveryPickup},
	}
	assert.Error(t, req.check(), "latitude without longitude")

	lng := 72.9
	req.Longitude = &lng
	bad := "9am"
	req.OpeningTime = &bad
	assert.Error(t, req.check())

	good := "09:00"
	req.OpeningTime = &good
	require.NoError(t, req.check())
	assert.Equal(t, []DeliveryType{DeliveryPickup}, req.DeliveryOptions)
	assert.Equal(t, "Kirana", req.ShopName)
}

func TestSellerRequestRejectsBlankShopName(t *testing.T) {
	for _, name := range []string{"", "   ", "\t\n"} {
		req := SellerRequest{ShopName: name, DeliveryOptions: []DeliveryType{DeliveryPickup}}
		err := req.check()
		require.Error(t, err, "%q", name)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		assert.Equal(t, "shop name is required", err.Error())
	}
}

func TestRegisterSellerBlankNameNeverReachesStore(t *testing.T) {
	e := echo.New()
	e.Validator = middleware.NewValidator()
	h := NewHandler(nil, nil, nil, nil)
	e.POST("/sellers", h.RegisterSeller)

	rec, body := send(e, http.MethodPost, "/sellers",
		`{"shop_name":"   ","category":"grocery","address":"1 Main St","phone":"9999","delivery_options":["customer_pickup"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "shop name is required", body["error"])
}

func TestShopFilter(t *testing.T) {
	tests := []struct {
		name     string
		category string
		q        string
		where    string
		args     []any
	}{
		{"no filters", "", "", `s.is_approved AND s.is_active`, nil},
		{"category", "food", "", `s.is_approved AND s.is_active AND s.category = $1::shop_category`, []any{"food"}},
		{"name", "", " kirana ", `s.is_approved AND s.is_active AND s.shop_name ILIKE $1`, []any{"%kirana%"}},
		{"wildcards are literal", "", "50%_off", `s.is_approved AND s.is_active AND s.shop_name ILIKE $1`, []any{`%50\%\_off%`}},
		{"both", "medical", "care", `s.is_approved AND s.is_active AND s.category = $1::shop_category AND s.shop_name ILIKE $2`,
			[]any{"medical", "%care%"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := shopFilter(tt.category, tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}

	_, _, err := shopFilter("jewellery", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSellerOffers(t *testing.T) {
	s := Seller{DeliveryOptions: []DeliveryType{DeliveryPickup}}
	assert.True(t, s.Offers(DeliveryPickup))
	assert.False(t, s.Offers(DeliverySelf))
	assert.False(t, s.Listable())
	s.IsApproved, s.IsActive = true, true
	assert.True(t, s.Listable())
}
