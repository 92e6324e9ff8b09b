package marketplace

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/geo"
	"github.com/sudo-init-do/nearbuy/internal/storage"
)

const sellerColumns = `s.id, s.user_id, s.shop_name, s.description, s.category::text, s.address, s.phone,
	s.latitude, s.longitude, s.opening_time, s.closing_time, s.delivery_options::text[], s.image_path,
	s.is_approved, s.is_active, s.is_open, s.rating, s.review_count, s.created_at, s.updated_at`

func scanSeller(row pgx.Row) (*Seller, error) {
	var s Seller
	var options []string
	err := row.Scan(
		&s.ID, &s.UserID, &s.ShopName, &s.Description, &s.Category, &s.Address, &s.Phone,
		&s.Latitude, &s.Longitude, &s.OpeningTime, &s.ClosingTime, &options, &s.ImagePath,
		&s.IsApproved, &s.IsActive, &s.IsOpen, &s.Rating, &s.ReviewCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.DeliveryOptions = make([]DeliveryType, len(options))
	for i, o := range options {
		s.DeliveryOptions[i] = DeliveryType(o)
	}
	return &s, nil
}

// GetSeller loads a shop by id.
func GetSeller(ctx context.Context, q db.Querier, sellerID string) (*Seller, error) {
	s, err := scanSeller(q.QueryRow(ctx, `SELECT `+sellerColumns+` FROM sellers s WHERE s.id = $1`, sellerID))
	return s, apperr.FromPg(err, "shop not found")
}

func (h *Handler) withImage(s *Seller) *Seller {
	if s != nil && s.ImagePath != nil && h.objects != nil {
		s.ImageURL = h.objects.PublicURL(storage.ShopImages, *s.ImagePath)
	}
	return s
}

// SellerRequest registers a shop or replaces its editable fields.
type SellerRequest struct {
	ShopName        string         `json:"shop_name" validate:"required,max=120"`
	Description     string         `json:"description" validate:"max=2000"`
	Category        string         `json:"category" validate:"required,oneof=grocery medical electronics clothing food services other"`
	Address         string         `json:"address" validate:"required,max=300"`
	Phone           string         `json:"phone" validate:"required,max=20"`
	Latitude        *float64       `json:"latitude" validate:"omitempty,latitude"`
	Longitude       *float64       `json:"longitude" validate:"omitempty,longitude"`
	OpeningTime     *string        `json:"opening_time"`
	ClosingTime     *string        `json:"closing_time"`
	DeliveryOptions []DeliveryType `json:"delivery_options" validate:"required,min=1,dive,oneof=self_delivery third_party customer_pickup"`
}

// check covers the rules the struct tags cannot express.
func (r *SellerRequest) check() error {
	r.ShopName = strings.TrimSpace(r.ShopName)
	if r.ShopName == "" {
		return apperr.Validation("shop name is required")
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return apperr.Validation("latitude and longitude must be given together")
	}
	for _, t := range []*string{r.OpeningTime, r.ClosingTime} {
		if t == nil || *t == "" {
			continue
		}
		if _, err := time.Parse("15:04", *t); err != nil {
			return apperr.Validation("opening and closing times must be HH:MM")
		}
	}
	seen := map[DeliveryType]bool{}
	deduped := r.DeliveryOptions[:0]
	for _, d := range r.DeliveryOptions {
		if !seen[d] {
			seen[d] = true
			deduped = append(deduped, d)
		}
	}
	r.DeliveryOptions = deduped
	return nil
}

func (r *SellerRequest) options() []string {
	out := make([]string, len(r.DeliveryOptions))
	for i, d := range r.DeliveryOptions {
		out[i] = string(d)
	}
	return out
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (h *Handler) bindSeller(c echo.Context) (*SellerRequest, error) {
	var req SellerRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperr.Validation("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	if err := req.check(); err != nil {
		return nil, err
	}
	return &req, nil
}

// RegisterSeller creates the caller's shop, pending admin approval.
func (h *Handler) RegisterSeller(c echo.Context) error {
	uid := userID(c)
	req, err := h.bindSeller(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	s, err := scanSeller(h.pool.QueryRow(ctx, `
		INSERT INTO sellers AS s (user_id, shop_name, description, category, address, phone,
			latitude, longitude, opening_time, closing_time, delivery_options)
		VALUES ($1, $2, $3, $4::shop_category, $5, $6, $7, $8, $9, $10, $11::text[]::delivery_type[])
		RETURNING `+sellerColumns,
		uid, req.ShopName, req.Description, req.Category, req.Address, req.Phone,
		req.Latitude, req.Longitude, emptyToNil(req.OpeningTime), emptyToNil(req.ClosingTime), req.options(),
	))
	if err != nil {
		if apperr.IsUniqueViolation(err, "") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "you have already registered a shop"})
		}
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to register shop")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"seller":  s,
		"message": "shop registered, pending admin approval",
	})
}

// GetMySeller returns the caller's shop regardless of approval state.
func (h *Handler) GetMySeller(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := scanSeller(h.pool.QueryRow(ctx, `SELECT `+sellerColumns+` FROM sellers s WHERE s.user_id = $1`, userID(c)))
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "you have not registered a shop"), "failed to fetch shop")
	}
	return c.JSON(http.StatusOK, h.withImage(s))
}

// UpdateMySeller replaces the caller's editable shop fields.
func (h *Handler) UpdateMySeller(c echo.Context) error {
	req, err := h.bindSeller(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	s, err := scanSeller(h.pool.QueryRow(ctx, `
		UPDATE sellers s SET
			shop_name = $2, description = $3, category = $4::shop_category, address = $5, phone = $6,
			latitude = $7, longitude = $8, opening_time = $9, closing_time = $10,
			delivery_options = $11::text[]::delivery_type[], updated_at = NOW()
		WHERE s.user_id = $1
		RETURNING `+sellerColumns,
		userID(c), req.ShopName, req.Description, req.Category, req.Address, req.Phone,
		req.Latitude, req.Longitude, emptyToNil(req.OpeningTime), emptyToNil(req.ClosingTime), req.options(),
	))
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "you have not registered a shop"), "failed to update shop")
	}
	return c.JSON(http.StatusOK, h.withImage(s))
}

// ToggleOpen flips whether the caller's shop accepts orders right now.
func (h *Handler) ToggleOpen(c echo.Context) error {
	var isOpen bool
	err := h.pool.QueryRow(c.Request().Context(), `
		UPDATE sellers SET is_open = NOT is_open, updated_at = NOW()
		WHERE user_id = $1
		RETURNING is_open
	`, userID(c)).Scan(&isOpen)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "you have not registered a shop"), "failed to update shop")
	}
	return c.JSON(http.StatusOK, echo.Map{"is_open": isOpen})
}

// UploadShopImage stores the shop's cover image.
func (h *Handler) UploadShopImage(c echo.Context) error {
	ctx := c.Request().Context()
	sellerID, err := SellerIDForUser(ctx, h.pool, userID(c))
	if err != nil {
		return apperr.Respond(c, err, "failed to upload image")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file uploaded"})
	}
	obj, err := h.objects.PutForm(ctx, storage.ShopImages, sellerID, fh)
	if err != nil {
		return apperr.Respond(c, err, "failed to upload image")
	}

	var old *string
	err = h.pool.QueryRow(ctx, `
		UPDATE sellers s SET image_path = $2, updated_at = NOW()
		FROM (SELECT id, image_path FROM sellers WHERE id = $1) prev
		WHERE s.id = prev.id
		RETURNING prev.image_path
	`, sellerID, obj.Key).Scan(&old)
	if err != nil {
		h.objects.Delete(storage.ShopImages, obj.Key)
		return apperr.Respond(c, err, "failed to upload image")
	}
	if old != nil && *old != obj.Key {
		if err := h.objects.Delete(storage.ShopImages, *old); err != nil {
			c.Logger().Warnf("remove old shop image %s: %v", *old, err)
		}
	}
	return c.JSON(http.StatusOK, obj)
}

// ListShops returns approved, active shops sorted by distance from the
// caller. lat/lng query params override the caller's stored location and
// radius (km) drops shops farther away or with unknown coordinates.
func (h *Handler) ListShops(c echo.Context) error {
	ctx := c.Request().Context()

	where, args, err := shopFilter(c.QueryParam("category"), c.QueryParam("q"))
	if err != nil {
		return apperr.Respond(c, err, "invalid filter")
	}

	rows, err := h.pool.Query(ctx, `SELECT `+sellerColumns+` FROM sellers s WHERE `+where, args...)
	if err != nil {
		return apperr.Respond(c, err, "could not fetch shops")
	}
	sellers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Seller, error) { return scanSeller(row) })
	if err != nil {
		return apperr.Respond(c, err, "failed to parse shop record")
	}

	origin, err := h.origin(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid location")
	}
	var radius float64
	if r := c.QueryParam("radius"); r != "" {
		if radius, err = strconv.ParseFloat(r, 64); err != nil || radius <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "radius must be a positive number of kilometers"})
		}
	}

	listings := make([]ShopListing, 0, len(sellers))
	for _, s := range sellers {
		l := ShopListing{Seller: *h.withImage(s)}
		if km, ok := geo.DistanceFrom(origin, s.Latitude, s.Longitude); ok {
			l.DistanceKm = &km
		}
		listings = append(listings, l)
	}
	listings = FilterWithin(listings, radius)
	SortByDistance(listings)

	return c.JSON(http.StatusOK, echo.Map{"shops": listings, "origin": origin})
}

// shopFilter builds the listing condition: listable shops, optionally of one
// category and with a name containing q.
func shopFilter(category, q string) (string, []any, error) {
	where := `s.is_approved AND s.is_active`
	var args []any
	if category != "" {
		if !ValidCategory(category) {
			return "", nil, apperr.Validation("unknown category")
		}
		args = append(args, category)
		where += ` AND s.category = $1::shop_category`
	}
	if q = strings.TrimSpace(q); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where += ` AND s.shop_name ILIKE $` + strconv.Itoa(len(args))
	}
	return where, args, nil
}

// origin is the point distances are measured from.
func (h *Handler) origin(c echo.Context) (*geo.Point, error) {
	lat, lng := c.QueryParam("lat"), c.QueryParam("lng")
	if lat != "" || lng != "" {
		p := geo.Point{}
		var err1, err2 error
		p.Lat, err1 = strconv.ParseFloat(lat, 64)
		p.Lng, err2 = strconv.ParseFloat(lng, 64)
		if err1 != nil || err2 != nil || !p.Valid() {
			return nil, apperr.Validation("lat and lng must be valid coordinates")
		}
		return &p, nil
	}
	if h.locations == nil {
		return nil, nil
	}
	loc, err := h.locations.Current(c.Request().Context(), userID(c))
	if err != nil {
		c.Logger().Warnf("location lookup: %v", err)
	}
	p := loc.Point()
	return &p, nil
}

// GetShop returns one listable shop.
func (h *Handler) GetShop(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shop id"})
	}
	s, err := GetSeller(c.Request().Context(), h.pool, id)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch shop")
	}
	if !s.Listable() && s.UserID != userID(c) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "shop not found"})
	}

	l := ShopListing{Seller: *h.withImage(s)}
	if origin, err := h.origin(c); err == nil {
		if km, ok := geo.DistanceFrom(origin, s.Latitude, s.Longitude); ok {
			l.DistanceKm = &km
		}
	}
	return c.JSON(http.StatusOK, l)
}
