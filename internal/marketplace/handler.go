package marketplace

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/geo"
	"github.com/sudo-init-do/nearbuy/internal/storage"
)

// Locator returns a user's last known location.
type Locator interface {
	Current(ctx context.Context, userID string) (geo.Location, error)
}

// Handler serves shops, products, search and the wishlist.
type Handler struct {
	pool      *pgxpool.Pool
	objects   *storage.Local
	locations Locator
	recent    *RecentSearches
}

func NewHandler(pool *pgxpool.Pool, objects *storage.Local, locations Locator, recent *RecentSearches) *Handler {
	return &Handler{pool: pool, objects: objects, locations: locations, recent: recent}
}

func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// pagination reads page/limit query params, defaulting to page 1 of 20.
func pagination(c echo.Context, maxLimit int) (page, limit, offset int) {
	page, limit = 1, 20
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	return page, limit, (page - 1) * limit
}

// SellerIDForUser returns the shop id owned by userID.
func SellerIDForUser(ctx context.Context, q db.Querier, userID string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM sellers WHERE user_id = $1`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("you have not registered a shop")
	}
	return id, err
}
