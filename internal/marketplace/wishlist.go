package marketplace

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

// AddToWishlist saves a product for the caller. Saving twice is a no-op.
func (h *Handler) AddToWishlist(c echo.Context) error {
	productID := c.Param("product_id")
	if _, err := uuid.Parse(productID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	tag, err := h.pool.Exec(c.Request().Context(), `
		INSERT INTO wishlist (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT ON CONSTRAINT wishlist_user_product_key DO NOTHING
	`, userID(c), productID)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to update wishlist")
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusOK, echo.Map{"message": "already in wishlist"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "added to wishlist"})
}

func (h *Handler) RemoveFromWishlist(c echo.Context) error {
	_, err := h.pool.Exec(c.Request().Context(),
		`DELETE FROM wishlist WHERE user_id = $1 AND product_id = $2`, userID(c), c.Param("product_id"))
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to update wishlist")
	}
	return c.NoContent(http.StatusNoContent)
}

// GetWishlist lists saved products, newest first.
func (h *Handler) GetWishlist(c echo.Context) error {
	rows, err := h.pool.Query(c.Request().Context(), `
		SELECT w.id, w.created_at, `+productColumns+`
		FROM wishlist w
		JOIN products p ON p.id = w.product_id
		JOIN sellers s ON s.id = p.seller_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID(c))
	if err != nil {
		return apperr.Respond(c, err, "failed to load wishlist")
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (WishlistEntry, error) {
		var e WishlistEntry
		p, err := scanProduct(prefixedRow{row: row, dest: []any{&e.ID, &e.CreatedAt}})
		if err != nil {
			return e, err
		}
		h.withProductImages(p)
		e.Product = *p
		return e, nil
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to load wishlist")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

// prefixedRow scans leading columns into dest before handing the rest to
// the wrapped scanner.
type prefixedRow struct {
	row  pgx.Row
	dest []any
}

func (r prefixedRow) Scan(dest ...any) error {
	return r.row.Scan(append(append([]any{}, r.dest...), dest...)...)
}
