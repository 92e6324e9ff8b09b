package admin

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/alerts"
	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/auth"
	"github.com/sudo-init-do/nearbuy/internal/db"
)

// PendingSeller is a shop application awaiting review.
type PendingSeller struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	OwnerName  string    `json:"owner_name"`
	OwnerEmail string    `json:"owner_email"`
	ShopName   string    `json:"shop_name"`
	Category   string    `json:"category"`
	Address    string    `json:"address"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
}

// GET /admin/sellers/pending
func (h *Handler) PendingSellers(c echo.Context) error {
	rows, err := h.pool.Query(c.Request().Context(), `
		SELECT s.id, s.user_id, COALESCE(p.full_name, ''), u.email, s.shop_name, s.category::text,
			s.address, s.phone, s.created_at
		FROM sellers s
		JOIN users u ON u.id = s.user_id
		LEFT JOIN profiles p ON p.id = s.user_id
		WHERE NOT s.is_approved
		ORDER BY s.created_at`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch sellers"})
	}
	sellers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PendingSeller, error) {
		var s PendingSeller
		err := row.Scan(&s.ID, &s.UserID, &s.OwnerName, &s.OwnerEmail, &s.ShopName, &s.Category, &s.Address, &s.Phone, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read seller record"})
	}
	if sellers == nil {
		sellers = []PendingSeller{}
	}
	return c.JSON(http.StatusOK, echo.Map{"sellers": sellers})
}

// POST /admin/sellers/:id/approve
func (h *Handler) ApproveSeller(c echo.Context) error {
	sellerID, ok := validID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seller id"})
	}
	ctx := c.Request().Context()

	var payload alerts.SellerApprovedPayload
	err := db.InTx(ctx, h.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE sellers s SET is_approved = TRUE, updated_at = NOW()
			FROM users u
			WHERE s.id = $1 AND u.id = s.user_id
			RETURNING s.id, s.user_id, s.shop_name, u.email`, sellerID,
		).Scan(&payload.SellerID, &payload.UserID, &payload.ShopName, &payload.Email)
		if err != nil {
			return apperr.FromPg(err, "seller not found")
		}
		return auth.GrantRole(ctx, tx, payload.UserID, auth.RoleSeller)
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to approve seller")
	}

	h.notifyApproved(ctx, payload)
	return c.JSON(http.StatusOK, echo.Map{"message": "seller approved", "seller_id": sellerID})
}

func (h *Handler) notifyApproved(ctx context.Context, p alerts.SellerApprovedPayload) {
	if h.alerts == nil {
		return
	}
	if err := h.alerts.SellerApproved(ctx, p); err != nil {
		log.Printf("[notify][ERROR] enqueue seller approval %s: %v", p.SellerID, err)
	}
}

// DELETE /admin/sellers/:id rejects a pending application.
func (h *Handler) RejectSeller(c echo.Context) error {
	sellerID, ok := validID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seller id"})
	}
	ctx := c.Request().Context()

	tag, err := h.pool.Exec(ctx, `DELETE FROM sellers WHERE id = $1 AND NOT is_approved`, sellerID)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to reject seller")
	}
	if tag.RowsAffected() == 0 {
		var approved bool
		err := h.pool.QueryRow(ctx, `SELECT is_approved FROM sellers WHERE id = $1`, sellerID).Scan(&approved)
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seller not found"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "approved sellers cannot be rejected, deactivate them instead"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "seller application rejected", "seller_id": sellerID})
}

// POST /admin/sellers/:id/active toggles whether an approved shop is listed.
func (h *Handler) ToggleSellerActive(c echo.Context) error {
	sellerID, ok := validID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seller id"})
	}
	var active bool
	err := h.pool.QueryRow(c.Request().Context(), `
		UPDATE sellers SET is_active = NOT is_active, updated_at = NOW()
		WHERE id = $1 RETURNING is_active`, sellerID,
	).Scan(&active)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "seller not found"), "failed to update seller")
	}
	return c.JSON(http.StatusOK, echo.Map{"seller_id": sellerID, "is_active": active})
}
