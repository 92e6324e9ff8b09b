package admin

import (
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

// SellerCommission is what the platform earns from one seller's delivered orders.
type SellerCommission struct {
	SellerID         string          `json:"seller_id"`
	ShopName         string          `json:"shop_name"`
	DeliveredOrders  int             `json:"delivered_orders"`
	DeliveredRevenue decimal.Decimal `json:"delivered_revenue"`
	Rate             decimal.Decimal `json:"rate"`
	Commission       decimal.Decimal `json:"commission"`
}

// Commission is revenue × rate rounded to paise.
func Commission(revenue, rate decimal.Decimal) decimal.Decimal {
	return revenue.Mul(rate).Round(2)
}

// GET /admin/commissions
func (h *Handler) Commissions(c echo.Context) error {
	rows, err := h.pool.Query(c.Request().Context(), `
		SELECT s.id, s.shop_name, COUNT(o.id), COALESCE(SUM(o.total), 0), cm.rate
		FROM sellers s
		LEFT JOIN orders o ON o.seller_id = s.id AND o.status = 'delivered'
		LEFT JOIN commissions cm ON cm.seller_id = s.id
		WHERE s.is_approved
		GROUP BY s.id, s.shop_name, cm.rate
		ORDER BY COALESCE(SUM(o.total), 0) DESC, s.shop_name`)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch commissions"})
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SellerCommission, error) {
		var sc SellerCommission
		var rate decimal.NullDecimal
		if err := row.Scan(&sc.SellerID, &sc.ShopName, &sc.DeliveredOrders, &sc.DeliveredRevenue, &rate); err != nil {
			return sc, err
		}
		sc.Rate = h.defaultRate
		if rate.Valid {
			sc.Rate = rate.Decimal
		}
		sc.Commission = Commission(sc.DeliveredRevenue, sc.Rate)
		return sc, nil
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read commission record"})
	}

	total := decimal.Zero
	for _, sc := range list {
		total = total.Add(sc.Commission)
	}
	if list == nil {
		list = []SellerCommission{}
	}
	return c.JSON(http.StatusOK, echo.Map{"commissions": list, "total": total, "default_rate": h.defaultRate})
}

type commissionRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

// PUT /admin/sellers/:id/commission sets a seller specific rate in [0, 1].
func (h *Handler) SetCommission(c echo.Context) error {
	sellerID, ok := validID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seller id"})
	}
	var req commissionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Rate.IsNegative() || req.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rate must be between 0 and 1"})
	}
	_, err := h.pool.Exec(c.Request().Context(), `
		INSERT INTO commissions (seller_id, rate) VALUES ($1, $2)
		ON CONFLICT (seller_id) DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()`,
		sellerID, req.Rate)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "failed to set commission")
	}
	return c.JSON(http.StatusOK, echo.Map{"seller_id": sellerID, "rate": req.Rate})
}
