package admin

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// OrderRow is one line of the admin order list.
type OrderRow struct {
	ID           string          `json:"id"`
	OrderNumber  string          `json:"order_number"`
	CustomerName string          `json:"customer_name"`
	ShopName     string          `json:"shop_name"`
	DeliveryType string          `json:"delivery_type"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// GET /admin/orders?status=
func (h *Handler) ListOrders(c echo.Context) error {
	_, limit, offset := page(c)
	rows, err := h.pool.Query(c.Request().Context(), `
		SELECT o.id, o.order_number, COALESCE(p.full_name, ''), s.shop_name, o.delivery_type::text,
			o.total, o.status::text, o.created_at
		FROM orders o
		JOIN sellers s ON s.id = o.seller_id
		LEFT JOIN profiles p ON p.id = o.customer_id
		WHERE $1 = '' OR o.status::text = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`, c.QueryParam("status"), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch orders"})
	}
	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderRow, error) {
		var o OrderRow
		err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.ShopName, &o.DeliveryType, &o.Total, &o.Status, &o.CreatedAt)
		return o, err
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read order record"})
	}
	if list == nil {
		list = []OrderRow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": list})
}
