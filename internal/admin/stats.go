package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Stats is the dashboard summary.
type Stats struct {
	Users            int             `json:"users"`
	Sellers          int             `json:"sellers"`
	PendingSellers   int             `json:"pending_sellers"`
	Products         int             `json:"products"`
	Orders           int             `json:"orders"`
	OrdersByStatus   map[string]int  `json:"orders_by_status"`
	DeliveredRevenue decimal.Decimal `json:"delivered_revenue"`
}

// GET /admin/stats
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	s := Stats{OrdersByStatus: map[string]int{}}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int, sql string) {
		g.Go(func() error { return h.pool.QueryRow(gctx, sql).Scan(dst) })
	}
	count(&s.Users, `SELECT COUNT(*) FROM users`)
	count(&s.Sellers, `SELECT COUNT(*) FROM sellers WHERE is_approved`)
	count(&s.PendingSellers, `SELECT COUNT(*) FROM sellers WHERE NOT is_approved`)
	count(&s.Products, `SELECT COUNT(*) FROM products`)
	g.Go(func() error {
		return h.pool.QueryRow(gctx,
			`SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = 'delivered'`).Scan(&s.DeliveredRevenue)
	})
	byStatus := map[string]int{}
	g.Go(func() error { return ordersByStatus(gctx, h, byStatus) })

	if err := g.Wait(); err != nil {
		c.Logger().Errorf("admin stats: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not compute stats"})
	}
	for status, n := range byStatus {
		s.OrdersByStatus[status] = n
		s.Orders += n
	}
	return c.JSON(http.StatusOK, s)
}

func ordersByStatus(ctx context.Context, h *Handler, into map[string]int) error {
	rows, err := h.pool.Query(ctx, `SELECT status::text, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		into[status] = n
	}
	return rows.Err()
}

// page reads page/limit query params, defaulting to page 1 of 50.
func page(c echo.Context) (p, limit, offset int) {
	p, limit = 1, 50
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		p = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	return p, limit, (p - 1) * limit
}
