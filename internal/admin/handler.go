// Package admin serves seller approval, user moderation and platform
// analytics to administrators.
package admin

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/alerts"
)

// Handler holds admin dependencies.
type Handler struct {
	pool        *pgxpool.Pool
	alerts      alerts.Enqueuer
	defaultRate decimal.Decimal
}

// NewHandler builds the admin handler. defaultRate applies to sellers
// without a commissions row.
func NewHandler(pool *pgxpool.Pool, enq alerts.Enqueuer, defaultRate decimal.Decimal) *Handler {
	return &Handler{pool: pool, alerts: enq, defaultRate: defaultRate}
}

func validID(c echo.Context) (string, bool) {
	id := c.Param("id")
	_, err := uuid.Parse(id)
	return id, err == nil
}
