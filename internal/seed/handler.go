package seed

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	pool *pgxpool.Pool
}

func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// ProvisionDemoSellers handles POST /functions/provision-demo-sellers
func (h *Handler) ProvisionDemoSellers(c echo.Context) error {
	f, err := Default()
	if err != nil {
		c.Logger().Errorf("demo fixture: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "demo fixture is invalid"})
	}
	res, err := Provision(c.Request().Context(), h.pool, f)
	if err != nil {
		c.Logger().Errorf("provision demo sellers: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to provision demo sellers", "result": res})
	}
	return c.JSON(http.StatusOK, res)
}
