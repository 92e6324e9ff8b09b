package orders

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

func respondList(c echo.Context, list []*Order) error {
	if list == nil {
		list = []*Order{}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": list})
}

// GetMyOrders handles GET /orders
func (h *Handler) GetMyOrders(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := listOrders(c.Request().Context(), h.pool, `o.customer_id = $1`, uid)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch orders")
	}
	return respondList(c, list)
}

// GetOrder handles GET /orders/:id for the customer who placed it.
func (h *Handler) GetOrder(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx := c.Request().Context()

	order, err := getOrder(ctx, h.pool, orderID, false)
	if err == nil && order.CustomerID != uid {
		err = apperr.NotFound("order not found")
	}
	if err == nil {
		order, err = withDetails(ctx, h.pool, order)
	}
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch order")
	}
	return c.JSON(http.StatusOK, order)
}

// GetSellerOrders handles GET /seller/orders?status=
func (h *Handler) GetSellerOrders(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	sellerID, err := marketplace.SellerIDForUser(ctx, h.pool, uid)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch shop")
	}

	var list []*Order
	if s := Status(c.QueryParam("status")); s != "" {
		if !s.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		list, err = listOrders(ctx, h.pool, `o.seller_id = $1 AND o.status = $2::order_status`, sellerID, string(s))
	} else {
		list, err = listOrders(ctx, h.pool, `o.seller_id = $1`, sellerID)
	}
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch orders")
	}
	return respondList(c, list)
}

// GetSellerOrder handles GET /seller/orders/:id
func (h *Handler) GetSellerOrder(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	ctx := c.Request().Context()

	order, err := getOrder(ctx, h.pool, orderID, false)
	if err == nil && order.SellerUserID != uid {
		err = apperr.NotFound("order not found")
	}
	if err == nil {
		order, err = withDetails(ctx, h.pool, order)
	}
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch order")
	}
	if next, ok := Next(order.Status); ok {
		return c.JSON(http.StatusOK, echo.Map{"order": order, "next_status": next})
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order, "next_status": nil})
}
