package orders

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

// Handler serves checkout, order tracking and lifecycle endpoints.
type Handler struct {
	pool      *pgxpool.Pool
	checkout  *Checkout
	lifecycle *Lifecycle
}

func NewHandler(pool *pgxpool.Pool, checkout *Checkout, lifecycle *Lifecycle) *Handler {
	return &Handler{pool: pool, checkout: checkout, lifecycle: lifecycle}
}

func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

func idParam(c echo.Context, name string) (string, bool) {
	id := c.Param(name)
	_, err := uuid.Parse(id)
	return id, err == nil
}

// PlaceOrder handles POST /checkout/:seller_id
func (h *Handler) PlaceOrder(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sellerID, ok := idParam(c, "seller_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seller id"})
	}

	var in PlaceOrderInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&in); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	order, err := h.checkout.PlaceOrder(c.Request().Context(), uid, sellerID, in)
	if err != nil {
		return apperr.Respond(c, err, "failed to place order")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order":   order,
		"message": "Order placed successfully",
	})
}

// QuoteOrder handles GET /checkout/:seller_id/quote?delivery_type=
func (h *Handler) QuoteOrder(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sellerID, ok := idParam(c, "seller_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seller id"})
	}
	d := marketplace.DeliveryType(c.QueryParam("delivery_type"))
	if d == "" {
		d = marketplace.DeliverySelf
	}
	if !d.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported delivery type"})
	}
	totals, err := h.checkout.Quote(c.Request().Context(), uid, sellerID, d)
	if err != nil {
		return apperr.Respond(c, err, "failed to load cart")
	}
	return c.JSON(http.StatusOK, totals)
}

type transitionRequest struct {
	Note string `json:"note" validate:"max=300"`
}

func bindNote(c echo.Context) (string, error) {
	var req transitionRequest
	if c.Request().ContentLength == 0 {
		return "", nil
	}
	if err := c.Bind(&req); err != nil {
		return "", apperr.Validation("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return "", err
	}
	return req.Note, nil
}

// AdvanceOrder handles POST /seller/orders/:id/advance
func (h *Handler) AdvanceOrder(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	note, err := bindNote(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	order, err := h.lifecycle.Advance(c.Request().Context(), uid, orderID, note)
	if err != nil {
		return apperr.Respond(c, err, "failed to update order status")
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order})
}

// CancelOrder handles POST /orders/:id/cancel
func (h *Handler) CancelOrder(c echo.Context) error {
	uid := userID(c)
	if uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, ok := idParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	note, err := bindNote(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	order, err := h.lifecycle.Cancel(c.Request().Context(), uid, orderID, note)
	if err != nil {
		return apperr.Respond(c, err, "failed to cancel order")
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order})
}
