package cart

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
)

// ProductSource provides the snapshot stored when a product is added.
type ProductSource interface {
	CartSnapshot(ctx context.Context, productID string) (Item, error)
}

type Handler struct {
	store    *Store
	products ProductSource
}

func NewHandler(store *Store, products ProductSource) *Handler {
	return &Handler{store: store, products: products}
}

type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=0,max=999"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=999"`
}

type cartResponse struct {
	Items    []Item          `json:"items"`
	Sellers  []SellerGroup   `json:"sellers"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Count    int             `json:"count"`
}

func respond(c echo.Context, status int, crt *Cart) error {
	items := crt.Items
	if items == nil {
		items = []Item{}
	}
	sellers := crt.Sellers()
	if sellers == nil {
		sellers = []SellerGroup{}
	}
	return c.JSON(status, cartResponse{
		Items:    items,
		Sellers:  sellers,
		Subtotal: crt.Subtotal(),
		Count:    crt.Count(),
	})
}

func userID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

// GetCart returns the caller's cart grouped by seller.
func (h *Handler) GetCart(c echo.Context) error {
	crt, err := h.store.Load(c.Request().Context(), userID(c))
	if err != nil {
		return apperr.Respond(c, err, "failed to load cart")
	}
	return respond(c, http.StatusOK, crt)
}

// AddItem snapshots the product and adds it to the cart.
func (h *Handler) AddItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	item, err := h.products.CartSnapshot(ctx, req.ProductID)
	if err != nil {
		return apperr.Respond(c, err, "failed to add item")
	}
	if item.Stock <= 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "product is out of stock"})
	}
	item.Quantity = req.Quantity

	crt, err := h.store.Update(ctx, userID(c), func(crt *Cart) error {
		crt.AddItem(item)
		return nil
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to add item")
	}
	return respond(c, http.StatusOK, crt)
}

// UpdateQuantity sets a line's quantity, clamped to the stock snapshot.
func (h *Handler) UpdateQuantity(c echo.Context) error {
	productID := c.Param("product_id")
	if _, err := uuid.Parse(productID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	crt, err := h.store.Update(c.Request().Context(), userID(c), func(crt *Cart) error {
		if !crt.UpdateQuantity(productID, req.Quantity) {
			return apperr.NotFound("item not in cart")
		}
		return nil
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to update cart")
	}
	return respond(c, http.StatusOK, crt)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	productID := c.Param("product_id")
	crt, err := h.store.Update(c.Request().Context(), userID(c), func(crt *Cart) error {
		crt.RemoveItem(productID)
		return nil
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to update cart")
	}
	return respond(c, http.StatusOK, crt)
}

func (h *Handler) ClearSeller(c echo.Context) error {
	sellerID := c.Param("seller_id")
	crt, err := h.store.Update(c.Request().Context(), userID(c), func(crt *Cart) error {
		crt.ClearSellerItems(sellerID)
		return nil
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to update cart")
	}
	return respond(c, http.StatusOK, crt)
}

func (h *Handler) Clear(c echo.Context) error {
	crt, err := h.store.Update(c.Request().Context(), userID(c), func(crt *Cart) error {
		crt.Clear()
		return nil
	})
	if err != nil {
		return apperr.Respond(c, err, "failed to clear cart")
	}
	return respond(c, http.StatusOK, crt)
}
