package marketplace

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/storage"
)

const productColumns = `p.id, p.seller_id, s.shop_name, p.name, p.description, p.price, p.original_price,
	p.stock, p.unit, p.category, p.image_path, p.is_available, p.created_at, p.updated_at`

const productFrom = ` FROM products p JOIN sellers s ON s.id = p.seller_id`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var original decimal.NullDecimal
	err := row.Scan(
		&p.ID, &p.SellerID, &p.ShopName, &p.Name, &p.Description, &p.Price, &original,
		&p.Stock, &p.Unit, &p.Category, &p.ImagePath, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if original.Valid {
		p.OriginalPrice = &original.Decimal
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]*Product, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Product, error) { return scanProduct(row) })
}

func (h *Handler) withProductImages(products ...*Product) {
	if h.objects == nil {
		return
	}
	for _, p := range products {
		if p.ImagePath != nil {
			p.ImageURL = h.objects.PublicURL(storage.ProductImages, *p.ImagePath)
		}
	}
}

// ProductRequest creates a product. On PATCH, absent fields keep their
// current value.
type ProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=150"`
	Description   *string          `json:"description" validate:"omitempty,max=2000"`
	Price         *decimal.Decimal `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price"`
	ClearOriginal bool             `json:"clear_original_price"`
	Stock         *int             `json:"stock"`
	Unit          *string          `json:"unit" validate:"omitempty,max=30"`
	Category      *string          `json:"category" validate:"omitempty,max=60"`
	IsAvailable   *bool            `json:"is_available"`
}

// apply merges req onto p.
func (req *ProductRequest) apply(p *Product) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.ClearOriginal {
		p.OriginalPrice = nil
	} else if req.OriginalPrice != nil {
		op := *req.OriginalPrice
		p.OriginalPrice = &op
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Unit != nil {
		p.Unit = *req.Unit
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.IsAvailable != nil {
		p.IsAvailable = *req.IsAvailable
	}
}

// ValidateProduct enforces the catalog rules on a complete product.
func ValidateProduct(p *Product) error {
	switch {
	case p.Name == "":
		return apperr.Validation("name is required")
	case !p.Price.IsPositive():
		return apperr.Validation("price must be greater than 0")
	case p.OriginalPrice != nil && p.OriginalPrice.LessThan(p.Price):
		return apperr.Validation("original price must not be below the selling price")
	case p.Stock < 0:
		return apperr.Validation("stock must not be negative")
	case !p.Price.Equal(p.Price.Round(2)),
		p.OriginalPrice != nil && !p.OriginalPrice.Equal(p.OriginalPrice.Round(2)):
		return apperr.Validation("prices can have at most two decimal places")
	}
	return nil
}

func (h *Handler) bindProduct(c echo.Context) (*ProductRequest, error) {
	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		return nil, apperr.Validation("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// CreateProduct adds a product to the caller's shop.
func (h *Handler) CreateProduct(c echo.Context) error {
	req, err := h.bindProduct(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}
	p := &Product{Unit: "piece", IsAvailable: true}
	req.apply(p)
	if req.Price == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price is required"})
	}
	if err := ValidateProduct(p); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	sellerID, err := SellerIDForUser(ctx, h.pool, userID(c))
	if err != nil {
		return apperr.Respond(c, err, "could not create product")
	}

	created, err := scanProduct(h.pool.QueryRow(ctx, `
		WITH p AS (
			INSERT INTO products (seller_id, name, description, price, original_price, stock, unit, category, is_available)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT `+productColumns+` FROM p JOIN sellers s ON s.id = p.seller_id`,
		sellerID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Stock, p.Unit, p.Category, p.IsAvailable,
	))
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "could not create product")
	}
	return c.JSON(http.StatusCreated, created)
}

// ownedProduct loads productID if it belongs to the caller's shop.
func (h *Handler) ownedProduct(ctx context.Context, q db.Querier, uid, productID string) (*Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, apperr.Validation("invalid product id")
	}
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND s.user_id = $2`, productID, uid))
	return p, apperr.FromPg(err, "product not found")
}

// UpdateProduct edits a product of the caller's shop.
func (h *Handler) UpdateProduct(c echo.Context) error {
	req, err := h.bindProduct(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	ctx := c.Request().Context()
	p, err := h.ownedProduct(ctx, h.pool, userID(c), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err, "could not update product")
	}
	req.apply(p)
	if err := ValidateProduct(p); err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	_, err = h.pool.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, original_price = $5, stock = $6,
			unit = $7, category = $8, is_available = $9, updated_at = NOW()
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.OriginalPrice, p.Stock, p.Unit, p.Category, p.IsAvailable)
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "product not found"), "could not update product")
	}
	h.withProductImages(p)
	return c.JSON(http.StatusOK, p)
}

// DeleteProduct removes a product of the caller's shop. Past order items keep
// their snapshot.
func (h *Handler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.ownedProduct(ctx, h.pool, userID(c), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err, "could not delete product")
	}
	if _, err := h.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, p.ID); err != nil {
		return apperr.Respond(c, apperr.FromPg(err, ""), "could not delete product")
	}
	if p.ImagePath != nil && h.objects != nil {
		if err := h.objects.Delete(storage.ProductImages, *p.ImagePath); err != nil {
			c.Logger().Warnf("remove product image %s: %v", *p.ImagePath, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}

// GetMyProducts lists every product of the caller's shop.
func (h *Handler) GetMyProducts(c echo.Context) error {
	rows, err := h.pool.Query(c.Request().Context(),
		`SELECT `+productColumns+productFrom+` WHERE s.user_id = $1 ORDER BY p.created_at DESC`, userID(c))
	if err != nil {
		return apperr.Respond(c, err, "could not fetch products")
	}
	products, err := collectProducts(rows)
	if err != nil {
		return apperr.Respond(c, err, "failed to parse product record")
	}
	h.withProductImages(products...)
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

// GetShopProducts lists the available products of a listable shop.
func (h *Handler) GetShopProducts(c echo.Context) error {
	shopID := c.Param("id")
	if _, err := uuid.Parse(shopID); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shop id"})
	}
	query := `SELECT ` + productColumns + productFrom + `
		WHERE p.seller_id = $1 AND p.is_available AND s.is_approved AND s.is_active`
	args := []any{shopID}
	if category := c.QueryParam("category"); category != "" {
		query += ` AND p.category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY p.name`

	rows, err := h.pool.Query(c.Request().Context(), query, args...)
	if err != nil {
		return apperr.Respond(c, err, "could not fetch products")
	}
	products, err := collectProducts(rows)
	if err != nil {
		return apperr.Respond(c, err, "failed to parse product record")
	}
	h.withProductImages(products...)
	return c.JSON(http.StatusOK, echo.Map{"products": products})
}

// GetProduct returns one product of a listable shop.
func (h *Handler) GetProduct(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	p, err := scanProduct(h.pool.QueryRow(c.Request().Context(),
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND s.is_approved AND s.is_active`, id))
	if err != nil {
		return apperr.Respond(c, apperr.FromPg(err, "product not found"), "could not fetch product")
	}
	h.withProductImages(p)
	return c.JSON(http.StatusOK, echo.Map{"product": p, "discount_percent": p.DiscountPercent()})
}

// UploadProductImage stores a product photo.
func (h *Handler) UploadProductImage(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.ownedProduct(ctx, h.pool, userID(c), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err, "failed to upload image")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file uploaded"})
	}
	obj, err := h.objects.PutForm(ctx, storage.ProductImages, p.SellerID, fh)
	if err != nil {
		return apperr.Respond(c, err, "failed to upload image")
	}
	if _, err := h.pool.Exec(ctx, `UPDATE products SET image_path = $2, updated_at = NOW() WHERE id = $1`, p.ID, obj.Key); err != nil {
		h.objects.Delete(storage.ProductImages, obj.Key)
		return apperr.Respond(c, err, "failed to upload image")
	}
	if p.ImagePath != nil {
		if err := h.objects.Delete(storage.ProductImages, *p.ImagePath); err != nil {
			c.Logger().Warnf("remove old product image %s: %v", *p.ImagePath, err)
		}
	}
	return c.JSON(http.StatusOK, obj)
}

// CartSnapshot returns the product as a cart line with quantity 0. Only
// available products of listable shops can be added.
func (h *Handler) CartSnapshot(ctx context.Context, productID string) (cart.Item, error) {
	p, err := scanProduct(h.pool.QueryRow(ctx,
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND s.is_approved AND s.is_active`, productID))
	if err != nil {
		return cart.Item{}, apperr.FromPg(err, "product not found")
	}
	if !p.IsAvailable {
		return cart.Item{}, apperr.Conflict("", "product is not available")
	}
	h.withProductImages(p)
	return cart.Item{
		ProductID:  p.ID,
		SellerID:   p.SellerID,
		SellerName: p.ShopName,
		Name:       p.Name,
		Price:      p.Price,
		ImageURL:   p.ImageURL,
		Unit:       p.Unit,
		Stock:      p.Stock,
	}, nil
}
