package marketplace

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/metrics"
)

// ReviewStore persists shop and product reviews.
type ReviewStore interface {
	CreateShopReview(ctx context.Context, customerID, orderID string, req ReviewRequest) (*Review, error)
	UpdateShopReview(ctx context.Context, customerID, orderID string, req ReviewRequest) (*Review, error)
	OrderReview(ctx context.Context, userID, orderID string) (*Review, error)
	CreateProductReview(ctx context.Context, customerID, orderID, itemID string, req ReviewRequest) (*ProductReview, error)
	ShopReviews(ctx context.Context, sellerID string, limit, offset int) (RatingSummary, []Review, error)
	ProductReviews(ctx context.Context, productID string, limit, offset int) (RatingSummary, []ProductReview, error)
}

var (
	ErrAlreadyReviewedOrder   = apperr.Conflict(apperr.CodeAlreadyReviewed, "you have already reviewed this order")
	ErrAlreadyReviewedProduct = apperr.Conflict(apperr.CodeAlreadyReviewed, "you have already reviewed this product")
	ErrNotDelivered           = apperr.Validation("you can only review delivered orders")
)

// ReviewHandler serves review endpoints.
type ReviewHandler struct {
	store ReviewStore
}

func NewReviewHandler(store ReviewStore) *ReviewHandler {
	return &ReviewHandler{store: store}
}

func bindReview(c echo.Context) (ReviewRequest, error) {
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return req, apperr.Validation("invalid request")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return req, apperr.Validation("rating must be between 1 and 5")
	}
	if err := c.Validate(&req); err != nil {
		return req, err
	}
	return req, nil
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// CreateReview lets the customer rate the shop of a delivered order, once.
func (h *ReviewHandler) CreateReview(c echo.Context) error {
	orderID := c.Param("id")
	if !validIDs(orderID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id format"})
	}
	req, err := bindReview(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	review, err := h.store.CreateShopReview(c.Request().Context(), userID(c), orderID, req)
	if err != nil {
		return apperr.Respond(c, err, "failed to create review")
	}
	metrics.ReviewsSubmitted.WithLabelValues("shop").Inc()
	return c.JSON(http.StatusCreated, echo.Map{"review": review, "message": "Review created successfully"})
}

// UpdateReview edits the caller's shop review of an order in place.
func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	orderID := c.Param("id")
	if !validIDs(orderID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id format"})
	}
	req, err := bindReview(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	review, err := h.store.UpdateShopReview(c.Request().Context(), userID(c), orderID, req)
	if err != nil {
		return apperr.Respond(c, err, "failed to update review")
	}
	return c.JSON(http.StatusOK, echo.Map{"review": review})
}

// GetOrderReview returns the shop review of an order to its customer or seller.
func (h *ReviewHandler) GetOrderReview(c echo.Context) error {
	orderID := c.Param("id")
	if !validIDs(orderID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id format"})
	}
	review, err := h.store.OrderReview(c.Request().Context(), userID(c), orderID)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch review")
	}
	return c.JSON(http.StatusOK, echo.Map{"review": review})
}

// CreateProductReview rates one item of a delivered order. There is no edit.
func (h *ReviewHandler) CreateProductReview(c echo.Context) error {
	orderID, itemID := c.Param("id"), c.Param("item_id")
	if !validIDs(orderID, itemID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id format"})
	}
	req, err := bindReview(c)
	if err != nil {
		return apperr.Respond(c, err, "invalid request")
	}

	review, err := h.store.CreateProductReview(c.Request().Context(), userID(c), orderID, itemID, req)
	if err != nil {
		return apperr.Respond(c, err, "failed to create review")
	}
	metrics.ReviewsSubmitted.WithLabelValues("product").Inc()
	return c.JSON(http.StatusCreated, echo.Map{"review": review, "message": "Review created successfully"})
}

func reviewPage(c echo.Context) (page, limit, offset int) {
	page, limit = 1, 10
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 50 {
		limit = l
	}
	return page, limit, (page - 1) * limit
}

// GetShopReviews returns a shop's rating summary and a page of reviews.
func (h *ReviewHandler) GetShopReviews(c echo.Context) error {
	sellerID := c.Param("id")
	if !validIDs(sellerID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid shop id"})
	}
	page, limit, offset := reviewPage(c)
	summary, reviews, err := h.store.ShopReviews(c.Request().Context(), sellerID, limit, offset)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch reviews")
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary": summary,
		"reviews": reviews,
		"pagination": echo.Map{
			"page":  page,
			"limit": limit,
			"total": summary.TotalReviews,
		},
	})
}

// GetProductReviews returns a product's rating summary and a page of reviews.
func (h *ReviewHandler) GetProductReviews(c echo.Context) error {
	productID := c.Param("id")
	if !validIDs(productID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	page, limit, offset := reviewPage(c)
	summary, reviews, err := h.store.ProductReviews(c.Request().Context(), productID, limit, offset)
	if err != nil {
		return apperr.Respond(c, err, "failed to fetch reviews")
	}
	if reviews == nil {
		reviews = []ProductReview{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary": summary,
		"reviews": reviews,
		"pagination": echo.Map{
			"page":  page,
			"limit": limit,
			"total": summary.TotalReviews,
		},
	})
}

// PgReviews is the Postgres ReviewStore.
type PgReviews struct {
	pool *pgxpool.Pool
}

func NewPgReviews(pool *pgxpool.Pool) *PgReviews {
	return &PgReviews{pool: pool}
}

const reviewColumns = `r.id, r.order_id, r.customer_id, COALESCE(pr.full_name, ''), r.seller_id, r.rating, r.comment, r.created_at, r.updated_at`

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	err := row.Scan(&r.ID, &r.OrderID, &r.CustomerID, &r.CustomerName, &r.SellerID, &r.Rating, &r.Comment, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// deliveredOrder locks the caller's order and checks it was delivered.
func deliveredOrder(ctx context.Context, tx pgx.Tx, customerID, orderID string) (sellerID string, err error) {
	var status string
	err = tx.QueryRow(ctx, `
		SELECT seller_id, status::text FROM orders
		WHERE id = $1 AND customer_id = $2
		FOR SHARE
	`, orderID, customerID).Scan(&sellerID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("order not found or not yours")
	}
	if err != nil {
		return "", err
	}
	if status != "delivered" {
		return "", ErrNotDelivered
	}
	return sellerID, nil
}

// Unique constraints that allow one review per order and per order item.
const (
	shopReviewKey    = "reviews_customer_order_key"
	productReviewKey = "product_reviews_customer_item_key"
)

// reviewInsertErr maps a failed review insert, reporting a violation of
// constraint as duplicate.
func reviewInsertErr(err error, constraint string, duplicate error) error {
	if apperr.IsUniqueViolation(err, constraint) {
		return duplicate
	}
	return apperr.FromPg(err, "")
}

func (s *PgReviews) CreateShopReview(ctx context.Context, customerID, orderID string, req ReviewRequest) (*Review, error) {
	var review *Review
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		sellerID, err := deliveredOrder(ctx, tx, customerID, orderID)
		if err != nil {
			return err
		}
		review, err = scanReview(tx.QueryRow(ctx, `
			WITH r AS (
				INSERT INTO reviews (order_id, customer_id, seller_id, rating, comment)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING *
			)
			SELECT `+reviewColumns+` FROM r LEFT JOIN profiles pr ON pr.id = r.customer_id`,
			orderID, customerID, sellerID, req.Rating, req.Comment,
		))
		if err != nil {
			return reviewInsertErr(err, shopReviewKey, ErrAlreadyReviewedOrder)
		}
		return RefreshSellerRating(ctx, tx, sellerID)
	})
	return review, err
}

func (s *PgReviews) UpdateShopReview(ctx context.Context, customerID, orderID string, req ReviewRequest) (*Review, error) {
	var review *Review
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		review, err = scanReview(tx.QueryRow(ctx, `
			WITH r AS (
				UPDATE reviews SET rating = $3, comment = $4, updated_at = NOW()
				WHERE order_id = $1 AND customer_id = $2
				RETURNING *
			)
			SELECT `+reviewColumns+` FROM r LEFT JOIN profiles pr ON pr.id = r.customer_id`,
			orderID, customerID, req.Rating, req.Comment,
		))
		if err != nil {
			return apperr.FromPg(err, "no review found for this order")
		}
		return RefreshSellerRating(ctx, tx, review.SellerID)
	})
	return review, err
}

func (s *PgReviews) OrderReview(ctx context.Context, userID, orderID string) (*Review, error) {
	var customerID, sellerUserID string
	err := s.pool.QueryRow(ctx, `
		SELECT o.customer_id, s.user_id
		FROM orders o JOIN sellers s ON s.id = o.seller_id
		WHERE o.id = $1
	`, orderID).Scan(&customerID, &sellerUserID)
	if err != nil {
		return nil, apperr.FromPg(err, "order not found")
	}
	if userID != customerID && userID != sellerUserID {
		return nil, apperr.Forbidden("not authorized to view this order's review")
	}

	review, err := scanReview(s.pool.QueryRow(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r LEFT JOIN profiles pr ON pr.id = r.customer_id
		WHERE r.order_id = $1
	`, orderID))
	return review, apperr.FromPg(err, "no review found for this order")
}

func (s *PgReviews) CreateProductReview(ctx context.Context, customerID, orderID, itemID string, req ReviewRequest) (*ProductReview, error) {
	var review ProductReview
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := deliveredOrder(ctx, tx, customerID, orderID); err != nil {
			return err
		}
		var productID *string
		err := tx.QueryRow(ctx, `SELECT product_id FROM order_items WHERE id = $1 AND order_id = $2`, itemID, orderID).Scan(&productID)
		if err != nil {
			return apperr.FromPg(err, "order item not found")
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO product_reviews (order_id, order_item_id, product_id, customer_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, order_id, order_item_id, product_id, customer_id, rating, comment, created_at
		`, orderID, itemID, productID, customerID, req.Rating, req.Comment).Scan(
			&review.ID, &review.OrderID, &review.OrderItemID, &review.ProductID,
			&review.CustomerID, &review.Rating, &review.Comment, &review.CreatedAt,
		)
		if err != nil {
			return reviewInsertErr(err, productReviewKey, ErrAlreadyReviewedProduct)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func summarize(ctx context.Context, q db.Querier, table, column, id string) (RatingSummary, error) {
	var summary RatingSummary
	rows, err := q.Query(ctx,
		`SELECT rating, COUNT(*) FROM `+table+` WHERE `+column+` = $1 GROUP BY rating ORDER BY rating DESC`, id)
	if err != nil {
		return summary, err
	}
	defer rows.Close()

	sum := 0
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return summary, err
		}
		summary.add(rating, count)
		summary.TotalReviews += count
		sum += rating * count
	}
	if summary.TotalReviews > 0 {
		summary.AverageRating = float64(sum) / float64(summary.TotalReviews)
	}
	return summary, rows.Err()
}

func (s *PgReviews) ShopReviews(ctx context.Context, sellerID string, limit, offset int) (RatingSummary, []Review, error) {
	summary, err := summarize(ctx, s.pool, "reviews", "seller_id", sellerID)
	if err != nil {
		return summary, nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews r LEFT JOIN profiles pr ON pr.id = r.customer_id
		WHERE r.seller_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`, sellerID, limit, offset)
	if err != nil {
		return summary, nil, err
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		r, err := scanReview(row)
		if err != nil {
			return Review{}, err
		}
		return *r, nil
	})
	return summary, reviews, err
}

func (s *PgReviews) ProductReviews(ctx context.Context, productID string, limit, offset int) (RatingSummary, []ProductReview, error) {
	summary, err := summarize(ctx, s.pool, "product_reviews", "product_id", productID)
	if err != nil {
		return summary, nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.order_id, r.order_item_id, r.product_id, r.customer_id, COALESCE(pr.full_name, ''),
			r.rating, r.comment, r.created_at
		FROM product_reviews r LEFT JOIN profiles pr ON pr.id = r.customer_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)
	if err != nil {
		return summary, nil, err
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ProductReview, error) {
		var r ProductReview
		err := row.Scan(&r.ID, &r.OrderID, &r.OrderItemID, &r.ProductID, &r.CustomerID, &r.CustomerName,
			&r.Rating, &r.Comment, &r.CreatedAt)
		return r, err
	})
	return summary, reviews, err
}

// RefreshSellerRating recomputes a shop's rating and review_count from its
// reviews.
func RefreshSellerRating(ctx context.Context, q db.Querier, sellerID string) error {
	_, err := q.Exec(ctx, `
		UPDATE sellers s SET
			rating = COALESCE(agg.avg_rating, 0),
			review_count = agg.cnt
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 2)::float8 AS avg_rating, COUNT(*)::int AS cnt
			FROM reviews WHERE seller_id = $1
		) agg
		WHERE s.id = $1
	`, sellerID)
	return err
}

// RefreshAllSellerRatings repairs rating and review_count on every shop whose
// stored values drifted. Returns the number of shops fixed.
func RefreshAllSellerRatings(ctx context.Context, q db.Querier) (int64, error) {
	tag, err := q.Exec(ctx, `
		UPDATE sellers s SET
			rating = COALESCE(agg.avg_rating, 0),
			review_count = COALESCE(agg.cnt, 0)
		FROM sellers s2
		LEFT JOIN (
			SELECT seller_id, ROUND(AVG(rating)::numeric, 2)::float8 AS avg_rating, COUNT(*)::int AS cnt
			FROM reviews GROUP BY seller_id
		) agg ON agg.seller_id = s2.id
		WHERE s.id = s2.id
			AND (s.review_count IS DISTINCT FROM COALESCE(agg.cnt, 0)
				OR s.rating IS DISTINCT FROM COALESCE(agg.avg_rating, 0))
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
