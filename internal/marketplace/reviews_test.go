package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/middleware"
)

const (
	orderID = "aaaaaaaa-0000-0000-0000-000000000001"
	itemID  = "bbbbbbbb-0000-0000-0000-000000000001"
	shopID  = "cccccccc-0000-0000-0000-000000000001"
)

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// memReviews mimics the unique constraints of the reviews tables, failing a
// duplicate insert with the error Postgres would raise.
type memReviews struct {
	delivered   map[string]bool
	shopReviews map[string]*Review
	itemReviews map[string]bool
	createCalls int
}

func newMemReviews() *memReviews {
	return &memReviews{
		delivered:   map[string]bool{orderID: true},
		shopReviews: map[string]*Review{},
		itemReviews: map[string]bool{},
	}
}

func (m *memReviews) CreateShopReview(_ context.Context, customerID, oid string, req ReviewRequest) (*Review, error) {
	m.createCalls++
	if !m.delivered[oid] {
		return nil, ErrNotDelivered
	}
	key := customerID + "/" + oid
	if _, ok := m.shopReviews[key]; ok {
		return nil, reviewInsertErr(uniqueViolation(shopReviewKey), shopReviewKey, ErrAlreadyReviewedOrder)
	}
	r := &Review{ID: "r1", OrderID: oid, CustomerID: customerID, SellerID: shopID, Rating: req.Rating, Comment: req.Comment, CreatedAt: time.Now()}
	m.shopReviews[key] = r
	return r, nil
}

func (m *memReviews) UpdateShopReview(_ context.Context, customerID, oid string, req ReviewRequest) (*Review, error) {
	r, ok := m.shopReviews[customerID+"/"+oid]
	if !ok {
		return nil, apperr.NotFound("no review found for this order")
	}
	r.Rating, r.Comment = req.Rating, req.Comment
	return r, nil
}

func (m *memReviews) OrderReview(_ context.Context, userID, oid string) (*Review, error) {
	r, ok := m.shopReviews[userID+"/"+oid]
	if !ok {
		return nil, apperr.NotFound("no review found for this order")
	}
	return r, nil
}

func (m *memReviews) CreateProductReview(_ context.Context, customerID, oid, iid string, req ReviewRequest) (*ProductReview, error) {
	key := customerID + "/" + iid
	if m.itemReviews[key] {
		return nil, reviewInsertErr(uniqueViolation(productReviewKey), productReviewKey, ErrAlreadyReviewedProduct)
	}
	m.itemReviews[key] = true
	return &ProductReview{ID: "pr1", OrderID: oid, OrderItemID: iid, CustomerID: customerID, Rating: req.Rating}, nil
}

func (m *memReviews) ShopReviews(context.Context, string, int, int) (RatingSummary, []Review, error) {
	var s RatingSummary
	var out []Review
	for _, r := range m.shopReviews {
		s.add(r.Rating, 1)
		s.TotalReviews++
		out = append(out, *r)
	}
	return s, out, nil
}

func (m *memReviews) ProductReviews(context.Context, string, int, int) (RatingSummary, []ProductReview, error) {
	return RatingSummary{}, nil, nil
}

func reviewServer(store ReviewStore) *echo.Echo {
	h := NewReviewHandler(store)
	e := echo.New()
	e.Validator = middleware.NewValidator()
	g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "customer-1")
			return next(c)
		}
	})
	g.POST("/orders/:id/review", h.CreateReview)
	g.PATCH("/orders/:id/review", h.UpdateReview)
	g.GET("/orders/:id/review", h.GetOrderReview)
	g.POST("/orders/:id/items/:item_id/review", h.CreateProductReview)
	e.GET("/shops/:id/reviews", h.GetShopReviews)
	e.GET("/products/:id/reviews", h.GetProductReviews)
	return e
}

func send(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestDuplicateShopReviewIsDistinguishable(t *testing.T) {
	e := reviewServer(newMemReviews())

	rec, _ := send(e, http.MethodPost, "/orders/"+orderID+"/review", `{"rating":5,"comment":"fresh produce"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := send(e, http.MethodPost, "/orders/"+orderID+"/review", `{"rating":4}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.CodeAlreadyReviewed, body["code"])
	assert.Equal(t, "you have already reviewed this order", body["error"])
}

func TestDuplicateProductReviewIsDistinguishable(t *testing.T) {
	e := reviewServer(newMemReviews())
	path := "/orders/" + orderID + "/items/" + itemID + "/review"

	rec, _ := send(e, http.MethodPost, path, `{"rating":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body := send(e, http.MethodPost, path, `{"rating":3}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, apperr.CodeAlreadyReviewed, body["code"])
}

func TestReviewInsertErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		duplicate  error
		kind       apperr.Kind
		code       string
		msg        string
	}{
		{"second shop review", uniqueViolation(shopReviewKey), shopReviewKey, ErrAlreadyReviewedOrder,
			apperr.KindConflict, apperr.CodeAlreadyReviewed, "you have already reviewed this order"},
		{"second product review", uniqueViolation(productReviewKey), productReviewKey, ErrAlreadyReviewedProduct,
			apperr.KindConflict, apperr.CodeAlreadyReviewed, "you have already reviewed this product"},
		{"other unique constraint", uniqueViolation("reviews_pkey"), shopReviewKey, ErrAlreadyReviewedOrder,
			apperr.KindConflict, apperr.CodeDuplicate, "this record already exists"},
		{"missing product", &pgconn.PgError{Code: "23503", Message: "insert violates foreign key constraint"}, productReviewKey, ErrAlreadyReviewedProduct,
			apperr.KindValidation, "", "referenced record does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reviewInsertErr(tt.err, tt.constraint, tt.duplicate)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.code, apperr.CodeOf(err))
			assert.Equal(t, tt.msg, err.Error())
		})
	}
}

func TestReviewValidation(t *testing.T) {
	store := newMemReviews()
	e := reviewServer(store)

	tests := []struct {
		name string
		path string
		body string
		msg  string
	}{
		{"rating zero", "/orders/" + orderID + "/review", `{"rating":0}`, "rating must be between 1 and 5"},
		{"rating six", "/orders/" + orderID + "/review", `{"rating":6}`, "rating must be between 1 and 5"},
		{"comment too long", "/orders/" + orderID + "/review", `{"rating":4,"comment":"` + strings.Repeat("x", 1001) + `"}`, "comment must be at most 1000 characters"},
		{"bad order id", "/orders/not-a-uuid/review", `{"rating":4}`, "invalid order id format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := send(e, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.msg, body["error"])
		})
	}
	assert.Zero(t, store.createCalls, "invalid input never reaches the store")
}

func TestReviewRequiresDeliveredOrder(t *testing.T) {
	store := newMemReviews()
	store.delivered[orderID] = false
	e := reviewServer(store)

	rec, body := send(e, http.MethodPost, "/orders/"+orderID+"/review", `{"rating":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrNotDelivered.Error(), body["error"])
}

func TestShopReviewEditInPlace(t *testing.T) {
	e := reviewServer(newMemReviews())

	rec, _ := send(e, http.MethodPatch, "/orders/"+orderID+"/review", `{"rating":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	send(e, http.MethodPost, "/orders/"+orderID+"/review", `{"rating":5}`)
	rec, body := send(e, http.MethodPatch, "/orders/"+orderID+"/review", `{"rating":2,"comment":"late"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	review := body["review"].(map[string]any)
	assert.Equal(t, float64(2), review["rating"])

	rec, body = send(e, http.MethodGet, "/shops/"+shopID+"/reviews", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["total_reviews"])
}
