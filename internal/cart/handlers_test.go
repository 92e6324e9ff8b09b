package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/kv"
	"github.com/sudo-init-do/nearbuy/internal/middleware"
)

const (
	prodA = "11111111-1111-1111-1111-111111111111"
	prodB = "22222222-2222-2222-2222-222222222222"
)

type fakeProducts map[string]Item

func (f fakeProducts) CartSnapshot(_ context.Context, id string) (Item, error) {
	it, ok := f[id]
	if !ok {
		return Item{}, apperr.NotFound("product not found")
	}
	return it, nil
}

func newTestServer() *echo.Echo {
	products := fakeProducts{
		prodA: item(prodA, "s1", 100, 3, 0),
		prodB: item(prodB, "s2", 50, 0, 0),
	}
	h := NewHandler(NewStore(kv.NewMemory()), products)

	e := echo.New()
	e.Validator = middleware.NewValidator()
	g := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "u1")
			return next(c)
		}
	})
	g.GET("/cart", h.GetCart)
	g.POST("/cart/items", h.AddItem)
	g.PATCH("/cart/items/:product_id", h.UpdateQuantity)
	g.DELETE("/cart/items/:product_id", h.RemoveItem)
	g.DELETE("/cart/sellers/:seller_id", h.ClearSeller)
	g.DELETE("/cart", h.Clear)
	return e
}

func call(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestCartHandlers(t *testing.T) {
	e := newTestServer()

	rec, body := call(e, http.MethodPost, "/cart/items", `{"product_id":"`+prodA+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "200", body["subtotal"])

	rec, body = call(e, http.MethodPost, "/cart/items", `{"product_id":"`+prodA+`","quantity":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "300", body["subtotal"], "clamped to stock of 3")

	rec, _ = call(e, http.MethodPost, "/cart/items", `{"product_id":"`+prodB+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = call(e, http.MethodPost, "/cart/items", `{"product_id":"not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(e, http.MethodPost, "/cart/items", `{"product_id":"33333333-3333-3333-3333-333333333333"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = call(e, http.MethodPatch, "/cart/items/"+prodA, `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", body["subtotal"])

	rec, body = call(e, http.MethodPatch, "/cart/items/"+prodA, `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["items"])

	rec, _ = call(e, http.MethodPatch, "/cart/items/"+prodA, `{"quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	call(e, http.MethodPost, "/cart/items", `{"product_id":"`+prodA+`"}`)
	rec, body = call(e, http.MethodDelete, "/cart/sellers/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), body["count"])
}
