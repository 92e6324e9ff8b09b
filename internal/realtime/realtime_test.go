package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/nearbuy/internal/auth"
)

func orderChange(id, customer, seller, status, updated string) Change {
	return Change{
		Table: "orders",
		Type:  "UPDATE",
		Record: map[string]any{
			"id": id, "order_number": "NB-" + id, "customer_id": customer,
			"seller_id": seller, "status": status, "updated_at": updated,
		},
	}
}

func TestDecodeChange(t *testing.T) {
	ch, err := DecodeChange([]byte(`{"table":"orders","type":"INSERT","record":{"id":"o1","status":"pending","subtotal":250.00,"delivery_address":null}}`))
	require.NoError(t, err)
	assert.Equal(t, "orders", ch.Table)
	assert.Equal(t, "INSERT", ch.Type)
	assert.Equal(t, "pending", ch.Value("status"))
	assert.Equal(t, "250", ch.Value("subtotal"))
	assert.Equal(t, "", ch.Value("delivery_address"))
	assert.Equal(t, "", ch.Value("missing"))

	_, err = DecodeChange([]byte(`{"type":"INSERT"}`))
	assert.Error(t, err)
	_, err = DecodeChange([]byte(`nope`))
	assert.Error(t, err)
}

func TestChangeTime(t *testing.T) {
	ch := orderChange("o1", "c", "s", "pending", "2026-10-17T09:30:00.123456+00:00")
	got, ok := ch.Time("updated_at")
	require.True(t, ok)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, 123456000, got.Nanosecond())

	_, ok = ch.Time("status")
	assert.False(t, ok)
}

func TestFilterMatch(t *testing.T) {
	ch := orderChange("o1", "cust", "shop", "pending", "")
	assert.True(t, Filter{Table: "orders", Column: "customer_id", Value: "cust"}.Match(ch))
	assert.True(t, Filter{Table: "orders"}.Match(ch))
	assert.False(t, Filter{Table: "orders", Column: "customer_id", Value: "other"}.Match(ch))
	assert.False(t, Filter{Table: "products", Column: "seller_id", Value: "shop"}.Match(ch))
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	cust := h.Subscribe(Filter{Table: "orders", Column: "customer_id", Value: "cust"}, 4)
	shop := h.Subscribe(Filter{Table: "orders", Column: "seller_id", Value: "shop"}, 4)
	other := h.Subscribe(Filter{Table: "orders", Column: "customer_id", Value: "someone"}, 4)
	defer cust.Close()
	defer shop.Close()
	defer other.Close()

	n := h.Publish(orderChange("o1", "cust", "shop", "accepted", ""))
	assert.Equal(t, 2, n)
	assert.Equal(t, "o1", (<-cust.C).Value("id"))
	assert.Equal(t, "o1", (<-shop.C).Value("id"))
	select {
	case <-other.C:
		t.Fatal("unrelated subscriber received change")
	default:
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(Filter{Table: "orders"}, 1)
	defer sub.Close()

	assert.Equal(t, 1, h.Publish(orderChange("o1", "c", "s", "pending", "")))
	assert.Equal(t, 0, h.Publish(orderChange("o2", "c", "s", "pending", "")))
	assert.Equal(t, "o1", (<-sub.C).Value("id"))
}

func TestSubscriptionClose(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(Filter{Table: "orders"}, 1)
	assert.Equal(t, 1, h.Len())
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Len())
	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, h.Publish(orderChange("o1", "c", "s", "pending", "")))
}

func TestStatusTracker(t *testing.T) {
	tr := NewStatusTracker()
	t0 := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	assert.True(t, tr.Apply("o1", "pending", t0))
	assert.False(t, tr.Apply("o1", "pending", t0), "duplicate event")
	assert.True(t, tr.Apply("o1", "accepted", t0.Add(time.Minute)))
	assert.False(t, tr.Apply("o1", "pending", t0), "stale event")
	assert.False(t, tr.Apply("o1", "accepted", t0.Add(2*time.Minute)), "same status again")
	assert.True(t, tr.Apply("o1", "packed", t0.Add(3*time.Minute)))
	assert.True(t, tr.Apply("o2", "pending", t0))

	s, ok := tr.Status("o1")
	assert.True(t, ok)
	assert.Equal(t, "packed", s)
	_, ok = tr.Status("missing")
	assert.False(t, ok)
}

func newWSServer(t *testing.T, hub *Hub, userID string, roles []string) *httptest.Server {
	t.Helper()
	h := &Handler{hub: hub, sellerShop: func(context.Context, string) (string, error) { return "shop-1", nil }}
	e := echo.New()
	e.GET("/realtime/orders", h.OrdersWS, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", userID)
			c.Set("roles", roles)
			return next(c)
		}
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime/orders" + query
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(msg, &evt))
	return evt
}

func waitForSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, time.Second, 10*time.Millisecond)
}

func TestOrdersWSCustomerStream(t *testing.T) {
	hub := NewHub()
	srv := newWSServer(t, hub, "cust", []string{auth.RoleCustomer})
	ws := dial(t, srv, "")

	assert.Equal(t, "subscribed", readEvent(t, ws)["type"])
	waitForSubscribers(t, hub, 1)

	hub.Publish(orderChange("o9", "other", "shop-1", "accepted", "2026-10-17T09:00:00Z"))
	hub.Publish(orderChange("o1", "cust", "shop-1", "accepted", "2026-10-17T09:00:00Z"))
	hub.Publish(orderChange("o1", "cust", "shop-1", "accepted", "2026-10-17T09:00:00Z"))
	hub.Publish(orderChange("o1", "cust", "shop-1", "packed", "2026-10-17T09:05:00Z"))

	first := readEvent(t, ws)
	assert.Equal(t, "order_status", first["type"])
	data := first["data"].(map[string]any)
	assert.Equal(t, "o1", data["order_id"])
	assert.Equal(t, "accepted", data["status"])

	second := readEvent(t, ws)
	assert.Equal(t, "packed", second["data"].(map[string]any)["status"])
}

func TestOrdersWSSellerStream(t *testing.T) {
	hub := NewHub()
	srv := newWSServer(t, hub, "seller-user", []string{auth.RoleCustomer, auth.RoleSeller})
	ws := dial(t, srv, "?as=seller")
	evt := readEvent(t, ws)
	assert.Equal(t, "seller_id", evt["data"].(map[string]any)["column"])
	waitForSubscribers(t, hub, 1)

	hub.Publish(orderChange("o1", "cust", "shop-1", "pending", "2026-10-17T09:00:00Z"))
	assert.Equal(t, "o1", readEvent(t, ws)["data"].(map[string]any)["order_id"])
}

func TestOrdersWSSellerStreamNeedsRole(t *testing.T) {
	hub := NewHub()
	srv := newWSServer(t, hub, "cust", []string{auth.RoleCustomer})
	resp, err := http.Get(srv.URL + "/realtime/orders?as=seller")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
