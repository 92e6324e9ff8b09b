package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/auth"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// OrderEvent is pushed to clients when one of their orders changes.
type OrderEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Status      string    `json:"status"`
	Change      string    `json:"change"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	bufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SellerLookup finds the shop owned by a user.
type SellerLookup func(ctx context.Context, userID string) (string, error)

// Handler serves the order change websocket.
type Handler struct {
	hub        *Hub
	sellerShop SellerLookup
}

func NewHandler(hub *Hub, pool *pgxpool.Pool) *Handler {
	return &Handler{
		hub: hub,
		sellerShop: func(ctx context.Context, userID string) (string, error) {
			return marketplace.SellerIDForUser(ctx, pool, userID)
		},
	}
}

// filterFor picks the subscription for the caller. Sellers asking with
// ?as=seller follow their shop's orders, everyone else their own.
func (h *Handler) filterFor(c echo.Context, userID string) (Filter, error) {
	if c.QueryParam("as") != "seller" {
		return Filter{Table: "orders", Column: "customer_id", Value: userID}, nil
	}
	roles, _ := c.Get("roles").([]string)
	if !slices.Contains(roles, auth.RoleSeller) {
		return Filter{}, apperr.Forbidden("seller role required")
	}
	sellerID, err := h.sellerShop(c.Request().Context(), userID)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Table: "orders", Column: "seller_id", Value: sellerID}, nil
}

func orderEvent(ch Change) OrderEvent {
	updated, _ := ch.Time("updated_at")
	return OrderEvent{
		OrderID:     ch.Value("id"),
		OrderNumber: ch.Value("order_number"),
		Status:      ch.Value("status"),
		Change:      ch.Type,
		UpdatedAt:   updated,
	}
}

// OrdersWS handles GET /realtime/orders
func (h *Handler) OrdersWS(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	filter, err := h.filterFor(c, userID)
	if err != nil {
		return apperr.Respond(c, err, "failed to subscribe")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	sub := h.hub.Subscribe(filter, bufferSize)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		// client messages are ignored; reading only detects the close
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeJSON(ws, wsEvent{Type: "subscribed", Data: echo.Map{"table": filter.Table, "column": filter.Column}}); err != nil {
		return nil
	}

	tracker := NewStatusTracker()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-c.Request().Context().Done():
			return nil
		case ch, ok := <-sub.C:
			if !ok {
				return nil
			}
			evt := orderEvent(ch)
			if !tracker.Apply(evt.OrderID, evt.Status, evt.UpdatedAt) {
				continue
			}
			if err := writeJSON(ws, wsEvent{Type: "order_status", Data: evt}); err != nil {
				return nil
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func writeJSON(ws *websocket.Conn, evt wsEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, payload)
}
