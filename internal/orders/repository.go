package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

const orderColumns = `o.id, o.order_number, o.customer_id, COALESCE(p.full_name, ''), o.seller_id, s.shop_name, s.user_id,
	o.delivery_type::text, o.delivery_address, o.delivery_latitude, o.delivery_longitude,
	o.subtotal, o.delivery_fee, o.total, o.notes, o.status::text, o.created_at, o.updated_at`

const orderFrom = ` FROM orders o
	JOIN sellers s ON s.id = o.seller_id
	LEFT JOIN profiles p ON p.id = o.customer_id`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var delivery, status string
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.SellerID, &o.ShopName, &o.SellerUserID,
		&delivery, &o.DeliveryAddress, &o.DeliveryLatitude, &o.DeliveryLongitude,
		&o.Subtotal, &o.DeliveryFee, &o.Total, &o.Notes, &status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.DeliveryType = marketplace.DeliveryType(delivery)
	o.Status = Status(status)
	return &o, nil
}

// getOrder loads one order. lock takes a row lock on the order for the
// rest of the transaction.
func getOrder(ctx context.Context, q db.Querier, orderID string, lock bool) (*Order, error) {
	sql := `SELECT ` + orderColumns + orderFrom + ` WHERE o.id = $1`
	if lock {
		sql += ` FOR UPDATE OF o`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, orderID))
	if err != nil {
		return nil, apperr.FromPg(err, "order not found")
	}
	return o, nil
}

func listOrders(ctx context.Context, q db.Querier, where string, args ...any) ([]*Order, error) {
	rows, err := q.Query(ctx, `SELECT `+orderColumns+orderFrom+` WHERE `+where+` ORDER BY o.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Order, error) {
		return scanOrder(row)
	})
}

func loadItems(ctx context.Context, q db.Querier, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, product_id, product_name, product_price, quantity, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY created_at, product_name`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		err := row.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.ProductPrice, &it.Quantity, &it.Subtotal)
		return it, err
	})
}

func loadHistory(ctx context.Context, q db.Querier, orderID string) ([]HistoryEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT status::text, note, changed_by, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (HistoryEntry, error) {
		var h HistoryEntry
		var status string
		err := row.Scan(&status, &h.Note, &h.ChangedBy, &h.CreatedAt)
		h.Status = Status(status)
		return h, err
	})
}

// withDetails attaches items and history to o.
func withDetails(ctx context.Context, q db.Querier, o *Order) (*Order, error) {
	var err error
	if o.Items, err = loadItems(ctx, q, o.ID); err != nil {
		return nil, err
	}
	if o.History, err = loadHistory(ctx, q, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func insertHistory(ctx context.Context, q db.Querier, orderID string, status Status, note, changedBy string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, note, changed_by)
		VALUES ($1, $2::order_status, $3, NULLIF($4, '')::uuid)`,
		orderID, string(status), note, changedBy,
	)
	return err
}

// decrementStock takes each item's quantity off its product. The order fails
// when any product no longer has enough stock.
func decrementStock(ctx context.Context, q db.Querier, items []cart.Item) error {
	for _, it := range items {
		tag, err := q.Exec(ctx, `
			UPDATE products SET stock = stock - $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1`, it.Quantity, it.ProductID)
		if err != nil {
			return apperr.FromPg(err, "")
		}
		if tag.RowsAffected() == 0 {
			return apperr.Conflict("", fmt.Sprintf("not enough stock left for %s", it.Name))
		}
	}
	return nil
}
