package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/nearbuy/internal/cart"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/marketplace"
)

// NewOrder is the row written at checkout.
type NewOrder struct {
	CustomerID        string
	SellerID          string
	DeliveryType      marketplace.DeliveryType
	DeliveryAddress   *string
	DeliveryLatitude  *float64
	DeliveryLongitude *float64
	Subtotal          decimal.Decimal
	DeliveryFee       decimal.Decimal
	Total             decimal.Decimal
	Notes             string
}

// Tx is the order persistence available inside one transaction.
type Tx interface {
	Seller(ctx context.Context, sellerID string) (*marketplace.Seller, error)
	InsertOrder(ctx context.Context, o NewOrder) (string, error)
	InsertItems(ctx context.Context, orderID string, items []cart.Item) error
	DecrementStock(ctx context.Context, items []cart.Item) error
	// LockOrder reads the order and holds it until the transaction ends.
	LockOrder(ctx context.Context, orderID string) (*Order, error)
	// SwapStatus sets the status to `to` only if it is still `from`.
	SwapStatus(ctx context.Context, orderID string, from, to Status) (bool, error)
	InsertHistory(ctx context.Context, orderID string, status Status, note, changedBy string) error
	// LoadOrder returns the order with its items and history.
	LoadOrder(ctx context.Context, orderID string) (*Order, error)
}

// Store runs fn in a transaction, committing when fn returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// PgStore is the Postgres Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) Seller(ctx context.Context, sellerID string) (*marketplace.Seller, error) {
	return marketplace.GetSeller(ctx, t.tx, sellerID)
}

func (t pgTx) InsertOrder(ctx context.Context, o NewOrder) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (customer_id, seller_id, delivery_type, delivery_address,
			delivery_latitude, delivery_longitude, subtotal, delivery_fee, total, notes)
		VALUES ($1, $2, $3::delivery_type, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		o.CustomerID, o.SellerID, string(o.DeliveryType), o.DeliveryAddress,
		o.DeliveryLatitude, o.DeliveryLongitude, o.Subtotal, o.DeliveryFee, o.Total, o.Notes,
	).Scan(&id)
	return id, err
}

func (t pgTx) InsertItems(ctx context.Context, orderID string, items []cart.Item) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			orderID, it.ProductID, it.Name, it.Price, it.Quantity, it.LineTotal(),
		)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t pgTx) DecrementStock(ctx context.Context, items []cart.Item) error {
	return decrementStock(ctx, t.tx, items)
}

func (t pgTx) LockOrder(ctx context.Context, orderID string) (*Order, error) {
	return getOrder(ctx, t.tx, orderID, true)
}

func (t pgTx) SwapStatus(ctx context.Context, orderID string, from, to Status) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $1::order_status, updated_at = NOW()
		WHERE id = $2 AND status = $3::order_status`,
		string(to), orderID, string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t pgTx) InsertHistory(ctx context.Context, orderID string, status Status, note, changedBy string) error {
	return insertHistory(ctx, t.tx, orderID, status, note, changedBy)
}

func (t pgTx) LoadOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := getOrder(ctx, t.tx, orderID, false)
	if err != nil {
		return nil, err
	}
	return withDetails(ctx, t.tx, o)
}
