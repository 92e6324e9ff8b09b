package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool and pgx.Tx the repositories use.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open connects to Postgres and makes sure the schema is in place.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	log.Println("Connected to Postgres successfully")

	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema runs every schema step in order. Each step is idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	steps := []struct {
		name string
		sql  string
	}{
		{"enums", enumsSQL},
		{"users", usersSQL},
		{"sellers", sellersSQL},
		{"products", productsSQL},
		{"orders", ordersSQL},
		{"reviews", reviewsSQL},
		{"wishlist", wishlistSQL},
		{"commissions", commissionsSQL},
		{"notifications", notificationsSQL},
		{"order status trigger", orderTransitionTriggerSQL},
		{"row change trigger", rowChangeTriggerSQL},
	}
	for _, s := range steps {
		if _, err := pool.Exec(ctx, s.sql); err != nil {
			return fmt.Errorf("ensure %s: %w", s.name, err)
		}
	}
	log.Printf("schema ensured (%d steps)", len(steps))
	return nil
}

// InTx runs fn inside a transaction, committing on success.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("transaction start failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}
