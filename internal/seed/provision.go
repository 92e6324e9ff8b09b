package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/nearbuy/internal/auth"
	"github.com/sudo-init-do/nearbuy/internal/db"
)

// Created describes one provisioned demo seller. Password is only known at
// creation time.
type Created struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	SellerID string `json:"seller_id"`
	ShopName string `json:"shop_name"`
	Products int    `json:"products"`
}

// Result summarizes a provisioning run.
type Result struct {
	Created []Created `json:"created"`
	Skipped []string  `json:"skipped"`
}

func randomPassword() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Provision creates every seller in f whose email is not registered yet.
// Each seller is written in its own transaction, so a rerun picks up where a
// failed one stopped.
func Provision(ctx context.Context, pool *pgxpool.Pool, f *Fixture) (*Result, error) {
	res := &Result{Created: []Created{}, Skipped: []string{}}
	for _, s := range f.Sellers {
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, s.Email).Scan(&exists); err != nil {
			return res, err
		}
		if exists {
			res.Skipped = append(res.Skipped, s.Email)
			continue
		}

		created, err := provisionOne(ctx, pool, s)
		if auth.IsEmailTaken(err) {
			res.Skipped = append(res.Skipped, s.Email)
			continue
		}
		if err != nil {
			return res, fmt.Errorf("provision %s: %w", s.Email, err)
		}
		log.Printf("[seed] created demo seller %s (%s)", created.ShopName, created.Email)
		res.Created = append(res.Created, created)
	}
	return res, nil
}

func provisionOne(ctx context.Context, pool *pgxpool.Pool, s DemoSeller) (Created, error) {
	password := s.Password
	if password == "" {
		var err error
		if password, err = randomPassword(); err != nil {
			return Created{}, err
		}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Created{}, errors.New("failed to hash password")
	}

	out := Created{Email: s.Email, Password: password, ShopName: s.ShopName, Products: len(s.Products)}
	err = db.InTx(ctx, pool, func(tx pgx.Tx) error {
		userID, err := auth.CreateUser(ctx, tx, s.Email, string(hashed), s.FullName, auth.RoleCustomer, auth.RoleSeller)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE profiles SET phone = $2, address = $3, latitude = $4, longitude = $5 WHERE id = $1`,
			userID, s.Phone, s.Address, s.Latitude, s.Longitude); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO sellers (user_id, shop_name, description, category, address, phone, latitude, longitude,
				opening_time, closing_time, delivery_options, is_approved, is_active, is_open)
			VALUES ($1, $2, $3, $4::shop_category, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''),
				$11::text[]::delivery_type[], TRUE, TRUE, TRUE)
			RETURNING id`,
			userID, s.ShopName, s.Description, s.Category, s.Address, s.Phone, s.Latitude, s.Longitude,
			s.OpeningTime, s.ClosingTime, s.DeliveryOptions,
		).Scan(&out.SellerID)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, p := range s.Products {
			price, original, _ := p.prices()
			unit := p.Unit
			if unit == "" {
				unit = "piece"
			}
			batch.Queue(`
				INSERT INTO products (seller_id, name, description, price, original_price, stock, unit, category)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				out.SellerID, p.Name, p.Description, price, original, p.Stock, unit, p.Category)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `INSERT INTO seller_credentials (seller_id, email, note) VALUES ($1, $2, 'demo seller')`,
			out.SellerID, s.Email)
		return err
	})
	return out, err
}
