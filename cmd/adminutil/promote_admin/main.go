package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/nearbuy/internal/auth"
	"github.com/sudo-init-do/nearbuy/internal/config"
	"github.com/sudo-init-do/nearbuy/internal/db"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -email user@example.com")
	}

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	var userID string
	err = pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(*email))).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Fatalf("no user found with email: %s", *email)
	}
	if err != nil {
		log.Fatalf("failed to look up user: %v", err)
	}

	if err := auth.GrantRole(ctx, pool, userID, auth.RoleAdmin); err != nil {
		log.Fatalf("failed to promote user to admin: %v", err)
	}

	fmt.Printf("User %s promoted to admin.\n", *email)
}
