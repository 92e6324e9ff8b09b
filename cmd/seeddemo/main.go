package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sudo-init-do/nearbuy/internal/config"
	"github.com/sudo-init-do/nearbuy/internal/db"
	"github.com/sudo-init-do/nearbuy/internal/seed"
)

func main() {
	file := flag.String("file", "", "YAML fixture to load instead of the built-in demo sellers")
	flag.Parse()

	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	fixture, err := loadFixture(*file)
	if err != nil {
		log.Fatalf("fixture: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	res, err := seed.Provision(ctx, pool, fixture)
	if err != nil {
		log.Fatalf("provision failed: %v", err)
	}

	for _, c := range res.Created {
		fmt.Printf("created %-24s %s / %s (%d products)\n", c.ShopName, c.Email, c.Password, c.Products)
	}
	for _, email := range res.Skipped {
		fmt.Printf("skipped %s (already registered)\n", email)
	}
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return seed.Parse(data)
}
