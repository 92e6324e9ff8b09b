// Package kv is the per-user key-value store that holds state the client
// used to keep locally: carts, recent searches and the last known location.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Store is a byte-valued key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Fixed key prefixes.
const (
	CartPrefix           = "cart:"
	RecentSearchesPrefix = "recent_searches:"
	LocationPrefix       = "location:"
)

func CartKey(userID string) string           { return CartPrefix + userID }
func RecentSearchesKey(userID string) string { return RecentSearchesPrefix + userID }
func LocationKey(userID string) string       { return LocationPrefix + userID }

// GetJSON decodes the value at key into v. found is false when the key is
// missing.
func GetJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
