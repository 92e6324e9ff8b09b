package geo

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sudo-init-do/nearbuy/internal/apperr"
	"github.com/sudo-init-do/nearbuy/internal/kv"
)

// Browser geolocation error codes.
const (
	ErrCodePermissionDenied    = 1
	ErrCodePositionUnavailable = 2
	ErrCodeTimeout             = 3
)

var (
	ErrPermissionDenied    = apperr.Validation("Location access denied. Enable location permission to see nearby shops.")
	ErrPositionUnavailable = apperr.Validation("Your location is currently unavailable. Try again in a moment.")
	ErrTimeout             = apperr.Validation("Timed out while getting your location. Please try again.")
)

// DefaultLabel is used when reverse geocoding fails.
const DefaultLabel = "Current location"

// Fix is the outcome of a browser geolocation request: either coordinates or
// an error code.
type Fix struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	ErrorCode int      `json:"error_code"`
}

// Location is the resolved location stored per user.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Label     string    `json:"label"`
	IsDefault bool      `json:"is_default"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

func (l Location) Point() Point { return Point{Lat: l.Lat, Lng: l.Lng} }

// Geocoder turns coordinates into a human-readable label.
type Geocoder interface {
	Reverse(ctx context.Context, p Point) (string, error)
}

// ProfileLocator receives successfully resolved coordinates.
type ProfileLocator interface {
	SetCoordinates(ctx context.Context, userID string, p Point) error
}

// Resolver resolves and persists each user's last known location.
type Resolver struct {
	store    kv.Store
	geocoder Geocoder
	profiles ProfileLocator
	fallback Location
	now      func() time.Time
}

// NewResolver builds a Resolver. geocoder and profiles may be nil.
func NewResolver(store kv.Store, geocoder Geocoder, profiles ProfileLocator, fallback Point) *Resolver {
	return &Resolver{
		store:    store,
		geocoder: geocoder,
		profiles: profiles,
		fallback: Location{Lat: fallback.Lat, Lng: fallback.Lng, Label: "Default location", IsDefault: true},
		now:      time.Now,
	}
}

// Resolve applies fix for userID. A failed fix returns one of the three
// geolocation errors and leaves the stored location untouched.
func (r *Resolver) Resolve(ctx context.Context, userID string, fix Fix) (Location, error) {
	switch fix.ErrorCode {
	case 0:
	case ErrCodePermissionDenied:
		return Location{}, ErrPermissionDenied
	case ErrCodePositionUnavailable:
		return Location{}, ErrPositionUnavailable
	case ErrCodeTimeout:
		return Location{}, ErrTimeout
	default:
		return Location{}, ErrPositionUnavailable
	}
	if fix.Lat == nil || fix.Lng == nil {
		return Location{}, ErrPositionUnavailable
	}
	p := Point{Lat: *fix.Lat, Lng: *fix.Lng}
	if !p.Valid() {
		return Location{}, apperr.Validation("coordinates are out of range")
	}

	loc := Location{Lat: p.Lat, Lng: p.Lng, Label: r.label(ctx, p), UpdatedAt: r.now().UTC()}
	if err := kv.SetJSON(ctx, r.store, kv.LocationKey(userID), loc); err != nil {
		return Location{}, err
	}
	if r.profiles != nil {
		if err := r.profiles.SetCoordinates(ctx, userID, p); err != nil {
			log.Printf("[geo] profile coordinates for %s not updated: %v", userID, err)
		}
	}
	return loc, nil
}

// Current returns the stored location for userID, or the default.
func (r *Resolver) Current(ctx context.Context, userID string) (Location, error) {
	if userID == "" {
		return r.fallback, nil
	}
	var loc Location
	found, err := kv.GetJSON(ctx, r.store, kv.LocationKey(userID), &loc)
	if err != nil {
		return r.fallback, err
	}
	if !found {
		return r.fallback, nil
	}
	return loc, nil
}

func (r *Resolver) label(ctx context.Context, p Point) string {
	if r.geocoder == nil {
		return DefaultLabel
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	label, err := r.geocoder.Reverse(ctx, p)
	if err != nil || label == "" {
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[geo] reverse geocoding failed: %v", err)
		}
		return DefaultLabel
	}
	return label
}
