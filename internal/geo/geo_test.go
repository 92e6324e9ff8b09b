package geo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/nearbuy/internal/kv"
)

func f(v float64) *float64 { return &v }

func TestDistance(t *testing.T) {
	mumbai := Point{Lat: 19.0760, Lng: 72.8777}

	assert.Equal(t, 0.0, Distance(mumbai, mumbai))

	antipode := Point{Lat: -mumbai.Lat, Lng: mumbai.Lng - 180}
	assert.InDelta(t, math.Pi*EarthRadiusKm, Distance(mumbai, antipode), 0.01)
	assert.InDelta(t, 20015.0, Distance(Point{0, 0}, Point{0, 180}), 1)

	pune := Point{Lat: 18.5204, Lng: 73.8567}
	assert.InDelta(t, 120, Distance(mumbai, pune), 5)
	assert.InDelta(t, Distance(mumbai, pune), Distance(pune, mumbai), 1e-9)
}

func TestDistanceFrom(t *testing.T) {
	origin := &Point{Lat: 19.0760, Lng: 72.8777}

	tests := []struct {
		name   string
		origin *Point
		lat    *float64
		lng    *float64
		ok     bool
	}{
		{"valid", origin, f(19.1), f(72.9), true},
		{"nil origin", nil, f(19.1), f(72.9), false},
		{"nil lat", origin, nil, f(72.9), false},
		{"nil lng", origin, f(19.1), nil, false},
		{"nan", origin, f(math.NaN()), f(72.9), false},
		{"inf", origin, f(19.1), f(math.Inf(1)), false},
		{"lat out of range", origin, f(91), f(72.9), false},
		{"invalid origin", &Point{Lat: 200}, f(19.1), f(72.9), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, ok := DistanceFrom(tt.origin, tt.lat, tt.lng)
			assert.Equal(t, tt.ok, ok)
			if !ok {
				assert.Zero(t, km)
			} else {
				assert.Greater(t, km, 0.0)
			}
		})
	}
}

type stubGeocoder struct {
	label string
	err   error
}

func (s stubGeocoder) Reverse(context.Context, Point) (string, error) { return s.label, s.err }

type recordingProfiles struct{ got map[string]Point }

func (r *recordingProfiles) SetCoordinates(_ context.Context, userID string, p Point) error {
	r.got[userID] = p
	return nil
}

func TestResolverSuccess(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	profiles := &recordingProfiles{got: map[string]Point{}}
	r := NewResolver(store, stubGeocoder{label: "Bandra, Mumbai"}, profiles, Point{Lat: 19.07, Lng: 72.87})

	loc, err := r.Resolve(ctx, "u1", Fix{Lat: f(19.05), Lng: f(72.83)})
	require.NoError(t, err)
	assert.Equal(t, "Bandra, Mumbai", loc.Label)
	assert.False(t, loc.IsDefault)
	assert.Equal(t, Point{Lat: 19.05, Lng: 72.83}, profiles.got["u1"])

	cur, err := r.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, loc.Point(), cur.Point())
}

func TestResolverGeocoderFallback(t *testing.T) {
	r := NewResolver(kv.NewMemory(), stubGeocoder{err: errors.New("rate limited")}, nil, Point{})
	loc, err := r.Resolve(context.Background(), "u1", Fix{Lat: f(19.05), Lng: f(72.83)})
	require.NoError(t, err)
	assert.Equal(t, DefaultLabel, loc.Label)
}

func TestResolverErrorsKeepPreviousLocation(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(kv.NewMemory(), nil, nil, Point{Lat: 19.07, Lng: 72.87})

	cur, err := r.Current(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, cur.IsDefault)

	_, err = r.Resolve(ctx, "u1", Fix{Lat: f(10), Lng: f(20)})
	require.NoError(t, err)

	tests := []struct {
		code int
		want error
	}{
		{ErrCodePermissionDenied, ErrPermissionDenied},
		{ErrCodePositionUnavailable, ErrPositionUnavailable},
		{ErrCodeTimeout, ErrTimeout},
	}
	seen := map[string]bool{}
	for _, tt := range tests {
		_, err := r.Resolve(ctx, "u1", Fix{ErrorCode: tt.code})
		assert.ErrorIs(t, err, tt.want)
		seen[err.Error()] = true
	}
	assert.Len(t, seen, 3, "each failure has its own message")

	cur, err = r.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Point{Lat: 10, Lng: 20}, cur.Point())
}

func TestHTTPGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "19.050000", r.URL.Query().Get("lat"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"Hill Road, Bandra West, Mumbai","address":{"suburb":"Bandra West","city":"Mumbai"}}`))
	}))
	defer srv.Close()

	g := NewHTTPGeocoder(srv.URL)
	label, err := g.Reverse(context.Background(), Point{Lat: 19.05, Lng: 72.83})
	require.NoError(t, err)
	assert.Equal(t, "Bandra West, Mumbai", label)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer failing.Close()
	_, err = NewHTTPGeocoder(failing.URL).Reverse(context.Background(), Point{})
	assert.Error(t, err)
}

func TestNominatimLabelFallsBackToDisplayName(t *testing.T) {
	var r nominatimResponse
	r.DisplayName = "Somewhere, Some District, Some State, India"
	assert.Equal(t, "Somewhere, Some District", r.label())
}
