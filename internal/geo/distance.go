// Package geo resolves the customer's location and measures great-circle
// distances to shops.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether p is a finite coordinate inside the WGS84 ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) &&
		!math.IsInf(p.Lat, 0) && !math.IsInf(p.Lng, 0) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the haversine distance between a and b in kilometers.
func Distance(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceFrom returns the distance from origin to (lat, lng). ok is false
// when origin or either coordinate is missing or invalid.
func DistanceFrom(origin *Point, lat, lng *float64) (km float64, ok bool) {
	if origin == nil || lat == nil || lng == nil {
		return 0, false
	}
	target := Point{Lat: *lat, Lng: *lng}
	if !origin.Valid() || !target.Valid() {
		return 0, false
	}
	return Distance(*origin, target), true
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
