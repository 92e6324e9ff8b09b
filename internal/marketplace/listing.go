package marketplace

import (
	"sort"
	"strings"
)

// SortByDistance orders shops nearest first. Shops with unknown distance go
// last, by name.
func SortByDistance(shops []ShopListing) {
	sort.SliceStable(shops, func(i, j int) bool {
		a, b := shops[i].DistanceKm, shops[j].DistanceKm
		switch {
		case a != nil && b != nil:
			if *a != *b {
				return *a < *b
			}
		case a != nil:
			return true
		case b != nil:
			return false
		}
		return strings.ToLower(shops[i].ShopName) < strings.ToLower(shops[j].ShopName)
	})
}

// FilterWithin keeps shops at most radiusKm away. A radius of 0 keeps all.
func FilterWithin(shops []ShopListing, radiusKm float64) []ShopListing {
	if radiusKm <= 0 {
		return shops
	}
	out := shops[:0]
	for _, s := range shops {
		if s.DistanceKm != nil && *s.DistanceKm <= radiusKm {
			out = append(out, s)
		}
	}
	return out
}
