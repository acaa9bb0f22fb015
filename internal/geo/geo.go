package geo

import (
	"math"
	"sort"

	"github.com/silverpoint/price-search/internal/types"
)

// EarthRadiusMiles is the mean Earth radius used for distance calculations.
const EarthRadiusMiles = 3958.8

// DistanceMiles calculates the great-circle distance between two points in miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// Round1 rounds a distance to one decimal place.
func Round1(d float64) float64 {
	return math.Round(d*10) / 10
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// StoreWithDistance pairs a store with its distance from a query point.
type StoreWithDistance struct {
	Store    types.StoreLocation
	Distance float64 // miles, unrounded
}

// RankByDistance returns the stores paired with their distance from (lat, lng),
// nearest first. Ties keep input order.
func RankByDistance(lat, lng float64, stores []types.StoreLocation) []StoreWithDistance {
	ranked := make([]StoreWithDistance, len(stores))
	for i, s := range stores {
		ranked[i] = StoreWithDistance{Store: s, Distance: DistanceMiles(lat, lng, s.Lat, s.Lng)}
	}
	SortByDistance(ranked)
	return ranked
}

// SortByDistance sorts a slice of StoreWithDistance in place.
func SortByDistance(stores []StoreWithDistance) {
	sort.SliceStable(stores, func(i, j int) bool {
		return stores[i].Distance < stores[j].Distance
	})
}
