package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/silverpoint/price-search/internal/types"
)

func TestDistanceMiles(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		points := [][2]float64{{0, 0}, {34.05, -118.24}, {-33.87, 151.21}, {89.9, 179.9}}
		for _, p := range points {
			assert.Equal(t, 0.0, DistanceMiles(p[0], p[1], p[0], p[1]))
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a := DistanceMiles(34.0522, -118.2437, 40.7128, -74.0060)
		b := DistanceMiles(40.7128, -74.0060, 34.0522, -118.2437)
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("los angeles to new york", func(t *testing.T) {
		d := DistanceMiles(34.0522, -118.2437, 40.7128, -74.0060)
		assert.InDelta(t, 2445.6, d, 2.0)
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		d := DistanceMiles(0, 0, 0, 1)
		assert.InDelta(t, 69.09, d, 0.05)
	})
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 1.2, Round1(1.24))
	assert.Equal(t, 1.3, Round1(1.25))
	assert.Equal(t, 0.0, Round1(0.04))
}

func TestRankByDistance(t *testing.T) {
	stores := []types.StoreLocation{
		{ID: "far", Lat: 35.0, Lng: -118.24},
		{ID: "near", Lat: 34.06, Lng: -118.24},
		{ID: "mid", Lat: 34.5, Lng: -118.24},
	}

	ranked := RankByDistance(34.05, -118.24, stores)

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Store.ID
	}
	assert.Equal(t, []string{"near", "mid", "far"}, ids)
	assert.True(t, ranked[0].Distance < ranked[1].Distance)
}
