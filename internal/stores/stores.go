package stores

import (
	"fmt"

	"github.com/silverpoint/price-search/internal/types"
)

// Default returns the built-in fallback store list. Order matters: searches
// without coordinates keep the first entries.
func Default() []types.StoreLocation {
	return []types.StoreLocation{
		{ID: "S1", Name: "Kroger (Downtown)", Lat: 34.0522, Lng: -118.2437},
		{ID: "S2", Name: "Target (Westside)", Lat: 34.0400, Lng: -118.4400},
		{ID: "S3", Name: "Walmart Supercenter", Lat: 40.7128, Lng: -74.0060},
		{ID: "S4", Name: "Target (Manhattan)", Lat: 40.7500, Lng: -73.9800},
		{ID: "S5", Name: "Aldi", Lat: 41.8781, Lng: -87.6298},
		{ID: "S6", Name: "Trader Joe's", Lat: 41.9000, Lng: -87.6500},
		{ID: "S7", Name: "H-E-B", Lat: 29.7604, Lng: -95.3698},
		{ID: "S8", Name: "Safeway", Lat: 47.6062, Lng: -122.3321},
		{ID: "S9", Name: "Publix", Lat: 25.7617, Lng: -80.1918},
		{ID: "S10", Name: "King Soopers", Lat: 39.7392, Lng: -104.9903},
		{ID: "S11", Name: "Meijer", Lat: 42.3314, Lng: -83.0458},
		{ID: "S12", Name: "Whole Foods Market", Lat: 37.7749, Lng: -122.4194},
		{ID: "S13", Name: "Wegmans", Lat: 42.3601, Lng: -71.0589},
	}
}

// Resolve returns configured stores, or the default list when none are configured.
func Resolve(configured []types.StoreLocation) ([]types.StoreLocation, error) {
	if len(configured) == 0 {
		return Default(), nil
	}
	if err := Validate(configured); err != nil {
		return nil, err
	}
	out := make([]types.StoreLocation, len(configured))
	copy(out, configured)
	return out, nil
}

// Validate checks that every store has a name and valid coordinates and that IDs are unique.
func Validate(list []types.StoreLocation) error {
	seen := make(map[string]bool, len(list))
	for i, s := range list {
		if s.Name == "" {
			return fmt.Errorf("store at index %d: name cannot be empty", i)
		}
		if s.Lat < -90 || s.Lat > 90 {
			return fmt.Errorf("store %q: latitude must be between -90 and 90", s.Name)
		}
		if s.Lng < -180 || s.Lng > 180 {
			return fmt.Errorf("store %q: longitude must be between -180 and 180", s.Name)
		}
		if s.ID != "" {
			if seen[s.ID] {
				return fmt.Errorf("store %q: duplicate id %q", s.Name, s.ID)
			}
			seen[s.ID] = true
		}
	}
	return nil
}
