package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silverpoint/price-search/internal/geo"
	"github.com/silverpoint/price-search/internal/stores"
	"github.com/silverpoint/price-search/internal/types"
)

// fakePrimary is an in-memory PrimarySource.
type fakePrimary struct {
	enabled   bool
	locations []types.StoreLocation
	prices    map[string]*types.PricedProduct
	delay     time.Duration

	mu        sync.Mutex
	priced    []string
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *fakePrimary) Enabled() bool           { return f.enabled }
func (f *fakePrimary) DefaultRadiusMiles() int { return 10 }

func (f *fakePrimary) FindNearby(ctx context.Context, lat, lng float64, radiusMiles int) []types.StoreLocation {
	return f.locations
}

func (f *fakePrimary) PriceAt(ctx context.Context, term, locationID string) (*types.PricedProduct, bool) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.priced = append(f.priced, locationID)
	f.mu.Unlock()

	p, ok := f.prices[locationID]
	return p, ok
}

type fakePlaces struct {
	enabled bool
	stores  []types.StoreLocation
	calls   atomic.Int32
}

func (f *fakePlaces) Enabled() bool { return f.enabled }

func (f *fakePlaces) Nearby(ctx context.Context, lat, lng float64) []types.StoreLocation {
	f.calls.Add(1)
	return f.stores
}

func ptr(v float64) *float64 { return &v }

func assertSortedByPrice(t *testing.T, results []types.SearchResult) {
	t.Helper()
	assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Price < results[j].Price
	}), "results must be sorted by price: %+v", results)
}

// laLocations are five locations at increasing distance from downtown LA.
func laLocations() []types.StoreLocation {
	return []types.StoreLocation{
		{ID: "L5", Name: "Fifth", Lat: 34.50, Lng: -118.24},
		{ID: "L1", Name: "First", Lat: 34.06, Lng: -118.24},
		{ID: "L3", Name: "Third", Lat: 34.20, Lng: -118.24},
		{ID: "L2", Name: "Second", Lat: 34.10, Lng: -118.24},
		{ID: "L4", Name: "Fourth", Lat: 34.30, Lng: -118.24},
	}
}

func TestNormalizeTerm(t *testing.T) {
	assert.Equal(t, "item", NormalizeTerm(""))
	assert.Equal(t, "item", NormalizeTerm("   \t"))
	assert.Equal(t, "milk", NormalizeTerm("  milk "))
}

func TestSearchWithoutCoordinates(t *testing.T) {
	primary := &fakePrimary{enabled: true, locations: laLocations()}
	o := New(DefaultConfig(), primary, &fakePlaces{enabled: true}, stores.Default(), nil, nil)

	out := o.Run(context.Background(), Query{Term: "milk"})

	assert.Equal(t, StrategyStatic, out.Strategy)
	require.Len(t, out.Results, 3)
	assertSortedByPrice(t, out.Results)
	assert.Empty(t, primary.priced, "primary is never used without coordinates")

	firstThree := map[string]bool{"Kroger (Downtown)": true, "Target (Westside)": true, "Walmart Supercenter": true}
	for _, r := range out.Results {
		assert.True(t, firstThree[r.StoreName], r.StoreName)
		assert.Equal(t, "milk", r.ProductName)
		assert.GreaterOrEqual(t, r.DistanceMi, 0.0)
		assert.Less(t, r.DistanceMi, 10.0)
		assert.GreaterOrEqual(t, r.Price, types.Money(50))
	}
}

func TestSearchIsDeterministic(t *testing.T) {
	o := New(DefaultConfig(), nil, nil, stores.Default(), nil, nil)

	a := o.Search(context.Background(), Query{Term: "eggs"})
	b := o.Search(context.Background(), Query{Term: "eggs"})
	assert.Equal(t, a, b)

	c := o.Search(context.Background(), Query{Term: "eggs", Lat: ptr(40.7), Lng: ptr(-74.0)})
	d := o.Search(context.Background(), Query{Term: "eggs", Lat: ptr(40.7), Lng: ptr(-74.0)})
	assert.Equal(t, c, d)
}

func TestSearchEmptyTerm(t *testing.T) {
	o := New(DefaultConfig(), nil, nil, stores.Default(), nil, nil)

	out := o.Run(context.Background(), Query{Term: "  "})
	assert.Equal(t, "item", out.Term)
	for _, r := range out.Results {
		assert.Equal(t, "item", r.ProductName)
	}
	assert.Equal(t, o.Search(context.Background(), Query{Term: "item"}), out.Results)
}

func TestSearchPrimary(t *testing.T) {
	primary := &fakePrimary{
		enabled:   true,
		locations: laLocations(),
		prices: map[string]*types.PricedProduct{
			"L1": {Name: "Milk", Price: 399, InStock: true},
			"L2": {Name: "Milk", Price: 249, InStock: false},
			"L3": {Name: "Milk", Price: 329, InStock: true},
			"L4": {Name: "Milk", Price: 100, InStock: true},
		},
	}
	places := &fakePlaces{enabled: true}
	o := New(DefaultConfig(), primary, places, stores.Default(), nil, nil)

	out := o.Run(context.Background(), Query{Term: "milk", Lat: ptr(34.05), Lng: ptr(-118.24)})

	assert.Equal(t, StrategyPrimary, out.Strategy)
	require.Len(t, out.Results, 3)
	assert.ElementsMatch(t, []string{"L1", "L2", "L3"}, primary.priced, "only the three nearest are priced")
	assert.Equal(t, []string{"Second", "Third", "First"}, []string{out.Results[0].StoreName, out.Results[1].StoreName, out.Results[2].StoreName})
	assert.False(t, out.Results[0].InStock)
	assert.Equal(t, int32(0), places.calls.Load())

	for _, r := range out.Results {
		var loc types.StoreLocation
		for _, l := range laLocations() {
			if l.Name == r.StoreName {
				loc = l
			}
		}
		assert.Equal(t, geo.Round1(geo.DistanceMiles(34.05, -118.24, loc.Lat, loc.Lng)), r.DistanceMi)
	}
}

func TestSearchPrimaryPartialIsNotMerged(t *testing.T) {
	primary := &fakePrimary{
		enabled:   true,
		locations: laLocations(),
		prices:    map[string]*types.PricedProduct{"L2": {Name: "Milk", Price: 249, InStock: true}},
	}
	o := New(DefaultConfig(), primary, nil, stores.Default(), nil, nil)

	out := o.Run(context.Background(), Query{Term: "milk", Lat: ptr(34.05), Lng: ptr(-118.24)})

	assert.Equal(t, StrategyPrimary, out.Strategy)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "Second", out.Results[0].StoreName)
}

func TestSearchPrimaryConcurrencyCap(t *testing.T) {
	locs := make([]types.StoreLocation, 10)
	prices := map[string]*types.PricedProduct{}
	for i := range locs {
		id := fmt.Sprintf("L%d", i)
		locs[i] = types.StoreLocation{ID: id, Name: id, Lat: 34.05 + float64(i)*0.01, Lng: -118.24}
		prices[id] = &types.PricedProduct{Name: "Milk", Price: types.Money(100 + i), InStock: true}
	}
	primary := &fakePrimary{enabled: true, locations: locs, prices: prices, delay: 20 * time.Millisecond}

	cfg := DefaultConfig()
	cfg.PrimaryConcurrency = 2
	o := New(cfg, primary, nil, nil, nil, nil)

	results := o.Search(context.Background(), Query{Term: "milk", Lat: ptr(34.05), Lng: ptr(-118.24)})

	require.Len(t, results, 3)
	assert.LessOrEqual(t, primary.maxFlight.Load(), int32(2))
	assert.Equal(t, []string{"L0", "L1", "L2"}, []string{results[0].StoreName, results[1].StoreName, results[2].StoreName})
}

func TestSearchEscalatesToPlaces(t *testing.T) {
	primary := &fakePrimary{enabled: true, locations: laLocations()} // no prices
	places := &fakePlaces{enabled: true}
	for i := 0; i < 8; i++ {
		places.stores = append(places.stores, types.StoreLocation{
			ID: fmt.Sprintf("P%d", i), Name: fmt.Sprintf("Place %d", i),
			Lat: 34.05 + float64(8-i)*0.02, Lng: -118.24,
		})
	}
	o := New(DefaultConfig(), primary, places, stores.Default(), nil, nil)

	out := o.Run(context.Background(), Query{Term: "milk", Lat: ptr(34.05), Lng: ptr(-118.24)})

	assert.Equal(t, StrategyPlaces, out.Strategy)
	require.Len(t, out.Results, 5, "nearest five places are kept")
	assertSortedByPrice(t, out.Results)
	for _, r := range out.Results {
		assert.NotContains(t, []string{"Place 0", "Place 1", "Place 2"}, r.StoreName, "farthest places are dropped")
		assert.GreaterOrEqual(t, r.Price, types.Money(50))
	}
}

func TestSearchPlacesEmptyFallsBackToStatic(t *testing.T) {
	places := &fakePlaces{enabled: true}
	o := New(DefaultConfig(), &fakePrimary{enabled: false}, places, stores.Default(), nil, nil)

	out := o.Run(context.Background(), Query{Term: "milk", Lat: ptr(34.05), Lng: ptr(-118.24)})

	assert.Equal(t, StrategyStatic, out.Strategy)
	assert.Equal(t, int32(1), places.calls.Load())
	require.Len(t, out.Results, 5)
	assertSortedByPrice(t, out.Results)

	// The two LA stores are the nearest to downtown LA.
	names := map[string]bool{}
	for _, r := range out.Results {
		names[r.StoreName] = true
	}
	assert.True(t, names["Kroger (Downtown)"])
	assert.True(t, names["Target (Westside)"])
}

func TestSearchNoCandidates(t *testing.T) {
	o := New(DefaultConfig(), nil, nil, nil, nil, nil)
	results := o.Search(context.Background(), Query{Term: "milk"})
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestNewAppliesDefaults(t *testing.T) {
	o := New(Config{PrimaryConcurrency: 10}, nil, nil, nil, nil, nil)
	assert.Equal(t, 3, o.cfg.MaxPrimaryLocations)
	assert.Equal(t, 3, o.cfg.PrimaryConcurrency)
	assert.Equal(t, 5, o.cfg.NearestFallbackStores)
	assert.Equal(t, 3, o.cfg.UnlocatedFallbackStores)
}
