// Package search answers "what does this item cost nearby?" by walking a
// cascade of sources: the authenticated pricing source first, then live
// nearby places or the static store list with synthesized prices.
package search

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/silverpoint/price-search/internal/geo"
	"github.com/silverpoint/price-search/internal/metrics"
	"github.com/silverpoint/price-search/internal/synth"
	"github.com/silverpoint/price-search/internal/types"
)

// DefaultTerm replaces an empty query term.
const DefaultTerm = "item"

// Strategy names which source answered a search.
type Strategy string

const (
	StrategyPrimary Strategy = "primary"
	StrategyPlaces  Strategy = "places"
	StrategyStatic  Strategy = "static"
)

var tracer = otel.Tracer("github.com/silverpoint/price-search/internal/search")

// PrimarySource is the authenticated pricing source.
type PrimarySource interface {
	Enabled() bool
	DefaultRadiusMiles() int
	FindNearby(ctx context.Context, lat, lng float64, radiusMiles int) []types.StoreLocation
	PriceAt(ctx context.Context, term, locationID string) (*types.PricedProduct, bool)
}

// RequestScoper is implemented by sources that keep state for the lifetime
// of a single search request.
type RequestScoper interface {
	BeginRequest(ctx context.Context) context.Context
}

// PlacesSource lists supermarkets near a coordinate.
type PlacesSource interface {
	Enabled() bool
	Nearby(ctx context.Context, lat, lng float64) []types.StoreLocation
}

// Config holds the orchestrator limits.
type Config struct {
	// MaxPrimaryLocations caps how many nearby locations are priced per request.
	MaxPrimaryLocations int `mapstructure:"max_primary_locations"`
	// PrimaryConcurrency caps concurrent price lookups.
	PrimaryConcurrency int `mapstructure:"primary_concurrency"`
	// NearestFallbackStores is how many synthesized offers are kept when coordinates are known.
	NearestFallbackStores int `mapstructure:"nearest_fallback_stores"`
	// UnlocatedFallbackStores is how many synthesized offers are kept without coordinates.
	UnlocatedFallbackStores int `mapstructure:"unlocated_fallback_stores"`
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		MaxPrimaryLocations:     3,
		PrimaryConcurrency:      3,
		NearestFallbackStores:   5,
		UnlocatedFallbackStores: 3,
	}
}

// Query is a single search request. Lat and Lng are used only when both are set.
type Query struct {
	Term string
	Lat  *float64
	Lng  *float64
}

func (q Query) hasCoords() bool {
	return q.Lat != nil && q.Lng != nil
}

// Outcome is the result of a search with the strategy that produced it.
type Outcome struct {
	Term     string
	Strategy Strategy
	Results  []types.SearchResult
}

// Orchestrator sequences the search strategies. It holds no per-request state.
type Orchestrator struct {
	cfg     Config
	primary PrimarySource
	places  PlacesSource
	stores  []types.StoreLocation
	metrics *metrics.Recorder
	logger  *zerolog.Logger
}

// New creates an orchestrator. primary and places may be nil.
func New(cfg Config, primary PrimarySource, places PlacesSource, fallback []types.StoreLocation, m *metrics.Recorder, logger *zerolog.Logger) *Orchestrator {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	if cfg.MaxPrimaryLocations < 1 {
		cfg.MaxPrimaryLocations = DefaultConfig().MaxPrimaryLocations
	}
	if cfg.PrimaryConcurrency < 1 || cfg.PrimaryConcurrency > cfg.MaxPrimaryLocations {
		cfg.PrimaryConcurrency = cfg.MaxPrimaryLocations
	}
	if cfg.NearestFallbackStores < 1 {
		cfg.NearestFallbackStores = DefaultConfig().NearestFallbackStores
	}
	if cfg.UnlocatedFallbackStores < 1 {
		cfg.UnlocatedFallbackStores = DefaultConfig().UnlocatedFallbackStores
	}
	return &Orchestrator{
		cfg:     cfg,
		primary: primary,
		places:  places,
		stores:  fallback,
		metrics: m,
		logger:  logger,
	}
}

// NormalizeTerm trims the term and substitutes DefaultTerm when nothing is left.
func NormalizeTerm(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return DefaultTerm
	}
	return term
}

// Search returns store offers for the query, cheapest first.
// It never fails; a result set may be empty.
func (o *Orchestrator) Search(ctx context.Context, q Query) []types.SearchResult {
	return o.Run(ctx, q).Results
}

// Run performs the search and reports which strategy answered it.
func (o *Orchestrator) Run(ctx context.Context, q Query) Outcome {
	start := time.Now()
	term := NormalizeTerm(q.Term)

	ctx, span := tracer.Start(ctx, "search")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.term", term),
		attribute.Bool("search.has_coords", q.hasCoords()),
	)

	out := Outcome{Term: term}
	if q.hasCoords() && o.primary != nil && o.primary.Enabled() {
		out.Results = o.searchPrimary(ctx, term, *q.Lat, *q.Lng)
		out.Strategy = StrategyPrimary
	}

	// Partial primary results are never merged with synthesized ones.
	if len(out.Results) == 0 {
		out.Results, out.Strategy = o.searchSecondary(ctx, term, q)
	}

	sortByPrice(out.Results)

	span.SetAttributes(
		attribute.String("search.strategy", string(out.Strategy)),
		attribute.Int("search.results", len(out.Results)),
	)
	o.metrics.RecordSearch(string(out.Strategy), time.Since(start), len(out.Results))
	o.logger.Info().
		Str("component", "search").
		Str("term", term).
		Bool("has_coords", q.hasCoords()).
		Str("strategy", string(out.Strategy)).
		Int("results", len(out.Results)).
		Dur("latency", time.Since(start)).
		Msg("Search completed")
	return out
}

// searchPrimary prices the nearest primary-source locations. Lookups run
// with bounded concurrency and are reassembled in distance order.
func (o *Orchestrator) searchPrimary(ctx context.Context, term string, lat, lng float64) []types.SearchResult {
	if rs, ok := o.primary.(RequestScoper); ok {
		ctx = rs.BeginRequest(ctx)
	}
	locations := o.primary.FindNearby(ctx, lat, lng, o.primary.DefaultRadiusMiles())
	if len(locations) == 0 {
		return nil
	}

	ranked := geo.RankByDistance(lat, lng, locations)
	if len(ranked) > o.cfg.MaxPrimaryLocations {
		ranked = ranked[:o.cfg.MaxPrimaryLocations]
	}

	priced := make([]*types.PricedProduct, len(ranked))
	var g errgroup.Group
	g.SetLimit(o.cfg.PrimaryConcurrency)
	for i, r := range ranked {
		g.Go(func() error {
			if p, ok := o.primary.PriceAt(ctx, term, r.Store.ID); ok {
				priced[i] = p
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]types.SearchResult, 0, len(ranked))
	for i, r := range ranked {
		p := priced[i]
		if p == nil {
			continue
		}
		results = append(results, types.SearchResult{
			ProductName: p.Name,
			StoreName:   r.Store.Name,
			Price:       p.Price,
			DistanceMi:  geo.Round1(r.Distance),
			InStock:     p.InStock,
		})
	}
	return results
}

// searchSecondary synthesizes offers for live nearby places or the static
// store list. One stream seeded by the term feeds every offer in list order.
func (o *Orchestrator) searchSecondary(ctx context.Context, term string, q Query) ([]types.SearchResult, Strategy) {
	candidates, strategy := o.stores, StrategyStatic
	if q.hasCoords() && o.places != nil && o.places.Enabled() {
		if found := o.places.Nearby(ctx, *q.Lat, *q.Lng); len(found) > 0 {
			candidates, strategy = found, StrategyPlaces
		}
	}

	stream := synth.NewStream(term)
	results := make([]types.SearchResult, 0, len(candidates))
	for _, store := range candidates {
		offer := stream.Next(!q.hasCoords())
		dist := offer.Distance
		if q.hasCoords() {
			dist = geo.DistanceMiles(*q.Lat, *q.Lng, store.Lat, store.Lng)
		}
		results = append(results, types.SearchResult{
			ProductName: term,
			StoreName:   store.Name,
			Price:       offer.Price,
			DistanceMi:  geo.Round1(dist),
			InStock:     offer.InStock,
		})
	}

	keep := o.cfg.UnlocatedFallbackStores
	if q.hasCoords() {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].DistanceMi < results[j].DistanceMi
		})
		keep = o.cfg.NearestFallbackStores
	}
	if len(results) > keep {
		results = results[:keep]
	}
	for range results {
		o.metrics.RecordSynthesized("fallback_store")
	}
	return results, strategy
}

func sortByPrice(results []types.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Price < results[j].Price
	})
}
