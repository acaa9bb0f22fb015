// Package app assembles the search service from configuration.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/silverpoint/price-search/config"
	phttp "github.com/silverpoint/price-search/internal/http"
	"github.com/silverpoint/price-search/internal/kroger"
	"github.com/silverpoint/price-search/internal/metrics"
	"github.com/silverpoint/price-search/internal/places"
	"github.com/silverpoint/price-search/internal/resilience"
	"github.com/silverpoint/price-search/internal/search"
	"github.com/silverpoint/price-search/internal/stores"
	"github.com/silverpoint/price-search/internal/types"
)

// App holds the wired components.
type App struct {
	Tokens  *kroger.TokenManager
	Kroger  *kroger.Client
	Places  *places.Client
	Stores  []types.StoreLocation
	Search  *search.Orchestrator
	Metrics *metrics.Recorder
	Breaker *resilience.Breaker
}

// Build wires every component from cfg. Sources without credentials are
// built anyway and report themselves disabled.
func Build(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	fallback, err := stores.Resolve(cfg.Stores)
	if err != nil {
		return nil, fmt.Errorf("invalid store list: %w", err)
	}

	m := metrics.NewRecorder()
	breaker := resilience.New("kroger", cfg.CircuitBreaker, m, logger)
	tokens := kroger.NewTokenManager(cfg.Kroger, m, logger)
	krogerClient := kroger.NewClient(
		cfg.Kroger,
		tokens,
		phttp.NewClient(cfg.Upstream, cfg.Kroger.Timeout),
		breaker,
		m,
		logger,
	)
	placesClient := places.NewClient(
		cfg.Places,
		phttp.NewClient(cfg.Upstream, cfg.Places.Timeout),
		m,
		logger,
	)

	orch := search.New(cfg.Search, krogerClient, placesClient, fallback, m, logger)

	logger.Info().
		Bool("primary_enabled", krogerClient.Enabled()).
		Bool("places_enabled", placesClient.Enabled()).
		Int("fallback_stores", len(fallback)).
		Msg("Search sources configured")

	return &App{
		Tokens:  tokens,
		Kroger:  krogerClient,
		Places:  placesClient,
		Stores:  fallback,
		Search:  orch,
		Metrics: m,
		Breaker: breaker,
	}, nil
}
