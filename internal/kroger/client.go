package kroger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	phttp "github.com/silverpoint/price-search/internal/http"
	"github.com/silverpoint/price-search/internal/metrics"
	"github.com/silverpoint/price-search/internal/resilience"
	"github.com/silverpoint/price-search/internal/synth"
	"github.com/silverpoint/price-search/internal/types"
)

// Client resolves nearby locations and per-location product prices from the
// primary pricing source. Every failure degrades to "no data".
type Client struct {
	cfg     Config
	tokens  *TokenManager
	http    *phttp.Client
	breaker *resilience.Breaker
	metrics *metrics.Recorder
	logger  *zerolog.Logger
}

// NewClient creates a client. breaker may be nil.
func NewClient(cfg Config, tokens *TokenManager, httpClient *phttp.Client, breaker *resilience.Breaker, m *metrics.Recorder, logger *zerolog.Logger) *Client {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	if httpClient == nil {
		httpClient = phttp.NewClientDefault()
	}
	return &Client{
		cfg:     cfg,
		tokens:  tokens,
		http:    httpClient,
		breaker: breaker,
		metrics: m,
		logger:  logger,
	}
}

// Enabled reports whether the primary source can be used at all.
func (c *Client) Enabled() bool {
	return c != nil && c.tokens.Configured()
}

// DefaultRadiusMiles returns the configured location search radius.
func (c *Client) DefaultRadiusMiles() int {
	if c.cfg.RadiusMiles > 0 {
		return c.cfg.RadiusMiles
	}
	return 10
}

// FindNearby returns store locations within radiusMiles of (lat, lng).
// Entries with missing or malformed fields are skipped.
func (c *Client) FindNearby(ctx context.Context, lat, lng float64, radiusMiles int) []types.StoreLocation {
	token, ok := c.tokens.Token(ctx)
	if !ok {
		return nil
	}

	q := url.Values{}
	q.Set("filter.latLong.near", formatCoord(lat)+","+formatCoord(lng))
	q.Set("filter.radiusInMiles", strconv.Itoa(radiusMiles))

	var resp listResponse
	if err := c.get(ctx, "locations", "/v1/locations?"+q.Encode(), token, &resp); err != nil {
		return nil
	}

	locations := make([]types.StoreLocation, 0, len(resp.Data))
	for i, raw := range resp.Data {
		var loc location
		if err := json.Unmarshal(raw, &loc); err != nil {
			c.logger.Debug().Err(err).Int("index", i).Msg("Skipping malformed location")
			continue
		}
		if loc.LocationID == nil || loc.Name == nil || loc.Geolocation == nil ||
			loc.Geolocation.Latitude == nil || loc.Geolocation.Longitude == nil {
			c.logger.Debug().Int("index", i).Msg("Skipping location with missing fields")
			continue
		}
		locations = append(locations, types.StoreLocation{
			ID:   *loc.LocationID,
			Name: *loc.Name,
			Lat:  *loc.Geolocation.Latitude,
			Lng:  *loc.Geolocation.Longitude,
		})
	}
	return locations
}

// PriceAt returns the first product matching term at locationID.
// When the source omits pricing, the price is synthesized from (term, locationID).
func (c *Client) PriceAt(ctx context.Context, term, locationID string) (*types.PricedProduct, bool) {
	token, ok := c.tokens.Token(ctx)
	if !ok {
		return nil, false
	}

	q := url.Values{}
	q.Set("filter.term", term)
	q.Set("filter.locationId", locationID)
	q.Set("filter.limit", "1")

	var resp listResponse
	if err := c.get(ctx, "products", "/v1/products?"+q.Encode(), token, &resp); err != nil {
		return nil, false
	}
	if len(resp.Data) == 0 {
		return nil, false
	}

	var p product
	if err := json.Unmarshal(resp.Data[0], &p); err != nil || p.Description == nil {
		c.logger.Warn().Err(err).Str("location_id", locationID).Msg("Malformed product")
		return nil, false
	}
	if len(p.Items) == 0 {
		return nil, false
	}

	item := p.Items[0]
	price := selectPrice(item)
	if price <= 0 {
		price = synth.PriceFor(term, locationID)
		c.metrics.RecordSynthesized("missing_upstream_price")
	}

	return &types.PricedProduct{
		Name:    *p.Description,
		Price:   price,
		InStock: item.Inventory == nil || item.Inventory.StockLevel != OutOfStock,
	}, true
}

// selectPrice trusts a promo only when it is a genuine discount.
func selectPrice(item productItem) types.Money {
	if item.Price == nil {
		return 0
	}
	var regular types.Money
	if item.Price.Regular != nil {
		regular = types.MoneyFromFloat(*item.Price.Regular)
	}
	promo := regular
	if item.Price.Promo != nil {
		promo = types.MoneyFromFloat(*item.Price.Promo)
	}
	if promo > 0 && promo < regular {
		return promo
	}
	return regular
}

func (c *Client) get(ctx context.Context, op, path string, token *types.AccessToken, v any) error {
	if !c.breaker.Allow() {
		c.metrics.RecordUpstream("kroger", op, "skipped", 0)
		c.logger.Debug().Str("op", op).Msg("Circuit open, skipping primary source")
		return errors.New("circuit open")
	}

	ctx, span := tracer.Start(ctx, "kroger."+op)
	defer span.End()

	start := time.Now()
	header := http.Header{"Authorization": {"Bearer " + token.Value}}
	err := c.http.GetJSON(ctx, c.cfg.BaseURL+path, header, v)
	if err != nil {
		c.metrics.RecordUpstream("kroger", op, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")

		var se *phttp.StatusError
		if errors.As(err, &se) {
			span.SetAttributes(attribute.Int("http.status_code", se.Status))
			if se.Status == http.StatusUnauthorized {
				c.tokens.Invalidate(ctx, token)
			}
		}
		// 4xx responses other than 429 do not trip the breaker.
		if se == nil || se.Status >= 500 || se.Status == http.StatusTooManyRequests {
			c.breaker.RecordFailure(err)
		}
		c.logger.Warn().Err(err).Str("component", "kroger").Str("op", op).Msg("Upstream request failed")
		return err
	}

	c.breaker.RecordSuccess()
	c.metrics.RecordUpstream("kroger", op, "ok", time.Since(start))
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
