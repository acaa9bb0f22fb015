// Package places queries a nearby-places source for supermarkets around a
// coordinate. It is the live half of the secondary search strategy.
package places

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	phttp "github.com/silverpoint/price-search/internal/http"
	"github.com/silverpoint/price-search/internal/metrics"
	"github.com/silverpoint/price-search/internal/types"
)

// UnknownStoreName is used for places returned without a name.
const UnknownStoreName = "Unknown Store"

var tracer = otel.Tracer("github.com/silverpoint/price-search/internal/places")

// Config holds the places source configuration.
type Config struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	RadiusMeters int           `mapstructure:"radius_meters"`
	Type         string        `mapstructure:"type"`
	Keyword      string        `mapstructure:"keyword"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the defaults without an API key.
// The radius is ten miles.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://maps.googleapis.com",
		RadiusMeters: 16093,
		Type:         "supermarket",
		Keyword:      "grocery",
		Timeout:      5 * time.Second,
	}
}

type nearbyResponse struct {
	Status  string            `json:"status"`
	Results []json.RawMessage `json:"results"`
}

type place struct {
	PlaceID  string  `json:"place_id"`
	Name     *string `json:"name"`
	Geometry *struct {
		Location *struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Client queries the nearby-places endpoint.
type Client struct {
	cfg     Config
	http    *phttp.Client
	metrics *metrics.Recorder
	logger  *zerolog.Logger
}

// NewClient creates a places client.
func NewClient(cfg Config, httpClient *phttp.Client, m *metrics.Recorder, logger *zerolog.Logger) *Client {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	if httpClient == nil {
		httpClient = phttp.NewClientDefault()
	}
	return &Client{cfg: cfg, http: httpClient, metrics: m, logger: logger}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

// Nearby returns supermarkets around (lat, lng). Any failure, including a
// non-OK status in the payload, yields an empty slice.
func (c *Client) Nearby(ctx context.Context, lat, lng float64) []types.StoreLocation {
	if !c.Enabled() {
		return nil
	}

	ctx, span := tracer.Start(ctx, "places.nearby")
	defer span.End()

	q := url.Values{}
	q.Set("location", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(c.cfg.RadiusMeters))
	q.Set("type", c.cfg.Type)
	q.Set("keyword", c.cfg.Keyword)
	q.Set("key", c.cfg.APIKey)

	start := time.Now()
	var resp nearbyResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/maps/api/place/nearbysearch/json?"+q.Encode(), nil, &resp); err != nil {
		c.metrics.RecordUpstream("places", "nearby", "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "nearby search failed")
		c.logger.Warn().Err(err).Str("component", "places").Msg("Nearby search failed")
		return nil
	}
	span.SetAttributes(attribute.String("places.status", resp.Status))

	if resp.Status != "OK" {
		c.metrics.RecordUpstream("places", "nearby", "empty", time.Since(start))
		c.logger.Info().Str("component", "places").Str("status", resp.Status).Msg("Nearby search returned no places")
		return nil
	}

	stores := make([]types.StoreLocation, 0, len(resp.Results))
	for i, raw := range resp.Results {
		var p place
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Debug().Err(err).Int("index", i).Msg("Skipping malformed place")
			continue
		}
		if p.Geometry == nil || p.Geometry.Location == nil ||
			p.Geometry.Location.Lat == nil || p.Geometry.Location.Lng == nil {
			continue
		}
		name := UnknownStoreName
		if p.Name != nil && *p.Name != "" {
			name = *p.Name
		}
		stores = append(stores, types.StoreLocation{
			ID:   p.PlaceID,
			Name: name,
			Lat:  *p.Geometry.Location.Lat,
			Lng:  *p.Geometry.Location.Lng,
		})
	}

	c.metrics.RecordUpstream("places", "nearby", "ok", time.Since(start))
	return stores
}
