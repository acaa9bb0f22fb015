package kroger

import (
	"encoding/json"
	"time"
)

// OutOfStock is the stock level the products API reports for unavailable items.
const OutOfStock = "OUT_OF_STOCK"

// Config holds the primary pricing source configuration.
type Config struct {
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	TokenURL     string        `mapstructure:"token_url"`
	Scope        string        `mapstructure:"scope"`
	RadiusMiles  int           `mapstructure:"radius_miles"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the certification-environment defaults without credentials.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api-ce.kroger.com",
		Scope:       "product.compact",
		RadiusMiles: 10,
		Timeout:     5 * time.Second,
	}
}

// Configured reports whether client credentials are present.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c Config) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return c.BaseURL + "/v1/connect/oauth2/token"
}

// listResponse is the envelope shared by the locations and products endpoints.
// Entries stay raw so one malformed entry does not fail the whole list.
type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

type location struct {
	LocationID  *string `json:"locationId"`
	Name        *string `json:"name"`
	Geolocation *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"geolocation"`
}

type product struct {
	Description *string       `json:"description"`
	Items       []productItem `json:"items"`
}

type productItem struct {
	Price *struct {
		Regular *float64 `json:"regular"`
		Promo   *float64 `json:"promo"`
	} `json:"price"`
	Inventory *struct {
		StockLevel string `json:"stockLevel"`
	} `json:"inventory"`
}
