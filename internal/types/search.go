package types

import (
	"math"
	"strconv"
	"time"
)

// Money is an amount in minor currency units (cents).
// It marshals to JSON as a decimal number with two places, e.g. 3.49.
type Money int64

// MoneyFromFloat converts a decimal amount to Money, rounding half away from zero.
func MoneyFromFloat(v float64) Money {
	return Money(math.Round(v * 100))
}

// Float returns the amount as a decimal number.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String formats the amount with two decimal places.
func (m Money) String() string {
	return strconv.FormatFloat(m.Float(), 'f', 2, 64)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Money) UnmarshalJSON(data []byte) error {
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = MoneyFromFloat(f)
	return nil
}

// AccessToken is a bearer token for the primary pricing source.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// ValidFor reports whether the token is still valid for at least margin past now.
func (t *AccessToken) ValidFor(now time.Time, margin time.Duration) bool {
	if t == nil || t.Value == "" {
		return false
	}
	return now.Add(margin).Before(t.ExpiresAt)
}

// StoreLocation is a candidate store near the query point.
type StoreLocation struct {
	ID   string  `json:"id" mapstructure:"id"`
	Name string  `json:"name" mapstructure:"name"`
	Lat  float64 `json:"lat" mapstructure:"lat"`
	Lng  float64 `json:"lng" mapstructure:"lng"`
}

// PricedProduct is the priced result of a product query at one location.
type PricedProduct struct {
	Name    string
	Price   Money
	InStock bool
}

// SearchResult is one store offer returned by the search API.
type SearchResult struct {
	ProductName string  `json:"productName" jsonschema:"required"`
	StoreName   string  `json:"storeName" jsonschema:"required"`
	Price       Money   `json:"price" jsonschema:"required,minimum=0.5"`
	DistanceMi  float64 `json:"distanceMi" jsonschema:"required,minimum=0"`
	InStock     bool    `json:"inStock" jsonschema:"required"`
}
