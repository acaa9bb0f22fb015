// Package synth generates reproducible placeholder prices for stores whose
// upstream source has no pricing data.
package synth

import (
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"

	"github.com/silverpoint/price-search/internal/types"
)

const (
	// BasePrice is the lowest synthesized base price.
	BasePrice = 1.00
	// PriceSpread is the width of the synthesized base price range.
	PriceSpread = 8.99
	// FloorPrice is the lowest price a noisy synthesized offer may carry.
	FloorPrice = 0.50
	// InStockPercent is the chance, in percent, that a synthesized offer is in stock.
	InStockPercent = 90
	// MaxDistanceMiles bounds synthesized distances when no coordinates are known.
	MaxDistanceMiles = 10.0
)

// Seed derives a generator seed from the given parts.
// Parts are concatenated without a separator.
func Seed(parts ...string) int64 {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
	}
	return int64(d.Sum64())
}

// PriceFor returns the synthesized price for term at locationID.
// The same pair always yields the same price, in [1.00, 9.99].
func PriceFor(term, locationID string) types.Money {
	r := rand.New(rand.NewSource(Seed(term, locationID)))
	return types.MoneyFromFloat(BasePrice + r.Float64()*PriceSpread)
}

// Offer is one synthesized store offer.
type Offer struct {
	InStock  bool
	Price    types.Money
	Distance float64 // only set when the caller has no coordinates
}

// Stream is a single generator shared by every offer of one request.
// Draw order per offer is fixed: stock, base price, noise, then distance
// only when the caller asks for one.
type Stream struct {
	r *rand.Rand
}

// NewStream returns a stream seeded by term.
func NewStream(term string) *Stream {
	return &Stream{r: rand.New(rand.NewSource(Seed(term)))}
}

// Next draws the next offer. When withDistance is true a distance is drawn
// as well, truncated to one decimal so it stays in [0, MaxDistanceMiles).
func (s *Stream) Next(withDistance bool) Offer {
	o := Offer{InStock: s.r.Intn(100) < InStockPercent}

	base := BasePrice + s.r.Float64()*PriceSpread
	noise := s.r.Float64()*2.0 - 1.0
	o.Price = types.MoneyFromFloat(math.Max(FloorPrice, base+noise))

	if withDistance {
		o.Distance = math.Floor(s.r.Float64()*MaxDistanceMiles*10) / 10
	}
	return o
}
