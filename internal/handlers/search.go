package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/silverpoint/price-search/internal/search"
	"github.com/silverpoint/price-search/internal/types"
)

// Searcher runs a price search.
type Searcher interface {
	Search(ctx context.Context, q search.Query) []types.SearchResult
}

// SearchRequest represents query parameters for a price search.
// Coordinates are kept as raw strings; unusable values are ignored.
type SearchRequest struct {
	Q   string `form:"q"`
	Lat string `form:"lat"`
	Lng string `form:"lng"`
}

// SearchHandler serves the price search endpoint.
type SearchHandler struct {
	searcher Searcher
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(s Searcher) *SearchHandler {
	return &SearchHandler{searcher: s}
}

// Search returns nearby store offers, cheapest first.
// GET /api/search?q=milk&lat=34.05&lng=-118.24
//
// The endpoint always answers 200 with a JSON array. A coordinate that is
// missing, unparseable or out of range drops both coordinates.
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	// string-only form fields cannot fail to bind
	_ = c.ShouldBindQuery(&req)

	q := search.Query{Term: req.Q}
	lat, latOK := parseCoord(req.Lat, 90)
	lng, lngOK := parseCoord(req.Lng, 180)
	if latOK && lngOK {
		q.Lat = &lat
		q.Lng = &lng
	}

	results := h.searcher.Search(c.Request.Context(), q)
	if results == nil {
		results = []types.SearchResult{}
	}
	c.JSON(http.StatusOK, results)
}

func parseCoord(raw string, limit float64) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}
