package kroger

import (
	"context"
	"sync"

	"github.com/silverpoint/price-search/internal/types"
)

type requestKey struct{}

// requestTokens pins the token resolved for one search request. At most one
// resolution happens per request; a token rejected mid-request is not
// replaced until the next request.
type requestTokens struct {
	mu       sync.Mutex
	resolved bool
	token    *types.AccessToken
}

// WithRequest returns a context scoped to a single search request.
func WithRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestKey{}, &requestTokens{})
}

func requestFrom(ctx context.Context) *requestTokens {
	rt, _ := ctx.Value(requestKey{}).(*requestTokens)
	return rt
}

// BeginRequest scopes ctx to one search request.
func (c *Client) BeginRequest(ctx context.Context) context.Context {
	return WithRequest(ctx)
}
