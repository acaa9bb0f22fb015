package kroger

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/silverpoint/price-search/internal/metrics"
	"github.com/silverpoint/price-search/internal/types"
)

// RefreshMargin is how long a cached token must remain valid to be reused.
const RefreshMargin = 5 * time.Minute

var tracer = otel.Tracer("github.com/silverpoint/price-search/internal/kroger")

// TokenManager owns the client-credentials token for the primary source.
//
// The cached token is swapped atomically. Concurrent requests that find it
// stale may each exchange a new one; the last writer wins.
type TokenManager struct {
	oauth      *clientcredentials.Config
	httpClient *http.Client
	token      atomic.Pointer[types.AccessToken]
	now        func() time.Time
	metrics    *metrics.Recorder
	logger     *zerolog.Logger
}

// NewTokenManager creates a token manager. Without credentials in cfg every
// call to Token reports absence.
func NewTokenManager(cfg Config, m *metrics.Recorder, logger *zerolog.Logger) *TokenManager {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	tm := &TokenManager{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		metrics:    m,
		logger:     logger,
	}
	if cfg.Configured() {
		tm.oauth = &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.tokenURL(),
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		if cfg.Scope != "" {
			tm.oauth.Scopes = []string{cfg.Scope}
		}
	}
	return tm
}

// Configured reports whether client credentials are present.
func (tm *TokenManager) Configured() bool {
	return tm != nil && tm.oauth != nil
}

// Token returns a token valid for at least RefreshMargin, exchanging the
// client credentials when the cached one is missing or about to expire.
// It reports false when credentials are absent or the exchange failed; the
// failed exchange is retried on the next call, not within this one.
//
// Within a context from WithRequest the token is resolved once; later calls
// in that request reuse it, or report false once it has been invalidated.
func (tm *TokenManager) Token(ctx context.Context) (*types.AccessToken, bool) {
	if !tm.Configured() {
		return nil, false
	}

	rt := requestFrom(ctx)
	if rt == nil {
		return tm.resolve(ctx)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.resolved {
		return rt.token, rt.token != nil
	}
	rt.resolved = true
	t, ok := tm.resolve(ctx)
	if ok {
		rt.token = t
	}
	return t, ok
}

func (tm *TokenManager) resolve(ctx context.Context) (*types.AccessToken, bool) {
	if t := tm.token.Load(); t.ValidFor(tm.now(), RefreshMargin) {
		return t, true
	}

	ctx, span := tracer.Start(ctx, "kroger.token")
	defer span.End()

	start := tm.now()
	tok, err := tm.oauth.Token(context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient))
	if err == nil && tok.AccessToken == "" {
		err = errors.New("token response without access_token")
	}
	if err != nil {
		tm.metrics.RecordTokenRefresh(false)
		tm.metrics.RecordUpstream("kroger", "token", "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "token exchange failed")

		ev := tm.logger.Warn().Err(err).Str("component", "kroger")
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			ev = ev.Int("status", re.Response.StatusCode)
		}
		ev.Msg("Token fetch failed")
		return nil, false
	}

	t := &types.AccessToken{Value: tok.AccessToken, ExpiresAt: tok.Expiry}
	tm.token.Store(t)
	tm.metrics.RecordTokenRefresh(true)
	tm.metrics.RecordUpstream("kroger", "token", "ok", time.Since(start))
	span.SetAttributes(attribute.String("token.expires_at", t.ExpiresAt.Format(time.RFC3339)))

	tm.logger.Info().
		Str("component", "kroger").
		Dur("expires_in", t.ExpiresAt.Sub(tm.now())).
		Msg("Obtained access token")
	return t, true
}

// Invalidate drops t after the upstream rejected it. The shared cache is
// cleared only if it still holds t, so a newer token from another request
// survives. Inside a request scope, t is also withdrawn for the rest of that
// request.
func (tm *TokenManager) Invalidate(ctx context.Context, t *types.AccessToken) {
	if tm == nil || t == nil {
		return
	}
	tm.token.CompareAndSwap(t, nil)
	if rt := requestFrom(ctx); rt != nil {
		rt.mu.Lock()
		if rt.token == t {
			rt.token = nil
		}
		rt.mu.Unlock()
	}
}
