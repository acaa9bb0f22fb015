package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/silverpoint/price-search/internal/http/ratelimit"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 5 * time.Second

// StatusError is returned when an upstream answers with a non-2xx status
// after all attempts are exhausted
type StatusError struct {
	URL      string
	Attempts int
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	msg := "request to " + e.URL + " failed after " + strconv.Itoa(e.Attempts) + " attempts (HTTP " + strconv.Itoa(e.Status) + ")"
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Request describes an outbound call. Body is replayed on retries.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Client is an HTTP client with rate limiting and retry logic
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	config     ratelimit.Config
}

// NewClient creates a new HTTP client. Each attempt is bounded by timeout.
func NewClient(config ratelimit.Config, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    ratelimit.NewLimiter(config),
		config:     config,
	}
}

// NewClientDefault creates a new HTTP client with default settings
func NewClientDefault() *Client {
	return NewClient(ratelimit.DefaultConfig(), DefaultTimeout)
}

// Do performs a request with rate limiting and retry logic.
// On success the caller owns the response body.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	var lastErr error
	target := redact(r.URL)

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, bytes.NewReader(r.Body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		for k, vs := range r.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("User-Agent", "SilverPoint-PriceSearch/1.0")
		if req.Header.Get("Accept") == "" {
			req.Header.Set("Accept", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			var ue *url.Error
			if errors.As(err, &ue) {
				err = ue.Err
			}
			lastErr = err
			if attempt < c.config.MaxRetries && ctx.Err() == nil {
				if err := ratelimit.Sleep(ctx, ratelimit.CalculateBackoff(attempt, c.config)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("request to %s failed after %d attempts: %w", target, attempt+1, lastErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if !ratelimit.IsRetryableStatus(resp.StatusCode) || attempt == c.config.MaxRetries {
			return nil, statusError(resp, target, attempt+1)
		}

		var backoff time.Duration
		if resp.StatusCode == http.StatusTooManyRequests {
			backoff = ratelimit.CalculateRateLimitBackoff(attempt, c.config, resp.Header.Get("Retry-After"))
		} else {
			backoff = ratelimit.CalculateBackoff(attempt, c.config)
		}
		resp.Body.Close()
		if err := ratelimit.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request to %s failed: %w", target, lastErr)
}

// DoJSON performs a request and decodes a JSON response body into v.
func (c *Client) DoJSON(ctx context.Context, r Request, v any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response from %s: %w", redact(r.URL), err)
	}
	return nil
}

// GetJSON performs a GET request and decodes the JSON response into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, URL: rawURL, Header: header}, v)
}

func statusError(resp *http.Response, target string, attempts int) *StatusError {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{URL: target, Attempts: attempts, Status: resp.StatusCode, Body: string(b)}
}

// redact strips the query string so credentials passed as parameters
// never reach logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
