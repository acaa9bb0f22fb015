package ratelimit

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Config holds outbound rate limiting and retry configuration
type Config struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst" json:"burst"`
	MaxRetries        int     `mapstructure:"max_retries" json:"maxRetries"`
	InitialBackoffMs  int     `mapstructure:"initial_backoff_ms" json:"initialBackoffMs"`
	MaxBackoffMs      int     `mapstructure:"max_backoff_ms" json:"maxBackoffMs"`
}

// DefaultConfig returns the default outbound configuration.
// Retries are off: a failed upstream call degrades to "no data" for the
// current request and is tried again on the next one.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 10,
		Burst:             5,
		MaxRetries:        0,
		InitialBackoffMs:  100,
		MaxBackoffMs:      2000,
	}
}

// NewLimiter creates a token bucket limiter for the config.
// A non-positive rate disables limiting.
func NewLimiter(config Config) *rate.Limiter {
	if config.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
}

// IsRetryableStatus checks if an HTTP status code is retryable
// Retryable: 429, 500-599
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// CalculateBackoff calculates exponential backoff delay for a given attempt
// with 0-25% jitter
func CalculateBackoff(attempt int, config Config) time.Duration {
	exponentialDelay := float64(config.InitialBackoffMs) * math.Pow(2.0, float64(attempt))
	cappedDelay := math.Min(exponentialDelay, float64(config.MaxBackoffMs))
	jitter := rand.Float64() * 0.25 * cappedDelay
	return time.Duration(cappedDelay+jitter) * time.Millisecond
}

// CalculateRateLimitBackoff calculates backoff for HTTP 429 responses.
// A numeric Retry-After header wins over the computed delay.
func CalculateRateLimitBackoff(attempt int, config Config, retryAfter string) time.Duration {
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	exponentialDelay := float64(config.InitialBackoffMs) * math.Pow(3.0, float64(attempt))
	cappedDelay := math.Min(exponentialDelay, float64(config.MaxBackoffMs))
	jitter := rand.Float64() * 0.25 * cappedDelay
	return time.Duration(cappedDelay+jitter) * time.Millisecond
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
