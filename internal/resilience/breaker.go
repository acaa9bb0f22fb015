// Package resilience guards upstream sources with a circuit breaker so a
// failing source is skipped quickly instead of costing a timeout per call.
package resilience

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/silverpoint/price-search/internal/metrics"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed allows requests to pass through.
	Closed State = iota

	// Open rejects requests immediately.
	Open

	// HalfOpen allows a limited number of probe requests.
	HalfOpen
)

// String returns the string representation of the circuit breaker state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds configuration for the circuit breaker.
type Config struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	// Zero disables the breaker.
	MaxFailures int `mapstructure:"max_failures"`

	// ResetTimeout is how long to wait before probing again.
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`

	// HalfOpenMaxCalls is the number of successful probes needed to close the circuit.
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls"`
}

// DefaultConfig returns the default circuit breaker configuration.
func DefaultConfig() Config {
	return Config{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker implements the circuit breaker pattern for an upstream source.
// A nil *Breaker allows everything.
type Breaker struct {
	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time
	config          Config
	metrics         *metrics.Recorder
	logger          *zerolog.Logger
	name            string
	now             func() time.Time
}

// New creates a new circuit breaker.
func New(name string, config Config, m *metrics.Recorder, logger *zerolog.Logger) *Breaker {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}
	if config.HalfOpenMaxCalls < 1 {
		config.HalfOpenMaxCalls = 1
	}
	b := &Breaker{
		state:   Closed,
		config:  config,
		metrics: m,
		logger:  logger,
		name:    name,
		now:     time.Now,
	}
	b.metrics.RecordBreakerState(name, int(Closed))
	return b
}

// Allow reports whether a request should be sent upstream.
func (b *Breaker) Allow() bool {
	if b == nil || b.config.MaxFailures <= 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.lastFailureTime) >= b.config.ResetTimeout {
			b.transitionTo(HalfOpen)
			b.logger.Info().
				Str("circuit_breaker", b.name).
				Msg("Circuit breaker transitioning to half-open")
			return true
		}
		return false
	case HalfOpen:
		return b.successCount < b.config.HalfOpenMaxCalls
	default:
		return false
	}
}

// RecordSuccess records a successful upstream call.
func (b *Breaker) RecordSuccess() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		b.failureCount = 0
	case HalfOpen:
		b.successCount++
		if b.successCount >= b.config.HalfOpenMaxCalls {
			b.transitionTo(Closed)
			b.logger.Info().
				Str("circuit_breaker", b.name).
				Msg("Circuit breaker closing after successful recovery")
		}
	}
}

// RecordFailure records a failed upstream call.
func (b *Breaker) RecordFailure(err error) {
	if b == nil || b.config.MaxFailures <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case Closed:
		if b.failureCount >= b.config.MaxFailures {
			b.transitionTo(Open)
			b.logger.Warn().
				Err(err).
				Str("circuit_breaker", b.name).
				Int("failure_count", b.failureCount).
				Dur("reset_timeout", b.config.ResetTimeout).
				Msg("Circuit breaker opening after max failures")
		}
	case HalfOpen:
		b.transitionTo(Open)
		b.logger.Warn().
			Err(err).
			Str("circuit_breaker", b.name).
			Msg("Circuit breaker re-opening after failure in half-open state")
	}
}

func (b *Breaker) transitionTo(s State) {
	b.state = s
	b.successCount = 0
	if s == Closed {
		b.failureCount = 0
	}
	b.metrics.RecordBreakerState(b.name, int(s))
}

// State returns the current state of the circuit breaker.
func (b *Breaker) State() State {
	if b == nil {
		return Closed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset resets the circuit breaker to closed state.
func (b *Breaker) Reset() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(Closed)
}
