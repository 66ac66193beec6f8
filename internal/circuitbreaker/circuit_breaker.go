// Package circuitbreaker guards best-effort collaborators, Postgres scan
// event writes in particular, so a down dependency stops costing latency
// on every scan.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/scan-gateway/internal/logging"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means calls flow through normally
	StateClosed State = "closed"
	// StateOpen means calls are rejected without reaching the dependency
	StateOpen State = "open"
	// StateHalfOpen means a limited number of probe calls are allowed
	StateHalfOpen State = "half_open"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a circuit breaker
type Config struct {
	Name string
	// MaxConsecutiveFailures opens the circuit once reached
	MaxConsecutiveFailures int
	// CoolDown is how long the circuit stays open before probing
	CoolDown time.Duration
	// HalfOpenProbes is how many successful probes close the circuit again
	HalfOpenProbes int
	Logger         *logging.Logger
}

// DefaultConfig returns breaker settings suited to a non-critical store
func DefaultConfig(name string) *Config {
	return &Config{
		Name:                   name,
		MaxConsecutiveFailures: 5,
		CoolDown:               30 * time.Second,
		HalfOpenProbes:         2,
	}
}

// CircuitBreaker tracks consecutive failures and short-circuits calls to a
// failing dependency until it recovers.
type CircuitBreaker struct {
	name           string
	maxFailures    int
	coolDown       time.Duration
	halfOpenProbes int
	logger         *logging.Logger

	mu              sync.Mutex
	state           State
	consecutiveFail int
	probeSuccesses  int
	probesInFlight  int
	openedAt        time.Time
}

// New creates a circuit breaker from the given configuration
func New(cfg *Config) *CircuitBreaker {
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}
	coolDown := cfg.CoolDown
	if coolDown <= 0 {
		coolDown = 30 * time.Second
	}
	probes := cfg.HalfOpenProbes
	if probes <= 0 {
		probes = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &CircuitBreaker{
		name:           cfg.Name,
		maxFailures:    maxFailures,
		coolDown:       coolDown,
		halfOpenProbes: probes,
		logger:         logger.WithField("circuitBreaker", cfg.Name),
		state:          StateClosed,
	}
}

// Execute runs fn unless the circuit is open. The dependency's own error is
// returned unchanged; ErrCircuitOpen means fn never ran.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

// State returns the current breaker state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.openedAt) < cb.coolDown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probeSuccesses = 0
		cb.probesInFlight = 1
		cb.logger.Info("Circuit breaker half-open, probing dependency")
		return nil

	case StateHalfOpen:
		if cb.probesInFlight >= cb.halfOpenProbes {
			return ErrCircuitOpen
		}
		cb.probesInFlight++
		return nil

	default:
		return nil
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.probesInFlight--
	}

	if err != nil {
		cb.consecutiveFail++
		switch cb.state {
		case StateClosed:
			if cb.consecutiveFail >= cb.maxFailures {
				cb.trip()
			}
		case StateHalfOpen:
			// One failed probe is enough to reopen.
			cb.trip()
		}
		return
	}

	cb.consecutiveFail = 0
	if cb.state == StateHalfOpen {
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.halfOpenProbes {
			cb.state = StateClosed
			cb.logger.Info("Circuit breaker closed after recovery")
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.logger.WithField("consecutiveFailures", cb.consecutiveFail).Warn("Circuit breaker opened")
}
