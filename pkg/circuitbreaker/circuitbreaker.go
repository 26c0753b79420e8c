// Package circuitbreaker stops hammering a failing dependency. After a run of
// consecutive failures the breaker opens and calls fail fast until a cool-down
// has passed, then a limited number of probe calls decide whether to close it.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when all half-open probe slots are taken.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds circuit breaker configuration.
type Config struct {
	Name string

	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold int

	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int

	// Cooldown is the time spent open before probing.
	Cooldown time.Duration

	// MaxProbes is the number of concurrent calls allowed while half-open.
	MaxProbes int

	OnStateChange func(name string, from, to State)

	// IsFailure decides which errors count. Nil counts every non-nil error.
	IsFailure func(error) bool

	now func() time.Time
}

// Option is a functional option for configuring the circuit breaker.
type Option func(*Config)

func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Cooldown = d
		}
	}
}

func WithMaxProbes(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxProbes = n
		}
	}
}

func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) {
		c.OnStateChange = fn
	}
}

func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) {
		c.IsFailure = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.now = now
		}
	}
}

// Counts holds the current counters.
type Counts struct {
	Requests             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker implements the circuit breaker pattern.
type CircuitBreaker struct {
	config Config

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	probes   int
}

// New creates a new CircuitBreaker.
func New(name string, opts ...Option) *CircuitBreaker {
	config := Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		MaxProbes:        1,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.config.now().Sub(cb.openedAt) < cb.config.Cooldown {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probes = 1
		return nil
	case StateHalfOpen:
		if cb.probes < cb.config.MaxProbes {
			cb.probes++
			return nil
		}
		return ErrTooManyRequests
	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.counts.Requests++

	failed := err != nil
	if failed && cb.config.IsFailure != nil {
		failed = cb.config.IsFailure(err)
	}

	if !failed {
		cb.counts.TotalSuccesses++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen {
			if cb.probes > 0 {
				cb.probes--
			}
			if cb.counts.ConsecutiveSuccesses >= cb.config.SuccessThreshold {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	switch cb.state {
	case StateClosed:
		if cb.counts.ConsecutiveFailures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.config.now()
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns the current counters.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.counts = Counts{}
	cb.probes = 0
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// IsRejection reports whether err came from the breaker rather than from the
// guarded call.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyRequests)
}

// StoreBreaker returns a breaker tuned for the progress database.
func StoreBreaker(isFailure func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(
		"progress-store",
		WithFailureThreshold(5),
		WithSuccessThreshold(1),
		WithCooldown(10*time.Second),
		WithMaxProbes(1),
		WithIsFailure(isFailure),
		WithOnStateChange(onStateChange),
	)
}
