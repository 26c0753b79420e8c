// Package retry runs operations with exponential backoff and jitter.
// The schedule itself comes from cenkalti/backoff; this package adds the
// error classification hook used across the service.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// JitterFactor is the randomization factor in [0, 1].
	JitterFactor float64

	// RetryIf decides whether an error is retried.
	// If nil, every error except context cancellation is retried.
	RetryIf func(error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// Option is a functional option for configuring retries.
type Option func(*Config)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.InitialDelay = d
		}
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.MaxDelay = d
		}
	}
}

// WithMultiplier sets the backoff multiplier.
func WithMultiplier(m float64) Option {
	return func(c *Config) {
		if m >= 1.0 {
			c.Multiplier = m
		}
	}
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(c *Config) {
		if j >= 0 && j <= 1.0 {
			c.JitterFactor = j
		}
	}
}

// WithRetryIf sets the retry classifier.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.RetryIf = fn
	}
}

// WithOnRetry sets a callback invoked before each retry.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(c *Config) {
		c.OnRetry = fn
	}
}

// Retrier manages retry operations.
type Retrier struct {
	config Config
}

// New creates a new Retrier with the given options.
func New(opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Retrier{config: config}
}

// Config returns a copy of the retrier configuration.
func (r *Retrier) Config() Config {
	return r.config
}

func (r *Retrier) schedule(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.config.InitialDelay
	eb.MaxInterval = r.config.MaxDelay
	eb.Multiplier = r.config.Multiplier
	eb.RandomizationFactor = r.config.JitterFactor
	eb.MaxElapsedTime = 0
	eb.Reset()

	var b backoff.BackOff = eb
	if r.config.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(r.config.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}

// Do executes the operation, retrying errors accepted by the classifier.
// The returned error is the last operation error.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempt := 0
	var lastErr error

	op := func() error {
		attempt++
		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !r.shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
	}

	err := backoff.RetryNotify(op, r.schedule(ctx), notify)
	if err == nil {
		return nil
	}
	if lastErr == nil {
		return err
	}
	return lastErr
}

func (r *Retrier) shouldRetry(err error) bool {
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// DoWithData is a helper for operations that return data.
func DoWithData[T any](ctx context.Context, r *Retrier, operation func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = operation(ctx)
		return opErr
	})
	return result, err
}

// StoreRetrier returns a Retrier tuned for short store transactions.
func StoreRetrier(retryIf func(error) bool) *Retrier {
	return New(
		WithMaxAttempts(3),
		WithInitialDelay(50*time.Millisecond),
		WithMaxDelay(1*time.Second),
		WithMultiplier(2.0),
		WithJitter(0.05),
		WithRetryIf(retryIf),
	)
}
