// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/qaplayground/playground-hub/internal/domain/shared"
	"github.com/qaplayground/playground-hub/pkg/logger"
	"github.com/qaplayground/playground-hub/pkg/retry"
)

// Metric labels reported through Recorder.
const (
	OutcomeAwarded          = "awarded"
	OutcomeAlreadyCompleted = "already_completed"
	OutcomeRejected         = "rejected"
	OutcomeError            = "error"

	ResetMonthly = "monthly"
	ResetManual  = "manual"
)

// Recorder receives command metrics.
type Recorder interface {
	Completion(outcome, tier string, xp int)
	Reset(reason string)
	ObserveOperation(operation string, start time.Time)
}

// RankingInvalidator drops cached rankings after a balance changes.
type RankingInvalidator interface {
	Invalidate(ctx context.Context) error
}

type nopRecorder struct{}

func (nopRecorder) Completion(string, string, int)     {}
func (nopRecorder) Reset(string)                       {}
func (nopRecorder) ObserveOperation(string, time.Time) {}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) error { return nil }

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

type handlerDeps struct {
	retrier     *retry.Retrier
	recorder    Recorder
	invalidator RankingInvalidator
	log         *logger.Logger
}

// Option configures a command handler.
type Option func(*handlerDeps)

// WithRetrier replaces the default store retrier.
func WithRetrier(r *retry.Retrier) Option {
	return func(d *handlerDeps) {
		if r != nil {
			d.retrier = r
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *handlerDeps) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithInvalidator sets the ranking cache invalidator.
func WithInvalidator(inv RankingInvalidator) Option {
	return func(d *handlerDeps) {
		if inv != nil {
			d.invalidator = inv
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *handlerDeps) {
		if l != nil {
			d.log = l
		}
	}
}

func buildDeps(component string, opts []Option) handlerDeps {
	d := handlerDeps{
		retrier:     retry.StoreRetrier(shared.IsRetryable),
		recorder:    nopRecorder{},
		invalidator: nopInvalidator{},
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	d.log = d.log.With(logger.Component(component))
	return d
}

// invalidateRanking drops cached rankings. A failure only delays freshness
// until the cache TTL, so it is logged and swallowed.
func (d handlerDeps) invalidateRanking(ctx context.Context, userID string) {
	if err := d.invalidator.Invalidate(context.WithoutCancel(ctx)); err != nil {
		d.log.Warn("ranking cache invalidation failed", logger.UserID(userID), logger.Err(err))
	}
}
