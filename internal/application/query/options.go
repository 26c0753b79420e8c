// Package query contains read operations following CQRS pattern.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"github.com/qaplayground/playground-hub/pkg/logger"
)

// Metric labels reported through Recorder.
const (
	SourceCache    = "cache"
	SourceStore    = "store"
	SourceInFlight = "shared"

	ResetMonthly = "monthly"
)

// Recorder receives query metrics.
type Recorder interface {
	RankingRead(source string)
	Reset(reason string)
	ObserveOperation(operation string, start time.Time)
}

// RankingInvalidator drops cached rankings.
type RankingInvalidator interface {
	Invalidate(ctx context.Context) error
}

type nopRecorder struct{}

func (nopRecorder) RankingRead(string)                 {}
func (nopRecorder) Reset(string)                       {}
func (nopRecorder) ObserveOperation(string, time.Time) {}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) error { return nil }

type handlerDeps struct {
	recorder    Recorder
	invalidator RankingInvalidator
	log         *logger.Logger
}

// Option configures a query handler.
type Option func(*handlerDeps)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *handlerDeps) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithInvalidator sets the ranking cache invalidator, used when a read
// applies the monthly reset.
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
