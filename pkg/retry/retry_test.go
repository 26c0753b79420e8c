package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetrier(opts ...Option) *Retrier {
	base := []Option{
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(2 * time.Millisecond),
		WithJitter(0),
	}
	return New(append(base, opts...)...)
}

func TestDo_SucceedsAfterRetryableFailures(t *testing.T) {
	calls := 0
	err := fastRetrier().Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsWhenClassifierRejects(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := fastRetrier(WithRetryIf(func(error) bool { return false })).
		Do(context.Background(), func(ctx context.Context) error {
			calls++
			return boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDo_DoesNotRetryContextErrors(t *testing.T) {
	calls := 0
	err := fastRetrier().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	flaky := errors.New("flaky")
	calls := 0
	retried := 0
	err := fastRetrier(WithOnRetry(func(int, error, time.Duration) { retried++ })).
		Do(context.Background(), func(ctx context.Context) error {
			calls++
			return flaky
		})

	assert.Equal(t, flaky, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retried)
}

func TestDo_CustomClassifier(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	err := fastRetrier(WithRetryIf(func(err error) bool { return errors.Is(err, transient) })).
		Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return transient
			}
			return nil
		})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fastRetrier().Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	v, err := DoWithData(context.Background(), fastRetrier(), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("again")
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, v)
}
