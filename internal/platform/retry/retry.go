// Package retry runs an operation until it succeeds, a permanent error is
// classified, attempts run out or the context ends.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, back off and try again
)

// Policy configures Do. Backoff doubles after each failed attempt and is capped
// at MaxBackoff when that is set. A nil Clock means the real clock.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Clock          clockwork.Clock
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action
type Operation[T any] func() (T, error)
type VoidOperation func() error

// Transient retries everything except context cancellation and deadlines.
func Transient(err error) Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Stop
	}
	return Retry
}

// TransientWithin is for operations that give each attempt its own deadline.
// An attempt that timed out is retried for as long as ctx is live.
func TransientWithin(ctx context.Context) Classify {
	return func(err error) Action {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return Stop
		}
		return Retry
	}
}

func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, errors.New("retry: MaxAttempts must be >= 1")
	}

	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if classify(err) == Stop {
			return zero, &PermanentError{Err: err}
		}

		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		timer := clock.NewTimer(backoff)
		select {
		case <-timer.Chan():
			backoff *= 2
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

func DoVoid(ctx context.Context, p Policy, classify Classify, op VoidOperation) error {
	_, err := Do(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
